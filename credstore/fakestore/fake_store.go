package fakestore

import (
	"context"
	"sync"

	"github.com/jrsteele09/secure-health/credstore"
	"github.com/jrsteele09/secure-health/internal/errors"
)

var _ credstore.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credential store with failure injection.
// It backs the "memory" store backend and the session manager tests.
type FakeStore struct {
	lock  sync.RWMutex
	entry *credstore.Entry

	failSave  bool
	failClear bool
	failLoad  bool

	saves  int
	clears int
	loads  int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// FailSave makes subsequent Save calls fail (true) or succeed (false)
func (fs *FakeStore) FailSave(fail bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failSave = fail
}

// FailClear makes subsequent Clear calls fail (true) or succeed (false)
func (fs *FakeStore) FailClear(fail bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failClear = fail
}

// FailLoad makes subsequent Load calls fail (true) or succeed (false)
func (fs *FakeStore) FailLoad(fail bool) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.failLoad = fail
}

func (fs *FakeStore) Save(ctx context.Context, service string, payload []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.saves++
	if fs.failSave {
		return errors.ErrPersistence
	}
	// Copy so callers can't mutate the stored payload
	fs.entry = &credstore.Entry{Service: service, Payload: append([]byte(nil), payload...)}
	return nil
}

func (fs *FakeStore) Load(ctx context.Context) (*credstore.Entry, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.loads++
	if fs.failLoad {
		return nil, errors.ErrStoreLoad
	}
	if fs.entry == nil {
		return nil, nil
	}
	return &credstore.Entry{Service: fs.entry.Service, Payload: append([]byte(nil), fs.entry.Payload...)}, nil
}

func (fs *FakeStore) Clear(ctx context.Context) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	fs.clears++
	if fs.failClear {
		return errors.ErrStoreClear
	}
	fs.entry = nil
	return nil
}

// Put stores an entry directly, bypassing failure injection and counters
func (fs *FakeStore) Put(service string, payload []byte) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.entry = &credstore.Entry{Service: service, Payload: append([]byte(nil), payload...)}
}

// Peek returns the stored entry without counting a load
func (fs *FakeStore) Peek() *credstore.Entry {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.entry == nil {
		return nil
	}
	return &credstore.Entry{Service: fs.entry.Service, Payload: append([]byte(nil), fs.entry.Payload...)}
}

func (fs *FakeStore) Saves() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.saves
}

func (fs *FakeStore) Clears() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.clears
}

func (fs *FakeStore) Loads() int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.loads
}
