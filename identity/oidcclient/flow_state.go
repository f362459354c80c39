package oidcclient

import (
	"errors"
	"sync"
	"time"
)

// flowState is the client side of one pending authorization request.
type flowState struct {
	CodeVerifier string
	CreatedAt    time.Time
}

// flowRepo is a thread-safe store of pending authorization requests keyed by the state parameter.
type flowRepo struct {
	mu     sync.Mutex
	states map[string]flowState
}

func newFlowRepo() *flowRepo {
	return &flowRepo{states: make(map[string]flowState)}
}

func (r *flowRepo) Upsert(state string, fs flowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state] = fs
	return nil
}

// Take returns and removes the flow for state. A state can only be redeemed once.
func (r *flowRepo) Take(state string) (flowState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs, ok := r.states[state]
	if ok {
		delete(r.states, state)
	}
	return fs, ok
}

func (r *flowRepo) Delete(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, state)
}

// DeleteOlderThan drops abandoned flows created before cutoff.
func (r *flowRepo) DeleteOlderThan(cutoff time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for state, fs := range r.states {
		if fs.CreatedAt.Before(cutoff) {
			delete(r.states, state)
		}
	}
}
