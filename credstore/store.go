package credstore

import "context"

// Entry is the single credential held by a Store.
type Entry struct {
	Service string // Service identifier the payload was saved under
	Payload []byte // JSON serialisation of a session
}

// Store is an encrypted key-value store holding at most one credential entry.
// Saving replaces the existing entry; clearing an empty store succeeds.
type Store interface {
	// Save stores payload under service, replacing any previous entry
	Save(ctx context.Context, service string, payload []byte) error

	// Load returns the stored entry, or nil when the store is empty
	Load(ctx context.Context) (*Entry, error)

	// Clear removes the stored entry
	Clear(ctx context.Context) error
}
