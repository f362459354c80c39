package authsession

import (
	"context"

	"github.com/jrsteele09/secure-health/session"
)

// View is the read-only side of the session manager handed to presentation code.
type View interface {
	IsSignedIn() bool
	IsSignedOut() bool
	// Session returns the current session or nil. It must be treated as read-only.
	Session() *session.Session
	State() State
	Flags() AuthStates
	LastError() (string, bool)
}

// Actions are the user-initiated operations screens may trigger.
type Actions interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
}

// TokenSource hands out a usable access token, refreshing it first when expired.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, bool)
}

var (
	_ View        = (*Manager)(nil)
	_ Actions     = (*Manager)(nil)
	_ TokenSource = (*Manager)(nil)
)
