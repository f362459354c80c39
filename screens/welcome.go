package screens

import (
	"context"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/navigation"
)

const (
	WelcomeText      = "Welcome to SecurePhotoShare"
	AuthErrorLabel   = "Authentication Error Occurred:"
	UnknownErrorText = "Unknown Error"
	loginActionText  = "[login] Log in"
	photosActionText = "[go Photos] Browse photos"
)

// Welcome is the signed-out landing screen.
type Welcome struct {
	view    authsession.View
	actions authsession.Actions
	title   string
}

func NewWelcome(view authsession.View, actions authsession.Actions, title string) *Welcome {
	return &Welcome{view: view, actions: actions, title: title}
}

func (w *Welcome) Name() navigation.Screen { return navigation.Welcome }
func (w *Welcome) Title() string           { return w.title }

// Login starts the interactive sign-in.
func (w *Welcome) Login(ctx context.Context) error {
	return w.actions.Login(ctx)
}

// AuthError returns the message to show after a failed login or refresh.
func (w *Welcome) AuthError() (string, bool) {
	flags := w.view.Flags()
	if !flags.IsAuthError && !flags.IsRefreshingError {
		return "", false
	}
	if msg, ok := w.view.LastError(); ok {
		return msg, true
	}
	return UnknownErrorText, true
}

func (w *Welcome) Render() []string {
	if w.view.Flags().IsAuthLoading {
		return []string{LoadingText}
	}
	lines := []string{WelcomeText, loginActionText, photosActionText}
	if msg, ok := w.AuthError(); ok {
		lines = append(lines, AuthErrorLabel, msg)
	}
	return lines
}
