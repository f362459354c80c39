package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/internal/utils"
)

// Session is the authenticated credential bundle of the signed-in user.
// It is persisted as JSON in the credential store under a single service entry.
type Session struct {
	AccessToken               string   `json:"accessToken"`               // Bearer credential for API calls
	AccessTokenExpirationDate string   `json:"accessTokenExpirationDate"` // ISO-8601; advisory, absent or invalid means expired
	RefreshToken              string   `json:"refreshToken"`              // Exchanged for a new access token
	IDToken                   string   `json:"idToken"`                   // Identity assertion, not validated here
	Scopes                    []string `json:"scopes"`                    // Granted OAuth scopes, in order
}

// HasCredentials reports whether both the access token and its expiry are present.
// Expiry is not checked: an expired token still counts, refresh failure is what signs a user out.
func (s *Session) HasCredentials() bool {
	if s == nil {
		return false
	}
	return s.AccessToken != "" && s.AccessTokenExpirationDate != ""
}

// ExpiresAt parses the access token expiry. ok is false when it is absent or not a valid timestamp.
func (s *Session) ExpiresAt() (t time.Time, ok bool) {
	if s == nil || s.AccessTokenExpirationDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.AccessTokenExpirationDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Expired reports whether the access token must be refreshed before use.
func (s *Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	if !ok {
		return true
	}
	return exp.Before(now)
}

// Clone returns a deep copy, or nil for a nil session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Scopes = utils.CloneSlice(s.Scopes)
	return &c
}

// Marshal encodes the session in its persisted layout.
func (s *Session) Marshal() ([]byte, error) {
	if s == nil {
		return nil, errors.ErrNoSession
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a persisted session payload.
func Unmarshal(payload []byte) (*Session, error) {
	var s *Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidSession, "unmarshal session: %v", err)
	}
	if s == nil {
		return nil, errors.Wrapf(errors.ErrInvalidSession, "unmarshal session: empty payload")
	}
	return s, nil
}

// FormatExpiry renders an expiry time in the persisted format. The zero time becomes "".
func FormatExpiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
