package devoverride

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/internal/config"
	"github.com/jrsteele09/secure-health/internal/utils"
	"github.com/jrsteele09/secure-health/session"
	"github.com/rs/zerolog/log"
)

var _ authsession.View = (*Override)(nil)

// Override is a development-only View that can force the signed-in predicate without a
// real session. The wrapped manager is never modified.
type Override struct {
	view    authsession.View
	nowTime func() time.Time

	lock     sync.RWMutex
	value    *bool
	fake     *session.Session
	backup   *session.Session
	backedUp bool
}

// Option modifies an Override.
type Option func(*Override)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(o *Override) {
		o.nowTime = nowFunc
	}
}

func New(view authsession.View, opts ...Option) *Override {
	o := &Override{view: view, nowTime: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Enabled reports whether the override may be used: only in the DEV environment.
func Enabled(c config.EnvConfig) bool {
	return c.GetEnv() == "DEV"
}

// ParseValue parses DEV_FAKE_SIGN_IN. Empty means no override.
func ParseValue(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid fake sign-in value %q: %w", s, err)
	}
	return utils.Ptr(v), nil
}

// Set forces IsSignedIn to *value, or removes the override when value is nil.
// Enabling it remembers the real session the first time only.
func (o *Override) Set(value *bool) {
	o.lock.Lock()
	defer o.lock.Unlock()

	if value == nil || !*value {
		if o.backedUp && o.view.Session() != o.backup {
			log.Warn().Msg("session changed while the fake sign-in override was active")
		}
		o.backup, o.backedUp, o.fake = nil, false, nil
		o.value = utils.CloneValue(value)
		return
	}

	if !o.backedUp {
		o.backup = o.view.Session()
		o.backedUp = true
	}
	o.fake = &session.Session{
		AccessToken:               "fake-access-token",
		AccessTokenExpirationDate: session.FormatExpiry(o.nowTime().Add(time.Hour)),
		RefreshToken:              "fake-refresh-token",
		IDToken:                   "fake-id-token",
		Scopes:                    []string{"openid", "offline_access"},
	}
	o.value = utils.Ptr(true)
	log.Warn().Msg("fake sign-in override enabled")
}

// Value returns the current override, nil when none is set.
func (o *Override) Value() *bool {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return utils.CloneValue(o.value)
}

// Backup returns the real session remembered when the override was enabled.
func (o *Override) Backup() *session.Session {
	o.lock.RLock()
	defer o.lock.RUnlock()
	return o.backup
}

func (o *Override) IsSignedIn() bool {
	o.lock.RLock()
	value := o.value
	o.lock.RUnlock()
	if value != nil {
		return *value
	}
	return o.view.IsSignedIn()
}

func (o *Override) IsSignedOut() bool {
	return !o.IsSignedIn()
}

func (o *Override) Session() *session.Session {
	o.lock.RLock()
	fake := o.fake
	o.lock.RUnlock()
	if fake != nil {
		return fake
	}
	return o.view.Session()
}

func (o *Override) State() authsession.State {
	return o.view.State()
}

func (o *Override) Flags() authsession.AuthStates {
	return o.view.Flags()
}

func (o *Override) LastError() (string, bool) {
	return o.view.LastError()
}
