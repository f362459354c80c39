package authsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/secure-health/credstore"
	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/internal/metrics"
	"github.com/jrsteele09/secure-health/internal/utils"
	"github.com/jrsteele09/secure-health/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultService is the credential store service name the session is saved under.
const DefaultService = "authInfo"

// Messages shown to the user for refresh failures that do not come from the provider.
const (
	MessageNoSession       = "Auth information is null"
	MessageNoRefreshToken  = "no refresh token was found"
	MessageUnableToPersist = "Unable to save auth information"
)

const refreshKey = "refresh"

// Manager owns the signed-in user's session. It persists the session to a credential
// store and drives login, logout and refresh against an identity provider.
//
// Writes always go to the store first and to memory second, so memory is never ahead
// of what is persisted.
type Manager struct {
	store    credstore.Store
	provider identity.Provider
	service  string
	nowTime  func() time.Time
	metrics  *metrics.Metrics

	lock        sync.RWMutex // guards session, state and subscribers
	session     *session.Session
	state       State
	subscribers map[int]func(State)
	nextSubID   int

	persistLock sync.Mutex // serializes store+memory write pairs
	refreshes   singleflight.Group
}

// Option modifies a Manager.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithService sets the credential store service name
func WithService(service string) Option {
	return func(m *Manager) {
		m.service = service
	}
}

// WithMetrics records operation outcomes and sign-in state
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func New(store credstore.Store, provider identity.Provider, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		provider:    provider,
		service:     DefaultService,
		nowTime:     time.Now,
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsSignedIn is true when a session with an access token and an expiry is held.
// The expiry itself is not checked.
func (m *Manager) IsSignedIn() bool {
	return m.Session().HasCredentials()
}

func (m *Manager) IsSignedOut() bool {
	return !m.IsSignedIn()
}

// Session returns the current session, or nil. Sessions are replaced, never modified,
// so the returned value stays valid; callers must not modify it.
func (m *Manager) Session() *session.Session {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.session
}

func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state
}

func (m *Manager) Flags() AuthStates {
	return m.State().Flags()
}

// LastError returns the message of the current failure, if it has one.
func (m *Manager) LastError() (string, bool) {
	st := m.State()
	if st.Phase != PhaseFailed || st.Message == "" {
		return "", false
	}
	return st.Message, true
}

// Subscribe registers fn to be called after every state transition.
// The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.lock.Lock()
	defer m.lock.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		delete(m.subscribers, id)
	}
}

// Restore loads a previously saved session from the store. An entry that cannot be
// decoded, belongs to another service or lacks credentials is treated as no session.
func (m *Manager) Restore(ctx context.Context) error {
	entry, err := m.store.Load(ctx)
	if ctx.Err() != nil {
		return canceled(ctx)
	}
	if err != nil {
		log.Err(err).Msg("failed to load saved session")
		return err
	}

	var restored *session.Session
	switch {
	case entry == nil:
		log.Debug().Msg("no saved session")
	case entry.Service != m.service:
		log.Warn().Str("service", entry.Service).Msg("ignoring saved session for another service")
	default:
		s, err := session.Unmarshal(entry.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring saved session that cannot be decoded")
			break
		}
		if !s.HasCredentials() {
			log.Warn().Msg("ignoring saved session without credentials")
			break
		}
		restored = s
		log.Info().Strs("scopes", s.Scopes).Str("expires", s.AccessTokenExpirationDate).Msg("restored saved session")
	}

	m.persistLock.Lock()
	m.setSession(restored)
	m.persistLock.Unlock()
	m.notify()
	return nil
}

// Login runs the interactive sign-in and persists the resulting session. A provider
// failure records its message; a persistence failure is reported without one.
func (m *Manager) Login(ctx context.Context) error {
	m.setState(inProgress(OpLogin))

	bundle, err := m.provider.Authorize(ctx)
	if ctx.Err() != nil {
		m.setState(idle())
		m.observe(OpLogin, metrics.OutcomeCanceled)
		return canceled(ctx)
	}
	if err == nil && (bundle == nil || bundle.AccessToken == "") {
		err = fmt.Errorf("identity provider returned no access token")
	}
	if err != nil {
		log.Err(err).Msg("login failed")
		m.setState(failed(OpLogin, err.Error()))
		m.observe(OpLogin, metrics.OutcomeFailure)
		return fmt.Errorf("%w: %w", errors.ErrProviderFailure, err)
	}

	s := &session.Session{
		AccessToken:               bundle.AccessToken,
		AccessTokenExpirationDate: bundle.AccessTokenExpirationDate,
		RefreshToken:              bundle.RefreshToken,
		IDToken:                   bundle.IDToken,
		Scopes:                    utils.CloneSlice(bundle.Scopes),
	}
	if err := m.save(ctx, s); err != nil {
		if ctx.Err() != nil {
			m.setState(idle())
			m.observe(OpLogin, metrics.OutcomeCanceled)
			return canceled(ctx)
		}
		log.Err(err).Msg("failed to save session after login")
		m.setState(failed(OpLogin, ""))
		m.observe(OpLogin, metrics.OutcomeFailure)
		return err
	}

	log.Info().Strs("scopes", s.Scopes).Str("expires", s.AccessTokenExpirationDate).Msg("signed in")
	m.setState(idle())
	m.observe(OpLogin, metrics.OutcomeSuccess)
	return nil
}

// Logout clears the stored session and then the in-memory one. When the store cannot
// be cleared the in-memory session is left as it was. Tokens are not revoked.
func (m *Manager) Logout(ctx context.Context) error {
	m.setState(inProgress(OpLogout))

	if err := m.clear(ctx); err != nil {
		if ctx.Err() != nil {
			m.setState(idle())
			m.observe(OpLogout, metrics.OutcomeCanceled)
			return canceled(ctx)
		}
		log.Err(err).Msg("logout failed")
		m.setState(failed(OpLogout, ""))
		m.observe(OpLogout, metrics.OutcomeFailure)
		return err
	}

	log.Info().Msg("signed out")
	m.setState(idle())
	m.observe(OpLogout, metrics.OutcomeSuccess)
	return nil
}

// RefreshAccessToken exchanges the refresh token for a new access token and returns the
// new session. Concurrent callers share a single provider refresh. On failure the
// session is cleared from the store and from memory.
func (m *Manager) RefreshAccessToken(ctx context.Context) (*session.Session, error) {
	for {
		ch := m.refreshes.DoChan(refreshKey, func() (any, error) {
			return m.refresh(ctx)
		})
		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, canceled(ctx)
		case res = <-ch:
		}
		// A joined refresh that was canceled by the caller that started it is retried
		if res.Shared && errors.Is(res.Err, errors.ErrCanceled) && ctx.Err() == nil {
			continue
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*session.Session), nil
	}
}

// AccessToken returns the current access token, refreshing it first when the session is
// missing or its expiry is absent, invalid or in the past. ok is false when no usable
// token could be obtained.
func (m *Manager) AccessToken(ctx context.Context) (token string, ok bool) {
	s := m.Session()
	if !s.Expired(m.nowTime()) {
		return s.AccessToken, true
	}
	refreshed, err := m.RefreshAccessToken(ctx)
	if err != nil {
		return "", false
	}
	return refreshed.AccessToken, true
}

func (m *Manager) refresh(ctx context.Context) (*session.Session, error) {
	start := time.Now()
	m.setState(inProgress(OpRefresh))

	current := m.Session()
	if current == nil {
		return nil, m.failRefresh(ctx, current, MessageNoSession, errors.ErrNoSession)
	}
	if current.RefreshToken == "" {
		return nil, m.failRefresh(ctx, current, MessageNoRefreshToken, errors.ErrNoRefreshToken)
	}

	bundle, err := m.provider.Refresh(ctx, current.RefreshToken)
	if ctx.Err() != nil {
		m.setState(idle())
		m.observe(OpRefresh, metrics.OutcomeCanceled)
		return nil, canceled(ctx)
	}
	if err == nil && (bundle == nil || bundle.AccessToken == "") {
		err = fmt.Errorf("identity provider returned no access token")
	}
	if err != nil {
		return nil, m.failRefresh(ctx, current, err.Error(), fmt.Errorf("%w: %w", errors.ErrProviderFailure, err))
	}

	next := &session.Session{
		AccessToken:               bundle.AccessToken,
		AccessTokenExpirationDate: bundle.AccessTokenExpirationDate,
		RefreshToken:              current.RefreshToken,
		IDToken:                   bundle.IDToken,
		// Scopes granted at login are kept; a refresh response's scopes are ignored
		Scopes: utils.CloneSlice(current.Scopes),
	}
	if bundle.RefreshToken != "" {
		next.RefreshToken = bundle.RefreshToken
	}

	if err := m.replace(ctx, current, next); err != nil {
		if errors.Is(err, errors.ErrSuperseded) {
			return nil, m.superseded()
		}
		if ctx.Err() != nil {
			m.setState(idle())
			m.observe(OpRefresh, metrics.OutcomeCanceled)
			return nil, canceled(ctx)
		}
		return nil, m.failRefresh(ctx, current, MessageUnableToPersist, err)
	}

	log.Debug().Str("expires", next.AccessTokenExpirationDate).Bool("rotated", bundle.RefreshToken != "").Msg("access token refreshed")
	m.setState(idle())
	m.observe(OpRefresh, metrics.OutcomeSuccess)
	if m.metrics != nil {
		m.metrics.ObserveRefresh(start)
	}
	return next, nil
}

// failRefresh signs the user out locally after a refresh failure. If clearing fails too
// the session stays in memory next to the failed state; nothing retries. A session that
// a login or logout replaced while the refresh ran is left alone.
func (m *Manager) failRefresh(ctx context.Context, current *session.Session, message string, cause error) error {
	log.Err(cause).Msg("refresh failed, clearing session")
	err := m.clearIfCurrent(context.WithoutCancel(ctx), current)
	if errors.Is(err, errors.ErrSuperseded) {
		return m.superseded()
	}
	if err != nil {
		log.Err(err).Msg("failed to clear session after refresh failure, session left in place")
	}
	m.setState(failed(OpRefresh, message))
	m.observe(OpRefresh, metrics.OutcomeFailure)
	return cause
}

// superseded records the outcome of a refresh whose session was replaced while it ran.
// The state is left at the outcome of the login or logout that replaced it.
func (m *Manager) superseded() error {
	log.Info().Msg("session changed during refresh, refresh result discarded")
	m.observe(OpRefresh, metrics.OutcomeCanceled)
	return errors.Wrapf(errors.ErrSuperseded, "refresh")
}

// save writes s to the store and then to memory.
func (m *Manager) save(ctx context.Context, s *session.Session) error {
	m.persistLock.Lock()
	defer m.persistLock.Unlock()
	return m.saveLocked(ctx, s)
}

// replace saves next only while current is still the in-memory session.
func (m *Manager) replace(ctx context.Context, current, next *session.Session) error {
	m.persistLock.Lock()
	defer m.persistLock.Unlock()
	if m.Session() != current {
		return errors.ErrSuperseded
	}
	return m.saveLocked(ctx, next)
}

// saveLocked requires persistLock. Once the store write starts the pair runs to
// completion regardless of ctx.
func (m *Manager) saveLocked(ctx context.Context, s *session.Session) error {
	payload, err := s.Marshal()
	if err != nil {
		return errors.Wrapf(errors.ErrPersistence, "encode session: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.store.Save(context.WithoutCancel(ctx), m.service, payload); err != nil {
		return errors.Wrapf(errors.ErrPersistence, "save session: %v", err)
	}
	m.setSession(s)
	return nil
}

// clear removes the session from the store and then from memory.
func (m *Manager) clear(ctx context.Context) error {
	m.persistLock.Lock()
	defer m.persistLock.Unlock()
	return m.clearLocked(ctx)
}

// clearIfCurrent clears only while current is still the in-memory session.
func (m *Manager) clearIfCurrent(ctx context.Context, current *session.Session) error {
	m.persistLock.Lock()
	defer m.persistLock.Unlock()
	if m.Session() != current {
		return errors.ErrSuperseded
	}
	return m.clearLocked(ctx)
}

func (m *Manager) clearLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return errors.Wrapf(errors.ErrStoreClear, "clear session: %v", err)
	}
	m.setSession(nil)
	return nil
}

func (m *Manager) setSession(s *session.Session) {
	m.lock.Lock()
	m.session = s
	m.lock.Unlock()
	if m.metrics != nil {
		m.metrics.SetSignedIn(s.HasCredentials())
	}
}

func (m *Manager) setState(st State) {
	m.lock.Lock()
	m.state = st
	m.lock.Unlock()
	m.notify()
}

func (m *Manager) notify() {
	m.lock.RLock()
	st := m.state
	subs := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.lock.RUnlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (m *Manager) observe(op Op, outcome string) {
	if m.metrics != nil {
		m.metrics.ObserveOperation(string(op), outcome)
	}
}

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", errors.ErrCanceled, ctx.Err())
}
