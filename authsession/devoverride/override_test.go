package devoverride_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/authsession/devoverride"
	"github.com/jrsteele09/secure-health/credstore/fakestore"
	"github.com/jrsteele09/secure-health/identity/fakeprovider"
	"github.com/jrsteele09/secure-health/internal/utils"
	"github.com/jrsteele09/secure-health/session"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type overrideFixture struct {
	manager  *authsession.Manager
	override *devoverride.Override
}

func setupOverrideFixture(t *testing.T, saved *session.Session) *overrideFixture {
	t.Helper()
	store := fakestore.NewFakeStore()
	if saved != nil {
		payload, err := saved.Marshal()
		require.NoError(t, err)
		store.Put(authsession.DefaultService, payload)
	}
	m := authsession.New(store, fakeprovider.NewFakeProvider())
	require.NoError(t, m.Restore(context.Background()))
	return &overrideFixture{
		manager:  m,
		override: devoverride.New(m, devoverride.WithNowTime(func() time.Time { return testNow })),
	}
}

func realSession() *session.Session {
	return &session.Session{
		AccessToken:               "A",
		AccessTokenExpirationDate: "2099-01-01T00:00:00Z",
		RefreshToken:              "R",
		IDToken:                   "I",
		Scopes:                    []string{"openid"},
	}
}

func TestPassThroughWithoutOverride(t *testing.T) {
	f := setupOverrideFixture(t, realSession())
	require.True(t, f.override.IsSignedIn())
	require.Same(t, f.manager.Session(), f.override.Session())
	require.Nil(t, f.override.Value())
}

func TestForceSignedInWithoutSession(t *testing.T) {
	f := setupOverrideFixture(t, nil)
	require.False(t, f.override.IsSignedIn())

	f.override.Set(utils.Ptr(true))
	require.True(t, f.override.IsSignedIn())
	require.False(t, f.override.IsSignedOut())

	fake := f.override.Session()
	require.Equal(t, "fake-access-token", fake.AccessToken)
	require.Equal(t, "fake-refresh-token", fake.RefreshToken)
	require.Equal(t, "fake-id-token", fake.IDToken)
	require.Equal(t, []string{"openid", "offline_access"}, fake.Scopes)
	require.Equal(t, "2025-06-01T13:00:00Z", fake.AccessTokenExpirationDate)

	// The manager itself is untouched
	require.Nil(t, f.manager.Session())
	require.False(t, f.manager.IsSignedIn())
}

func TestForceSignedOut(t *testing.T) {
	f := setupOverrideFixture(t, realSession())
	f.override.Set(utils.Ptr(false))
	require.False(t, f.override.IsSignedIn())
	require.True(t, f.override.IsSignedOut())
	require.True(t, f.manager.IsSignedIn())
}

func TestClearingRestoresRealSession(t *testing.T) {
	f := setupOverrideFixture(t, realSession())
	current := f.manager.Session()

	f.override.Set(utils.Ptr(true))
	require.Same(t, current, f.override.Backup())
	require.NotSame(t, current, f.override.Session())

	// Enabling again keeps the first backup
	f.override.Set(utils.Ptr(true))
	require.Same(t, current, f.override.Backup())

	f.override.Set(nil)
	require.Same(t, current, f.override.Session())
	require.Nil(t, f.override.Backup())
	require.True(t, f.override.IsSignedIn())
}

func TestValueIsCopied(t *testing.T) {
	f := setupOverrideFixture(t, nil)
	v := true
	f.override.Set(&v)
	v = false
	require.True(t, *f.override.Value())
}

func TestParseValue(t *testing.T) {
	v, err := devoverride.ParseValue("")
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = devoverride.ParseValue("true")
	require.NoError(t, err)
	require.True(t, *v)

	v, err = devoverride.ParseValue("false")
	require.NoError(t, err)
	require.False(t, *v)

	_, err = devoverride.ParseValue("maybe")
	require.Error(t, err)
}

type envStub struct{ env string }

func (e envStub) GetAppName() string       { return "secure Health" }
func (e envStub) GetAppEnv() string        { return "dev" }
func (e envStub) GetEnv() string           { return e.env }
func (e envStub) GetLogLevel() string      { return "info" }
func (e envStub) GetDevFakeSignIn() string { return "true" }

func TestEnabledOnlyInDev(t *testing.T) {
	require.True(t, devoverride.Enabled(envStub{env: "DEV"}))
	require.False(t, devoverride.Enabled(envStub{env: "PROD"}))
}
