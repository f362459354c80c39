package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/authsession/devoverride"
	"github.com/jrsteele09/secure-health/credstore/fakestore"
	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/identity/fakeprovider"
	"github.com/jrsteele09/secure-health/internal/config"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/navigation"
	"github.com/jrsteele09/secure-health/photos"
	"github.com/jrsteele09/secure-health/screens"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	config.EnvVars
	config.Identity
	config.API
	config.Store
	config.Metrics
}

type replFixture struct {
	provider *fakeprovider.FakeProvider
	out      *bytes.Buffer
	repl     *repl
}

func setupReplFixture(t *testing.T) *replFixture {
	t.Helper()
	provider := fakeprovider.NewFakeProvider()
	m := authsession.New(fakestore.NewFakeStore(), provider)
	override := devoverride.New(m)
	out := &bytes.Buffer{}
	a := &app{cfg: testConfig{}, manager: m, view: override, override: override, out: out}
	r := &repl{
		app:       a,
		nav:       navigation.NewShell(a.view),
		photosDir: t.TempDir(),
		uploader:  photos.NewStubUploader(0),
	}
	unsubscribe := m.Subscribe(func(authsession.State) { r.changed.Store(true) })
	t.Cleanup(unsubscribe)
	r.sync()
	return &replFixture{provider: provider, out: out, repl: r}
}

func (f *replFixture) exec(t *testing.T, line string) error {
	t.Helper()
	_, err := f.repl.exec(context.Background(), line)
	f.repl.sync()
	return err
}

func (f *replFixture) screen() navigation.Screen {
	return f.repl.current().Name()
}

func TestLoginRemountsToDashboard(t *testing.T) {
	f := setupReplFixture(t)
	require.Equal(t, navigation.Welcome, f.screen())

	f.provider.QueueAuthorize(fakeprovider.Result{Bundle: &identity.TokenBundle{
		AccessToken:               "A",
		AccessTokenExpirationDate: "2099-01-01T00:00:00Z",
		RefreshToken:              "R",
	}})
	require.NoError(t, f.exec(t, "login"))
	require.Equal(t, navigation.Dashboard, f.screen())

	require.NoError(t, f.exec(t, "logout"))
	require.Equal(t, navigation.Welcome, f.screen())
}

func TestFakeSignInRemounts(t *testing.T) {
	f := setupReplFixture(t)
	require.NoError(t, f.exec(t, "fake on"))
	require.Equal(t, navigation.Dashboard, f.screen())

	require.NoError(t, f.exec(t, "fake clear"))
	require.Equal(t, navigation.Welcome, f.screen())

	require.ErrorIs(t, f.exec(t, "fake maybe"), errors.ErrValidation)
}

func TestPhotoFlow(t *testing.T) {
	f := setupReplFixture(t)
	require.NoError(t, f.exec(t, "fake on"))

	path := filepath.Join(t.TempDir(), "a.jpg")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))

	require.NoError(t, f.exec(t, "go TakePhoto"))
	require.NoError(t, f.exec(t, "capture "+path))
	require.ErrorIs(t, f.exec(t, "back"), errors.ErrUnsavedChanges)
	require.NoError(t, f.exec(t, "done"))
	require.Equal(t, navigation.PhotoDetail, f.screen())
	require.Len(t, f.repl.models, 3)

	require.NoError(t, f.exec(t, "title case-7"))
	require.Equal(t, "case-7", f.repl.current().(*screens.PhotoDetail).Batch().Title)
	require.NoError(t, f.exec(t, "upload"))
	require.Equal(t, navigation.Dashboard, f.screen())
	require.Len(t, f.repl.models, 1)
	require.Contains(t, f.out.String(), "Uploaded 1 photo(s)")
}

func TestUnknownCommands(t *testing.T) {
	f := setupReplFixture(t)
	require.ErrorIs(t, f.exec(t, "go Readings"), errors.ErrUnknownScreen)
	require.ErrorContains(t, f.exec(t, "logout"), "unknown command")

	require.NoError(t, f.exec(t, "go Photos"))
	require.Equal(t, navigation.Photos, f.screen())
	require.NoError(t, f.exec(t, "reload"))
}

func TestLoopQuits(t *testing.T) {
	f := setupReplFixture(t)
	f.repl.in = strings.NewReader("help\nquit\n")
	require.NoError(t, f.repl.loop(context.Background()))
	require.Contains(t, f.out.String(), "Anywhere:")
	require.Contains(t, f.out.String(), "DEV: fake on|off|clear")
}
