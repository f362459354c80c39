package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jrsteele09/secure-health/apiclient"
	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/authsession/devoverride"
	"github.com/jrsteele09/secure-health/credstore/backend"
	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/identity/oidcclient"
	"github.com/jrsteele09/secure-health/internal/config"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/internal/metrics"
	"github.com/jrsteele09/secure-health/photos"
	"github.com/jrsteele09/secure-health/readings"
	"github.com/jrsteele09/secure-health/screens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

const (
	httpTimeout = 30 * time.Second
	// uploadDelay is the simulated transfer time per photo
	uploadDelay = 200 * time.Millisecond
)

// app holds the wired components shared by every command.
type app struct {
	cfg      config.Config
	closer   io.Closer
	manager  *authsession.Manager
	view     authsession.View
	override *devoverride.Override // nil outside DEV
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	http     *http.Client
	out      io.Writer
}

func newApp(ctx context.Context, c config.Config, noBrowser bool) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, closer, err := backend.Open(ctx, c)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: httpTimeout}
	opener := oidcclient.OpenBrowser
	if noBrowser {
		opener = oidcclient.PrintURL
	}
	provider, err := oidcclient.New(ctx, identity.ConfigFromEnv(c), oidcclient.WithOpener(opener), oidcclient.WithHTTPClient(hc))
	if err != nil {
		closer.Close()
		return nil, err
	}

	manager := authsession.New(store, provider,
		authsession.WithService(c.GetCredentialService()),
		authsession.WithMetrics(m),
	)
	if err := manager.Restore(ctx); err != nil {
		// The app still starts signed out
		log.Error().Err(err).Msg("unable to restore the saved session")
	}

	a := &app{
		cfg:      c,
		closer:   closer,
		manager:  manager,
		view:     manager,
		registry: registry,
		metrics:  m,
		http:     hc,
		out:      os.Stdout,
	}
	if devoverride.Enabled(c) {
		value, err := devoverride.ParseValue(c.GetDevFakeSignIn())
		if err != nil {
			log.Warn().Err(err).Msg("ignoring fake sign-in value")
		}
		a.override = devoverride.New(manager)
		a.override.Set(value)
		a.view = a.override
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.closer.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close the credential store")
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx)
	case "logout":
		return a.logout(ctx)
	case "status":
		return a.status()
	case "token":
		return a.token(ctx)
	case "reading":
		return a.reading(ctx, args)
	case "photos":
		return a.photos(ctx, args)
	case "shell":
		return a.shell(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context) error {
	if err := a.manager.Login(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed in")
	if s := a.manager.Session(); s != nil {
		if id, err := identity.ParseIdentity(s.IDToken); err == nil && id.DisplayName() != "" {
			fmt.Fprintf(a.out, "Welcome, %s\n", id.DisplayName())
		}
	}
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) status() error {
	s := a.view.Session()
	if !a.view.IsSignedIn() || s == nil {
		fmt.Fprintln(a.out, "Signed out")
		return nil
	}
	fmt.Fprintln(a.out, "Signed in")
	if id, err := identity.ParseIdentity(s.IDToken); err == nil {
		fmt.Fprintf(a.out, "  user:    %s\n", id.DisplayName())
	}
	if expiry, ok := s.ExpiresAt(); ok {
		state := "valid"
		if s.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(a.out, "  expires: %s (%s)\n", expiry.Local().Format(time.RFC1123), state)
	} else {
		fmt.Fprintln(a.out, "  expires: unknown")
	}
	fmt.Fprintf(a.out, "  refresh: %t\n", s.RefreshToken != "")
	fmt.Fprintf(a.out, "  scopes:  %s\n", strings.Join(s.Scopes, " "))
	if a.override != nil && a.override.Value() != nil {
		fmt.Fprintln(a.out, "  (fake sign-in override active)")
	}
	return nil
}

func (a *app) token(ctx context.Context) error {
	token, ok := a.manager.AccessToken(ctx)
	if !ok {
		if msg, failed := a.manager.LastError(); failed {
			return fmt.Errorf("%w: %s", errors.ErrNoAccessToken, msg)
		}
		return errors.ErrNoAccessToken
	}
	fmt.Fprintln(a.out, token)
	return nil
}

func (a *app) newReadings() *screens.Readings {
	return screens.NewReadings(readings.NewPostDataReading(a.http, a.cfg.GetBaseAPIURL(), a.manager, apiclient.WithMetrics(a.metrics)))
}

func (a *app) reading(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reading", flag.ContinueOnError)
	steps := fs.String("steps", "", "steps value between 0 and 500")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.cfg.GetBaseAPIURL() == "" {
		return fmt.Errorf("%w: BASE_API_URL is not set", errors.ErrValidation)
	}
	r := a.newReadings()
	errs := r.Errors()
	if *steps != "" {
		errs = r.SetSteps(*steps)
	}
	if !errs.Valid() {
		return fmt.Errorf("%w: %s", errors.ErrValidation, errs.Steps)
	}
	_, err := r.Submit(ctx)
	if resp, ok := r.Response(); ok {
		fmt.Fprintln(a.out, resp)
	}
	return err
}

func (a *app) photos(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("photos: expected list or upload")
	}
	switch args[0] {
	case "list":
		dir := "."
		if len(args) > 1 {
			dir = args[1]
		}
		list := screens.NewPhotoList(photos.NewLibrary(dir))
		if err := list.Load(ctx); err != nil {
			return err
		}
		for _, line := range list.Render() {
			fmt.Fprintln(a.out, line)
		}
		return nil
	case "upload":
		return a.upload(ctx, args[1:])
	default:
		return fmt.Errorf("photos: unknown action %q", args[0])
	}
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("photos upload", flag.ContinueOnError)
	title := fs.String("title", "", "case reference")
	description := fs.String("description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	uris := make([]string, 0, fs.NArg())
	for _, path := range fs.Args() {
		if !photos.IsImage(path) {
			return errors.Wrapf(errors.ErrValidation, "%s is not an image", path)
		}
		uris = append(uris, photos.FileURI(path))
	}
	batch := photos.NewBatch(uris)
	batch.Title, batch.Description = *title, *description

	receipt, err := photos.NewStubUploader(uploadDelay).Upload(ctx, batch.Upload(), func(done, total int) {
		fmt.Fprintf(a.out, "\rUploading... %d%%", photos.Percent(done, total))
	})
	fmt.Fprintln(a.out)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %d photo(s), batch %s\n", receipt.Count, receipt.BatchID)
	return nil
}
