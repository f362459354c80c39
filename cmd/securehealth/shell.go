package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/internal/utils"
	"github.com/jrsteele09/secure-health/navigation"
	"github.com/jrsteele09/secure-health/photos"
	"github.com/jrsteele09/secure-health/screens"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// repl drives the navigation shell from line commands. models is parallel to the
// navigation stack.
type repl struct {
	app       *app
	nav       *navigation.Shell
	photosDir string
	uploader  photos.Uploader
	models    []screens.Screen
	changed   atomic.Bool
	in        io.Reader
}

func (a *app) shell(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	photosDir := fs.String("photos", ".", "directory the photo list is read from")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if addr := a.cfg.GetMetricsAddr(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
		server := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := listenAndServe(server); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			if err := shutdown(server); err != nil {
				log.Warn().Err(err).Msg("metrics server shutdown")
			}
		}()
	}

	r := &repl{
		app:       a,
		nav:       navigation.NewShell(a.view),
		photosDir: *photosDir,
		uploader:  photos.NewStubUploader(uploadDelay),
		in:        os.Stdin,
	}
	unsubscribe := a.manager.Subscribe(func(st authsession.State) {
		log.Debug().Stringer("state", st).Msg("auth state changed")
		r.changed.Store(true)
	})
	defer unsubscribe()
	return r.loop(ctx)
}

func (r *repl) loop(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	r.sync()
	r.render()
	for {
		fmt.Fprint(r.app.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.app.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := r.exec(ctx, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(r.app.out, "Error: %v\n", err)
			}
			if quit {
				return nil
			}
			r.sync()
			r.render()
		}
	}
}

// sync remounts the navigation when the sign-in state flipped and lines the screen
// models up with the navigation stack.
func (r *repl) sync() {
	if r.changed.Swap(false) && r.app.view.IsSignedIn() != r.nav.Graph().SignedIn() {
		r.nav.Remount()
		r.models = nil
	}
	depth := r.nav.Depth()
	if len(r.models) > depth {
		r.models = r.models[:depth]
	}
	if n := len(r.models); n == depth && r.models[n-1].Name() != r.nav.Current().Screen {
		r.models = r.models[:n-1]
	}
	if len(r.models) < depth {
		r.models = append(r.models, r.model(r.nav.Current()))
	}
}

func (r *repl) model(route navigation.Route) screens.Screen {
	a := r.app
	switch route.Screen {
	case navigation.Welcome:
		return screens.NewWelcome(a.view, a.manager, screens.Header(a.cfg.GetAppName(), a.cfg.GetAppEnv()))
	case navigation.Dashboard:
		return screens.NewDashboard(a.view, a.manager, screens.Header(a.cfg.GetAppName(), a.cfg.GetAppEnv()), nil)
	case navigation.Photos:
		list := screens.NewPhotoList(photos.NewLibrary(r.photosDir))
		if err := list.Load(context.Background()); err != nil {
			log.Debug().Err(err).Str("dir", r.photosDir).Msg("photo list unavailable")
		}
		return list
	case navigation.TakePhoto:
		return screens.NewTakePhoto(r.nav)
	case navigation.PhotoDetail:
		return screens.NewPhotoDetail(r.nav, r.uploader, route, nil)
	default:
		return a.newReadings()
	}
}

func (r *repl) current() screens.Screen {
	return r.models[len(r.models)-1]
}

func (r *repl) render() {
	out := r.app.out
	fmt.Fprintf(out, "\n== %s ==\n", r.current().Title())
	for _, line := range r.current().Render() {
		fmt.Fprintln(out, line)
	}
}

func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		r.help()
		return false, nil
	case "back":
		_, err := r.nav.Back()
		return false, err
	case "home":
		return false, r.nav.PopToRoot()
	case "go":
		return false, r.nav.Navigate(navigation.Screen(arg))
	case "fake":
		return false, r.fake(arg)
	}

	switch m := r.current().(type) {
	case *screens.Welcome:
		if cmd == "login" {
			return false, m.Login(ctx)
		}
	case *screens.Dashboard:
		if cmd == "logout" {
			return false, m.Logout(ctx)
		}
	case *screens.PhotoList:
		if cmd == "reload" {
			return false, m.Load(ctx)
		}
	case *screens.Readings:
		return false, r.readings(ctx, m, cmd, arg)
	case *screens.TakePhoto:
		return false, r.takePhoto(m, cmd, arg)
	case *screens.PhotoDetail:
		return false, r.photoDetail(ctx, m, cmd, arg)
	}
	return false, fmt.Errorf("unknown command %q, try help", cmd)
}

func (r *repl) readings(ctx context.Context, m *screens.Readings, cmd, arg string) error {
	switch cmd {
	case "steps":
		m.SetSteps(arg)
		return nil
	case "submit":
		_, err := m.Submit(ctx)
		return err
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

func (r *repl) takePhoto(m *screens.TakePhoto, cmd, arg string) error {
	switch cmd {
	case "capture":
		return m.Capture(arg)
	case "keep":
		m.Keep()
	case "retake":
		m.Retake()
	case "done":
		return m.Done()
	case "discard":
		m.Discard()
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (r *repl) photoDetail(ctx context.Context, m *screens.PhotoDetail, cmd, arg string) error {
	b := m.Batch()
	switch cmd {
	case "next":
		b.Next()
	case "prev":
		b.Prev()
	case "select":
		n, err := strconv.Atoi(arg)
		if err != nil || !b.Select(n-1) {
			return errors.Wrapf(errors.ErrValidation, "no photo %q", arg)
		}
	case "delete":
		b.DeleteCurrent()
	case "title":
		b.Title = arg
	case "description":
		b.Description = arg
	case "discard":
		m.Discard()
	case "upload":
		receipt, err := m.Upload(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.app.out, "Uploaded %d photo(s), batch %s\n", receipt.Count, receipt.BatchID)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

// fake sets the development sign-in override: on, off or clear.
func (r *repl) fake(arg string) error {
	o := r.app.override
	if o == nil {
		return errors.Wrapf(errors.ErrUnsupported, "fake sign-in is only available with ENV=DEV")
	}
	switch arg {
	case "on":
		o.Set(utils.Ptr(true))
	case "off":
		o.Set(utils.Ptr(false))
	case "clear":
		o.Set(nil)
	default:
		return errors.Wrapf(errors.ErrValidation, "expected on, off or clear")
	}
	r.changed.Store(true)
	return nil
}

func (r *repl) help() {
	out := r.app.out
	fmt.Fprintln(out, "Anywhere: go SCREEN, back, home, help, quit")
	fmt.Fprintf(out, "Screens: %v\n", r.nav.Graph().Screens())
	if r.app.override != nil {
		fmt.Fprintln(out, "DEV: fake on|off|clear")
	}
}
