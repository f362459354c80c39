package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/secure-health/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// errPanic is returned after a recovered panic in the interactive shell, which is
// restarted. One-shot commands are never re-run.
var errPanic = errors.New("panic recovered")

func main() {
	for {
		err := run(os.Args[1:])
		if errors.Is(err, errPanic) {
			time.Sleep(1 * time.Second)
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Msg("securehealth failed")
		}
		break
	}
}

func run(args []string) (returnError error) {
	restartable := false
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = panicError(r, restartable)
		}
	}()

	c := config.New()
	setupLogging(c)

	fs := flag.NewFlagSet("securehealth", flag.ContinueOnError)
	noBrowser := fs.Bool("no-browser", false, "print the sign-in URL instead of opening a browser")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		usage(fs)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c, *noBrowser)
	if err != nil {
		return err
	}
	defer a.Close()

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "shell" {
		restartable = true
		displayAppname(c.GetAppName())
	}
	return a.dispatch(ctx, cmd, cmdArgs)
}

// panicError maps a recovered panic to the error run returns. Only errPanic makes main
// call run again.
func panicError(r any, restartable bool) error {
	if restartable {
		return errPanic
	}
	return fmt.Errorf("panic: %v", r)
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: securehealth [-no-browser] <command> [arguments]\n\nCommands:\n")
	fmt.Fprintf(out, "  login                                   sign in with the identity provider\n")
	fmt.Fprintf(out, "  logout                                  forget the stored credentials\n")
	fmt.Fprintf(out, "  status                                  show the session state\n")
	fmt.Fprintf(out, "  token                                   print a valid access token, refreshing it if expired\n")
	fmt.Fprintf(out, "  reading -steps N                        submit a steps data reading\n")
	fmt.Fprintf(out, "  photos list DIR                         list the most recent photos in DIR\n")
	fmt.Fprintf(out, "  photos upload [-title T] [-description D] FILE...\n")
	fmt.Fprintf(out, "                                          upload a batch of photos\n")
	fmt.Fprintf(out, "  shell [-photos DIR]                     start the interactive app\n\n")
	fmt.Fprintf(out, "Credentials are kept in an encrypted file when CREDENTIAL_STORE_KEY is set,\n")
	fmt.Fprintf(out, "otherwise only in memory for the current command.\n\n")
	fs.PrintDefaults()
}

// setupLogging configures the global logger: human readable in DEV, JSON elsewhere.
func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("metrics listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
