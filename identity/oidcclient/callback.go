package oidcclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"

	callbackDonePage = `<!doctype html><html><body><p>Sign-in complete. You can close this window and return to the app.</p></body></html>`
)

type callbackResult struct {
	code     string
	verifier string
	err      error
}

// callbackListener serves the redirect URL on the loopback interface for the duration of one login.
type callbackListener struct {
	srv     *http.Server
	results chan callbackResult
}

func listenForCallback(ctx context.Context, redirectURL string, flows *flowRepo) (*callbackListener, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return nil, fmt.Errorf("parse redirect url: %w", err)
	}
	if u.Scheme != "http" || u.Host == "" {
		return nil, fmt.Errorf("redirect url %q must be a loopback http url", redirectURL)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("listen for callback on %s: %w", u.Host, err)
	}

	l := &callbackListener{results: make(chan callbackResult, 1)}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.callbackHandler(flows))
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Err(err).Msg("callback listener stopped")
		}
	}()
	return l, nil
}

func (l *callbackListener) Results() <-chan callbackResult {
	return l.results
}

func (l *callbackListener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}

// deliver hands the first outcome to the waiting login; later callbacks are dropped.
func (l *callbackListener) deliver(r callbackResult) {
	select {
	case l.results <- r:
	default:
	}
}

func (l *callbackListener) callbackHandler(flows *flowRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue covers both query (GET) and form_post (POST) response modes
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			// Only trust provider errors that echo a state we issued
			if _, ok := flows.Take(state); !ok {
				http.Error(w, "Invalid state parameter", http.StatusBadRequest)
				return
			}
			msg := errorParam
			if errorDesc != "" {
				msg = fmt.Sprintf("%s - %s", errorParam, errorDesc)
			}
			l.deliver(callbackResult{err: fmt.Errorf("authorization failed: %s", msg)})
			http.Error(w, "Authorization failed: "+msg, http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		flow, ok := flows.Take(state)
		if !ok {
			log.Warn().Err(errors.ErrInvalidState).Msg("authorization callback with unknown state")
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		l.deliver(callbackResult{code: code, verifier: flow.CodeVerifier})
		w.Header().Set("Content-Type", contentTypeHTML)
		_, _ = w.Write([]byte(callbackDonePage))
	}
}
