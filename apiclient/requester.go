package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/secure-health/authsession"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/internal/metrics"
	"github.com/jrsteele09/secure-health/internal/utils"
	"github.com/rs/zerolog/log"
)

const (
	requestIDHeader = "X-Request-ID"
	maxResponseSize = 1 << 20
)

// States tracks the most recent request.
type States struct {
	IsLoading bool // Request in progress
	IsError   bool
	IsSuccess bool // Finished with a 2xx status
}

// Result is the status and body of the most recent response. StatusCode is nil when no
// response was received.
type Result struct {
	StatusCode *int
	Response   json.RawMessage
}

// Params are the per-call inputs of Send.
type Params[T any] struct {
	Body      any               // JSON encoded; nil sends no body
	Headers   map[string]string // Applied last, so they override the defaults
	OnSuccess func(T)           // Called with the decoded response on a 2xx status
}

// Requester sends authorized JSON requests to one API endpoint. Each call overwrites
// the tracked states and result; calls are not queued.
type Requester[T any] struct {
	httpClient *http.Client
	url        string
	method     string
	path       string
	tokens     authsession.TokenSource
	metrics    *metrics.Metrics

	lock   sync.RWMutex
	states States
	result Result
}

// Option modifies a Requester.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics counts requests by path and status class
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New returns a requester for method and path relative to baseURL. A nil httpClient
// uses http.DefaultClient.
func New[T any](httpClient *http.Client, baseURL, method, path string, tokens authsession.TokenSource, opts ...Option) *Requester[T] {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	return &Requester[T]{
		httpClient: httpClient,
		url:        strings.TrimRight(baseURL, "/") + path,
		method:     strings.ToUpper(method),
		path:       path,
		tokens:     tokens,
		metrics:    o.metrics,
	}
}

func (r *Requester[T]) States() States {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.states
}

func (r *Requester[T]) Result() Result {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return Result{StatusCode: utils.CloneValue(r.result.StatusCode), Response: append(json.RawMessage(nil), r.result.Response...)}
}

// Send obtains an access token and sends the request. Without a token the request is
// still sent, with "Bearer null", and is expected to be rejected by the API.
func (r *Requester[T]) Send(ctx context.Context, p Params[T]) error {
	r.setStates(States{IsLoading: true})

	token, ok := r.tokens.AccessToken(ctx)
	if !ok {
		log.Warn().Str("path", r.path).Msg("no access token available, sending request without one")
		token = "null"
	}

	var body io.Reader = http.NoBody
	if p.Body != nil {
		b, err := json.Marshal(p.Body)
		if err != nil {
			r.finish(States{IsError: true}, Result{})
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		r.finish(States{IsError: true}, Result{})
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.observe("error")
		r.finish(States{IsError: true}, Result{})
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	r.observe(metrics.StatusClass(resp.StatusCode))
	result := Result{StatusCode: utils.Ptr(resp.StatusCode), Response: raw}
	if err != nil {
		r.finish(States{IsError: true}, result)
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.finish(States{IsError: true}, result)
		return errors.Wrapf(errors.ErrHTTPStatus, "%s %s returned %d", r.method, r.path, resp.StatusCode)
	}

	var decoded T
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			r.finish(States{IsError: true}, result)
			return fmt.Errorf("decode response: %w", err)
		}
	}
	r.finish(States{IsSuccess: true}, result)
	if p.OnSuccess != nil {
		p.OnSuccess(decoded)
	}
	return nil
}

// SendAsync runs Send in the background. Failures are logged and visible through States.
func (r *Requester[T]) SendAsync(ctx context.Context, p Params[T]) {
	go func() {
		if err := r.Send(ctx, p); err != nil {
			log.Err(err).Str("path", r.path).Msg("request failed")
		}
	}()
}

func (r *Requester[T]) setStates(s States) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = s
}

func (r *Requester[T]) finish(s States, res Result) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = s
	r.result = res
}

func (r *Requester[T]) observe(status string) {
	if r.metrics != nil {
		r.metrics.ObserveRequest(r.path, status)
	}
}
