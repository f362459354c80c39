package fakeprovider

import (
	"context"
	"sync"

	"github.com/jrsteele09/secure-health/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

// Result is one scripted provider outcome.
type Result struct {
	Bundle *identity.TokenBundle
	Err    error
}

// FakeProvider replays scripted results. When a queue is empty the last result is repeated.
type FakeProvider struct {
	lock sync.Mutex

	authorizeResults []Result
	refreshResults   []Result
	lastAuthorize    Result
	lastRefresh      Result

	authorizeCalls int
	refreshCalls   int
	refreshTokens  []string

	// gate, when set, blocks Refresh until it is closed or the context ends
	gate chan struct{}
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

// QueueAuthorize appends results returned by successive Authorize calls
func (fp *FakeProvider) QueueAuthorize(results ...Result) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.authorizeResults = append(fp.authorizeResults, results...)
}

// QueueRefresh appends results returned by successive Refresh calls
func (fp *FakeProvider) QueueRefresh(results ...Result) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.refreshResults = append(fp.refreshResults, results...)
}

// HoldRefresh makes Refresh block until the returned release func is called
func (fp *FakeProvider) HoldRefresh() (release func()) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	gate := make(chan struct{})
	fp.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (fp *FakeProvider) Authorize(ctx context.Context) (*identity.TokenBundle, error) {
	fp.lock.Lock()
	fp.authorizeCalls++
	res := next(&fp.authorizeResults, &fp.lastAuthorize)
	fp.lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res.Bundle, res.Err
}

func (fp *FakeProvider) Refresh(ctx context.Context, refreshToken string) (*identity.TokenBundle, error) {
	fp.lock.Lock()
	fp.refreshCalls++
	fp.refreshTokens = append(fp.refreshTokens, refreshToken)
	res := next(&fp.refreshResults, &fp.lastRefresh)
	gate := fp.gate
	fp.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res.Bundle, res.Err
}

func (fp *FakeProvider) AuthorizeCalls() int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.authorizeCalls
}

func (fp *FakeProvider) RefreshCalls() int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return fp.refreshCalls
}

// RefreshTokens returns the refresh tokens presented so far, in call order
func (fp *FakeProvider) RefreshTokens() []string {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return append([]string(nil), fp.refreshTokens...)
}

func next(queue *[]Result, last *Result) Result {
	if len(*queue) == 0 {
		return *last
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	*last = res
	return res
}
