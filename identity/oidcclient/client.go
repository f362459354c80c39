package oidcclient

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/jrsteele09/secure-health/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// authFlowTimeout bounds how long a pending authorization request is kept
	authFlowTimeout = 15 * time.Minute
	stateLength     = 32
)

var _ identity.Provider = (*Client)(nil)

// Client is an OAuth2 public client (no secret) using authorization code + PKCE.
type Client struct {
	cfg        identity.Config
	oauth      *oauth2.Config
	opener     Opener
	httpClient *http.Client
	nowTime    func() time.Time
	flows      *flowRepo
}

// Option modifies a Client.
type Option func(*Client)

// WithOpener sets how the authorization URL is presented to the user
func WithOpener(o Opener) Option {
	return func(c *Client) {
		c.opener = o
	}
}

// WithHTTPClient sets the client used for discovery and token requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// New creates the client. When cfg.Issuer is set the endpoints are discovered from the
// issuer's openid-configuration, otherwise the configured endpoints are used as-is.
func New(ctx context.Context, cfg identity.Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("[oidcclient New] client id is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("[oidcclient New] redirect url is required")
	}

	c := &Client{
		cfg:     cfg,
		opener:  OpenBrowser,
		nowTime: time.Now,
		flows:   newFlowRepo(),
	}
	for _, opt := range opts {
		opt(c)
	}

	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.AuthorizationEndpoint,
		TokenURL: cfg.TokenEndpoint,
	}
	if cfg.Issuer != "" {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, c.client()), cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("[oidcclient New] failed to create OIDC provider: %w", err)
		}
		endpoint = provider.Endpoint()
	}
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return nil, fmt.Errorf("[oidcclient New] authorization and token endpoints are required")
	}
	// Public client: client_id travels in the form body, there is no secret to send
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	c.oauth = &oauth2.Config{
		ClientID:    cfg.ClientID,
		Endpoint:    endpoint,
		RedirectURL: cfg.RedirectURL,
		Scopes:      cfg.Scopes,
	}
	return c, nil
}

// Endpoint returns the resolved authorization and token endpoints.
func (c *Client) Endpoint() oauth2.Endpoint {
	return c.oauth.Endpoint
}

// Authorize runs the interactive login: it presents the authorization URL, waits for the
// redirect on the loopback callback listener and exchanges the code for tokens.
func (c *Client) Authorize(ctx context.Context) (*identity.TokenBundle, error) {
	c.flows.DeleteOlderThan(c.nowTime().Add(-authFlowTimeout))

	state, err := generateRandomString(stateLength)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	if err := c.flows.Upsert(state, flowState{CodeVerifier: verifier, CreatedAt: c.nowTime()}); err != nil {
		return nil, err
	}
	defer c.flows.Delete(state)

	authOpts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if c.cfg.ForcePromptLogin {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("prompt", "login"))
	}
	authURL := c.oauth.AuthCodeURL(state, authOpts...)

	listener, err := listenForCallback(ctx, c.cfg.RedirectURL, c.flows)
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	if err := c.opener(authURL); err != nil {
		return nil, fmt.Errorf("open authorization url: %w", err)
	}
	log.Debug().Str("redirect_url", c.cfg.RedirectURL).Msg("waiting for authorization callback")

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-listener.Results():
	}
	if result.err != nil {
		return nil, result.err
	}

	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), result.code, oauth2.VerifierOption(result.verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	return bundleFromToken(tok), nil
}

// Refresh performs the refresh-token grant.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*identity.TokenBundle, error) {
	if refreshToken == "" {
		return nil, errors.ErrNoRefreshToken
	}
	// A token with no access token is never valid, so the source always refreshes
	src := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return bundleFromToken(tok), nil
}

func (c *Client) client() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func bundleFromToken(tok *oauth2.Token) *identity.TokenBundle {
	b := &identity.TokenBundle{
		AccessToken:               tok.AccessToken,
		AccessTokenExpirationDate: session.FormatExpiry(tok.Expiry),
		RefreshToken:              tok.RefreshToken,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		b.IDToken = idToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		b.Scopes = strings.Fields(scope)
	}
	return b
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
