package oidcclient_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/identity/oidcclient"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "test-client-1"
	testAPIScope = "api://photo-share/api_access"
	testCode     = "auth-code-123"
)

// fakeIdP is a minimal authorization server: /authorize redirects straight back with a
// code, /token serves the authorization_code and refresh_token grants.
type fakeIdP struct {
	srv *httptest.Server

	mu             sync.Mutex
	challenges     map[string]string
	authQuery      url.Values
	tokenForms     []url.Values
	authorizeError string
	rotateRefresh  bool
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{challenges: make(map[string]string)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", idp.authorize)
	mux.HandleFunc("POST /token", idp.token)
	mux.HandleFunc("GET /.well-known/openid-configuration", idp.discovery)
	idp.srv = httptest.NewServer(mux)
	t.Cleanup(idp.srv.Close)
	return idp
}

func (idp *fakeIdP) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	idp.mu.Lock()
	idp.authQuery = q
	authorizeError := idp.authorizeError
	idp.challenges[testCode] = q.Get("code_challenge")
	idp.mu.Unlock()

	redirect, _ := url.Parse(q.Get("redirect_uri"))
	params := url.Values{"state": {q.Get("state")}}
	if authorizeError != "" {
		params.Set("error", authorizeError)
		params.Set("error_description", "The user denied the request")
	} else {
		params.Set("code", testCode)
	}
	redirect.RawQuery = params.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (idp *fakeIdP) token(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	idp.mu.Lock()
	idp.tokenForms = append(idp.tokenForms, r.PostForm)
	rotate := idp.rotateRefresh
	challenge := idp.challenges[r.PostForm.Get("code")]
	idp.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		if challenge == "" || base64.RawURLEncoding.EncodeToString(sum[:]) != challenge {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "A",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "R",
			"id_token":      "I",
			"scope":         "openid offline_access " + testAPIScope,
		})
	case "refresh_token":
		if r.PostForm.Get("refresh_token") == "revoked" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant", "error_description": "refresh token revoked"})
			return
		}
		resp := map[string]any{
			"access_token": "B",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     "I2",
		}
		if rotate {
			resp["refresh_token"] = "R2"
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported_grant_type"})
	}
}

func (idp *fakeIdP) discovery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                 idp.srv.URL,
		"authorization_endpoint": idp.srv.URL + "/authorize",
		"token_endpoint":         idp.srv.URL + "/token",
		"jwks_uri":               idp.srv.URL + "/keys",
	})
}

func (idp *fakeIdP) config(redirectURL string) identity.Config {
	return identity.Config{
		ClientID:              testClientID,
		RedirectURL:           redirectURL,
		Scopes:                []string{"openid", "offline_access", testAPIScope},
		ForcePromptLogin:      true,
		AuthorizationEndpoint: idp.srv.URL + "/authorize",
		TokenEndpoint:         idp.srv.URL + "/token",
	}
}

// freeRedirectURL picks an unused loopback port for the callback listener.
func freeRedirectURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "http://" + addr + "/auth/"
}

// browser follows the authorization redirect back to the callback like a user agent would.
func browser(authURL string) error {
	resp, err := http.Get(authURL)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func TestAuthorizeCodeFlowWithPKCE(t *testing.T) {
	idp := newFakeIdP(t)
	c, err := oidcclient.New(context.Background(), idp.config(freeRedirectURL(t)), oidcclient.WithOpener(browser))
	require.NoError(t, err)

	bundle, err := c.Authorize(context.Background())
	require.NoError(t, err)
	require.Equal(t, "A", bundle.AccessToken)
	require.Equal(t, "R", bundle.RefreshToken)
	require.Equal(t, "I", bundle.IDToken)
	require.Equal(t, []string{"openid", "offline_access", testAPIScope}, bundle.Scopes)

	exp, err := time.Parse(time.RFC3339, bundle.AccessTokenExpirationDate)
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	idp.mu.Lock()
	defer idp.mu.Unlock()
	require.Equal(t, "login", idp.authQuery.Get("prompt"))
	require.Equal(t, "S256", idp.authQuery.Get("code_challenge_method"))
	require.Equal(t, testClientID, idp.authQuery.Get("client_id"))
	require.Equal(t, "openid offline_access "+testAPIScope, idp.authQuery.Get("scope"))
	require.Len(t, idp.tokenForms, 1)
	require.Equal(t, testClientID, idp.tokenForms[0].Get("client_id"))
	require.Empty(t, idp.tokenForms[0].Get("client_secret"))
}

func TestAuthorizeWithoutForcedPrompt(t *testing.T) {
	idp := newFakeIdP(t)
	cfg := idp.config(freeRedirectURL(t))
	cfg.ForcePromptLogin = false
	c, err := oidcclient.New(context.Background(), cfg, oidcclient.WithOpener(browser))
	require.NoError(t, err)

	_, err = c.Authorize(context.Background())
	require.NoError(t, err)

	idp.mu.Lock()
	defer idp.mu.Unlock()
	require.Empty(t, idp.authQuery.Get("prompt"))
}

func TestAuthorizeProviderError(t *testing.T) {
	idp := newFakeIdP(t)
	idp.authorizeError = "access_denied"
	c, err := oidcclient.New(context.Background(), idp.config(freeRedirectURL(t)), oidcclient.WithOpener(browser))
	require.NoError(t, err)

	_, err = c.Authorize(context.Background())
	require.ErrorContains(t, err, "access_denied - The user denied the request")
}

func TestAuthorizeCanceled(t *testing.T) {
	idp := newFakeIdP(t)
	noBrowser := func(string) error { return nil }
	c, err := oidcclient.New(context.Background(), idp.config(freeRedirectURL(t)), oidcclient.WithOpener(noBrowser))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Authorize(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthorizeRejectsNonLoopbackRedirect(t *testing.T) {
	idp := newFakeIdP(t)
	c, err := oidcclient.New(context.Background(), idp.config("securephotoshare://auth/"), oidcclient.WithOpener(browser))
	require.NoError(t, err)

	_, err = c.Authorize(context.Background())
	require.ErrorContains(t, err, "loopback")
}

func TestRefreshWithoutRotation(t *testing.T) {
	idp := newFakeIdP(t)
	c, err := oidcclient.New(context.Background(), idp.config(freeRedirectURL(t)))
	require.NoError(t, err)

	bundle, err := c.Refresh(context.Background(), "R")
	require.NoError(t, err)
	require.Equal(t, "B", bundle.AccessToken)
	require.Equal(t, "I2", bundle.IDToken)
	require.Empty(t, bundle.Scopes)
	// The presented refresh token survives when the provider does not rotate it
	require.Equal(t, "R", bundle.RefreshToken)

	idp.mu.Lock()
	defer idp.mu.Unlock()
	require.Equal(t, "refresh_token", idp.tokenForms[0].Get("grant_type"))
	require.Equal(t, "R", idp.tokenForms[0].Get("refresh_token"))
}

func TestRefreshWithRotation(t *testing.T) {
	idp := newFakeIdP(t)
	idp.rotateRefresh = true
	c, err := oidcclient.New(context.Background(), idp.config(freeRedirectURL(t)))
	require.NoError(t, err)

	bundle, err := c.Refresh(context.Background(), "R")
	require.NoError(t, err)
	require.Equal(t, "R2", bundle.RefreshToken)
}

func TestRefreshFailures(t *testing.T) {
	idp := newFakeIdP(t)
	c, err := oidcclient.New(context.Background(), idp.config(freeRedirectURL(t)))
	require.NoError(t, err)

	_, err = c.Refresh(context.Background(), "revoked")
	require.ErrorContains(t, err, "invalid_grant")

	_, err = c.Refresh(context.Background(), "")
	require.ErrorIs(t, err, errors.ErrNoRefreshToken)
}

func TestDiscovery(t *testing.T) {
	idp := newFakeIdP(t)
	cfg := idp.config(freeRedirectURL(t))
	cfg.AuthorizationEndpoint = ""
	cfg.TokenEndpoint = ""
	cfg.Issuer = idp.srv.URL

	c, err := oidcclient.New(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, idp.srv.URL+"/authorize", c.Endpoint().AuthURL)
	require.Equal(t, idp.srv.URL+"/token", c.Endpoint().TokenURL)
}

func TestNewValidation(t *testing.T) {
	_, err := oidcclient.New(context.Background(), identity.Config{RedirectURL: "http://127.0.0.1/auth/"})
	require.Error(t, err)

	_, err = oidcclient.New(context.Background(), identity.Config{ClientID: "c", RedirectURL: "http://127.0.0.1/auth/"})
	require.ErrorContains(t, err, "endpoints are required")
}
