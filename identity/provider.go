package identity

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/secure-health/internal/config"
)

// TokenBundle is what the identity provider returns from a login or a refresh.
type TokenBundle struct {
	AccessToken               string   // Bearer credential
	AccessTokenExpirationDate string   // RFC 3339, empty when the provider gave no expiry
	RefreshToken              string   // Empty (or the presented token) when a refresh did not rotate it
	IDToken                   string   // Raw OIDC ID token
	Scopes                    []string // Granted scopes, may be empty on refresh
}

// Provider performs interactive login and refresh-token exchange against a fixed configuration.
type Provider interface {
	// Authorize runs the interactive authorization code + PKCE flow
	Authorize(ctx context.Context) (*TokenBundle, error)

	// Refresh exchanges refreshToken for a new access token
	Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error)
}

// Config is the OAuth2/OIDC client configuration.
type Config struct {
	ClientID              string
	RedirectURL           string
	Scopes                []string
	ForcePromptLogin      bool // Re-prompt for credentials even when the provider has a cached login
	AuthorizationEndpoint string
	TokenEndpoint         string
	Issuer                string // Enables discovery when set
}

// ConfigFromEnv builds the client configuration. Scopes are openid, offline_access
// (needed for refresh tokens) and the API access scope.
func ConfigFromEnv(c config.IdentityConfig) Config {
	scopes := []string{oidc.ScopeOpenID, oidc.ScopeOfflineAccess}
	if apiScope := strings.TrimSpace(c.GetAPIAccessScope()); apiScope != "" {
		scopes = append(scopes, apiScope)
	}
	return Config{
		ClientID:              c.GetClientID(),
		RedirectURL:           c.GetRedirectURL(),
		Scopes:                scopes,
		ForcePromptLogin:      true,
		AuthorizationEndpoint: c.GetAuthorizationEndpoint(),
		TokenEndpoint:         c.GetTokenEndpoint(),
		Issuer:                c.GetIssuer(),
	}
}
