package identity_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/secure-health/identity"
	"github.com/jrsteele09/secure-health/internal/errors"
	"github.com/stretchr/testify/require"
)

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unrelated-key"))
	require.NoError(t, err)
	return tok
}

func TestParseIdentity(t *testing.T) {
	idToken := signedIDToken(t, jwt.MapClaims{
		"sub":                "user-1",
		"name":               "John Doe",
		"given_name":         "John",
		"email":              "john.doe@example.com",
		"preferred_username": "jdoe",
	})

	id, err := identity.ParseIdentity(idToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", id.Subject)
	require.Equal(t, "John", id.DisplayName())
	require.Equal(t, "john.doe@example.com", id.Email)
}

func TestDisplayNameFallbacks(t *testing.T) {
	require.Equal(t, "John Doe", identity.Identity{Name: "John Doe", Email: "e"}.DisplayName())
	require.Equal(t, "jdoe", identity.Identity{PreferredUsername: "jdoe", Email: "e"}.DisplayName())
	require.Equal(t, "e", identity.Identity{Email: "e"}.DisplayName())
}

func TestParseIdentityErrors(t *testing.T) {
	_, err := identity.ParseIdentity("")
	require.ErrorIs(t, err, errors.ErrNoIDToken)

	_, err = identity.ParseIdentity("fake-id-token")
	require.Error(t, err)
}

type testIdentityConfig struct {
	apiScope, issuer string
}

func (testIdentityConfig) GetTenantID() string              { return "tenant" }
func (testIdentityConfig) GetClientID() string              { return "client" }
func (c testIdentityConfig) GetAPIAccessScope() string      { return c.apiScope }
func (testIdentityConfig) GetRedirectURL() string           { return "http://127.0.0.1:8400/auth/" }
func (c testIdentityConfig) GetIssuer() string              { return c.issuer }
func (testIdentityConfig) GetAuthorizationEndpoint() string { return "https://idp/authorize" }
func (testIdentityConfig) GetTokenEndpoint() string         { return "https://idp/token" }

func TestConfigFromEnv(t *testing.T) {
	cfg := identity.ConfigFromEnv(testIdentityConfig{apiScope: "api://photo/api_access"})
	require.Equal(t, []string{"openid", "offline_access", "api://photo/api_access"}, cfg.Scopes)
	require.True(t, cfg.ForcePromptLogin)
	require.Equal(t, "client", cfg.ClientID)
	require.Equal(t, "https://idp/token", cfg.TokenEndpoint)

	cfg = identity.ConfigFromEnv(testIdentityConfig{})
	require.Equal(t, []string{"openid", "offline_access"}, cfg.Scopes)
}
