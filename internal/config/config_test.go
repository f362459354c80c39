package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/secure-health/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"APP_NAME", "APP_ENV", "ENV", "LOG_LEVEL", "DEV_FAKE_SIGN_IN", "CREDENTIAL_STORE", "CREDENTIAL_STORE_KEY", "CREDENTIAL_SERVICE", "OIDC_REDIRECT_URL"} {
		t.Setenv(v, "")
	}
	t.Setenv("ENTRA_ID_TENANT_ID", "tenant-1")

	c := config.New()
	require.Equal(t, "secure Health", c.GetAppName())
	require.Equal(t, "dev", c.GetAppEnv())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, "", c.GetDevFakeSignIn())
	require.Equal(t, "memory", c.GetCredentialStore())
	require.Equal(t, "authInfo", c.GetCredentialService())
	require.Equal(t, "http://127.0.0.1:8400/auth/", c.GetRedirectURL())
	require.Equal(t, "https://login.microsoftonline.com/tenant-1/oauth2/v2.0/authorize", c.GetAuthorizationEndpoint())
	require.Equal(t, "https://login.microsoftonline.com/tenant-1/oauth2/v2.0/token", c.GetTokenEndpoint())
}

func TestOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DEV_FAKE_SIGN_IN", "TRUE")
	t.Setenv("OIDC_TOKEN_ENDPOINT", "https://idp/token")
	t.Setenv("CREDENTIAL_STORE_PATH", "/tmp/creds.bin")

	c := config.New()
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, "true", c.GetDevFakeSignIn())
	require.Equal(t, "https://idp/token", c.GetTokenEndpoint())
	require.Equal(t, "/tmp/creds.bin", c.GetCredentialStorePath())
}

func TestLoadDotEnvDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BASE_API_URL=https://api.example\nLOG_LEVEL=debug\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.staging"), []byte("BASE_API_URL=https://staging.example\n"), 0o600))
	t.Setenv("APP_ENV", "staging")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("BASE_API_URL", "")
	os.Unsetenv("BASE_API_URL")

	c := config.New()
	require.Equal(t, "https://staging.example", c.GetBaseAPIURL())
	require.Equal(t, "warn", c.GetLogLevel())
}

func TestCredentialStoreDefaultsToFileOnlyWithKey(t *testing.T) {
	t.Setenv("CREDENTIAL_STORE", "")
	t.Setenv("CREDENTIAL_STORE_KEY", "")
	require.Equal(t, "memory", config.Store{}.GetCredentialStore())

	t.Setenv("CREDENTIAL_STORE_KEY", "secret")
	require.Equal(t, "file", config.Store{}.GetCredentialStore())

	t.Setenv("CREDENTIAL_STORE", "redis")
	require.Equal(t, "redis", config.Store{}.GetCredentialStore())
}
