package config

import (
	"os"
	"strings"
)

const (
	appNameVar       = "APP_NAME"
	appEnvVar        = "APP_ENV"
	envVar           = "ENV"
	logLevelVar      = "LOG_LEVEL"
	devFakeSignInVar = "DEV_FAKE_SIGN_IN"
	baseAPIURLVar    = "BASE_API_URL"
	metricsAddrVar   = "METRICS_ADDR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "secure Health")
}

// GetAppEnv returns the build variant name (e.g. "dev", "staging") shown in screen headers.
func (EnvVars) GetAppEnv() string {
	return GetEnv(appEnvVar, "dev")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return strings.ToUpper(env)
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetDevFakeSignIn returns "true", "false" or "" (no override). Only honoured when ENV=DEV.
func (EnvVars) GetDevFakeSignIn() string {
	return strings.ToLower(GetEnv(devFakeSignInVar, ""))
}

type API struct{}

var _ APIConfig = API{}

func (API) GetBaseAPIURL() string {
	return GetEnv(baseAPIURLVar, "")
}

type Metrics struct{}

var _ MetricsConfig = Metrics{}

// GetMetricsAddr returns the listen address of the Prometheus endpoint; empty disables it.
func (Metrics) GetMetricsAddr() string {
	return GetEnv(metricsAddrVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
