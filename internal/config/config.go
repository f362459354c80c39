package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	IdentityConfig
	APIConfig
	StoreConfig
	MetricsConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAppEnv() string
	GetEnv() string
	GetLogLevel() string
	GetDevFakeSignIn() string
}

type APIConfig interface {
	GetBaseAPIURL() string
}

type MetricsConfig interface {
	GetMetricsAddr() string
}

type mainConfig struct {
	EnvVars
	Identity
	API
	Store
	Metrics
}

// New loads any .env files for the current variant and returns the environment backed config.
// Variables already present in the environment are never overwritten.
func New() Config {
	LoadDotEnv()
	return mainConfig{}
}

// LoadDotEnv loads .env.<APP_ENV> followed by .env. Missing files are ignored.
func LoadDotEnv() {
	files := []string{".env"}
	if variant := os.Getenv(appEnvVar); variant != "" {
		files = append([]string{".env." + variant}, files...)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn().Err(err).Str("file", f).Msg("failed to load env file")
		}
	}
}
