package config

import (
	"os"
	"path/filepath"
)

const (
	credentialStoreVar     = "CREDENTIAL_STORE"
	credentialStorePathVar = "CREDENTIAL_STORE_PATH"
	credentialStoreKeyVar  = "CREDENTIAL_STORE_KEY"
	credentialServiceVar   = "CREDENTIAL_SERVICE"
	redisURLVar            = "REDIS_URL"
)

type StoreConfig interface {
	GetCredentialStore() string
	GetCredentialStorePath() string
	GetCredentialStoreKey() string
	GetCredentialService() string
	GetRedisURL() string
}

type Store struct{}

var _ StoreConfig = Store{}

// GetCredentialStore returns the backend name: "file", "redis" or "memory". Without an
// explicit choice it is "file" when CREDENTIAL_STORE_KEY is set and "memory" otherwise.
func (s Store) GetCredentialStore() string {
	if v := os.Getenv(credentialStoreVar); v != "" {
		return v
	}
	if s.GetCredentialStoreKey() == "" {
		return "memory"
	}
	return "file"
}

func (Store) GetCredentialStorePath() string {
	if p := os.Getenv(credentialStorePathVar); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "secure-health", "credentials.bin")
}

func (Store) GetCredentialStoreKey() string {
	return GetEnv(credentialStoreKeyVar, "")
}

// GetCredentialService is the service identifier the single credential entry is stored under.
func (Store) GetCredentialService() string {
	return GetEnv(credentialServiceVar, "authInfo")
}

func (Store) GetRedisURL() string {
	return GetEnv(redisURLVar, "")
}
