package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/secure-health/credstore"
	"github.com/jrsteele09/secure-health/credstore/fakestore"
	"github.com/jrsteele09/secure-health/credstore/filestore"
	"github.com/jrsteele09/secure-health/credstore/redisstore"
	"github.com/jrsteele09/secure-health/internal/config"
	"github.com/rs/zerolog/log"
)

const (
	File   = "file"
	Redis  = "redis"
	Memory = "memory"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the credential store selected by the configuration.
// The returned closer releases backend connections and is never nil on success.
func Open(ctx context.Context, cfg config.StoreConfig) (credstore.Store, io.Closer, error) {
	switch cfg.GetCredentialStore() {
	case File:
		s, err := filestore.New(cfg.GetCredentialStorePath(), cfg.GetCredentialStoreKey())
		if err != nil {
			return nil, nil, fmt.Errorf("[backend Open] %w", err)
		}
		log.Debug().Str("backend", File).Str("path", cfg.GetCredentialStorePath()).Msg("credential store opened")
		return s, nopCloser{}, nil
	case Redis:
		if cfg.GetRedisURL() == "" {
			return nil, nil, fmt.Errorf("[backend Open] REDIS_URL is required for the redis credential store")
		}
		s, err := redisstore.Dial(ctx, cfg.GetRedisURL(), "")
		if err != nil {
			return nil, nil, fmt.Errorf("[backend Open] %w", err)
		}
		log.Debug().Str("backend", Redis).Msg("credential store opened")
		return s, s, nil
	case Memory:
		log.Warn().Str("backend", Memory).Msg("credentials will not survive a restart, set CREDENTIAL_STORE_KEY to keep them in an encrypted file")
		return fakestore.NewFakeStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("[backend Open] unknown credential store %q", cfg.GetCredentialStore())
	}
}
