package filestore

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/secure-health/credstore"
	"github.com/jrsteele09/secure-health/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	saltLength = 16
	hkdfInfo   = "secure-health credential store v1"
)

// fileMagic prefixes every credential file and is bound into the AEAD seal.
var fileMagic = []byte("SHC1")

var _ credstore.Store = (*FileStore)(nil)

// FileStore keeps the credential entry in a single XChaCha20-Poly1305 encrypted file.
// A fresh salt and nonce are generated on every save; the key is derived from the
// configured secret with HKDF-SHA256.
type FileStore struct {
	path   string
	secret []byte
	mu     sync.Mutex
}

type filePayload struct {
	Service string `json:"service"`
	Payload []byte `json:"payload"`
}

// New returns a file store at path. secret must not be empty.
func New(path, secret string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("[filestore New] path is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("[filestore New] encryption secret is required")
	}
	return &FileStore{path: path, secret: []byte(secret)}, nil
}

func (s *FileStore) Save(ctx context.Context, service string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plaintext, err := json.Marshal(filePayload{Service: service, Payload: payload})
	if err != nil {
		return errors.Wrapf(errors.ErrPersistence, "marshal credential: %v", err)
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return errors.Wrapf(errors.ErrPersistence, "generate salt: %v", err)
	}
	aead, err := s.aead(salt)
	if err != nil {
		return errors.Wrapf(errors.ErrPersistence, "init cipher: %v", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.Wrapf(errors.ErrPersistence, "generate nonce: %v", err)
	}

	var blob bytes.Buffer
	blob.Write(fileMagic)
	blob.Write(salt)
	blob.Write(nonce)
	blob.Write(aead.Seal(nil, nonce, plaintext, fileMagic))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path, blob.Bytes()); err != nil {
		return errors.Wrapf(errors.ErrPersistence, "write %s: %v", s.path, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context) (*credstore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	blob, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreLoad, "read %s: %v", s.path, err)
	}

	headerLen := len(fileMagic) + saltLength + chacha20poly1305.NonceSizeX
	if len(blob) < headerLen || !bytes.Equal(blob[:len(fileMagic)], fileMagic) {
		return nil, errors.Wrapf(errors.ErrStoreLoad, "%s is not a credential file", s.path)
	}
	salt := blob[len(fileMagic) : len(fileMagic)+saltLength]
	nonce := blob[len(fileMagic)+saltLength : headerLen]

	aead, err := s.aead(salt)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreLoad, "init cipher: %v", err)
	}
	plaintext, err := aead.Open(nil, nonce, blob[headerLen:], fileMagic)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreLoad, "decrypt %s: %v", s.path, err)
	}

	var p filePayload
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, errors.Wrapf(errors.ErrStoreLoad, "decode credential: %v", err)
	}
	return &credstore.Entry{Service: p.Service, Payload: p.Payload}, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(errors.ErrStoreClear, "remove %s: %v", s.path, err)
	}
	return nil
}

func (s *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.secret, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(key)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
