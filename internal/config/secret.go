package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// SecretPrefix marks a config value sealed with SealSecret.
const SecretPrefix = "encrypted:"

var ErrSecret = errors.New("cannot open sealed config value")

// Sealer encrypts config secrets with a key derived from the host, so a
// copied config file does not leak the transform API key.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer() (*Sealer, error) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return newSealer(host + "|sonicforge-config")
}

func newSealer(seed string) (*Sealer, error) {
	key := sha256.Sum256([]byte(seed))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns plaintext encrypted and prefixed with SecretPrefix.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to create nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SecretPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open reverses Seal. Values without the prefix are returned unchanged.
func (s *Sealer) Open(value string) (string, error) {
	if !strings.HasPrefix(value, SecretPrefix) {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SecretPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecret, err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", fmt.Errorf("%w: value too short", ErrSecret)
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSecret, err)
	}
	return string(plain), nil
}

func (c *Config) openSecrets() error {
	if !strings.HasPrefix(c.Transform.APIKey, SecretPrefix) {
		return nil
	}
	s, err := NewSealer()
	if err != nil {
		return err
	}
	key, err := s.Open(c.Transform.APIKey)
	if err != nil {
		return fmt.Errorf("transform.api_key: %w", err)
	}
	c.Transform.APIKey = key
	return nil
}
