package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer_RoundTrip(t *testing.T) {
	s, err := newSealer("test-host")
	require.NoError(t, err)

	sealed, err := s.Seal("AIza-secret-key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, SecretPrefix))
	assert.NotContains(t, sealed, "AIza-secret-key")

	again, err := s.Seal("AIza-secret-key")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "fresh nonce per seal")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret-key", plain)

	plain, err = s.Open("not-sealed")
	require.NoError(t, err)
	assert.Equal(t, "not-sealed", plain)

	empty, err := s.Seal("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSealer_WrongKey(t *testing.T) {
	a, err := newSealer("host-a")
	require.NoError(t, err)
	b, err := newSealer("host-b")
	require.NoError(t, err)

	sealed, err := a.Seal("secret")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrSecret)

	_, err = a.Open(SecretPrefix + "!!!")
	assert.ErrorIs(t, err, ErrSecret)

	_, err = a.Open(SecretPrefix + "AAAA")
	assert.ErrorIs(t, err, ErrSecret)
}

func TestLoad_OpensSealedAPIKey(t *testing.T) {
	s, err := NewSealer()
	require.NoError(t, err)
	sealed, err := s.Seal("k-123")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transform:\n  api_key: \""+sealed+"\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "k-123", cfg.Transform.APIKey)
}
