package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)

	_, err := LoadToken()
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, SaveAPIKey("  gemini-key "))
	require.NoError(t, SaveToken("http://localhost:8080", "ada@example.com", "tok-1"))

	token, err := LoadToken()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	key, err := LoadAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", key, "saving a token keeps the api key")

	info, err := os.Stat(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestClearTokenKeepsServer(t *testing.T) {
	t.Setenv(DirEnv, t.TempDir())

	require.NoError(t, SaveToken("http://api.example", "ada@example.com", "tok"))
	require.NoError(t, ClearToken())

	creds, err := Load()
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
	assert.Empty(t, creds.Email)
	assert.Equal(t, "http://api.example", creds.Server)
}

func TestSaveAPIKeyRejectsEmpty(t *testing.T) {
	t.Setenv(DirEnv, t.TempDir())

	assert.Error(t, SaveAPIKey("   "))
	_, err := LoadAPIKey()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestLastRecipe(t *testing.T) {
	t.Setenv(DirEnv, t.TempDir())

	_, err := LoadLastRecipe()
	require.Error(t, err)

	require.NoError(t, SaveLastRecipe([]byte(`{"dishName":"Pho"}`)))
	payload, err := LoadLastRecipe()
	require.NoError(t, err)
	assert.JSONEq(t, `{"dishName":"Pho"}`, string(payload))
}
