package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirEnv overrides the directory credentials are stored in.
const DirEnv = "FOODSTAGRAM_CONFIG_DIR"

// ErrNotLoggedIn is returned by LoadToken when no session is stored.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrNoAPIKey is returned by LoadAPIKey when set-key was never run.
var ErrNoAPIKey = errors.New("no API key stored")

// Credentials is the on-disk CLI state.
type Credentials struct {
	Server string `json:"server,omitempty"`
	Email  string `json:"email,omitempty"`
	Token  string `json:"token,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}

func statePath(name string) (string, error) {
	if dir := strings.TrimSpace(os.Getenv(DirEnv)); dir != "" {
		return filepath.Join(dir, name), nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, "foodstagram", name), nil
}

func credentialsPath() (string, error) {
	return statePath("credentials.json")
}

// Load returns the stored credentials. A missing file yields empty credentials.
func Load() (Credentials, error) {
	var creds Credentials

	filePath, err := credentialsPath()
	if err != nil {
		return creds, err
	}

	payload, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("read credentials file: %w", err)
	}

	if err := json.Unmarshal(payload, &creds); err != nil {
		return creds, fmt.Errorf("decode credentials file: %w", err)
	}
	return creds, nil
}

// Save replaces the stored credentials.
func Save(creds Credentials) error {
	filePath, err := credentialsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}

	payload, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	if err := os.WriteFile(filePath, payload, 0o600); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	return nil
}

func update(fn func(*Credentials)) error {
	creds, err := Load()
	if err != nil {
		return err
	}
	fn(&creds)
	return Save(creds)
}

// SaveToken stores the session for server, keeping any API key.
func SaveToken(server, email, token string) error {
	return update(func(c *Credentials) {
		c.Server = server
		c.Email = email
		c.Token = token
	})
}

// LoadToken returns the stored session token.
func LoadToken() (string, error) {
	creds, err := Load()
	if err != nil {
		return "", err
	}
	if creds.Token == "" {
		return "", ErrNotLoggedIn
	}
	return creds.Token, nil
}

// ClearToken forgets the session but keeps the API key and server.
func ClearToken() error {
	return update(func(c *Credentials) {
		c.Token = ""
		c.Email = ""
	})
}

func SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is empty")
	}
	return update(func(c *Credentials) { c.APIKey = key })
}

func LoadAPIKey() (string, error) {
	creds, err := Load()
	if err != nil {
		return "", err
	}
	if creds.APIKey == "" {
		return "", ErrNoAPIKey
	}
	return creds.APIKey, nil
}

// SaveLastRecipe remembers the most recently generated recipe so later
// commands can act on it.
func SaveLastRecipe(payload []byte) error {
	filePath, err := statePath("last_recipe.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	if err := os.WriteFile(filePath, payload, 0o600); err != nil {
		return fmt.Errorf("write last recipe: %w", err)
	}
	return nil
}

// LoadLastRecipe returns the payload stored by SaveLastRecipe.
func LoadLastRecipe() ([]byte, error) {
	filePath, err := statePath("last_recipe.json")
	if err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.New("no recipe generated yet")
	}
	if err != nil {
		return nil, fmt.Errorf("read last recipe: %w", err)
	}
	return payload, nil
}
