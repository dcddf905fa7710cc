package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Driver stores media objects (archived cooking videos) by key.
type Driver interface {
	Put(ctx context.Context, key string, body io.Reader) error
	GetDownloadURL(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

var ErrInvalidKey = errors.New("invalid media key")

// ValidateKey rejects empty, absolute or parent-escaping keys.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if clean := path.Clean(key); clean != key || clean == ".." || strings.HasPrefix(clean, "../") {
		return ErrInvalidKey
	}
	return nil
}
