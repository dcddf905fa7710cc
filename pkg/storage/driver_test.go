package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	for _, ok := range []string{"videos/abc.mp4", "a.mp4"} {
		assert.NoError(t, ValidateKey(ok), ok)
	}
	for _, bad := range []string{"", "/etc/passwd", "../x", "videos/../../x", "a\\b", "videos//a"} {
		assert.ErrorIs(t, ValidateKey(bad), ErrInvalidKey, bad)
	}
}
