package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bit2swaz/foodstagram/pkg/storage"
)

func TestPutAndExists(t *testing.T) {
	root := t.TempDir()
	d, err := New(root, "http://media.local/")
	require.NoError(t, err)

	ctx := context.Background()
	exists, err := d.Exists(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, d.Put(ctx, "videos/a.mp4", strings.NewReader("frames")))

	data, err := os.ReadFile(filepath.Join(root, "videos", "a.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))

	exists, err = d.Exists(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.True(t, exists)

	url, err := d.GetDownloadURL(ctx, "videos/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "http://media.local/media/videos/a.mp4", url)
}

func TestRejectsEscapingKeys(t *testing.T) {
	d, err := New(t.TempDir(), "")
	require.NoError(t, err)

	err = d.Put(context.Background(), "../escape.mp4", strings.NewReader("x"))
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestCleanupRemovesExpired(t *testing.T) {
	root := t.TempDir()
	d, err := New(root, "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Put(ctx, "videos/old.mp4", strings.NewReader("old")))
	require.NoError(t, d.Put(ctx, "videos/new.mp4", strings.NewReader("new")))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "videos", "old.mp4"), old, old))

	removed, err := d.cleanup(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(root, "videos", "old.mp4"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "videos", "new.mp4"))
	assert.NoError(t, err)
}
