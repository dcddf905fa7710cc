package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bit2swaz/foodstagram/pkg/observability"
	"github.com/bit2swaz/foodstagram/pkg/storage"
)

// LocalDriver implements storage.Driver for local filesystem storage.
type LocalDriver struct {
	root    string
	baseURL string
}

// New creates a new LocalDriver rooted at root. Download URLs are served
// under baseURL + "/media/".
func New(root, baseURL string) (*LocalDriver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local media root is not set")
	}

	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local root directory: %w", err)
	}

	return &LocalDriver{root: root, baseURL: baseURL}, nil
}

// Root returns the directory media is stored under.
func (d *LocalDriver) Root() string { return d.root }

// Path resolves key to a file path below the root.
func (d *LocalDriver) Path(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(d.root, filepath.FromSlash(key)), nil
}

// Put writes body to key, replacing any existing object.
func (d *LocalDriver) Put(ctx context.Context, key string, body io.Reader) error {
	path, err := d.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, readerWithContext(ctx, body))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}

	observability.MediaTraffic.WithLabelValues("upload").Add(float64(n))
	return nil
}

// GetDownloadURL returns the URL for downloading a file.
func (d *LocalDriver) GetDownloadURL(ctx context.Context, key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/media/%s", d.baseURL, key), nil
}

// Exists checks if the file exists in the local filesystem.
func (d *LocalDriver) Exists(ctx context.Context, key string) (bool, error) {
	path, err := d.Path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		// Touch the file to reset its retention timer.
		now := time.Now()
		_ = os.Chtimes(path, now, now)
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
