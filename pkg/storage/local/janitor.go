package local

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// RunJanitor removes media older than retention every interval until ctx is done.
func (d *LocalDriver) RunJanitor(ctx context.Context, retention, interval time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := d.cleanup(retention)
			if err != nil {
				logger.Error("media janitor failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("media janitor removed expired files", zap.Int("removed", removed))
			}
		}
	}
}

func (d *LocalDriver) cleanup(retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	removed := 0

	err := filepath.Walk(d.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}
