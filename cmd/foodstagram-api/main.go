package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/bit2swaz/foodstagram/internal/api"
	"github.com/bit2swaz/foodstagram/internal/api/ratelimit"
	"github.com/bit2swaz/foodstagram/internal/auth"
	"github.com/bit2swaz/foodstagram/internal/chef"
	"github.com/bit2swaz/foodstagram/internal/config"
	"github.com/bit2swaz/foodstagram/internal/database"
	"github.com/bit2swaz/foodstagram/pkg/observability"
	"github.com/bit2swaz/foodstagram/pkg/storage/local"
	"github.com/bit2swaz/foodstagram/pkg/storage/s3"
)

const janitorInterval = time.Hour

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:           "foodstagram-api",
		Short:         "Foodstagram recipe API server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ./"+config.FileName+")")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if cfg.AI.APIKey == "" {
		key, err := auth.LoadAPIKey()
		if err != nil {
			logger.Warn("no AI API key configured, generation requests will fail", zap.Error(err))
		}
		cfg.AI.APIKey = key
	}

	var store database.Store
	if cfg.DatabaseURL != "" {
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()

		pg := database.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		store = pg
		logger.Info("using postgres store")
	} else {
		store = database.NewMemoryStore()
		logger.Warn("database_url not set, users and recipes are kept in memory")
	}

	provider := chef.NewGemini(chef.GeminiConfig{
		BaseURL:    cfg.AI.BaseURL,
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		VideoModel: cfg.AI.VideoModel,
		Timeout:    cfg.AI.Timeout,
		RetryMax:   cfg.AI.RetryMax,
	}, logger)

	limiter := ratelimit.New(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())

	opts := api.Options{
		SessionTTL:        cfg.SessionTTL,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}
	var janitor *local.LocalDriver

	switch cfg.Storage.Driver {
	case config.DriverLocal:
		driver, err := local.New(cfg.Storage.LocalRoot, cfg.Storage.BaseURL)
		if err != nil {
			return fmt.Errorf("init local media: %w", err)
		}
		opts.Media = driver
		opts.MediaFiles = driver
		janitor = driver
	case config.DriverS3:
		driver, err := s3.New(ctx, s3.Config{
			Bucket:          cfg.Storage.S3Bucket,
			Region:          cfg.Storage.S3Region,
			Endpoint:        cfg.Storage.S3Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			CreateBucket:    cfg.Storage.S3Endpoint != "",
		})
		if err != nil {
			return fmt.Errorf("init s3 media: %w", err)
		}
		opts.Media = driver
	}

	apiServer := api.NewServer(store, provider, limiter, logger, opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Video generation holds the connection while the provider renders.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("foodstagram-api listening",
			zap.String("addr", srv.Addr),
			zap.String("media", cfg.Storage.Driver),
			zap.Int("max_requests", limiter.Limit()),
			zap.Duration("window", limiter.Window()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited with error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	g.Go(func() error {
		return limiter.Run(gctx, cfg.RateLimit.CleanupInterval, func(removed int) {
			observability.RateLimitTracked.Set(float64(limiter.Len()))
			if removed > 0 {
				logger.Debug("rate limiter sweep", zap.Int("removed", removed))
			}
		})
	})

	if janitor != nil {
		g.Go(func() error {
			return janitor.RunJanitor(gctx, cfg.Storage.Retention, janitorInterval, logger)
		})
	}

	err = g.Wait()
	logger.Info("foodstagram-api stopped")
	return err
}
