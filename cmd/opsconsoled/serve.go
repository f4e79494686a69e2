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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ops-console-backend/config"
	"ops-console-backend/internal/api"
	"ops-console-backend/internal/auth"
	"ops-console-backend/internal/cache"
	"ops-console-backend/internal/dashboard"
	"ops-console-backend/internal/db"
	"ops-console-backend/internal/notification"
	"ops-console-backend/internal/resource"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cfg, logger)
		},
	}
}

// newTagStore picks the tag cache backend.
func newTagStore(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (cache.TagStore, func(), error) {
	if cfg.Backend != "redis" {
		return cache.NewMemoryStore(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("using redis tag cache", zap.String("addr", cfg.Redis.Addr))
	return cache.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	tagStore, closeStore, err := newTagStore(ctx, &cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	tags := cache.NewTags(tagStore, logger)

	registry := resource.NewRegistry(gormDB, tags, logger)
	if fallback := registry.NegotiateOrdering(); len(fallback) > 0 {
		logger.Warn("seq_id missing, ordering by creation time", zap.Strings("kinds", fallback))
	}

	dash := dashboard.New(tags, registry.Equipment, registry.Operators, registry.EquipmentTypes, logger)
	authSvc := auth.NewService(gormDB, cfg.Auth.SessionTTL, logger)
	go authSvc.RunReaper(ctx, cfg.Auth.ReapInterval)

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger)
		pool.Start(ctx)
		registry.SetNotifier(pool)
		logger.Info("push notifications enabled", zap.Int("workers", cfg.WorkerPool.Size))
	}

	handler := api.NewHandler(gormDB, authSvc, registry, dash, webpushOptions, cfg, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received, stopping services")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info("server gracefully stopped")
	return nil
}
