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

	"github.com/chaos-io/maskswap/config"
	"github.com/chaos-io/maskswap/handler"
	"github.com/chaos-io/maskswap/middleware"
	"github.com/chaos-io/maskswap/service"
	"github.com/chaos-io/maskswap/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(args []string) error {
	fs, configPath := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := setup(*configPath)
	if err != nil {
		return err
	}

	util.Logger.Info("starting maskswap server",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	if err := os.MkdirAll(cfg.Upload.SpoolDir, 0o755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := newCache(ctx, &cfg.Redis)
	if c, ok := cache.(*service.RedisCache); ok {
		defer func() {
			_ = c.Close()
		}()
	}

	janitor := service.NewJanitor(cfg.Upload.SpoolDir, cfg.Upload.Retention)
	if err := janitor.Start(cfg.Upload.CleanupSpec); err != nil {
		return fmt.Errorf("invalid cleanup spec %q: %w", cfg.Upload.CleanupSpec, err)
	}
	defer janitor.Stop()

	svc := service.NewSegmentService(newPipeline(ctx, cfg), &cfg.Segment, cache)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.MaxMultipartMemory = cfg.Upload.MaxSize
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	handler.Register(r,
		handler.NewSystemHandler(handler.BuildInfo{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
		}, svc.ProviderName()),
		handler.NewSegmentHandler(&cfg.Upload, svc))

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		util.Logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("provider", svc.ProviderName()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	util.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCache returns a redis cache when enabled and reachable, otherwise nil.
func newCache(ctx context.Context, cfg *config.RedisConfig) service.Cache {
	if !cfg.Enabled {
		return nil
	}

	cache := service.NewRedisCache(cfg)
	if err := cache.Ping(ctx); err != nil {
		util.Logger.Warn("redis connection failed, cache disabled", zap.Error(err))
		_ = cache.Close()
		return nil
	}
	util.Logger.Info("redis connected successfully", zap.String("addr", cfg.Addr))
	return cache
}
