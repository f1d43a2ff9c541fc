package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"excusedesk/internal/api"
	"excusedesk/internal/attachments"
	"excusedesk/internal/audit"
	"excusedesk/internal/config"
	"excusedesk/internal/letters"
	applogger "excusedesk/internal/logger"
	"excusedesk/internal/queue"
	"excusedesk/internal/snapshot"
	"excusedesk/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := applogger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	snaps, err := snapshot.Open(cfg.DataDir, logger)
	if err != nil {
		return err
	}
	defer snaps.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "excusedesk:events")
	}

	st, err := letters.New(context.Background(), letters.Options{
		Snapshot: snaps,
		Events:   q,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	maxBytes := cfg.AttachmentMaxMB << 20
	var files attachments.Store
	if cfg.AttachmentBackend == "memory" {
		files = attachments.NewMemoryStore(cfg.AttachmentTTL, maxBytes)
	} else {
		files = attachments.NewRedisStore(redisClient.Client, cfg.AttachmentTTL, maxBytes)
	}

	trail := audit.New(redisClient.Client, cfg.AuditMaxEntries)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.New(st, files, trail, redisClient, cfg, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}
