package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"excusedesk/internal/audit"
	"excusedesk/internal/config"
	"excusedesk/internal/letters"
	applogger "excusedesk/internal/logger"
	"excusedesk/internal/metrics"
	"excusedesk/internal/queue"
	"excusedesk/internal/store"
)

// Worker consumes mutation events and records them on the audit trail.
func main() {
	cfg := config.Load()

	logger, err := applogger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "excusedesk:events")
	}

	trail := audit.New(redisClient.Client, cfg.AuditMaxEntries)

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for events")
	for msg := range messages {
		var ev letters.Event
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			logger.Warn("undecodable event", zap.String("type", msg.Type), zap.Error(err))
			continue
		}

		if err := trail.Record(ctx, ev); err != nil {
			logger.Error("audit record failed", zap.String("action", ev.Action), zap.Error(err))
			continue
		}

		metrics.EventsProcessedTotal.WithLabelValues(ev.Action).Inc()
		logger.Info("event recorded",
			zap.String("action", ev.Action),
			zap.String("letter_id", ev.LetterID),
			zap.String("actor", ev.Actor),
		)
	}

	logger.Info("worker stopped")
}
