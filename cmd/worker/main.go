// Package main runs the background ingest status poller.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/config"
	"github.com/aura-webinar/viostream/internal/ingest"
	"github.com/aura-webinar/viostream/internal/logging"
	"github.com/aura-webinar/viostream/internal/realtime"
	"github.com/aura-webinar/viostream/internal/settings"
	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/internal/worker"
	"github.com/aura-webinar/viostream/pkg/database"
	"github.com/aura-webinar/viostream/pkg/queue"
	"github.com/aura-webinar/viostream/pkg/redis"
	"github.com/aura-webinar/viostream/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Staged uploads are deleted once their ingest finishes; without S3 they are left alone.
	var stager ingest.Stager
	if cfg.AWS.Region != "" && cfg.AWS.IngestBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			IngestBucket:         cfg.AWS.IngestBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			stager = s3Client
		}
	}

	client := viostream.New(
		settings.NewStore(pool, viostream.Credentials{AccessKey: cfg.Viostream.AccessKey, APIKey: cfg.Viostream.APIKey}, logger),
		viostream.WithBaseURL(cfg.Viostream.BaseURL),
		viostream.WithTimeout(cfg.Viostream.Timeout),
		viostream.WithLogger(logger.Named("viostream")),
	)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	ingests := ingest.NewService(client, ingest.NewRepository(pool), stager, jobQueue, cfg.Ingest.PollInterval, logger)
	ingests.SetNotifier(realtime.NewIngestEvents(realtime.NewRedisPubSub(rdb.Client, logger), logger))
	poller := worker.NewIngestPoller(ingests, jobQueue, cfg.Ingest.PollInterval, cfg.Ingest.MaxPolls, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Run(workerCtx)
	logger.Info("worker started",
		zap.Duration("poll_interval", cfg.Ingest.PollInterval),
		zap.Int("max_polls", cfg.Ingest.MaxPolls),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}
