// Package main runs the Viostream integration HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/viostream/config"
	"github.com/aura-webinar/viostream/internal/auth"
	"github.com/aura-webinar/viostream/internal/browser"
	"github.com/aura-webinar/viostream/internal/embed"
	"github.com/aura-webinar/viostream/internal/ingest"
	"github.com/aura-webinar/viostream/internal/logging"
	"github.com/aura-webinar/viostream/internal/middleware"
	"github.com/aura-webinar/viostream/internal/realtime"
	"github.com/aura-webinar/viostream/internal/references"
	"github.com/aura-webinar/viostream/internal/rendering"
	"github.com/aura-webinar/viostream/internal/settings"
	"github.com/aura-webinar/viostream/internal/viostream"
	"github.com/aura-webinar/viostream/pkg/database"
	"github.com/aura-webinar/viostream/pkg/queue"
	"github.com/aura-webinar/viostream/pkg/redis"
	"github.com/aura-webinar/viostream/pkg/response"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

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
			logger.Warn("s3 disabled, file uploads will be rejected", zap.Error(err))
		} else {
			stager = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Credentials saved through /admin/settings take effect on the next call.
	settingsStore := settings.NewStore(pool, viostream.Credentials{
		AccessKey: cfg.Viostream.AccessKey,
		APIKey:    cfg.Viostream.APIKey,
	}, logger)
	client := viostream.New(settingsStore,
		viostream.WithBaseURL(cfg.Viostream.BaseURL),
		viostream.WithTimeout(cfg.Viostream.Timeout),
		viostream.WithLogger(logger.Named("viostream")),
	)

	browserHandler := browser.NewHandler(client, "/browser", logger)
	renderHandler := rendering.NewHandler(logger)
	referenceHandler := references.NewHandler(references.NewRepository(pool), client, embed.DefaultFormatterSettings(), logger)
	settingsHandler := settings.NewHandler(settingsStore, client,
		settings.NewClientFactory(cfg.Viostream.BaseURL, nil, logger.Named("viostream")), logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	ingestService := ingest.NewService(client, ingest.NewRepository(pool), stager, jobQueue, cfg.Ingest.PollInterval, logger)
	ingestHandler := ingest.NewHandler(ingestService, int64(cfg.Ingest.MaxUploadMB)<<20, logger)

	// Ingest status changes from this process and the worker reach admin sockets through Redis.
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(pubsub, logger)
	ingestService.SetNotifier(realtime.NewIngestEvents(pubsub, logger))

	jwtValidate := func(token string) (subject, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.Subject, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		editors := api.Group("", middleware.RequireRole(auth.RoleAdmin, auth.RoleEditor))
		browserHandler.Register(editors.Group("/browser"))
		renderHandler.Register(editors.Group("/render"))
		editors.GET("/content/:id/video", referenceHandler.Get)
		editors.PUT("/content/:id/video", referenceHandler.Put)
		editors.GET("/content/:id/video/embed", referenceHandler.Embed)

		admin := api.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
		admin.GET("/settings", settingsHandler.Get)
		admin.PUT("/settings", settingsHandler.Save)
		admin.POST("/settings/test", settingsHandler.TestConnection)
		admin.POST("/ingests", ingestHandler.Create)
		admin.GET("/ingests", ingestHandler.List)
		admin.GET("/ingests/:id/status", ingestHandler.Status)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/admin/events", realtime.ServeWs(hub, logger, jwtValidate, auth.RoleAdmin))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.Bool("uploads", stager != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
