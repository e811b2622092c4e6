package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franzego/uninotify/internal/config"
	"github.com/franzego/uninotify/internal/handlers"
	"github.com/franzego/uninotify/internal/logger"
	"github.com/franzego/uninotify/internal/middleware"
	"github.com/franzego/uninotify/internal/notice"
	"github.com/franzego/uninotify/internal/queue"
	"github.com/franzego/uninotify/internal/services"
	"github.com/franzego/uninotify/internal/store"
	redisclient "github.com/franzego/uninotify/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}
	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemini, err := services.NewGeminiGenerator(ctx, cfg.Gemini)
	if err != nil {
		zlog.Fatal("failed to create generation client", zap.Error(err))
	}
	generator := services.NewGuardedGenerator(gemini, cfg.Gemini.Timeout, zlog)

	var rdb *redis.Client
	var drafts, templates store.Store
	switch cfg.Storage.Driver {
	case "redis":
		rdb, err = redisclient.InitRedis(cfg.Redis)
		if err != nil {
			zlog.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		drafts = store.NewRedisStore(rdb, "drafts")
		templates = store.NewRedisStore(rdb, "templates")
	default:
		osFs := afero.NewOsFs()
		if drafts, err = store.NewFileStore(osFs, "drafts", cfg.Storage.DraftsFile); err != nil {
			zlog.Fatal("failed to open drafts store", zap.Error(err))
		}
		if templates, err = store.NewFileStore(osFs, "templates", cfg.Storage.TemplatesFile); err != nil {
			zlog.Fatal("failed to open templates store", zap.Error(err))
		}
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		clientRabbit, err := queue.NewRabbitMqService(cfg.RabbitMQ)
		if err != nil {
			// events are optional; keep serving without them
			zlog.Warn("rabbitmq unavailable, events disabled", zap.Error(err))
		} else {
			defer clientRabbit.CloseConnection()
			publisher = clientRabbit
		}
	}

	templateService := services.NewTemplateService(notice.NewLoader(afero.NewOsFs(), cfg.Templates.Dir), zlog)
	notificationService := services.NewNotificationService(generator, templateService, publisher, cfg.Gemini.StructuredOutput, zlog)

	notificationHandler := handlers.NewNotificationHandler(notificationService, templateService, zlog)
	draftHandler := handlers.NewRecordHandler(drafts, handlers.DraftEvents, publisher, zlog)
	savedTemplateHandler := handlers.NewRecordHandler(templates, handlers.TemplateEvents, publisher, zlog)
	healthHandler := handlers.NewHealthHandler([]store.Store{drafts, templates}, rdb, publisher, generator)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CorrelationID())
	r.Use(middleware.RequestLogger(zlog))
	r.Use(middleware.CORS(cfg.CORS))

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if cfg.Auth.JWTSecret != "" {
		api.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	}

	generation := api.Group("")
	generation.Use(middleware.RateLimit(cfg.RateLimit))
	generation.POST("/generate", notificationHandler.Generate)
	generation.POST("/student_reply", notificationHandler.StudentReply)
	generation.POST("/holiday_notice", notificationHandler.HolidayNotice)
	generation.POST("/free_prompt", notificationHandler.FreePrompt)
	generation.POST("/gemini_edit", notificationHandler.Edit)

	api.GET("/self_templates", notificationHandler.SelfTemplates)

	api.GET("/drafts", draftHandler.List)
	api.POST("/drafts", draftHandler.Create)
	api.GET("/drafts/:id", draftHandler.Get)
	api.PUT("/drafts/:id", draftHandler.Update)
	api.DELETE("/drafts/:id", draftHandler.Delete)

	api.GET("/templates", savedTemplateHandler.List)
	api.POST("/templates", savedTemplateHandler.Create)
	api.GET("/templates/:id", savedTemplateHandler.Get)
	api.PUT("/templates/:id", savedTemplateHandler.Update)
	api.DELETE("/templates/:id", savedTemplateHandler.Delete)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// generation can take up to gemini.timeout
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
