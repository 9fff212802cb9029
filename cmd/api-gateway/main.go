package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/learning-analytics-api/api/swagger"
	"github.com/noah-isme/learning-analytics-api/internal/handler"
	internalmiddleware "github.com/noah-isme/learning-analytics-api/internal/middleware"
	"github.com/noah-isme/learning-analytics-api/internal/models"
	"github.com/noah-isme/learning-analytics-api/internal/repository"
	"github.com/noah-isme/learning-analytics-api/internal/service"
	"github.com/noah-isme/learning-analytics-api/pkg/cache"
	"github.com/noah-isme/learning-analytics-api/pkg/config"
	"github.com/noah-isme/learning-analytics-api/pkg/database"
	"github.com/noah-isme/learning-analytics-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/learning-analytics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/learning-analytics-api/pkg/middleware/requestid"
)

// @title Learning Analytics API
// @version 1.0.0
// @description Read-only analytics over learner, course and quiz activity
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		logr.Fatal("failed to open entity store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	var cacheRepo service.CacheRepository
	if cfg.Analytics.CacheEnabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
			checks["cache"] = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled)

	loader := service.NewSnapshotLoader(store, metricsSvc, cfg.Analytics.ReadTimeout)
	analyticsSvc := service.NewAnalyticsService(loader, cacheSvc, metricsSvc, logr, service.AnalyticsOptions{
		Location:         cfg.Analytics.Location,
		CompletionSource: service.CompletionSource(cfg.Analytics.CompletionSource),
		FocusCountry:     cfg.Analytics.FocusCountry,
		LeaderboardSize:  cfg.Analytics.LeaderboardSize,
		DropOffDetailed:  cfg.Analytics.DropOffDetailed,
	})
	exportSvc := service.NewExportService(analyticsSvc, logr, nil, nil)
	authSvc := service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc, exportSvc, validator.New(), cfg.Analytics.Location)
	contentHandler := handler.NewContentHandler(analyticsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	readers := guard(cfg, authSvc, internalmiddleware.AnalyticsReaders)
	operators := guard(cfg, authSvc, internalmiddleware.CacheOperators)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	api.GET("/groups", append(readers, contentHandler.Groups)...)

	analytics := api.Group("/analytics")
	analytics.GET("/users/:id/stats", append(readers, analyticsHandler.UserStats)...)
	analytics.GET("/users/:id/timeline", append(readers, analyticsHandler.UserTimeline)...)
	analytics.GET("/gender-distribution", append(readers, analyticsHandler.Gender)...)
	analytics.GET("/age-segmentation", append(readers, analyticsHandler.Age)...)
	analytics.GET("/geographical-distribution", append(readers, analyticsHandler.Geography)...)
	analytics.GET("/engagement-analysis", append(readers, analyticsHandler.Engagement)...)
	analytics.GET("/performance-metrics", append(readers, analyticsHandler.Performance)...)
	analytics.GET("/cohort-insights", append(readers, analyticsHandler.Cohorts)...)
	analytics.GET("/leaderboard", append(readers, analyticsHandler.Leaderboard)...)
	analytics.GET("/drop-off-tracking", append(readers, analyticsHandler.DropOff)...)
	analytics.GET("/export", append(readers, analyticsHandler.Export)...)
	analytics.GET("/system", append(operators, analyticsHandler.System)...)
	analytics.DELETE("/cache", append(operators, analyticsHandler.PurgeCache)...)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver),
			zap.Bool("auth", cfg.JWT.Enabled),
			zap.Bool("cache", cacheSvc.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

// guard returns the auth chain for a role set; it is empty when auth is disabled.
func guard(cfg *config.Config, auth *service.AuthService, roles []models.AdminRole) []gin.HandlerFunc {
	if !cfg.JWT.Enabled {
		return nil
	}
	return []gin.HandlerFunc{internalmiddleware.JWT(auth), internalmiddleware.RequireRoles(roles...)}
}

func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.Pinger) (service.EntityStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return service.EntityStore{}, nil, err
		}
		checks["store"] = handler.PingFunc(db.PingContext)
		return service.EntityStore{
			Users:        repository.NewPostgresUserRepository(db),
			Groups:       repository.NewPostgresGroupRepository(db),
			Chapters:     repository.NewPostgresChapterRepository(db),
			Classes:      repository.NewPostgresClassRepository(db),
			Quizzes:      repository.NewPostgresQuizRepository(db),
			QuizAttempts: repository.NewPostgresQuizAttemptRepository(db),
		}, func() { _ = db.Close() }, nil
	default:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return service.EntityStore{}, nil, err
		}
		checks["store"] = handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
		return service.EntityStore{
			Users:        repository.NewMongoUserRepository(db),
			Groups:       repository.NewMongoGroupRepository(db),
			Chapters:     repository.NewMongoChapterRepository(db),
			Classes:      repository.NewMongoClassRepository(db),
			Quizzes:      repository.NewMongoQuizRepository(db),
			QuizAttempts: repository.NewMongoQuizAttemptRepository(db),
		}, func() { _ = client.Disconnect(context.Background()) }, nil
	}
}
