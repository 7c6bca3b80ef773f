package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coursewise/coursewise/internal/config"
	"github.com/coursewise/coursewise/internal/datasource"
	"github.com/coursewise/coursewise/internal/handlers"
	"github.com/coursewise/coursewise/internal/middleware"
	"github.com/coursewise/coursewise/internal/ml"
	"github.com/coursewise/coursewise/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	store    datasource.Store
	engine   *services.Engine
	handlers *handlers.Handlers
	router   *gin.Engine
	redis    *redis.Client
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	store, err := openStore(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data source: %w", err)
	}
	app.store = store

	app.redis = openRedis(cfg, app.logger)

	embedder := ml.NewTextEmbedder(cfg.Models.Embedding.ModelPath, cfg.Models.Embedding.Dimensions, app.logger)
	app.engine = services.NewEngine(store, cfg.Engine, app.logger, services.EngineOptions{
		Embedder:   embedder,
		ModelStore: services.NewModelStore(cfg.Models.StorePath, app.logger),
		Results:    services.NewResultCache(app.redis, cfg.Redis.ResultTTL, app.logger),
		Metrics:    services.NewEngineMetrics(),
	})

	app.handlers = &handlers.Handlers{
		Health:         handlers.NewHealthHandler(app.logger, app.engine),
		Recommendation: handlers.NewRecommendationHandler(app.engine, app.logger),
	}

	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Engine() *services.Engine {
	return a.engine
}

func (a *App) Store() datasource.Store {
	return a.store
}

func (a *App) Logger() *logrus.Logger {
	return a.logger
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing redis connection")
		}
	}
	if closer, ok := a.store.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

// openStore resolves the configured connector. Auto mode prefers flat files
// when they exist on disk, then Postgres, then an empty in-memory store.
func openStore(cfg *config.Config, logger *logrus.Logger) (datasource.Store, error) {
	ds := cfg.DataSource
	mode := ds.Mode
	if mode == "auto" {
		switch {
		case fileExists(ds.StudentsPath) && fileExists(ds.ContentPath):
			mode = "file"
		case ds.PostgresURL != "":
			mode = "postgres"
		default:
			mode = "memory"
		}
		logger.WithField("mode", mode).Info("Resolved data source mode")
	}

	switch mode {
	case "memory":
		logger.Warn("Using empty in-memory data source")
		return datasource.NewMemoryStore(nil, nil, nil), nil
	case "file":
		return datasource.NewFileStore(ds.StudentsPath, ds.ContentPath, ds.SponsorsPath, logger)
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), ds.QueryTimeout)
		defer cancel()
		return datasource.NewPostgresStoreFromURL(ctx, ds.PostgresURL, logger)
	default:
		return nil, fmt.Errorf("unknown data source mode %q", mode)
	}
}

func openRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.Redis.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.WithError(err).Warn("Invalid redis URL, warm result cache disabled")
		return nil
	}
	return redis.NewClient(opts)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS())

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/:studentId", a.handlers.Recommendation.Get)
			recommendations.POST("/batch", a.handlers.Recommendation.Batch)
		}
		api.POST("/train", a.handlers.Recommendation.Train)
		api.DELETE("/cache", a.handlers.Recommendation.ClearCache)
	}

	a.router = router
}
