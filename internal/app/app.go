package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shelfscout/server/internal/config"
	"github.com/shelfscout/server/internal/database"
	"github.com/shelfscout/server/internal/middleware"
	"github.com/shelfscout/server/internal/modules/catalog"
	"github.com/shelfscout/server/internal/modules/history"
	"github.com/shelfscout/server/internal/modules/recommend"
	"github.com/shelfscout/server/internal/modules/search"
	pkgcron "github.com/shelfscout/server/internal/pkg/cron"
	"github.com/shelfscout/server/internal/pkg/metrics"
	pkgredis "github.com/shelfscout/server/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cancel   context.CancelFunc
	sched    *pkgcron.Scheduler
	search   *search.Service
	history  *history.Service
	fallback *catalog.Fallback
	started  time.Time
}

// New initializes the application: DB → Redis → services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		rc, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	a := &App{
		cfg:     cfg,
		db:      db,
		rc:      rc,
		logger:  logger,
		metrics: metrics.New(),
		started: time.Now(),
	}
	if err := a.buildServices(); err != nil {
		a.closeStores()
		return nil, err
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(middleware.RateLimit(middleware.RateLimitOptions{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Redis:             rc,
		Logger:            logger,
	}))
	a.router = router

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.sched = pkgcron.New(logger)
	registerCronJobs(a.sched, a.history, cfg, logger)
	a.sched.Start(ctx)

	a.registerRoutes()
	return a, nil
}

// buildServices constructs the AI and catalog legs, the history log and the
// search service on top of them.
func (a *App) buildServices() error {
	cfg := a.cfg

	provider := cfg.SelectedAIProvider()
	switch {
	case provider == nil:
		a.logger.Warn("no AI provider enabled, searches will be catalog-only")
	case strings.TrimSpace(provider.APIKey) == "":
		a.logger.Warn("AI provider has no api key, searches will be catalog-only", zap.String("provider", provider.ID))
		provider = nil
	}
	gen, err := recommend.NewGenerator(provider, cfg.AI.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("ai provider: %w", err)
	}
	recommender := recommend.NewService(gen, recommend.WithLogger(a.logger))

	store := catalog.NewStore(a.db)
	var books catalog.Source = catalog.NewGoogleBooks(
		cfg.Catalog.Endpoint,
		catalog.WithAPIKey(cfg.Catalog.APIKey),
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		catalog.WithLogger(a.logger),
	)
	if cfg.Catalog.LocalFallback {
		a.fallback = catalog.NewFallback(books, store, store, a.logger)
		books = a.fallback
	}
	if a.rc != nil {
		books = catalog.NewCached(books, a.rc, cfg.Catalog.CacheTTL, a.logger)
	}

	a.history = history.NewService(a.db,
		history.WithLogger(a.logger),
		history.WithRecentLimit(cfg.History.RecentLimit),
	)

	a.search = search.NewService(recommender, books, a.history,
		search.WithLogger(a.logger),
		search.WithMetrics(a.metrics),
		search.WithLimits(search.Limits{
			Recommendations: cfg.AI.Recommendations,
			MaxResults:      cfg.Catalog.MaxResults,
			QuoteMaxResults: cfg.Catalog.QuoteMaxResults,
			AITimeout:       cfg.AI.Timeout,
			CatalogTimeout:  cfg.Catalog.Timeout,
		}),
	)
	return nil
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		c.AllowOriginFunc = originAllowed(cfg.AllowedOrigins)
	} else {
		c.AllowOriginFunc = func(string) bool { return true }
	}
	return c
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Search exposes the search service for the CLI.
func (a *App) Search() *search.Service { return a.search }

// Shutdown stops background jobs, drains pending writes and closes the stores.
func (a *App) Shutdown() {
	a.cancel()
	a.sched.Wait()
	a.search.Wait()
	if a.fallback != nil {
		a.fallback.Wait()
	}
	a.closeStores()
}

func (a *App) closeStores() {
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
}
