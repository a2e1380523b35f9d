package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/auth"
	authPostgres "github.com/frahmantamala/civic-report/internal/auth/postgres"
	"github.com/frahmantamala/civic-report/internal/auth/session"
	"github.com/frahmantamala/civic-report/internal/cache"
	"github.com/frahmantamala/civic-report/internal/category"
	"github.com/frahmantamala/civic-report/internal/core/common/database"
	"github.com/frahmantamala/civic-report/internal/core/events"
	"github.com/frahmantamala/civic-report/internal/geo"
	"github.com/frahmantamala/civic-report/internal/issue"
	issuePostgres "github.com/frahmantamala/civic-report/internal/issue/postgres"
	"github.com/frahmantamala/civic-report/internal/media"
	"github.com/frahmantamala/civic-report/internal/stats"
	statsPostgres "github.com/frahmantamala/civic-report/internal/stats/postgres"
	"github.com/frahmantamala/civic-report/internal/transport"
	"github.com/frahmantamala/civic-report/internal/transport/middleware"
	"github.com/frahmantamala/civic-report/internal/transport/rest"
	"github.com/frahmantamala/civic-report/internal/user"
	userPostgres "github.com/frahmantamala/civic-report/internal/user/postgres"
	"github.com/frahmantamala/civic-report/internal/view"
	"github.com/frahmantamala/civic-report/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	gormLogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Redis    *redis.Client
	Router   *chi.Mux
	EventBus *events.EventBus
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	if err := deps.Redis.Close(); err != nil {
		deps.Logger.Error("Redis close error", "error", err)
	}
	if err := deps.DB.Close(); err != nil {
		deps.Logger.Error("Database close error", "error", err)
	}

	deps.Logger.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := session.NewClient(context.Background(), config.Redis.URL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	lg := logger.LoggerWrapper()

	return &Dependencies{
		Config:   config,
		DB:       db,
		Redis:    rdb,
		Router:   chi.NewRouter(),
		EventBus: events.NewEventBus(lg),
		Logger:   lg,
	}, nil
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	gormDB, err := database.OpenGorm(deps.DB.DB, gormLogLevel(cfg.Env))
	if err != nil {
		return err
	}

	storage, err := initStorage(cfg.Storage, lg)
	if err != nil {
		return err
	}

	var locator geo.Locator = geo.Disabled{}
	if cfg.Geo.Enabled {
		locator = geo.NewClient(geo.Config{URL: cfg.Geo.URL, Timeout: cfg.Geo.Timeout}, lg)
	}

	// Repositories
	authRepo := authPostgres.NewRepository(gormDB)
	userRepo := userPostgres.NewPostgresRepo(deps.DB)
	issueRepo := issuePostgres.NewIssueRepository(gormDB)
	statsRepo := statsPostgres.NewPostgresRepo(deps.DB)

	// Services
	tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.SessionTTL)
	authService := auth.NewService(authRepo, session.NewRedisStoreWithClient(deps.Redis), tokens, cfg.Security.BCryptCost, lg)
	userService := user.NewService(userRepo, issueRepo, lg)
	issueService := issue.NewService(issue.Dependencies{
		Repository:     issueRepo,
		Users:          userRepo,
		Storage:        storage,
		Locator:        locator,
		Publisher:      deps.EventBus,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         lg,
	})
	statsService := stats.NewService(statsRepo, cache.New(deps.Redis, lg), cfg.Stats.CacheTTL, lg)
	viewService := view.NewService(issueService, userService, statsService, lg)

	// Event handlers
	issue.NewAuditHandler(lg).RegisterEventHandlers(deps.EventBus)
	stats.NewEventHandler(statsService, lg).RegisterEventHandlers(deps.EventBus)

	base := transport.NewBaseHandler(lg)
	rest.RegisterAllRoutes(deps.Router, rest.Handlers{
		Health:      rest.NewHealthHandler(deps.DB, deps.Redis),
		Auth:        auth.NewHandler(authService),
		RBAC:        auth.NewRBACAuthorization(lg),
		User:        user.NewHandler(base, userService),
		Issue:       issue.NewHandler(base, issueService),
		Category:    category.NewHandler(base, category.NewService(lg)),
		Stats:       stats.NewHandler(base, statsService),
		View:        view.NewHandler(base, viewService),
		RateLimiter: middleware.NewIssueRateLimiter(deps.Redis, cfg.RateLimit, lg),
	}, cfg.Server.AllowedOrigins, lg)

	return nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return dbConn, nil
}

// initStorage connects to the object store, or keeps images in memory when no
// endpoint is configured.
func initStorage(cfg internal.StorageConfig, lg *slog.Logger) (media.Storage, error) {
	if cfg.Endpoint == "" {
		lg.Warn("storage endpoint not configured; images are kept in memory")
		return media.NewMemoryStorage(cfg.PublicBaseURL), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storage, err := media.NewMinioStorage(ctx, media.MinioConfig{
		Endpoint:      cfg.Endpoint,
		AccessKey:     cfg.AccessKey,
		SecretKey:     cfg.SecretKey,
		Bucket:        cfg.Bucket,
		UseSSL:        cfg.UseSSL,
		PublicBaseURL: cfg.PublicBaseURL,
	}, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media storage: %w", err)
	}
	return storage, nil
}

func gormLogLevel(env string) gormLogger.LogLevel {
	if env == "production" {
		return gormLogger.Error
	}
	return gormLogger.Warn
}
