// Package setup bootstraps the ORA services.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	aiClient "github.com/ora-civic/ora/internal/ai/client"
	"github.com/ora-civic/ora/internal/database"
	"github.com/ora-civic/ora/internal/database/memory"
	"github.com/ora-civic/ora/internal/database/migrations"
	"github.com/ora-civic/ora/internal/ledger"
	"github.com/ora-civic/ora/internal/live"
	"github.com/ora-civic/ora/internal/redis"
	"github.com/ora-civic/ora/internal/service"
	"github.com/ora-civic/ora/internal/setup/config"
	"github.com/ora-civic/ora/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the database schema is behind the binary.
var ErrPendingMigrations = errors.New("database migrations are pending; run `db migrate` or start with --migrate")

// Options selects how the application is initialized.
type Options struct {
	// Memory keeps all state in process and skips PostgreSQL and Redis.
	Memory bool
	// AutoMigrate applies pending migrations on startup.
	AutoMigrate bool
}

// Stores groups the persistence backends the services run on.
type Stores struct {
	Posts    service.PostStore
	Comments service.CommentStore
	Reasons  service.ReasonStore
	Votes    service.VoteReader
	Ledger   ledger.Store
}

// App bundles all core dependencies needed by the application.
type App struct {
	Config       *config.Config         // Application configuration
	Logger       *zap.Logger            // Main application logger
	DBLogger     *zap.Logger            // Database-specific logger
	DB           *database.Client       // Database connection pool, nil in memory mode
	RedisManager *redis.Manager         // Redis connection manager, nil in memory mode
	Stores       Stores                 // Persistence backends
	Broker       live.Broker            // Live tally fan-out
	Cache        *service.TrendingCache // Trending ranking cache, nil in memory mode
	Model        *aiClient.Client       // Rate limited language model client
	gemini       *aiClient.GeminiBackend
	pprofServer  *pprofServer
	shutdownOtel func(context.Context) error
}

// InitializeApp bootstraps all application dependencies in order.
func InitializeApp(ctx context.Context, logDir string, opts Options) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logger, dbLogger, err := GetLoggers(logDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	// Error logs double as spans once tracing is configured
	shutdownOtel := telemetry.Setup(&cfg.Telemetry, logger)
	logger = telemetry.WrapLogger(logger)

	app := &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     telemetry.WrapLogger(dbLogger).Named("database"),
		shutdownOtel: shutdownOtel,
	}

	if opts.Memory {
		store := memory.New()
		app.Stores = Stores{Posts: store, Comments: store, Reasons: store, Votes: store, Ledger: store}
		app.Broker = live.NewLocalBroker()

		logger.Warn("Running with in-memory storage; all data is lost on shutdown")
	} else {
		if err := app.initPersistence(ctx, opts.AutoMigrate); err != nil {
			app.Cleanup(ctx)
			return nil, err
		}
	}

	// Language model client shared by every AI flow
	gemini, err := aiClient.NewGeminiBackend(ctx, &cfg.Gemini)
	if err != nil {
		app.Cleanup(ctx)
		return nil, err
	}
	app.gemini = gemini
	app.Model = aiClient.NewClient(gemini, aiClient.OptionsFromConfig(&cfg.Gemini), logger)

	if cfg.Debug.EnablePprof {
		srv, err := startPprofServer(cfg.Debug.PprofPort, logger)
		if err != nil {
			logger.Error("Failed to start pprof server", zap.Error(err))
		} else {
			app.pprofServer = srv

			logger.Warn("pprof debugging endpoint enabled - this should not be used in production!")
		}
	}

	return app, nil
}

// initPersistence connects PostgreSQL and Redis.
func (s *App) initPersistence(ctx context.Context, autoMigrate bool) error {
	db, err := checkMigrations(ctx, &s.Config.PostgreSQL, s.DBLogger, autoMigrate)
	if err != nil {
		return err
	}
	s.DB = db

	repo := db.Model()
	s.Stores = Stores{
		Posts:    repo.Post(),
		Comments: repo.Comment(),
		Reasons:  repo.Reason(),
		Votes:    repo.Vote(),
		Ledger:   repo.Vote(),
	}

	s.RedisManager = redis.NewManager(&s.Config.Redis, s.Logger)

	liveClient, err := s.RedisManager.GetClient(redis.LiveDBIndex)
	if err != nil {
		return err
	}
	s.Broker = live.NewRedisBroker(liveClient, s.Logger)

	cacheClient, err := s.RedisManager.GetClient(redis.CacheDBIndex)
	if err != nil {
		return err
	}
	s.Cache = service.NewTrendingCache(
		cacheClient, time.Duration(s.Config.Trending.CacheTTL)*time.Second, s.Logger,
	)

	return nil
}

// Cleanup shuts components down in reverse initialization order.
// Errors are logged so every component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.pprofServer != nil {
		s.pprofServer.Shutdown(ctx)
	}

	if s.gemini != nil {
		if err := s.gemini.Close(); err != nil {
			s.Logger.Error("Failed to close language model client", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}

	// Close Redis connections last as other components might need it during cleanup
	if s.RedisManager != nil {
		s.RedisManager.Close()
	}

	if s.shutdownOtel != nil {
		if err := s.shutdownOtel(ctx); err != nil {
			s.Logger.Error("Failed to flush telemetry", zap.Error(err))
		}
	}

	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}

// checkMigrations connects to the database and makes sure the schema is current.
func checkMigrations(
	ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger, autoMigrate bool,
) (*database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return db, nil
	}

	if !autoMigrate {
		db.Close()
		return nil, fmt.Errorf("%w (%d unapplied)", ErrPendingMigrations, len(unapplied))
	}

	if err := database.Migrate(ctx, db.DB(), dbLogger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
