package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/studentregistry/internal/app/controllers"
	appMigrations "github.com/yigit/studentregistry/internal/app/migrations"
	appRepos "github.com/yigit/studentregistry/internal/app/repositories"
	appRoutes "github.com/yigit/studentregistry/internal/app/routes"
	appServices "github.com/yigit/studentregistry/internal/app/services"
	"github.com/yigit/studentregistry/internal/config"
	"github.com/yigit/studentregistry/internal/db"
	appMiddleware "github.com/yigit/studentregistry/internal/middleware"
	"github.com/yigit/studentregistry/internal/pkg/logger"
	"github.com/yigit/studentregistry/internal/pkg/websocket"
	"github.com/yigit/studentregistry/internal/seed"
)

const storageSetupTimeout = 10 * time.Second

// Dependencies holds all the application dependencies
type Dependencies struct {
	StudentService    appServices.StudentService
	StudentController *appControllers.StudentController
	FeedHub           *websocket.Hub
	FeedHandler       *websocket.Handler
	Logger            zerolog.Logger
}

// Storage is the opened student store together with the handle that releases it
type Storage struct {
	Repository appRepos.StudentRepository
	closer     io.Closer
}

// Close releases the underlying database handle, if any
func (s *Storage) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")

	envFile := ""
	if _, err := os.Stat(".env"); err == nil {
		envFile = ".env"
	}

	cfg, err := config.LoadConfig(configPath, envFile)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgrCfg := logger.ParseConfig(cfg.Logging.Level, cfg.Logging.Format)
	lgr := logger.Configure(lgrCfg)
	lgr.Info().Str("logLevel", string(lgrCfg.Level)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured storage backend and runs its migrations.
func SetupStorage(cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storageSetupTimeout)
	defer cancel()

	driver := cfg.StorageDriver()
	lgr.Info().Str("driver", driver).Msg("Opening student storage...")

	switch driver {
	case config.StorageDriverPostgres:
		database, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		if err := appMigrations.NewPostgresMigrator(database.Pool, lgr).Migrate(ctx); err != nil {
			_ = database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Msg("Database connection successfully established.")
		return &Storage{Repository: appRepos.NewPostgresStudentRepository(database.Pool), closer: database}, nil

	case config.StorageDriverSQLite:
		database, err := db.NewSQLiteDB(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("Failed to open sqlite database")
			return nil, err
		}
		if err := appMigrations.NewSQLiteMigrator(database.DB, lgr).Migrate(ctx); err != nil {
			_ = database.Close()
			lgr.Error().Err(err).Msg("Database migration error")
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
		lgr.Info().Str("path", cfg.Storage.SQLitePath).Msg("SQLite database ready.")
		return &Storage{Repository: appRepos.NewSQLiteStudentRepository(database.DB), closer: database}, nil

	case config.StorageDriverMemory:
		lgr.Warn().Msg("Using in-memory storage, students will not survive a restart")
		return &Storage{Repository: appRepos.NewMemoryStudentRepository()}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// BuildDependencies initializes the service, controller and change feed, then applies the seed file if configured.
// The feed hub is running on return; close it with FeedHub.Close.
func BuildDependencies(cfg *config.Config, storage *Storage, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.FeedHub = websocket.NewHub(lgr)
	go deps.FeedHub.Run()
	deps.FeedHandler = websocket.NewHandler(deps.FeedHub, lgr)

	deps.StudentService = appServices.NewStudentService(storage.Repository, lgr, appServices.WithEventPublisher(deps.FeedHub))
	deps.StudentController = appControllers.NewStudentController(deps.StudentService)

	if cfg.Seed.File != "" {
		if err := seed.CreateDefaultData(context.Background(), deps.StudentService, cfg.Seed.File, lgr); err != nil {
			// Log the error but don't fail the startup
			lgr.Error().Err(err).Msg("Failed to create seed data, proceeding anyway...")
		}
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	switch strings.ToLower(cfg.Server.Mode) {
	case "production", gin.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(gin.Recovery(), appMiddleware.RequestLogger(lgr))

	appRoutes.SetupRouter(router, deps.StudentController, deps.FeedHandler)

	return router
}
