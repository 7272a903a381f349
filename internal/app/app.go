package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haguru/schooladmin/config"
	"github.com/haguru/schooladmin/internal/interfaces"
	internalmetrics "github.com/haguru/schooladmin/internal/metrics"
	"github.com/haguru/schooladmin/internal/middleware"
	"github.com/haguru/schooladmin/internal/routes"
	"github.com/haguru/schooladmin/internal/server"
	mongoUserRepo "github.com/haguru/schooladmin/internal/userrepo/mongo"
	postgresUserRepo "github.com/haguru/schooladmin/internal/userrepo/postgres"
	sqliteUserRepo "github.com/haguru/schooladmin/internal/userrepo/sqlite"
	"github.com/haguru/schooladmin/internal/userservice"
	"github.com/haguru/schooladmin/pkg/databases/mongo"
	"github.com/haguru/schooladmin/pkg/databases/postgres"
	"github.com/haguru/schooladmin/pkg/databases/sqlite"
	"github.com/haguru/schooladmin/pkg/hasher"
	"github.com/haguru/schooladmin/pkg/metrics"
	"github.com/haguru/schooladmin/pkg/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	structValidator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
var ShutdownTimeout = 15 * time.Second

// App represents the main application, containing server and configuration.
// It initializes with a config file, validates settings, and manages routes.
type App struct {
	Server      *server.Server
	Config      *config.ServiceConfig
	Logger      interfaces.Logger
	Metrics     interfaces.Metrics
	UserRepo    interfaces.UserRepository
	UserService *userservice.UserService
}

// NewApp loads the config at configPath and builds the application.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := zerolog.NewZerologLogger(cfg.ServiceName)
	return NewAppFromConfig(ctx, cfg, logger)
}

// NewAppFromConfig validates cfg, connects the user directory and registers
// every route.
func NewAppFromConfig(ctx context.Context, cfg *config.ServiceConfig, logger interfaces.Logger) (*App, error) {
	validator := structValidator.New()
	if err := ValidateConfig(validator, cfg); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)

	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.Metrics = app.initializeMetrics()

	userRepo, err := NewUserRepository(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user repository: %w", err)
	}
	app.UserRepo = userRepo

	app.UserService = userservice.NewUserService(userRepo, hasher.NewBcryptHasher(cfg.PasswordCost), logger)

	app.Server = server.NewServer(cfg.Host, cfg.Port, logger,
		middleware.RequestLog(logger),
		middleware.Recover(logger),
		middleware.CORS(cfg.CORS),
	)

	route := routes.NewRoute(app.Metrics, app.UserService, userRepo, logger, validator, cfg.RevealMissingUser)
	if err := app.addRoutes(route); err != nil {
		_ = userRepo.Close(ctx)
		return nil, err
	}

	return app, nil
}

// ValidateConfig checks cfg and the sub-config of the selected database.
func ValidateConfig(validator *structValidator.Validate, cfg *config.ServiceConfig) error {
	if err := validator.Struct(cfg); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	selected, err := cfg.SelectedDatabase()
	if err != nil {
		return err
	}
	if err := validator.Struct(selected); err != nil {
		return fmt.Errorf("%s database validation error: %w", cfg.Database.Type, err)
	}
	return nil
}

func (app *App) addRoutes(route *routes.Route) error {
	metricsHandler := promhttp.HandlerFor(
		app.Metrics.GetRegistry(),
		promhttp.HandlerOpts{})

	handlers := []struct {
		pattern string
		name    string
		handler http.Handler
	}{
		{routes.LoginRouteAPI, routes.LoginRouteAPI, http.HandlerFunc(route.Login)},
		{routes.ChangePasswordRouteAPI, routes.ChangePasswordRouteAPI, http.HandlerFunc(route.ChangePassword)},
		{routes.HealthRouteAPI, routes.HealthRouteAPI, http.HandlerFunc(route.Healthz)},
		{routes.MetricsRouteAPI, routes.MetricsRouteAPI, metricsHandler},
	}

	for _, h := range handlers {
		if err := app.Server.AddRoute(h.pattern, otelhttp.NewHandler(h.handler, h.name)); err != nil {
			return fmt.Errorf("failed to add %s route: %w", h.name, err)
		}
	}
	return nil
}

// Handler returns the root handler, middleware included.
func (app *App) Handler() http.Handler {
	return app.Server.Handler()
}

// Run serves until SIGINT/SIGTERM or ctx is cancelled, then drains in-flight
// requests and closes the directory.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		runErr = err
	case <-ctx.Done():
		app.Logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to shut down server: %w", err))
	}
	if err := app.UserRepo.Close(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to close user directory: %w", err))
	}
	return runErr
}

func (app *App) initializeMetrics() interfaces.Metrics {
	appMetrics := metrics.NewMetrics(app.Config.ServiceName)
	internalmetrics.Register(appMetrics)
	return appMetrics
}

// NewUserRepository connects the directory selected by dbConfig.Type and
// makes sure its schema exists.
func NewUserRepository(ctx context.Context, dbConfig *config.Database, logger interfaces.Logger) (interfaces.UserRepository, error) {
	var userRepo interfaces.UserRepository
	var err error

	switch dbConfig.Type {
	case config.DatabaseTypeMongo:
		dbClient, err := mongo.NewMongoDB(&dbConfig.MongoDB, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
		}
		if err = dbClient.Connect(ctx, dbConfig.MongoDB.DSN); err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		userRepo, err = mongoUserRepo.NewMongoUserRepository(dbClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MongoDB repository: %w", err)
		}

	case config.DatabaseTypePostgres:
		dbClient := postgres.NewPostgresDatabaseClient(&dbConfig.Postgres)
		if err = dbClient.Connect(ctx, dbConfig.Postgres.DSN); err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		userRepo, err = postgresUserRepo.NewPostgresUserRepository(dbClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}

	case config.DatabaseTypeSQLite:
		dbClient := sqlite.NewSQLiteDatabaseClient()
		if err = dbClient.Connect(ctx, dbConfig.SQLite.Path); err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		userRepo, err = sqliteUserRepo.NewSQLiteUserRepository(dbClient)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbConfig.Type)
	}

	if err = userRepo.EnsureIndices(ctx); err != nil {
		_ = userRepo.Close(ctx)
		return nil, fmt.Errorf("failed to ensure indices: %w", err)
	}

	logger.Info("User directory ready", "type", dbConfig.Type)
	return userRepo, nil
}
