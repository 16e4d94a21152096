package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/app"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/config"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/credentials"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/database"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/handler"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/middleware"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/router"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/receipt"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/security"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/service"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/workflow"
)

const sessionIssuer = "entrega-imagenes"

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(provideLogger)

var RuntimeInfraSet = wire.NewSet(
	provideRedisClient,
	provideDatabase,
	provideCredentialHolder,
)

var RepositorySet = wire.NewSet(provideRecordStore)

var ServiceSet = wire.NewSet(
	provideNotifier,
	providePublisher,
	provideRenderer,
	provideFinalizeGuard,
	provideSessionStore,
	provideWorkflow,
	wire.Bind(new(handler.Workflow), new(*workflow.Workflow)),
)

var SecuritySet = wire.NewSet(provideSessionTokens, provideCookieManager)

var HTTPSet = wire.NewSet(
	provideAuthHandler,
	provideFormHandler,
	provideConfirmHandler,
	handler.NewLinkHandler,
	provideHealthHandler,
	provideLoginLimiter,
	provideRouterDependencies,
	router.New,
	provideHTTPServer,
)

var AppSet = wire.NewSet(app.New)

func provideLogger(cfg *config.Config) *slog.Logger {
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	observability.Register()
	return logger
}

// provideRedisClient returns nil when state is kept in process.
func provideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if cfg.StateBackend != config.BackendRedis {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return client, func() { _ = client.Close() }, nil
}

// provideDatabase returns nil unless the SQL record store is selected.
func provideDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	if cfg.RecordStore != config.RecordStoreDatabase {
		return nil, func() {}, nil
	}
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func provideCredentialHolder(cfg *config.Config, logger *slog.Logger) *credentials.Holder {
	if !cfg.NeedsGoogleCredentials() {
		return nil
	}
	return credentials.NewGoogleHolder(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken, cfg.GoogleCredentialTTL, logger)
}

func provideRecordStore(cfg *config.Config, db *gorm.DB) (repository.RecordStore, error) {
	switch cfg.RecordStore {
	case config.RecordStoreDatabase:
		if db == nil {
			return nil, fmt.Errorf("database record store selected without a database")
		}
		return repository.NewGormRecordRepository(db), nil
	default:
		return repository.NewAirtableRecordStore(cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableTable, cfg.AirtableView, cfg.FieldMap), nil
	}
}

func provideNotifier(cfg *config.Config, holder *credentials.Holder, logger *slog.Logger) (service.Notifier, error) {
	if cfg.MailProvider == config.MailProviderLog {
		return service.NewLogNotifier(logger), nil
	}
	if holder == nil {
		return nil, fmt.Errorf("gmail notifier needs google credentials")
	}
	return service.NewGmailNotifier(context.Background(), holder, cfg.MailSender)
}

func providePublisher(cfg *config.Config, holder *credentials.Holder) (service.Publisher, error) {
	if cfg.Publisher == config.PublisherMinIO {
		return service.NewMinIOPublisher(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL, cfg.MinIOPublicURL)
	}
	if holder == nil {
		return nil, fmt.Errorf("drive publisher needs google credentials")
	}
	return service.NewDrivePublisher(context.Background(), holder, cfg.DriveFolderID)
}

func provideRenderer(cfg *config.Config, logger *slog.Logger) (receipt.Renderer, func()) {
	if cfg.ReceiptEngine == config.ReceiptEngineChromium {
		r := receipt.NewChromiumRenderer(cfg.ChromiumBin, logger)
		return r, func() { _ = r.Close() }
	}
	return receipt.NewDocumentRenderer(), func() {}
}

func provideFinalizeGuard(client *redis.Client) service.FinalizeGuard {
	if client == nil {
		return service.NewInMemoryFinalizeGuard()
	}
	return service.NewRedisFinalizeGuard(client, "")
}

func provideSessionStore(client *redis.Client) service.SessionStore {
	if client == nil {
		return service.NewInMemorySessionStore()
	}
	return service.NewRedisSessionStore(client, "")
}

func provideWorkflow(
	cfg *config.Config,
	store repository.RecordStore,
	notifier service.Notifier,
	renderer receipt.Renderer,
	publisher service.Publisher,
	guard service.FinalizeGuard,
	logger *slog.Logger,
) (*workflow.Workflow, error) {
	var logo []byte
	if cfg.ReceiptLogoPath != "" {
		b, err := os.ReadFile(cfg.ReceiptLogoPath)
		if err != nil {
			return nil, fmt.Errorf("read receipt logo: %w", err)
		}
		logo = b
	}
	return workflow.New(store, notifier, renderer, publisher, guard, workflow.Options{
		Mode:            cfg.ConfirmationMode,
		PublicBaseURL:   cfg.PublicBaseURL,
		Logo:            logo,
		FinalizeLockTTL: cfg.FinalizeLockTTL,
	}, logger), nil
}

func provideSessionTokens(cfg *config.Config) *security.SessionTokenManager {
	return security.NewSessionTokenManager(sessionIssuer, cfg.SessionSecret)
}

func provideCookieManager(cfg *config.Config) *security.CookieManager {
	return security.NewCookieManager(cfg.CookieSecure)
}

func provideAuthHandler(cfg *config.Config, tokens *security.SessionTokenManager, cookies *security.CookieManager, sessions service.SessionStore, logger *slog.Logger) *handler.AuthHandler {
	return handler.NewAuthHandler(cfg.AppPassword, cfg.SessionSecret, tokens, cookies, sessions, cfg.SessionTTL, logger)
}

func provideFormHandler(cfg *config.Config, wf handler.Workflow, sessions service.SessionStore, logger *slog.Logger) *handler.FormHandler {
	return handler.NewFormHandler(wf, sessions, cfg.SessionSecret, cfg.SessionTTL, logger)
}

func provideConfirmHandler(cfg *config.Config, wf handler.Workflow, sessions service.SessionStore, logger *slog.Logger) *handler.ConfirmHandler {
	return handler.NewConfirmHandler(wf, sessions, cfg.SessionSecret, logger)
}

func provideHealthHandler(client *redis.Client, db *gorm.DB) *handler.HealthHandler {
	var checks []handler.ReadinessCheck
	if client != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	if db != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "database", Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	return handler.NewHealthHandler(2*time.Second, checks...)
}

// provideLoginLimiter shares counters through Redis when available and
// refuses logins if that backend is down.
func provideLoginLimiter(cfg *config.Config, client *redis.Client) *middleware.RateLimiter {
	if client == nil {
		return middleware.NewRateLimiter(cfg.LoginRateLimitPerMin, time.Minute)
	}
	return middleware.NewDistributedRateLimiter(
		middleware.NewRedisFixedWindowLimiter(client, "rl:login"),
		cfg.LoginRateLimitPerMin,
		time.Minute,
		middleware.FailClosed,
		"login",
	)
}

func provideRouterDependencies(
	auth *handler.AuthHandler,
	form *handler.FormHandler,
	confirm *handler.ConfirmHandler,
	link *handler.LinkHandler,
	health *handler.HealthHandler,
	tokens *security.SessionTokenManager,
	limiter *middleware.RateLimiter,
) router.Dependencies {
	return router.Dependencies{
		Auth:         auth,
		Form:         form,
		Confirm:      confirm,
		Link:         link,
		Health:       health,
		Sessions:     tokens,
		LoginLimiter: limiter,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
}
