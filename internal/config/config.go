package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
)

const (
	RecordStoreAirtable = "airtable"
	RecordStoreDatabase = "database"

	MailProviderGmail = "gmail"
	MailProviderLog   = "log"

	PublisherDrive = "drive"
	PublisherMinIO = "minio"

	ReceiptEngineDocument = "document"
	ReceiptEngineChromium = "chromium"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Env       string
	HTTPPort  string
	LogLevel  string
	LogFormat string

	AppPassword   string
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool

	ConfirmationMode domain.ConfirmationMode
	PublicBaseURL    string

	RecordStore          string
	AirtableAPIKey       string
	AirtableBaseID       string
	AirtableTable        string
	AirtableView         string
	AirtableFieldMapFile string
	FieldMap             FieldMap

	DatabaseDriver string
	DatabaseURL    string

	MailProvider        string
	MailSender          string
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRefreshToken  string
	GoogleCredentialTTL time.Duration

	Publisher      string
	DriveFolderID  string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	ReceiptEngine   string
	ReceiptLogoPath string
	ChromiumBin     string

	StateBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRateLimitPerMin int
	FinalizeLockTTL      time.Duration
}

// Load reads the process environment, after merging an optional .env file
// named by ENV_FILE (default ".env"). Variables already set win over the file.
func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "json")),
		AppPassword:          os.Getenv("APP_PASSWORD"),
		SessionSecret:        os.Getenv("SESSION_SECRET"),
		CookieSecure:         getEnvBool("COOKIE_SECURE", true),
		PublicBaseURL:        strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		RecordStore:          strings.ToLower(getEnv("RECORD_STORE", RecordStoreAirtable)),
		AirtableAPIKey:       os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:       os.Getenv("AIRTABLE_BASE_ID"),
		AirtableTable:        getEnv("AIRTABLE_TABLE", "Confirmaciones_de_Entrega"),
		AirtableView:         getEnv("AIRTABLE_VIEW", "Grid view"),
		AirtableFieldMapFile: os.Getenv("AIRTABLE_FIELD_MAP_FILE"),
		DatabaseDriver:       strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MailProvider:         strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderGmail)),
		MailSender:           getEnv("MAIL_SENDER", "me"),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRefreshToken:   os.Getenv("GOOGLE_REFRESH_TOKEN"),
		Publisher:            strings.ToLower(getEnv("PUBLISHER", PublisherDrive)),
		DriveFolderID:        os.Getenv("DRIVE_FOLDER_ID"),
		MinIOEndpoint:        os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:       os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:       os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:          getEnv("MINIO_BUCKET", "receipts"),
		MinIOUseSSL:          getEnvBool("MINIO_USE_SSL", true),
		MinIOPublicURL:       strings.TrimRight(os.Getenv("MINIO_PUBLIC_URL"), "/"),
		ReceiptEngine:        strings.ToLower(getEnv("RECEIPT_ENGINE", ReceiptEngineDocument)),
		ReceiptLogoPath:      os.Getenv("RECEIPT_LOGO_PATH"),
		ChromiumBin:          os.Getenv("CHROMIUM_BIN"),
		StateBackend:         strings.ToLower(getEnv("STATE_BACKEND", BackendMemory)),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		LoginRateLimitPerMin: getEnvInt("LOGIN_RATE_LIMIT_PER_MIN", 10),
	}

	mode, err := domain.ParseConfirmationMode(getEnv("CONFIRMATION_MODE", string(domain.ModeCode)))
	if err != nil {
		return nil, fmt.Errorf("parse CONFIRMATION_MODE: %w", err)
	}
	cfg.ConfirmationMode = mode

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"SESSION_TTL", "8h", &cfg.SessionTTL},
		{"GOOGLE_CREDENTIAL_TTL", "1h", &cfg.GoogleCredentialTTL},
		{"FINALIZE_LOCK_TTL", "2m", &cfg.FinalizeLockTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.FieldMap = DefaultFieldMap()
	if cfg.AirtableFieldMapFile != "" {
		fm, err := LoadFieldMap(cfg.AirtableFieldMapFile)
		if err != nil {
			return nil, err
		}
		cfg.FieldMap = fm
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting at once so operators
// see the full list before the process exits.
func (c *Config) Validate() error {
	var errs []string
	if c.AppPassword == "" {
		errs = append(errs, "APP_PASSWORD is required")
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, "SESSION_SECRET must be at least 32 chars")
	}
	if c.SessionTTL <= 0 || c.SessionTTL > 7*24*time.Hour {
		errs = append(errs, "SESSION_TTL must be between 1s and 7d")
	}
	if c.ConfirmationMode == domain.ModeLink && c.PublicBaseURL == "" {
		errs = append(errs, "PUBLIC_BASE_URL is required when CONFIRMATION_MODE=link")
	}

	switch c.RecordStore {
	case RecordStoreAirtable:
		if c.AirtableAPIKey == "" {
			errs = append(errs, "AIRTABLE_API_KEY is required")
		}
		if c.AirtableBaseID == "" {
			errs = append(errs, "AIRTABLE_BASE_ID is required")
		}
	case RecordStoreDatabase:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when RECORD_STORE=database")
		}
		switch c.DatabaseDriver {
		case "postgres", "mysql", "sqlite":
		default:
			errs = append(errs, "DATABASE_DRIVER must be postgres, mysql or sqlite")
		}
	default:
		errs = append(errs, "RECORD_STORE must be airtable or database")
	}

	switch c.MailProvider {
	case MailProviderGmail, MailProviderLog:
	default:
		errs = append(errs, "MAIL_PROVIDER must be gmail or log")
	}

	switch c.Publisher {
	case PublisherDrive:
		if c.DriveFolderID == "" {
			errs = append(errs, "DRIVE_FOLDER_ID is required when PUBLISHER=drive")
		}
	case PublisherMinIO:
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			errs = append(errs, "MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when PUBLISHER=minio")
		}
		if c.MinIOPublicURL != "" {
			if u, err := url.Parse(c.MinIOPublicURL); err != nil || !u.IsAbs() {
				errs = append(errs, "MINIO_PUBLIC_URL must be an absolute URL")
			}
		}
	default:
		errs = append(errs, "PUBLISHER must be drive or minio")
	}

	if c.NeedsGoogleCredentials() {
		if c.GoogleClientID == "" {
			errs = append(errs, "GOOGLE_CLIENT_ID is required")
		}
		if c.GoogleClientSecret == "" {
			errs = append(errs, "GOOGLE_CLIENT_SECRET is required")
		}
		if c.GoogleRefreshToken == "" {
			errs = append(errs, "GOOGLE_REFRESH_TOKEN is required")
		}
		if c.GoogleCredentialTTL <= 0 {
			errs = append(errs, "GOOGLE_CREDENTIAL_TTL must be > 0")
		}
	}

	switch c.ReceiptEngine {
	case ReceiptEngineDocument, ReceiptEngineChromium:
	default:
		errs = append(errs, "RECEIPT_ENGINE must be document or chromium")
	}
	switch c.StateBackend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, "STATE_BACKEND must be memory or redis")
	}
	if c.LoginRateLimitPerMin <= 0 {
		errs = append(errs, "LOGIN_RATE_LIMIT_PER_MIN must be > 0")
	}
	if c.FinalizeLockTTL <= 0 {
		errs = append(errs, "FINALIZE_LOCK_TTL must be > 0")
	}
	if err := c.FieldMap.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// NeedsGoogleCredentials reports whether Gmail or Drive is in use.
func (c *Config) NeedsGoogleCredentials() bool {
	return c.MailProvider == MailProviderGmail || c.Publisher == PublisherDrive
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// DatabaseConfig is the subset the admin CLI needs for migrations and seeding.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// LoadDatabaseConfig reads only DATABASE_DRIVER and DATABASE_URL so schema
// tooling runs without the web app's secrets.
func LoadDatabaseConfig() (DatabaseConfig, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return DatabaseConfig{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg := DatabaseConfig{
		Driver: strings.ToLower(getEnv("DATABASE_DRIVER", "postgres")),
		URL:    os.Getenv("DATABASE_URL"),
	}
	if cfg.URL == "" {
		return DatabaseConfig{}, errors.New("DATABASE_URL is required")
	}
	switch cfg.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return DatabaseConfig{}, fmt.Errorf("DATABASE_DRIVER must be postgres, mysql or sqlite, got %q", cfg.Driver)
	}
	return cfg, nil
}
