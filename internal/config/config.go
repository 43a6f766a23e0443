package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/smallbiznis/giftflow/pkg/db"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	// PublicURL is the externally reachable base used in notification links.
	PublicURL string

	OTLPEndpoint string

	Database db.Config
	Redis    RedisConfig
	Identity IdentityConfig
	Email    EmailConfig
	GeoIP    GeoIPConfig

	Bootstrap BootstrapConfig

	// InstanceID seeds the snowflake node.
	InstanceID int64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis endpoint is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type IdentityConfig struct {
	// Mode is "firebase" or "static".
	Mode            string
	ProjectID       string
	CredentialsFile string
	// StaticTokens maps bearer tokens to principals in static mode:
	// token=role:subject[:tenant_id[:employee_id]], comma separated.
	StaticTokens string
}

type EmailConfig struct {
	// Provider is "smtp", "sendgrid" or "none".
	Provider       string
	From           string
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
}

type BootstrapConfig struct {
	// DemoStore seeds an approved demo tenant outside production.
	DemoStore bool
}

type GeoIPConfig struct {
	Endpoint string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "giftflow"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		PublicURL:    strings.TrimRight(getenv("PUBLIC_URL", "http://localhost:8080"), "/"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		InstanceID:   getenvInt64("INSTANCE_ID", 1),
		Database: db.Config{
			Type:             getenv("DATABASE_TYPE", "postgres"),
			Host:             getenv("DATABASE_HOST", "localhost"),
			Port:             getenv("DATABASE_PORT", "5432"),
			Name:             getenv("DATABASE_NAME", "giftflow"),
			User:             getenv("DATABASE_USER", "postgres"),
			Password:         getenv("DATABASE_PASSWORD", ""),
			SSLMode:          getenv("DATABASE_SSLMODE", "disable"),
			MaxIdleConn:      int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
			MaxOpenConn:      int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
			ConnMaxLifetime:  getenvDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime:  getenvDuration("DATABASE_CONN_MAX_IDLE_TIME", 5*time.Minute),
			OperationTimeout: time.Duration(getenvInt64("STORE_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		Identity: IdentityConfig{
			Mode:            strings.ToLower(getenv("IDENTITY_MODE", "firebase")),
			ProjectID:       strings.TrimSpace(getenv("FIREBASE_PROJECT_ID", "")),
			CredentialsFile: strings.TrimSpace(getenv("FIREBASE_CREDENTIALS_FILE", "")),
			StaticTokens:    strings.TrimSpace(getenv("STATIC_TOKENS", "")),
		},
		Email: EmailConfig{
			Provider:       strings.ToLower(getenv("EMAIL_PROVIDER", "none")),
			From:           getenv("EMAIL_FROM", "no-reply@giftflow.local"),
			FromName:       getenv("EMAIL_FROM_NAME", "GiftFlow"),
			SMTPHost:       getenv("SMTP_HOST", "localhost"),
			SMTPPort:       int(getenvInt64("SMTP_PORT", 587)),
			SMTPUsername:   getenv("SMTP_USERNAME", ""),
			SMTPPassword:   getenv("SMTP_PASSWORD", ""),
			SendGridAPIKey: strings.TrimSpace(getenv("SENDGRID_API_KEY", "")),
		},
		GeoIP: GeoIPConfig{
			Endpoint: getenv("GEOIP_ENDPOINT", "https://ipapi.co"),
			Timeout:  getenvDuration("GEOIP_TIMEOUT", 2*time.Second),
			CacheTTL: getenvDuration("GEOIP_CACHE_TTL", 24*time.Hour),
		},
		Bootstrap: BootstrapConfig{
			DemoStore: getenvBool("BOOTSTRAP_DEMO_STORE", false),
		},
	}

	return cfg
}

// DatabaseConfig exposes the store settings to the db module.
func DatabaseConfig(cfg Config) db.Config {
	return cfg.Database
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
