package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application runtime configuration.
type Config struct {
	Env              string        `env:"APP_ENV" envDefault:"development"`
	HTTPPort         string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL      string        `env:"DATABASE_URL,required,notEmpty"`
	DatabaseMaxConns int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	AutoMigrate      bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"24h"`
	CookieName       string        `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	CookieSecure     bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	PublicBaseURL    string        `env:"PUBLIC_BASE_URL" envDefault:""`
	UploadDir        string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	MaxPhotoSize     int64         `env:"MAX_PHOTO_SIZE" envDefault:"5242880"`
	CORSOrigins      []string      `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitPerMin  int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"200"`

	PermitValidity       time.Duration `env:"PERMIT_VALIDITY" envDefault:"8760h"`
	UnhandledReportAfter time.Duration `env:"UNHANDLED_REPORT_AFTER" envDefault:"24h"`
	ReminderInterval     time.Duration `env:"REMINDER_INTERVAL" envDefault:"1h"`

	AMQPURL           string `env:"AMQP_URL" envDefault:""`
	FirebaseProjectID string `env:"FIREBASE_PROJECT_ID" envDefault:""`
	FirebaseCredFile  string `env:"FIREBASE_CREDENTIALS" envDefault:""`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads environment variables and .env (if present).
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.MaxPhotoSize <= 0 {
		return cfg, fmt.Errorf("MAX_PHOTO_SIZE must be positive")
	}
	return cfg, nil
}
