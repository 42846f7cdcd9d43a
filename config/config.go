// Package config provides configuration management for the blog platform.
// Values come from environment variables (optionally seeded from a .env file by
// main). Parsing is done with caarlos0/env; cross-field validation collects every
// problem before failing so a misconfigured deployment reports all of them at once.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
)

// PoolConfig represents configuration for the database connection pool.
type PoolConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER,required"`
	Password string `env:"DB_PASSWORD,required"`
	DBName   string `env:"DB_NAME,required"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxSize  int    `env:"DB_POOL_SIZE" envDefault:"10"`
}

// AuthConfig holds token-related configuration.
type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET,required"`
	Issuer           string        `env:"JWT_ISSUER" envDefault:"blogplatform"`
	AccessTokenTTL   time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"30m"`
	PasswordResetTTL time.Duration `env:"PASSWORD_RESET_TOKEN_TTL" envDefault:"24h"`
	EmailVerifyTTL   time.Duration `env:"EMAIL_VERIFY_TOKEN_TTL" envDefault:"72h"`
}

// PasswordPolicy drives credential validation. None of it is hardcoded in the
// credential package.
type PasswordPolicy struct {
	MinLength     int  `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	MaxLength     int  `env:"PASSWORD_MAX_LENGTH" envDefault:"72"`
	RequireUpper  bool `env:"PASSWORD_REQUIRE_UPPER" envDefault:"false"`
	RequireLower  bool `env:"PASSWORD_REQUIRE_LOWER" envDefault:"true"`
	RequireDigit  bool `env:"PASSWORD_REQUIRE_DIGIT" envDefault:"true"`
	RequireSymbol bool `env:"PASSWORD_REQUIRE_SYMBOL" envDefault:"false"`
	BcryptCost    int  `env:"PASSWORD_BCRYPT_COST" envDefault:"12"`
}

// PaginationConfig bounds list responses.
type PaginationConfig struct {
	DefaultLimit int `env:"PAGINATION_DEFAULT_LIMIT" envDefault:"10"`
	MaxLimit     int `env:"PAGINATION_MAX_LIMIT" envDefault:"100"`
}

// MailConfig configures notification dispatch. With an empty SMTPHost mails are
// logged instead of sent.
type MailConfig struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	FromEmail    string `env:"SMTP_FROM_EMAIL" envDefault:"no-reply@localhost"`
	FromName     string `env:"SMTP_FROM_NAME" envDefault:"Blog Platform"`
	FrontendURL  string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	Workers      int    `env:"MAIL_WORKERS" envDefault:"2"`
	QueueSize    int    `env:"MAIL_QUEUE_SIZE" envDefault:"64"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port          string        `env:"PORT" envDefault:"8000"`
	AppName       string        `env:"APP_NAME" envDefault:"Blog Platform API"`
	AppVersion    string        `env:"APP_VERSION" envDefault:"1.0.0"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envDefault:"http://localhost:3000,http://localhost:8000" envSeparator:","`
	MigrationsDir string        `env:"MIGRATIONS_DIR" envDefault:"./migrations"`
	AutoMigrate   bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	SeedFile      string        `env:"SEED_FILE" envDefault:"./seed.yaml"`
	// SweepInterval is how often expired housekeeping rows are removed.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	DB         PoolConfig
	Auth       AuthConfig
	Password   PasswordPolicy
	Pagination PaginationConfig
	Mail       MailConfig
	Server     ServerConfig
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("configuration errors: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints and clamps values that have safe
// bounds. Every problem is collected before returning.
func (c *AppConfig) Validate() error {
	var result *multierror.Error

	// Clamp the pool size between 5 and 100
	if c.DB.MaxSize < 5 {
		c.DB.MaxSize = 5
	}
	if c.DB.MaxSize > 100 {
		c.DB.MaxSize = 100
	}

	if len(c.Auth.JWTSecret) < 32 {
		result = multierror.Append(result, fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret)))
	}
	for name, ttl := range map[string]time.Duration{
		"JWT_ACCESS_TOKEN_TTL":     c.Auth.AccessTokenTTL,
		"PASSWORD_RESET_TOKEN_TTL": c.Auth.PasswordResetTTL,
		"EMAIL_VERIFY_TOKEN_TTL":   c.Auth.EmailVerifyTTL,
	} {
		if ttl <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s must be positive, got %s", name, ttl))
		}
	}

	if c.Password.MinLength < 1 {
		result = multierror.Append(result, fmt.Errorf("PASSWORD_MIN_LENGTH must be at least 1, got %d", c.Password.MinLength))
	}
	// bcrypt ignores everything past 72 bytes.
	if c.Password.MaxLength > 72 || c.Password.MaxLength < c.Password.MinLength {
		result = multierror.Append(result, fmt.Errorf("PASSWORD_MAX_LENGTH must be between PASSWORD_MIN_LENGTH and 72, got %d", c.Password.MaxLength))
	}
	if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
		result = multierror.Append(result, fmt.Errorf("PASSWORD_BCRYPT_COST must be between 4 and 31, got %d", c.Password.BcryptCost))
	}

	if c.Pagination.MaxLimit < 1 {
		result = multierror.Append(result, fmt.Errorf("PAGINATION_MAX_LIMIT must be positive, got %d", c.Pagination.MaxLimit))
	}
	if c.Pagination.DefaultLimit < 1 || c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		result = multierror.Append(result, fmt.Errorf("PAGINATION_DEFAULT_LIMIT must be between 1 and PAGINATION_MAX_LIMIT, got %d", c.Pagination.DefaultLimit))
	}

	if c.Mail.Workers < 1 {
		result = multierror.Append(result, fmt.Errorf("MAIL_WORKERS must be positive, got %d", c.Mail.Workers))
	}
	if c.Mail.QueueSize < 1 {
		result = multierror.Append(result, fmt.Errorf("MAIL_QUEUE_SIZE must be positive, got %d", c.Mail.QueueSize))
	}
	if c.Server.SweepInterval < time.Minute {
		result = multierror.Append(result, fmt.Errorf("SWEEP_INTERVAL must be at least 1m, got %s", c.Server.SweepInterval))
	}
	c.Mail.FrontendURL = strings.TrimRight(c.Mail.FrontendURL, "/")

	if result != nil {
		result.ErrorFormat = listFormat
	}
	return result.ErrorOrNil()
}

func listFormat(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return "configuration errors:\n- " + strings.Join(lines, "\n- ")
}

// DSN builds a postgres URL usable by both pgx and golang-migrate.
func (p PoolConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}
