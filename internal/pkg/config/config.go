package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// knownWeakSecrets are placeholder values that must never sign real tokens.
var knownWeakSecrets = []string{
	"fallback_secret_key",
	"secret",
	"changeme",
	"change-me",
	"your-secret-key",
}

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	Token    TokenConfig
	Password PasswordConfig
	Login    LoginConfig
	Admin    AdminConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type TokenConfig struct {
	Secret      string        `env:"JWT_SECRET, required"`
	Issuer      string        `env:"JWT_ISSUER,         default=identity-api"`
	TTL         time.Duration `env:"TOKEN_TTL,          default=168h"`
	IncludeRole bool          `env:"TOKEN_INCLUDE_ROLE, default=true"`
}

type PasswordConfig struct {
	BcryptCost  int `env:"BCRYPT_COST,  default=10"`
	HashWorkers int `env:"HASH_WORKERS, default=0"`
}

type LoginConfig struct {
	MaxAttempts  int           `env:"LOGIN_MAX_ATTEMPTS, default=5"`
	Lockout      time.Duration `env:"LOGIN_LOCKOUT,      default=15m"`
	RateLimitRPS float64       `env:"RATE_LIMIT_RPS,     default=5"`
}

// AdminConfig seeds an admin account at startup when Email and Password are set.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=identity"`
}

// RedisConfig is optional; an empty Addr disables login throttling.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig
// and validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service must not start with.
func (c *Config) Validate() error {
	var errs []error

	secret := strings.TrimSpace(c.Token.Secret)
	if secret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	for _, weak := range knownWeakSecrets {
		if strings.EqualFold(secret, weak) {
			errs = append(errs, errors.New("JWT_SECRET is a known placeholder value"))
			break
		}
	}
	if c.Token.TTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTL must be positive, got %s", c.Token.TTL))
	}
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be within [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Password.BcryptCost))
	}
	if c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory {
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMongo, StoreMemory, c.StoreDriver))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.Login.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Warnings lists settings that are valid but change behaviour in ways an
// operator may not expect.
func (c *Config) Warnings() []string {
	var warns []string
	if !c.Token.IncludeRole {
		warns = append(warns, "TOKEN_INCLUDE_ROLE=false: tokens carry no role, so every principal is treated as a user and admin routes return 403")
	}
	return warns
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
