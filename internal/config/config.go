package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/studydesk/studydesk-api/internal/crypto"
)

const devSecret = "dev-secret-change-in-production"

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	Port        string        `env:"PORT,default=8080"`
	Env         string        `env:"ENV,default=development"`
	Store       string        `env:"STORE,default=mysql" description:"mysql or memory"`
	DatabaseDSN string        `env:"DATABASE_DSN,default=root:password@tcp(127.0.0.1:3306)/studydesk?parseTime=true"`
	JWTSecret   string        `env:"JWT_SECRET,default=dev-secret-change-in-production"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY,default=100h"`

	HashMemoryKB    uint32 `env:"HASH_MEMORY_KB,default=65536"`
	HashIterations  uint32 `env:"HASH_ITERATIONS,default=3"`
	HashParallelism uint8  `env:"HASH_PARALLELISM,default=2"`

	ClientURL     string  `env:"CLIENT_URL" description:"comma separated CORS origins"`
	AuthRateRPS   float64 `env:"AUTH_RATE_RPS,default=5"`
	AuthRateBurst int     `env:"AUTH_RATE_BURST,default=10"`
}

// Load reads an optional .env file and decodes the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv decodes and checks the configuration from the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Env == "production" && c.JWTSecret == devSecret {
		return errors.New("JWT_SECRET must be set in production environment")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("JWT_EXPIRY must be positive, got %s", c.JWTExpiry)
	}
	if c.Store != StoreMySQL && c.Store != StoreMemory {
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMySQL, StoreMemory, c.Store)
	}
	if c.HashIterations == 0 || c.HashParallelism == 0 || c.HashMemoryKB < 8*uint32(c.HashParallelism) {
		return errors.New("HASH_* parameters are out of range")
	}
	if c.AuthRateRPS <= 0 || c.AuthRateBurst <= 0 {
		return errors.New("AUTH_RATE_RPS and AUTH_RATE_BURST must be positive")
	}
	return nil
}

// HashParams returns the argon2id parameters for new password hashes.
func (c Config) HashParams() crypto.HashParams {
	params := crypto.DefaultHashParams()
	params.Memory = c.HashMemoryKB
	params.Iterations = c.HashIterations
	params.Parallelism = c.HashParallelism
	return params
}

// AllowedOrigins splits CLIENT_URL into CORS origins.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.ClientURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
