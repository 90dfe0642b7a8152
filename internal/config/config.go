package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment      string
	HTTPPort         string
	DatabaseDriver   string
	DatabasePath     string
	DatabaseDSN      string
	JWTSecret        string
	JWTSecretDerived bool
	LogDir           string
	Debug            bool
	LandingPath      string
	LoginPath        string
	ActivityPageSize int
}

// Load reads an optional .env file and env vars, falling back to defaults so
// the server can boot with zero configuration.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:      getEnv("SZBI_ENV", "development"),
		HTTPPort:         getEnv("SZBI_HTTP_PORT", "8080"),
		DatabaseDriver:   strings.ToLower(getEnv("SZBI_DB_DRIVER", "sqlite")),
		DatabasePath:     getEnv("SZBI_DB_PATH", filepath.Join("data", "szbi.db")),
		DatabaseDSN:      getEnv("SZBI_DB_DSN", ""),
		JWTSecret:        getEnv("SZBI_JWT_SECRET", ""),
		LogDir:           getEnv("SZBI_LOG_DIR", filepath.Join("data", "logs")),
		Debug:            getEnvBool("SZBI_DEBUG", false),
		LandingPath:      getEnv("SZBI_LANDING_PATH", "/api/v1/dashboard"),
		LoginPath:        getEnv("SZBI_LOGIN_PATH", "/api/v1/auth/login"),
		ActivityPageSize: getEnvInt("SZBI_ACTIVITY_PAGE_SIZE", 50),
	}

	switch cfg.DatabaseDriver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return Config{}, fmt.Errorf("ensure data directory: %w", err)
		}
	case "postgres":
		if cfg.DatabaseDSN == "" {
			return Config{}, fmt.Errorf("SZBI_DB_DSN is required for the postgres driver")
		}
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.JWTSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return Config{}, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.JWTSecret = secret
		cfg.JWTSecretDerived = true
	}

	if cfg.ActivityPageSize <= 0 {
		cfg.ActivityPageSize = 50
	}

	return cfg, nil
}

// IsProduction reports whether cookies should be marked secure.
func (c Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
