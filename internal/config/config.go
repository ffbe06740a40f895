package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Port            string
	StoreDriver     string
	PostgresURL     string
	SQLitePath      string
	SecretsKey      string
	UnsplashBaseURL string
	PixabayBaseURL  string
	LogLevel        string
	LogFormat       string
	FavoritesLimit  int
	// HTTPTimeout of zero leaves outbound calls bounded only by the caller.
	HTTPTimeout time.Duration
}

func Load() Config {
	postgresURL := getEnv("POSTGRES_URL", "")
	if postgresURL == "" {
		postgresURL = buildPostgresURL()
	}
	return Config{
		Port:            getEnv("RELAY_PORT", "8080"),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		PostgresURL:     postgresURL,
		SQLitePath:      getEnv("SQLITE_PATH", "wxmp-assistant.db"),
		SecretsKey:      getEnv("SECRETS_KEY", ""),
		UnsplashBaseURL: getEnv("UNSPLASH_BASE_URL", ""),
		PixabayBaseURL:  getEnv("PIXABAY_BASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		FavoritesLimit:  getEnvInt("FAVORITES_LIMIT", 100),
		HTTPTimeout:     time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 0)) * time.Second,
	}
}

// LoadEnv reads KEY=value pairs from path into the process environment.
// Variables already set win, and a missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (want memory, postgres or sqlite)", c.StoreDriver)
	}
	if c.FavoritesLimit <= 0 {
		return fmt.Errorf("FAVORITES_LIMIT must be positive, got %d", c.FavoritesLimit)
	}
	if c.HTTPTimeout < 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func buildPostgresURL() string {
	user := getEnv("POSTGRES_USER", "wxmp")
	password := getEnv("POSTGRES_PASSWORD", "wxmp")
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	database := getEnv("POSTGRES_DB", "wxmp_assistant")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, database)
}
