package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers selectable with STORE_DRIVER
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	CORSOrigins string `yaml:"cors_origins"`

	// Storage
	StoreDriver   string `yaml:"store_driver"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	DatabaseURL   string `yaml:"database_url"`
	TablePrefix   string `yaml:"table_prefix"`

	// Auth
	AuthSecret     string `yaml:"auth_secret"`
	AuthJWKSURL    string `yaml:"auth_jwks_url"`
	AuthCookieName string `yaml:"auth_cookie_name"`

	// Quiz generation
	QuizProvider     string `yaml:"quiz_provider"`
	QuizModel        string `yaml:"quiz_model"`
	AnthropicAPIKey  string `yaml:"-"`
	OpenRouterAPIKey string `yaml:"-"`
	RedisURL         string `yaml:"redis_url"`

	// Drive
	DefaultThumbnail string `yaml:"default_thumbnail"`
	MaxTreeDepth     int    `yaml:"max_tree_depth"`
	TablePageSize    int    `yaml:"table_page_size"`

	// Logging
	LogDir      string `yaml:"log_dir"`
	LogMaxFiles int    `yaml:"log_max_files"`
}

// Load reads the configuration from the environment. When CONFIG_FILE points to a
// YAML file, its values are applied first and environment variables override them.
func Load() (*Config, error) {
	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	env := getEnv("ENVIRONMENT", orDefault(cfg.Environment, "dev"))

	cfg.Port = getEnv("PORT", orDefault(cfg.Port, "8080"))
	cfg.Environment = env
	cfg.CORSOrigins = getEnv("CORS_ORIGINS", orDefault(cfg.CORSOrigins, "http://localhost:3000"))

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", orDefault(cfg.StoreDriver, StoreMongo)))
	cfg.MongoURI = getEnv("MONGO_URI", orDefault(cfg.MongoURI, "mongodb://localhost:27017"))
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", orDefault(cfg.MongoDatabase, "coursedrive"))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TablePrefix = getEnv("TABLE_PREFIX", orDefault(cfg.TablePrefix, getTablePrefix(env)))

	cfg.AuthSecret = getEnv("AUTH_SECRET", cfg.AuthSecret)
	cfg.AuthJWKSURL = getEnv("AUTH_JWKS_URL", cfg.AuthJWKSURL)
	cfg.AuthCookieName = getEnv("AUTH_COOKIE_NAME", orDefault(cfg.AuthCookieName, "session-token"))

	cfg.QuizProvider = strings.ToLower(getEnv("QUIZ_PROVIDER", orDefault(cfg.QuizProvider, "anthropic")))
	cfg.QuizModel = getEnv("QUIZ_MODEL", orDefault(cfg.QuizModel, "claude-haiku-4-5-20251001"))
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	cfg.OpenRouterAPIKey = getEnv("OPENROUTER_API_KEY", "")
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)

	cfg.DefaultThumbnail = getEnv("DEFAULT_THUMBNAIL", orDefault(cfg.DefaultThumbnail, DefaultThumbnail))
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)

	var err error
	if cfg.MaxTreeDepth, err = getEnvInt("MAX_TREE_DEPTH", orDefaultInt(cfg.MaxTreeDepth, DefaultMaxTreeDepth)); err != nil {
		return nil, err
	}
	if cfg.TablePageSize, err = getEnvInt("TABLE_PAGE_SIZE", orDefaultInt(cfg.TablePageSize, DefaultTablePageSize)); err != nil {
		return nil, err
	}
	if cfg.LogMaxFiles, err = getEnvInt("LOG_MAX_FILES", orDefaultInt(cfg.LogMaxFiles, 10)); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at startup
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.StoreDriver)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want mongo, postgres or memory)", c.StoreDriver)
	}
	if c.MaxTreeDepth < 1 {
		return fmt.Errorf("MAX_TREE_DEPTH must be positive, got %d", c.MaxTreeDepth)
	}
	if c.TablePageSize < 1 {
		return fmt.Errorf("TABLE_PAGE_SIZE must be positive, got %d", c.TablePageSize)
	}
	return nil
}

// IsProduction reports whether detailed error messages must be hidden
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

func orDefault(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func orDefaultInt(value, def int) int {
	if value != 0 {
		return value
	}
	return def
}
