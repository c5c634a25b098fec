package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for an ingestion run
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
}

// CatalogConfig holds catalog API configuration
type CatalogConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	BaseURL            string        `mapstructure:"base_url"`
	Country            string        `mapstructure:"country"`
	Timeout            time.Duration `mapstructure:"timeout"`
	ProductURLTemplate string        `mapstructure:"product_url_template"`
	Debug              bool          `mapstructure:"debug"`
}

// RateLimitConfig holds the outbound call window
type RateLimitConfig struct {
	MaxCalls int           `mapstructure:"max_calls"`
	Period   time.Duration `mapstructure:"period"`
}

// RetryConfig holds the fetch retry policy
type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

// IngestConfig holds batch settings
type IngestConfig struct {
	InputPath    string `mapstructure:"input_path"`
	IDColumn     string `mapstructure:"id_column"`
	MaxToProcess int    `mapstructure:"max_to_process"` // 0 means no cap
	Workers      int    `mapstructure:"workers"`
	SnapshotPath string `mapstructure:"snapshot_path"`
}

// StoreConfig holds document store configuration
type StoreConfig struct {
	Type       string `mapstructure:"type"` // "memory", "sqlite" or "postgres"
	DSN        string `mapstructure:"dsn"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxConns   int    `mapstructure:"max_conns"`
}

// ServerConfig holds the status server configuration
type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// flagKeys maps command-line flags to configuration keys
var flagKeys = map[string]string{
	"input":    "ingest.input_path",
	"column":   "ingest.id_column",
	"max":      "ingest.max_to_process",
	"workers":  "ingest.workers",
	"snapshot": "ingest.snapshot_path",
	"store":    "store.type",
	"status":   "server.enabled",
	"debug":    "catalog.debug",
}

// RegisterFlags adds the run flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (default ./config.yaml)")
	fs.String("input", "", "CSV file with product identifiers")
	fs.String("column", "", "identifier column name in the input file")
	fs.Int("max", 0, "process at most this many identifiers (0 = all)")
	fs.Int("workers", 0, "concurrent fetch workers")
	fs.String("snapshot", "", "write the run's records to this JSON file")
	fs.String("store", "", "document store: memory, sqlite or postgres")
	fs.Bool("status", false, "serve run progress over HTTP while ingesting")
	fs.Bool("debug", false, "log every catalog request")
}

// Load loads configuration from flags, environment variables and config files.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/productlens/")

	// Environment variable settings
	v.SetEnvPrefix("PRODUCTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	explicitFile := false
	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			explicitFile = true
		}
	}

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitFile || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can populate it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Catalog defaults
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.base_url", "https://api.scraperapi.com/structured/amazon/product")
	v.SetDefault("catalog.country", "in")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.product_url_template", "https://www.amazon.in/dp/%s")
	v.SetDefault("catalog.debug", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.max_calls", 2)
	v.SetDefault("ratelimit.period", "1s")

	// Retry defaults
	v.SetDefault("retry.attempts", 2)
	v.SetDefault("retry.base_delay", "1s")

	// Ingest defaults
	v.SetDefault("ingest.input_path", "asins.csv")
	v.SetDefault("ingest.id_column", "asin")
	v.SetDefault("ingest.max_to_process", 0)
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.snapshot_path", "")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.sqlite_path", "data/products.db")
	v.SetDefault("store.max_conns", 4)

	// Server defaults
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.APIKey == "" {
		return fmt.Errorf("catalog API key is required (set PRODUCTLENS_CATALOG_API_KEY)")
	}

	if config.RateLimit.MaxCalls <= 0 || config.RateLimit.Period <= 0 {
		return fmt.Errorf("rate limit needs positive max_calls and period, got %d per %s",
			config.RateLimit.MaxCalls, config.RateLimit.Period)
	}

	if config.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got: %d", config.Retry.Attempts)
	}

	if config.Ingest.MaxToProcess < 0 {
		return fmt.Errorf("max_to_process must not be negative, got: %d", config.Ingest.MaxToProcess)
	}

	switch config.Store.Type {
	case "memory", "sqlite":
	case "postgres":
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required when store type is 'postgres'")
		}
	default:
		return fmt.Errorf("store type must be 'memory', 'sqlite' or 'postgres', got: %s", config.Store.Type)
	}

	return nil
}

// loadEnvFile exports variables from ./.env without overriding ones already set
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return err
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}
