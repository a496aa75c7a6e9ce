package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	AI          AIConfig          `mapstructure:"ai"`
	Application ApplicationConfig `mapstructure:"application"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

type ApplicationConfig struct {
	Name         string        `mapstructure:"name"`
	Version      string        `mapstructure:"version"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	JobCacheSize int           `mapstructure:"job_cache_size"`
	Storage      StorageConfig `mapstructure:"storage"`
}

// Addr is the listen address for the HTTP server.
func (c *ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	// Inbox is watched for batch request files; empty disables the observer.
	Inbox     string   `mapstructure:"inbox"`
	Processed string   `mapstructure:"processed"`
	Output    string   `mapstructure:"output"`
	S3        S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

func (c *S3Config) Enabled() bool {
	return c.Endpoint != ""
}

type AIConfig struct {
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
	Referer        string                      `mapstructure:"referer"`
	// Timeout bounds one completion call; zero means no deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // openrouter, gemini
	Key         string  `mapstructure:"key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Active returns the settings of the active provider.
func (c *AIConfig) Active() (string, ProviderSettings, error) {
	name := c.ActiveProvider
	settings, ok := c.Providers[name]
	if !ok {
		return name, ProviderSettings{}, fmt.Errorf("ai provider %q is not configured", name)
	}
	if settings.Driver == "" {
		settings.Driver = name
	}
	return name, settings, nil
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

// Enabled reports whether enough is configured to open a connection.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, port, c.DBName, sslmode)

	if c.Options != "" {
		// Basic URL encoding for the options value: space -> %20
		encodedOptions := strings.ReplaceAll(c.Options, " ", "%20")
		connStr += fmt.Sprintf("&options=%s", encodedOptions)
	}

	return connStr
}

// LoadConfig reads .env, an optional config.yaml and the environment.
func LoadConfig() (*Config, error) {
	return Load("config.yaml")
}

// Load is LoadConfig with an explicit config file path; a missing file is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("Note: .env file not found, using system environment variables")
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},
		{"application.host", "HOST"},
		{"application.port", "PORT"},
		{"application.job_cache_size", "JOB_CACHE_SIZE"},
		{"logging.level", "LOG_LEVEL"},
		{"logging.format", "LOG_FORMAT"},

		// Storage
		{"application.storage.inbox", "STORAGE_INBOX"},
		{"application.storage.processed", "STORAGE_PROCESSED"},
		{"application.storage.output", "STORAGE_OUTPUT"},
		{"application.storage.s3.endpoint", "S3_ENDPOINT"},
		{"application.storage.s3.region", "S3_REGION"},
		{"application.storage.s3.access_key", "S3_ACCESS_KEY"},
		{"application.storage.s3.secret_key", "S3_SECRET_KEY"},
		{"application.storage.s3.bucket", "S3_BUCKET"},
		{"application.storage.s3.use_ssl", "S3_USE_SSL"},

		// AI Providers
		{"ai.active_provider", "AI_PROVIDER"},
		{"ai.referer", "AI_REFERER"},
		{"ai.timeout", "AI_TIMEOUT"},
		{"ai.providers.openrouter.key", "OPENROUTER_API_KEY"},
		{"ai.providers.openrouter.model", "OPENROUTER_MODEL"},
		{"ai.providers.openrouter.endpoint", "OPENROUTER_ENDPOINT"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},
	}

	for _, m := range mappings {
		if err := v.BindEnv(m.key, m.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", m.env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// config.yaml is optional
		slog.Debug("config file not loaded", "file", configFile, "error", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.AI.ActiveProvider == "" {
		cfg.AI.ActiveProvider = "openrouter"
	}
	if cfg.Application.JobCacheSize <= 0 {
		cfg.Application.JobCacheSize = 128
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.name", "DeckForge")
	v.SetDefault("application.version", "v0.1.0")
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 8080)
	v.SetDefault("application.job_cache_size", 128)
	v.SetDefault("application.storage.processed", "batch/processed")
	v.SetDefault("application.storage.output", "batch/output")
	v.SetDefault("application.storage.s3.region", "us-east-1")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("ai.active_provider", "openrouter")
	v.SetDefault("ai.referer", "http://localhost:8080/")
	v.SetDefault("ai.timeout", "0s")
	v.SetDefault("ai.providers.openrouter.driver", "openrouter")
	v.SetDefault("ai.providers.openrouter.endpoint", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("ai.providers.openrouter.model", "meta-llama/llama-3.3-70b-instruct")
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-2.0-flash")
}
