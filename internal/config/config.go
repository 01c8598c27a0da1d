package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverRueidis = "rueidis"
	DriverGoRedis = "goredis"
	DriverMemory  = "memory"
)

// Event and log handling policies.
const (
	PolicyIgnore = "ignore"
	PolicyInline = "inline"
	PolicyQueued = "queued"
)

// Config holds the searchplane configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Engine        EngineConfig        `yaml:"engine"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds token authority settings.
type AuthConfig struct {
	SuperuserToken   string `yaml:"superuser_token"`
	HealthCheckToken string `yaml:"health_check_token"`
	CacheTTLSec      int    `yaml:"cache_ttl_sec"` // 0 disables the token cache
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // rueidis, goredis, memory (default: rueidis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EngineConfig holds search engine settings.
type EngineConfig struct {
	Path string `yaml:"path"` // empty keeps indexes in memory
}

// PipelineConfig selects how domain events and failure logs are handled.
type PipelineConfig struct {
	EventsPolicy  string `yaml:"events_policy"`
	LogsPolicy    string `yaml:"logs_policy"`
	EventsChannel string `yaml:"events_channel"`
	LogsChannel   string `yaml:"logs_channel"`
	JournalMaxLen int64  `yaml:"journal_max_len"`
}

// ChannelConfig is a pub/sub channel bridged to live connections.
type ChannelConfig struct {
	Name       string `yaml:"name"`
	PayloadKey string `yaml:"payload_key"`
}

// NotificationsConfig holds live notification settings.
type NotificationsConfig struct {
	Enabled        bool            `yaml:"enabled"`
	RequireToken   bool            `yaml:"require_token"`
	WriteTimeoutMs int             `yaml:"write_timeout_ms"`
	SendBuffer     int             `yaml:"send_buffer"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Channels       []ChannelConfig `yaml:"channels"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// loadDotEnv loads path without overriding variables already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRueidis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Pipeline.EventsPolicy == "" {
		c.Pipeline.EventsPolicy = PolicyQueued
	}
	if c.Pipeline.LogsPolicy == "" {
		c.Pipeline.LogsPolicy = PolicyQueued
	}
	if c.Pipeline.EventsChannel == "" {
		c.Pipeline.EventsChannel = "searchplane:events"
	}
	if c.Pipeline.LogsChannel == "" {
		c.Pipeline.LogsChannel = "searchplane:logs"
	}
	if c.Pipeline.JournalMaxLen <= 0 {
		c.Pipeline.JournalMaxLen = 1000
	}
	if c.Notifications.WriteTimeoutMs <= 0 {
		c.Notifications.WriteTimeoutMs = 5000
	}
	if c.Notifications.SendBuffer <= 0 {
		c.Notifications.SendBuffer = 64
	}
	if c.Notifications.Enabled && len(c.Notifications.Channels) == 0 {
		c.Notifications.Channels = []ChannelConfig{
			{Name: c.Pipeline.EventsChannel, PayloadKey: "event"},
			{Name: c.Pipeline.LogsChannel, PayloadKey: "log"},
		}
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "searchplane:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRueidis, DriverGoRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q, %q or %q, got %q",
			DriverRueidis, DriverGoRedis, DriverMemory, c.Database.Driver)
	}
	if c.Auth.SuperuserToken == "" {
		return fmt.Errorf("auth.superuser_token is required")
	}
	if c.Auth.SuperuserToken == c.Auth.HealthCheckToken {
		return fmt.Errorf("auth.health_check_token must differ from auth.superuser_token")
	}
	if err := validatePolicy("pipeline.events_policy", c.Pipeline.EventsPolicy); err != nil {
		return err
	}
	if err := validatePolicy("pipeline.logs_policy", c.Pipeline.LogsPolicy); err != nil {
		return err
	}
	for i, ch := range c.Notifications.Channels {
		if ch.Name == "" || ch.PayloadKey == "" {
			return fmt.Errorf("notifications.channels[%d] requires name and payload_key", i)
		}
	}
	return nil
}

func validatePolicy(field, value string) error {
	switch value {
	case PolicyIgnore, PolicyInline, PolicyQueued:
		return nil
	default:
		return fmt.Errorf("%s must be one of ignore, inline, queued, got %q", field, value)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
