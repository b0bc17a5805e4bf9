package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. TOKENRISK_SERVER_PORT.
const EnvPrefix = "TOKENRISK"

// defaults mirrors config/default.toml so the service runs without any file.
var defaults = map[string]interface{}{
	"server.host":                "0.0.0.0",
	"server.port":                8080,
	"server.shutdown_timeout":    "30s",
	"websocket.path":             "/ws",
	"websocket.max_connections":  100,
	"websocket.read_timeout":     "60s",
	"websocket.write_timeout":    "10s",
	"websocket.ping_interval":    "30s",
	"websocket.max_message_size": 4 << 20,
	"feed.url":                   "",
	"feed.channel":               "DiscoverLpChannel",
	"feed.reconnect_delay":       "1s",
	"feed.max_reconnect_delay":   "30s",
	"registry.ttl":               "0s",
	"registry.sweep_interval":    "1m",
	"risk.scheme":                "fixed",
	"refresh.interval":           "5s",
	"refresh.output_dir":         "",
	"storage.backend":            "memory",
	"storage.postgres_dsn":       "",
	"storage.redis_addr":         "",
	"storage.redis_password":     "",
	"storage.redis_db":           0,
	"storage.redis_key":          "token-risk:snapshots",
	"storage.clickhouse_dsn":     "",
	"kafka.brokers":              []string{},
	"kafka.topic":                "",
	"log.level":                  "info",
	"log.format":                 "text",
}

// Loader handles configuration loading from files and environment.
type Loader struct {
	validator *validator.Validate
	dir       string
	envFile   string
}

// NewLoader creates a loader reading <dir>/default.toml and <dir>/local.toml.
func NewLoader(dir string) *Loader {
	return &Loader{
		validator: validator.New(),
		dir:       dir,
		envFile:   ".env",
	}
}

// Load loads configuration from the given directory with priority:
// 1. Environment variables (TOKENRISK_*, .env included)
// 2. <dir>/local.toml
// 3. <dir>/default.toml
// 4. Built-in defaults
func Load(dir string) (*Config, error) {
	return NewLoader(dir).LoadConfig()
}

// LoadConfig loads and validates the configuration.
func (l *Loader) LoadConfig() (*Config, error) {
	// A missing .env is normal outside development
	if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", l.envFile, err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := l.mergeFile(v, "default.toml"); err != nil {
		return nil, err
	}
	if err := l.mergeFile(v, "local.toml"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := l.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// mergeFile merges an optional TOML file from the config directory.
func (l *Loader) mergeFile(v *viper.Viper, name string) error {
	if l.dir == "" {
		return nil
	}
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Validate checks struct tags and cross-field rules.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				messages = append(messages, formatValidationError(fe))
			}
			return fmt.Errorf("validation errors: %s", strings.Join(messages, "; "))
		}
		return err
	}

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return fmt.Errorf("validation errors: field 'Config.Kafka.Topic' is required when kafka.brokers is set")
	}
	if cfg.Registry.TTL > 0 && cfg.Registry.SweepInterval > cfg.Registry.TTL {
		return fmt.Errorf("registry.sweep_interval (%s) must not exceed registry.ttl (%s)",
			cfg.Registry.SweepInterval, cfg.Registry.TTL)
	}
	return nil
}

// formatValidationError formats validation errors into human-readable messages.
func formatValidationError(err validator.FieldError) string {
	field := err.Namespace()
	switch err.Tag() {
	case "required", "required_if", "required_with":
		return fmt.Sprintf("field '%s' is required", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation '%s'", field, err.Tag())
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
