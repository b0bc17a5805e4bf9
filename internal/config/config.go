// Package config loads service configuration from layered TOML files,
// a .env file and TOKENRISK_* environment variables.
package config

import "time"

// Config represents the complete service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP listener configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// WebSocketConfig holds the inbound feed endpoint configuration.
type WebSocketConfig struct {
	Path           string        `mapstructure:"path" validate:"required,startswith=/"`
	MaxConnections int           `mapstructure:"max_connections" validate:"min=0"` // 0 = unlimited
	ReadTimeout    time.Duration `mapstructure:"read_timeout" validate:"min=0"`    // 0 = no deadline
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	PingInterval   time.Duration `mapstructure:"ping_interval" validate:"min=0"`
	MaxMessageSize int64         `mapstructure:"max_message_size" validate:"gt=0"`
}

// FeedConfig holds the optional upstream discovery feed subscription.
type FeedConfig struct {
	URL               string        `mapstructure:"url" validate:"omitempty,url"` // empty disables the feed client
	Channel           string        `mapstructure:"channel"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay" validate:"gt=0"`
	MaxReconnectDelay time.Duration `mapstructure:"max_reconnect_delay" validate:"gtefield=ReconnectDelay"`
}

// RegistryConfig holds the token registry expiry policy.
type RegistryConfig struct {
	TTL           time.Duration `mapstructure:"ttl" validate:"min=0"` // 0 disables expiry
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

// RiskConfig selects the classification scheme of the ranking pass.
type RiskConfig struct {
	Scheme string `mapstructure:"scheme" validate:"oneof=fixed proportional"`
}

// RefreshConfig holds the periodic ranking pass configuration.
type RefreshConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"gt=0"`
	OutputDir string        `mapstructure:"output_dir"` // empty disables report files
}

// StorageConfig selects snapshot persistence and score history backends.
type StorageConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory postgres redis"`
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"required_if=Backend postgres"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"min=0"`
	RedisKey      string `mapstructure:"redis_key"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"` // empty keeps score history in memory
}

// KafkaConfig holds score publishing configuration. Empty brokers disable publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"` // required when brokers are set
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Addr returns the HTTP listen address.
func (c ServerConfig) Addr() string {
	return joinHostPort(c.Host, c.Port)
}
