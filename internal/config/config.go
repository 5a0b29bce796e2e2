package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	JWT     JWTConfig     `mapstructure:"jwt" yaml:"jwt"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	WS      WSConfig      `mapstructure:"ws" yaml:"ws"`
}

// JWTConfig holds token issuing and verification settings.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"` // "mongo" or "sqlite"
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
	SQLitePath    string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
}

// WSConfig holds websocket transport settings.
type WSConfig struct {
	// AllowAnonymous accepts handshakes without a token (principal is nil).
	// Default is to reject unauthenticated connections.
	AllowAnonymous    bool          `mapstructure:"allow_anonymous" yaml:"allow_anonymous"`
	PingInterval      time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PongTimeout       time.Duration `mapstructure:"pong_timeout" yaml:"pong_timeout"`
	OutboxSize        int           `mapstructure:"outbox_size" yaml:"outbox_size"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MessagesPerMinute int           `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		JWT: JWTConfig{
			Secret:   "change-me",
			Issuer:   "taskwire",
			Audience: "taskwire",
			TTL:      24 * time.Hour,
		},
		Storage: StorageConfig{
			Driver:        "sqlite",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "taskwire",
			SQLitePath:    "taskwire.db",
		},
		WS: WSConfig{
			AllowAnonymous:    false,
			PingInterval:      25 * time.Second,
			PongTimeout:       60 * time.Second,
			OutboxSize:        32,
			MaxMessageBytes:   1 << 20,
			MessagesPerMinute: 120,
		},
	}
}
