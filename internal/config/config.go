package config

import (
	"time"

	"github.com/studyhall/roomchat/internal/core"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// HistoryLimit is how many persisted messages a joining client gets
	// replayed. SendBuffer bounds each connection's outbound queue; a
	// connection that falls that far behind is disconnected.
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	SendBuffer   int `mapstructure:"send_buffer" yaml:"send_buffer"`

	// An empty JWT secret means every connection resolves as anonymous.
	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "roomchat.db",
		LogLevel:          "info",
		HistoryLimit:      core.DefaultHistoryLimit,
		SendBuffer:        core.DefaultSendBuffer,
		JWTIssuer:         "roomchat",
		JWTAudience:       "roomchat-clients",
		JWTTTL:            24 * time.Hour,
	}
}
