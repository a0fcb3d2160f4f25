// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package config

import (
	"time"
)

// Config holds all server configuration.
//
// Load order: built-in defaults, then the optional YAML file, then
// environment variables. Config is immutable after Load and safe for
// concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// RealtimeConfig holds the group-broadcast channel settings.
//
// Environment Variables:
//   - WS_PATH_PREFIX: mount point of the connection endpoint (default: /ws/call)
//   - WS_GROUP_PREFIX: prefix joined to the room name to form the group key (default: chat_)
//   - WS_SEND_BUFFER: outbound queue depth per session (default: 256)
//   - WS_DELIVERY_TIMEOUT: max wait to enqueue onto a recipient (default: 5s)
//   - WS_WRITE_WAIT, WS_PONG_WAIT: socket write deadline and keepalive window
//   - WS_MAX_FRAME_BYTES: inbound frame limit (default: 65536)
//   - WS_MAX_MESSAGE_LENGTH: max characters in the message field (default: 4096)
//   - WS_RATE_PER_SECOND, WS_RATE_BURST: inbound messages per session
type RealtimeConfig struct {
	PathPrefix       string        `koanf:"path_prefix"`
	GroupPrefix      string        `koanf:"group_prefix"`
	SendBuffer       int           `koanf:"send_buffer"`
	DeliveryTimeout  time.Duration `koanf:"delivery_timeout"`
	WriteWait        time.Duration `koanf:"write_wait"`
	PongWait         time.Duration `koanf:"pong_wait"`
	MaxFrameBytes    int64         `koanf:"max_frame_bytes"`
	MaxMessageLength int           `koanf:"max_message_length"`
	RatePerSecond    float64       `koanf:"rate_per_second"`
	RateBurst        int           `koanf:"rate_burst"`
}

// SecurityConfig holds authentication and authorization settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // jwt, basic, multi
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig controls room join authorization. An empty PolicyPath uses
// the embedded policy.
type CasbinConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ModelPath   string `koanf:"model_path"`
	PolicyPath  string `koanf:"policy_path"`
	DefaultRole string `koanf:"default_role"`
}

// NATSConfig holds the cross-process relay settings. With the relay
// disabled every broadcast stays inside this process.
//
// Environment Variables:
//   - NATS_ENABLED: enable the relay (default: false)
//   - NATS_URL: broker URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: run an in-process broker (default: true)
//   - NATS_SUBJECT_PREFIX: subject namespace (default: roomcast.group)
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`

	// Circuit breaker around relay publishes.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
