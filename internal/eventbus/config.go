// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package eventbus

import (
	"time"

	"github.com/tomtom215/roomcast/internal/config"
)

// DefaultSubjectPrefix is used when Config.SubjectPrefix is empty.
const DefaultSubjectPrefix = "roomcast.group"

// Config configures a Bus.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Breaker       CircuitBreakerConfig
}

// CircuitBreakerConfig configures the publish breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// ServerConfig configures the embedded server. Port -1 picks a free port.
type ServerConfig struct {
	Host string
	Port int
}

// DefaultConfig returns single-node defaults.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://127.0.0.1:4222",
		SubjectPrefix: DefaultSubjectPrefix,
		MaxReconnects: 10,
		ReconnectWait: time.Second,
		Breaker: CircuitBreakerConfig{
			Name:             "nats-relay",
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

// ConfigFromNATS maps the application NATS section onto a bus Config.
func ConfigFromNATS(cfg *config.NATSConfig) Config {
	out := DefaultConfig()
	if cfg.URL != "" {
		out.URL = cfg.URL
	}
	if cfg.SubjectPrefix != "" {
		out.SubjectPrefix = cfg.SubjectPrefix
	}
	out.MaxReconnects = cfg.MaxReconnects
	if cfg.ReconnectWait > 0 {
		out.ReconnectWait = cfg.ReconnectWait
	}
	if cfg.BreakerMaxFailures > 0 {
		out.Breaker.FailureThreshold = cfg.BreakerMaxFailures
	}
	if cfg.BreakerTimeout > 0 {
		out.Breaker.Timeout = cfg.BreakerTimeout
	}
	return out
}

// ServerConfigFromNATS maps the application NATS section onto the embedded
// server settings.
func ServerConfigFromNATS(cfg *config.NATSConfig) ServerConfig {
	return ServerConfig{Host: cfg.Host, Port: cfg.Port}
}
