// Roomcast - Real-time Group Broadcast Channel
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roomcast

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/roomcast/internal/api"
	"github.com/tomtom215/roomcast/internal/auth"
	"github.com/tomtom215/roomcast/internal/authz"
	"github.com/tomtom215/roomcast/internal/config"
	"github.com/tomtom215/roomcast/internal/eventbus"
	"github.com/tomtom215/roomcast/internal/logging"
	"github.com/tomtom215/roomcast/internal/supervisor"
	"github.com/tomtom215/roomcast/internal/supervisor/services"
	ws "github.com/tomtom215/roomcast/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("path_prefix", cfg.Realtime.PathPrefix).
		Str("group_prefix", cfg.Realtime.GroupPrefix).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Roomcast")

	authenticator, err := auth.NewAuthenticator(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	var hubOpts []ws.HubOption
	var handlerOpts []api.HandlerOption
	if cfg.Security.Casbin.Enabled {
		enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{
			ModelPath:   cfg.Security.Casbin.ModelPath,
			PolicyPath:  cfg.Security.Casbin.PolicyPath,
			DefaultRole: cfg.Security.Casbin.DefaultRole,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize room authorization")
		}
		hubOpts = append(hubOpts, ws.WithRoomAuthorizer(enforcer))
		handlerOpts = append(handlerOpts, api.WithRoomPolicy(enforcer))
		logging.Info().Str("default_role", cfg.Security.Casbin.DefaultRole).Msg("Room authorization enabled")
	}

	hub := ws.NewHub(ws.NewSessionConfig(cfg.Realtime), hubOpts...)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.NATS.Enabled {
		if cfg.NATS.EmbeddedServer {
			tree.AddMessagingService(services.NewNATSServerService(
				eventbus.ServerConfigFromNATS(&cfg.NATS), cfg.Server.ShutdownTimeout))
			logging.Info().Str("host", cfg.NATS.Host).Int("port", cfg.NATS.Port).Msg("Embedded NATS server added to supervisor tree")
		}
		relay := services.NewRelayService(eventbus.ConfigFromNATS(&cfg.NATS), hub)
		tree.AddMessagingService(relay)
		handlerOpts = append(handlerOpts, api.WithRelayHealth(relay))
		logging.Info().Str("url", cfg.NATS.URL).Msg("NATS relay added to supervisor tree")
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	handler := api.NewHandler(cfg, hub, authenticator, handlerOpts...)
	router := api.NewRouter(handler, authenticator)

	// No WriteTimeout: hijacked WebSocket connections manage their own
	// deadlines, and ReadHeaderTimeout bounds slow handshakes.
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// The channel receives exactly once, when the tree has stopped.
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
		os.Exit(1)
	}

	logging.Info().Msg("Roomcast stopped")
}
