package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/api"
	"github.com/medassist/telemetry-gateway/internal/config"
	"github.com/medassist/telemetry-gateway/internal/connector"
	"github.com/medassist/telemetry-gateway/internal/gateway"
	"github.com/medassist/telemetry-gateway/internal/sink"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/telemetry-gateway.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Optional: alert/reading publishing over NATS
	var alertSink sink.Sink = sink.Noop{}
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err := nats.Connect(cfg.NATS.URL,
			nats.Name(cfg.Server.Name),
			nats.ReconnectWait(cfg.NATS.ReconnectInterval),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without alert publishing")
		} else {
			defer nc.Close()
			alertSink = sink.NewNATSSink(nc)
			log.Info().Msg("Connected to NATS")
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	conn := connector.New(connector.Config{
		OpenTimeout:  cfg.Connector.OpenTimeout,
		PollInterval: cfg.Connector.PollInterval,
	})

	gw := gateway.New(gateway.Config{
		HistoryLimit:             cfg.Gateway.HistoryLimit,
		MaxRecentErrors:          cfg.Gateway.MaxRecentErrors,
		ReconnectInterval:        cfg.Gateway.ReconnectInterval,
		DefaultHistoryQueryLimit: cfg.Gateway.HistoryQueryLimit,
	}, conn, alertSink)

	server := api.NewRESTServer(cfg, gw)

	go func() {
		if err := server.ListenAndServe(cfg.API.Addr()); err != nil {
			log.Error().Err(err).Msg("REST API server stopped")
		}
	}()

	log.Info().
		Str("name", cfg.Server.Name).
		Str("version", cfg.Server.Version).
		Str("addr", cfg.API.Addr()).
		Msg("Telemetry gateway started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("REST API shutdown failed")
	}

	gw.Shutdown()
	log.Info().Msg("Telemetry gateway stopped")
}
