// Command aether runs the in-memory WebSocket pub/sub and key-value server.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/conways-glider/aether-db/internal/config"
	"github.com/conways-glider/aether-db/internal/logging"
	"github.com/conways-glider/aether-db/internal/server"
)

func main() {
	debug := flag.Bool("debug", false, "force debug logging in pretty format")
	flag.Parse()

	// Bootstrap logger for the window before config is loaded.
	bootstrap := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(&bootstrap)
	if err != nil {
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *debug {
		cfg.LogLevel = "debug"
		cfg.LogFormat = "pretty"
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	cfg.LogConfig(logger)

	srv := server.New(*cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	if err := srv.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
	}
}
