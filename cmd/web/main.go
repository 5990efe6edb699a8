package main

import (
	"fmt"
	"os"

	"github.com/optivoo/crm/internal/authn"
	"github.com/optivoo/crm/internal/client"
	"github.com/optivoo/crm/internal/config"
	"github.com/optivoo/crm/internal/logger"
	"github.com/optivoo/crm/internal/web"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	// Pick the authentication backend
	var backend web.Backend
	switch cfg.Web.Backend {
	case config.BackendStub:
		log.Warn().Dur("latency", cfg.Web.StubLatency).Msg("Using the in-memory stub backend, accounts are lost on restart")
		backend = authn.NewStub(
			authn.WithLatency(cfg.Web.StubLatency),
			authn.WithLogger(logger.Component("stub")),
		)
	default:
		backend = client.New(cfg.Web.APIURL)
	}

	srv, err := web.New(cfg.Web, backend, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create web server")
	}

	log.Info().
		Str("version", version).
		Str("backend", cfg.Web.Backend).
		Msg("Starting Optivoo web front end...")

	// Start HTTP server (this blocks)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Web server failed")
	}
}
