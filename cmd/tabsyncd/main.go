// Command tabsyncd runs the tab-sync server: one HTTP listener exposing
// POST /sync and GET /health over a single authoritative CRDT document.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaydixit11/tabsync/internal/auth"
	"github.com/amaydixit11/tabsync/internal/bootstrap"
	"github.com/amaydixit11/tabsync/internal/config"
	"github.com/amaydixit11/tabsync/internal/httpapi"
	"github.com/amaydixit11/tabsync/internal/log"
	"github.com/amaydixit11/tabsync/internal/ratelimit"
	"github.com/amaydixit11/tabsync/internal/store"
	"github.com/amaydixit11/tabsync/internal/syncengine"
	"github.com/amaydixit11/tabsync/internal/validate"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	bindAddr := flag.String("bind-addr", "", "override server.bind_addr")
	authToken := flag.String("auth-token", "", "override auth.shared_token")
	logLevel := flag.String("log-level", "", "override logging.level")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabsyncd: loading config: %v\n", err)
		os.Exit(1)
	}
	if *bindAddr != "" {
		cfg.Server.BindAddr = *bindAddr
	}
	if *authToken != "" {
		cfg.Auth.SharedToken = *authToken
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "tabsyncd: invalid config: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := log.WithComponent("main")

	opLog, err := store.Open(cfg.Database.URL, log.WithComponent("store"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open operation log")
	}
	defer opLog.Close()

	recovered, err := bootstrap.Run(cfg.Server.BindAddr, opLog, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to recover document from operation log")
	}
	logger.Info().Uint32("node_id", recovered.NodeID).Msg("recovered")

	limits := validate.Limits{MaxURLLength: cfg.Sync.MaxURLLength, MaxTitleLength: cfg.Sync.MaxTitleLength}
	engine := syncengine.New(recovered.Clock, recovered.Document, opLog, limits, log.WithComponent("syncengine"))

	schemas, err := validate.NewSchemaRegistry()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build operation schema registry")
	}

	checker := auth.New(cfg.Auth.TokenHeader, cfg.Auth.SharedToken, cfg.Auth.TokenHash)

	maxRPM := 0
	if cfg.Auth.RateLimiting {
		maxRPM = cfg.Auth.MaxRequestsPerMinute
	}
	limiter := ratelimit.New(maxRPM)
	stop := make(chan struct{})
	limiter.RunCleanup(stop)
	defer close(stop)

	server := httpapi.New(engine, checker, limiter, opLog, schemas, log.WithComponent("httpapi"), version, int64(cfg.Sync.MaxPayloadSize), cfg.Server.CORSAllowedOrigins)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("bind_addr", cfg.Server.BindAddr).Msg("listening")
		errCh <- server.ListenAndServe(cfg.Server.BindAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	case <-sigCh:
		logger.Info().Msg("shutting down")
	}
}
