package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/clock"

	"certsync/internal/api"
	"certsync/internal/authority"
	"certsync/internal/config"
	"certsync/internal/db"
	"certsync/internal/db/repository"
	"certsync/internal/engine"
	"certsync/internal/poller"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "/etc/certsync/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("certsync\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	log.Info("starting certsync", "version", Version, "commit", Commit)

	// Initialize database
	log.Info("connecting to database", "path", cfg.Database.Path)
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Run migrations
	if err := db.RunMigrations(database); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Wire the engine
	records := repository.NewRecordRepository(database.DB)
	authClient := authority.New(cfg.Authority.BaseURL, cfg.Authority.ZoneID, cfg.Authority.APIToken)
	statusPoller := poller.New(authClient, cfg.Poller.Attempts, cfg.GetPollerInterval(), clock.WallClock, log)
	eng := engine.New(authClient, statusPoller, records, log)

	// Create HTTP server
	server := api.NewServer(cfg, log, eng)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Info("starting HTTP server", "addr", cfg.Server.ListenAddr)
		if err := server.Run(); err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Info("shutting down")

	database.Close()
}

// newLogger builds the process logger from the logging config
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
