// Vantage Daemon: watches an inbox directory and stores scene documents.
//
// Usage:
//
//	vantage-daemon [flags]
//
// Flags:
//
//	--config    Path to config file (default: ~/.vantage/config.toml)
//	--watch     Inbox directory (default: ~/.vantage/inbox)
//	--db        Path to SQLite database file (default: ~/.vantage/vantage.db)
//	--metrics   HTTP address for metrics and the document API (default: 127.0.0.1:9877)
//	--debounce  Quiet period before a changed file is imported (default: 250ms)
//	--no-validate  Skip schema validation
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Mr-Dark-debug/vantage/internal/config"
	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/ingest"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file")
	watch := flag.String("watch", "", "Inbox directory")
	dbPath := flag.String("db", "", "Path to SQLite database file")
	metrics := flag.String("metrics", "", "Metrics HTTP address (\"off\" disables)")
	debounce := flag.Duration("debounce", 0, "Quiet period before import")
	noValidate := flag.Bool("no-validate", false, "Skip schema validation")
	flag.Parse()

	fileCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := fileCfg.Daemon.Ingest()

	// Flags override the file.
	if *watch != "" {
		cfg.WatchDir = *watch
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	switch *metrics {
	case "":
	case "off":
		cfg.MetricsAddr = ""
	default:
		cfg.MetricsAddr = *metrics
	}
	if *debounce > 0 {
		cfg.Debounce = *debounce
	}

	// Ensure the database directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create database directory %s: %v", dbDir, err)
	}

	// Initialize storage
	store, err := database.NewDBService(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	var validator *schema.Validator
	if !*noValidate {
		if validator, err = schema.NewDefault(); err != nil {
			log.Fatalf("Failed to load schema: %v", err)
		}
	}

	// Create and start the daemon
	daemon := ingest.NewDaemon(cfg, store, validator)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := daemon.Start(ctx); err != nil {
		log.Fatalf("Failed to start daemon: %v", err)
	}

	// Print startup banner
	fmt.Println()
	fmt.Println("  VANTAGE DAEMON")
	fmt.Println()
	fmt.Printf("  Inbox:   %s\n", cfg.WatchDir)
	fmt.Printf("  DB:      %s\n", cfg.DBPath)
	if cfg.MetricsAddr != "" {
		fmt.Printf("  Metrics: http://%s/metrics\n", cfg.MetricsAddr)
	}
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop.")
	fmt.Println()

	// Wait for shutdown signal
	<-ctx.Done()

	fmt.Println("\n  Shutting down gracefully...")
	if err := daemon.Stop(); err != nil {
		log.Printf("[WARN] Error during shutdown: %v", err)
	}

	fmt.Println("  Done.")
}
