// Package ingest implements the crash-safe document ingestion service for
// Vantage. It watches an inbox directory, debounces file events, validates
// each scene document against the CUE schema and stores it in SQLite.
//
// Architecture:
//
//	inbox/*.json → fsnotify → debounce → Importer → pending write → DBService
//
// Every payload is journaled as a pending write before it is parsed, so a
// crash mid-import is replayed on the next start.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
)

// Ingester defines the interface for the ingestion service.
// This abstraction allows for mocking in integration tests.
type Ingester interface {
	// Start begins watching for documents.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the ingester.
	Stop() error
	// Metrics returns the current ingestion metrics.
	Metrics() Metrics
}

// Metrics tracks throughput and error rates.
type Metrics struct {
	DocumentsIngested int64 `json:"documents_ingested"`
	Duplicates        int64 `json:"duplicates"`
	Rejected          int64 `json:"rejected"`
	Replayed          int64 `json:"replayed"`
	EventsSeen        int64 `json:"events_seen"`
	ErrorCount        int64 `json:"error_count"`
	Uptime            int64 `json:"uptime_seconds"`
}

// Config holds configuration for the ingestion daemon.
type Config struct {
	// WatchDir is the inbox directory. It is created if missing.
	WatchDir string `json:"watch_dir" toml:"watch_dir"`

	// DBPath is the path to the SQLite database file.
	DBPath string `json:"db_path" toml:"db_path"`

	// MetricsAddr is the HTTP address for metrics and the document API.
	// Empty string disables the metrics server.
	MetricsAddr string `json:"metrics_addr" toml:"metrics_addr"`

	// Debounce is how long a file must be quiet before it is imported.
	Debounce time.Duration `json:"debounce" toml:"debounce"`

	// MaxDocumentSize rejects larger files without reading them.
	MaxDocumentSize int64 `json:"max_document_size" toml:"max_document_size"`
}

// DefaultConfig returns sensible defaults for the ingestion daemon.
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".vantage")

	return Config{
		WatchDir:        filepath.Join(base, "inbox"),
		DBPath:          filepath.Join(base, "vantage.db"),
		MetricsAddr:     "127.0.0.1:9877",
		Debounce:        250 * time.Millisecond,
		MaxDocumentSize: 10 * 1024 * 1024,
	}
}

// ============================================================
// Daemon Implementation
// ============================================================

// Daemon is the production implementation of the Ingester interface.
// It owns the directory watcher, the debounce timers and the metrics
// server.
type Daemon struct {
	config   Config
	store    database.Store
	importer *Importer
	metrics  Metrics

	watcher *fsnotify.Watcher
	ready   chan string

	mu      sync.Mutex
	timers  map[string]*time.Timer
	wg      sync.WaitGroup
	started time.Time

	cancel context.CancelFunc
}

// NewDaemon creates a new ingestion daemon with the given configuration.
// A nil validator skips schema checks.
func NewDaemon(config Config, store database.Store, validator *schema.Validator) *Daemon {
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	return &Daemon{
		config:   config,
		store:    store,
		importer: NewImporter(store, validator),
		ready:    make(chan string, 64),
		timers:   make(map[string]*time.Timer),
	}
}

// Start replays pending writes, imports what is already in the inbox and
// begins watching it.
func (d *Daemon) Start(ctx context.Context) error {
	d.started = time.Now()

	n, err := d.importer.Replay()
	if err != nil {
		log.Printf("[WARN] Failed to replay pending writes: %v", err)
	} else if n > 0 {
		log.Printf("[INFO] Replayed %d pending writes from crash recovery", n)
		atomic.AddInt64(&d.metrics.Replayed, int64(n))
	}

	if err := os.MkdirAll(d.config.WatchDir, 0o755); err != nil {
		return fmt.Errorf("creating watch dir %s: %w", d.config.WatchDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(d.config.WatchDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", d.config.WatchDir, err)
	}
	d.watcher = watcher

	ctx, d.cancel = context.WithCancel(ctx)

	d.scanExisting()

	d.wg.Add(1)
	go d.watchLoop(ctx)

	if d.config.MetricsAddr != "" {
		d.wg.Add(1)
		go d.serveMetrics(ctx)
	}

	log.Printf("[INFO] Vantage daemon watching %s", d.config.WatchDir)
	return nil
}

// Stop gracefully shuts down the daemon. Pending debounce timers are
// dropped; their files are picked up by the next start's inbox scan.
func (d *Daemon) Stop() error {
	log.Println("[INFO] Shutting down Vantage daemon...")

	if d.cancel != nil {
		d.cancel()
	}

	d.mu.Lock()
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
	d.mu.Unlock()

	var err error
	if d.watcher != nil {
		err = d.watcher.Close()
	}

	d.wg.Wait()

	log.Println("[INFO] Vantage daemon stopped.")
	return err
}

// Metrics returns a snapshot of the current ingestion metrics.
func (d *Daemon) Metrics() Metrics {
	up := int64(0)
	if !d.started.IsZero() {
		up = int64(time.Since(d.started).Seconds())
	}
	return Metrics{
		DocumentsIngested: atomic.LoadInt64(&d.metrics.DocumentsIngested),
		Duplicates:        atomic.LoadInt64(&d.metrics.Duplicates),
		Rejected:          atomic.LoadInt64(&d.metrics.Rejected),
		Replayed:          atomic.LoadInt64(&d.metrics.Replayed),
		EventsSeen:        atomic.LoadInt64(&d.metrics.EventsSeen),
		ErrorCount:        atomic.LoadInt64(&d.metrics.ErrorCount),
		Uptime:            up,
	}
}

// scanExisting imports documents already sitting in the inbox.
func (d *Daemon) scanExisting() {
	entries, err := os.ReadDir(d.config.WatchDir)
	if err != nil {
		log.Printf("[ERROR] Scanning %s: %v", d.config.WatchDir, err)
		atomic.AddInt64(&d.metrics.ErrorCount, 1)
		return
	}
	for _, e := range entries {
		path := filepath.Join(d.config.WatchDir, e.Name())
		if e.Type().IsRegular() && IsDocumentFile(path) {
			d.ingestFile(path)
		}
	}
}

// watchLoop turns file events into debounced imports.
func (d *Daemon) watchLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !IsDocumentFile(ev.Name) {
				continue
			}
			atomic.AddInt64(&d.metrics.EventsSeen, 1)
			d.schedule(ctx, ev.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[ERROR] Watcher: %v", err)
			atomic.AddInt64(&d.metrics.ErrorCount, 1)

		case path := <-d.ready:
			d.ingestFile(path)
		}
	}
}

// schedule (re)arms the debounce timer for path.
func (d *Daemon) schedule(ctx context.Context, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Reset(d.config.Debounce)
		return
	}
	d.timers[path] = time.AfterFunc(d.config.Debounce, func() {
		d.mu.Lock()
		delete(d.timers, path)
		d.mu.Unlock()
		select {
		case d.ready <- path:
		case <-ctx.Done():
		}
	})
}

// ingestFile imports one file and updates the metrics.
func (d *Daemon) ingestFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Removed before the debounce fired.
		return
	}
	if d.config.MaxDocumentSize > 0 && info.Size() > d.config.MaxDocumentSize {
		log.Printf("[ERROR] Document too large: %s (%d bytes)", path, info.Size())
		atomic.AddInt64(&d.metrics.Rejected, 1)
		return
	}

	res, err := d.importer.ImportFile(path)
	switch {
	case errors.Is(err, ErrInvalidDocument):
		log.Printf("[WARN] Rejected %v", err)
		atomic.AddInt64(&d.metrics.Rejected, 1)
	case err != nil:
		log.Printf("[ERROR] Importing %s: %v", path, err)
		atomic.AddInt64(&d.metrics.ErrorCount, 1)
	case !res.Inserted:
		atomic.AddInt64(&d.metrics.Duplicates, 1)
	default:
		log.Printf("[INFO] Stored %s as %s (%d entities)", path, res.Document.DocID, res.Document.Entities())
		atomic.AddInt64(&d.metrics.DocumentsIngested, 1)
	}
}
