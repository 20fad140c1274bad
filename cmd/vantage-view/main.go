// Vantage View: interactive terminal viewer for scene documents.
//
// Usage:
//
//	vantage-view [flags] <document.json>
//	vantage-view [flags] --doc <id|prefix|name>
//
// Flags:
//
//	--config      Path to config file (default: ~/.vantage/config.toml)
//	--db          Path to SQLite database file (default from config)
//	--doc         Open a stored document instead of a file
//	--bridge      Serve the debug bridge on this address
//	--log         Write logs to this file
//	--no-watch    Do not reload the file when it changes
//	--no-session  Do not restore or save the viewer session
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mr-Dark-debug/vantage/internal/config"
	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/debugbridge"
	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/logging"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
	"github.com/Mr-Dark-debug/vantage/internal/termrender"
	"github.com/Mr-Dark-debug/vantage/internal/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file")
	dbPath := flag.String("db", "", "Path to SQLite database file")
	docRef := flag.String("doc", "", "Stored document id, id prefix or name")
	bridgeAddr := flag.String("bridge", "", "Debug bridge address, e.g. 127.0.0.1:7071")
	logPath := flag.String("log", "", "Write logs to this file")
	noWatch := flag.Bool("no-watch", false, "Do not reload the file when it changes")
	noSession := flag.Bool("no-session", false, "Do not restore or save the viewer session")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "vantage")
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logging.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	var (
		doc    *scene.Document
		source string
		file   string
		docID  string
		store  *database.DBService
	)
	switch {
	case *docRef != "" && flag.NArg() > 0:
		log.Fatalf("Pass either a file or --doc, not both")
	case *docRef != "":
		if *dbPath == "" {
			*dbPath = cfg.Viewer.DBPath
		}
		store, err = database.NewDBService(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database at %s: %v\n"+
				"Import documents with: vantage import <file>", *dbPath, err)
		}
		defer store.Close()

		rec, err := store.GetDocument(*docRef)
		if err != nil {
			log.Fatalf("Failed to load document: %v", err)
		}
		if doc, err = scene.Parse(rec.Payload); err != nil {
			log.Fatalf("Failed to parse document %s: %v", rec.DocID, err)
		}
		source, docID = rec.Name, rec.DocID
	case flag.NArg() == 1:
		file = flag.Arg(0)
		if doc, err = scene.Load(file); err != nil {
			log.Fatalf("Failed to load document: %v", err)
		}
		source = filepath.Base(file)
	default:
		fmt.Fprintln(os.Stderr, "Usage: vantage-view [flags] <document.json> | --doc <ref>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	seed := cfg.Viewer.Seed()
	hubOpts := []hub.Option{hub.WithAutoOrbitSpeed(cfg.Viewer.AutoOrbitSpeed)}
	var saved *database.SessionState
	useSession := store != nil && !*noSession
	if useSession {
		sess, err := store.GetSession(docID)
		switch {
		case err == nil:
			saved = &sess.State
			seed = restoreSeed(seed, sess.State)
			if cs, ok := restoreCamera(sess.State); ok {
				hubOpts = append(hubOpts, hub.WithCamera(cs))
			}
		case !errors.Is(err, database.ErrNotFound):
			log.Printf("[WARN] Ignoring saved session: %v", err)
		}
	}
	hubOpts = append(hubOpts, hub.WithSeed(seed))

	sched := tui.NewScheduler(cfg.Viewer.FrameInterval())
	renderer := termrender.New(80, 24)
	h, err := hub.New(doc, renderer, sched, hubOpts...)
	if err != nil {
		log.Fatalf("Failed to start viewer: %v", err)
	}
	if saved != nil {
		restoreSelection(h, *saved)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	modelOpts := []tui.Option{tui.WithSource(source)}

	if file != "" && !*noWatch {
		validator, err := schema.NewDefault()
		if err != nil {
			log.Fatalf("Failed to load schema: %v", err)
		}
		reloads, err := watchDocument(ctx, file, validator, reloadDebounce)
		if err != nil {
			log.Printf("[WARN] Hot reload disabled: %v", err)
		} else {
			modelOpts = append(modelOpts, tui.WithReload(reloads))
		}
	}

	addr := *bridgeAddr
	if addr == "" {
		addr = cfg.Bridge.Addr
	}
	if addr != "" {
		srv := debugbridge.New(debugbridge.WithTimeout(cfg.Bridge.Timeout.Duration))
		defer srv.Close()
		go func() {
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				log.Printf("[ERROR] Debug bridge: %v", err)
			}
		}()
		log.Printf("[INFO] Debug bridge listening on ws://%s/api/bridge/ws", addr)
		modelOpts = append(modelOpts, tui.WithBridge(srv.Requests()))
	}

	if useSession {
		modelOpts = append(modelOpts, tui.WithQuitHook(func(h *hub.Hub) {
			sess := &database.Session{DocID: docID, State: captureSession(h)}
			if err := store.SaveSession(sess); err != nil {
				log.Printf("[WARN] Saving session: %v", err)
			}
		}))
	}

	// Keep stray log lines off the alternate screen.
	if *logPath == "" {
		log.SetOutput(io.Discard)
	}

	model := tui.NewModel(h, renderer, sched, modelOpts...)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		os.Exit(1)
	}
}
