// Vantage CLI: validate, analyze and store scene documents.
//
// Usage:
//
//	vantage <command> [flags]
//
// Commands:
//
//	validate  Check documents against the schema
//	analyze   Report on a stored or local document
//	import    Store documents in the database
//	list      List stored documents
//	status    Show daemon status
//	config    Print the effective configuration
//	version   Print version information
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Mr-Dark-debug/vantage/internal/analysis"
	"github.com/Mr-Dark-debug/vantage/internal/config"
	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/ingest"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
	"github.com/Mr-Dark-debug/vantage/pkg/jsonutil"
	"github.com/Mr-Dark-debug/vantage/pkg/timeutil"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		cmdValidate()
	case "analyze":
		cmdAnalyze()
	case "import":
		cmdImport()
	case "list":
		cmdList()
	case "status":
		cmdStatus()
	case "config":
		cmdConfig()
	case "version":
		fmt.Printf("Vantage v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Vantage — scene document viewer toolkit

Usage:
  vantage <command> [flags]

Commands:
  validate   Check documents against the schema
  analyze    Report on a stored or local document
  import     Store documents in the database
  list       List stored documents
  status     Show daemon status and metrics
  config     Print the effective configuration
  version    Print version information

Run 'vantage <command> --help' for details on each command.`)
}

// loadConfig registers --config on fs and returns a loader for after Parse.
func loadConfig(fs *flag.FlagSet) func() config.Config {
	path := fs.String("config", config.DefaultPath(), "Path to config file")
	return func() config.Config {
		cfg, err := config.Load(*path)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		return cfg
	}
}

func openStore(path string) *database.DBService {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}
	store, err := database.NewDBService(path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return store
}

// cmdValidate checks each file against the schema and reports what the
// index would skip.
func cmdValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	schemaPath := fs.String("schema", "", "CUE schema defining #Document (default: built-in)")
	fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one document is required")
		fs.Usage()
		os.Exit(1)
	}

	v := schema.New()
	src := schema.DefaultSchema
	if *schemaPath != "" {
		data, err := os.ReadFile(*schemaPath)
		if err != nil {
			log.Fatalf("Failed to read schema: %v", err)
		}
		src = data
	}
	if err := v.Init(src); err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	failed := 0
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		if !v.Validate(data) {
			fmt.Printf("✗ %s\n", path)
			for _, e := range v.Errors() {
				fmt.Printf("    %s\n", e)
			}
			failed++
			continue
		}
		doc, err := scene.Parse(data)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", path, err)
			failed++
			continue
		}
		idx := structindex.Build(doc)
		skipped := 0
		for _, n := range idx.Skipped {
			skipped += n
		}
		fmt.Printf("✓ %s (%d entities, %d frames", path, idx.Len(), len(idx.Frames()))
		if skipped > 0 || idx.Duplicates > 0 {
			fmt.Printf(", %d skipped, %d duplicates", skipped, idx.Duplicates)
		}
		fmt.Println(")")
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// cmdAnalyze runs the full analysis suite on a document and outputs a report.
func cmdAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgFn := loadConfig(fs)
	ref := fs.String("doc", "", "Stored document id, id prefix or name")
	file := fs.String("file", "", "Analyze a local file instead of a stored document")
	dbPath := fs.String("db", "", "Path to SQLite database (default from config)")
	outputFormat := fs.String("format", "markdown", "Output format: markdown, json")
	fs.Parse(os.Args[2:])

	if (*ref == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "Error: exactly one of --doc or --file is required")
		fs.Usage()
		os.Exit(1)
	}

	var (
		analyzer *analysis.Analyzer
		report   *analysis.AnalysisReport
	)
	if *file != "" {
		doc, err := scene.Load(*file)
		if err != nil {
			log.Fatalf("Failed to load document: %v", err)
		}
		analyzer = analysis.NewAnalyzer(nil)
		report = analyzer.AnalyzeDocument(doc)
	} else {
		cfg := cfgFn()
		if *dbPath == "" {
			*dbPath = cfg.Daemon.DBPath
		}
		store := openStore(*dbPath)
		defer store.Close()

		analyzer = analysis.NewAnalyzer(store)
		var err error
		report, err = analyzer.Analyze(*ref)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
	}

	switch *outputFormat {
	case "json":
		out, err := analyzer.FormatJSON(report)
		if err != nil {
			log.Fatalf("Encoding report: %v", err)
		}
		fmt.Println(out)
	case "markdown":
		fmt.Print(analyzer.FormatReport(report))
	default:
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *outputFormat)
		os.Exit(1)
	}
}

// cmdImport validates and stores documents.
func cmdImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgFn := loadConfig(fs)
	dbPath := fs.String("db", "", "Path to SQLite database (default from config)")
	noValidate := fs.Bool("no-validate", false, "Skip schema validation")
	fs.Parse(os.Args[2:])

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one document is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg := cfgFn()
	if *dbPath == "" {
		*dbPath = cfg.Daemon.DBPath
	}
	store := openStore(*dbPath)
	defer store.Close()

	var v *schema.Validator
	if !*noValidate {
		var err error
		if v, err = schema.NewDefault(); err != nil {
			log.Fatalf("Failed to load schema: %v", err)
		}
	}
	im := ingest.NewImporter(store, v)

	failed := 0
	for _, path := range fs.Args() {
		res, err := im.ImportFile(path)
		if err != nil {
			fmt.Printf("✗ %v\n", err)
			failed++
			continue
		}
		state := "stored"
		if !res.Inserted {
			state = "already stored"
		}
		fmt.Printf("✓ %s → %s (%s, %d entities)\n", path, res.Document.DocID, state, res.Document.Entities())
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// cmdList prints stored documents, most recent first.
func cmdList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfgFn := loadConfig(fs)
	dbPath := fs.String("db", "", "Path to SQLite database (default from config)")
	name := fs.String("name", "", "Filter by document name")
	limit := fs.Int("limit", 20, "Maximum results")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(os.Args[2:])

	cfg := cfgFn()
	if *dbPath == "" {
		*dbPath = cfg.Daemon.DBPath
	}
	store := openStore(*dbPath)
	defer store.Close()

	filter := database.DocumentFilter{Limit: *limit}
	if *name != "" {
		filter.Name = name
	}
	docs, err := store.ListDocuments(filter)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	if *asJSON {
		b, _ := json.MarshalIndent(docs, "", "  ")
		fmt.Println(string(b))
		return
	}
	if len(docs) == 0 {
		fmt.Println("No documents stored.")
		return
	}
	fmt.Printf("%-8s  %-24s  %6s  %6s  %6s  %6s  %s\n", "ID", "NAME", "POINTS", "LINES", "AUX", "FRAMES", "UPDATED")
	for _, d := range docs {
		fmt.Printf("%-8s  %-24s  %6d  %6d  %6d  %6d  %s\n",
			shortID(d.DocID), jsonutil.TruncateString(d.Name, 24), d.Points, d.Lines, d.Aux, d.Frames, timeutil.RelativeTime(d.UpdatedAt))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// cmdStatus shows the current daemon status by querying the metrics endpoint.
func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgFn := loadConfig(fs)
	fs.Parse(os.Args[2:])
	cfg := cfgFn()

	url := fmt.Sprintf("http://%s/api/metrics", cfg.Daemon.MetricsAddr)
	resp, err := http.Get(url)
	if err != nil {
		fmt.Println("⚠ Vantage daemon is not running.")
		fmt.Printf("  Start it with: vantage-daemon\n")
		fmt.Printf("  (tried: %s)\n", url)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var metrics ingest.Metrics
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		log.Fatalf("Failed to decode metrics: %v", err)
	}

	fmt.Println("✅ Vantage daemon is running.")
	fmt.Println()
	fmt.Printf("  Documents ingested:  %d\n", metrics.DocumentsIngested)
	fmt.Printf("  Duplicates:          %d\n", metrics.Duplicates)
	fmt.Printf("  Rejected:            %d\n", metrics.Rejected)
	fmt.Printf("  Replayed:            %d\n", metrics.Replayed)
	fmt.Printf("  Errors:              %d\n", metrics.ErrorCount)
	fmt.Printf("  Uptime:              %ds\n", metrics.Uptime)
}

// cmdConfig prints the configuration after defaults and the file.
func cmdConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	cfgFn := loadConfig(fs)
	fs.Parse(os.Args[2:])

	data, err := config.Encode(cfgFn())
	if err != nil {
		log.Fatalf("Failed to encode config: %v", err)
	}
	os.Stdout.Write(data)
}
