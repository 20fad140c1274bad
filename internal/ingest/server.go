package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Mr-Dark-debug/vantage/internal/database"
)

// Handler returns the metrics and document API routes.
func (d *Daemon) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheus-compatible text format
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		m := d.Metrics()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n", name, v)
		}
		counter("vantage_documents_ingested_total", "Documents stored", m.DocumentsIngested)
		counter("vantage_duplicates_total", "Documents already stored", m.Duplicates)
		counter("vantage_rejected_total", "Documents rejected by validation", m.Rejected)
		counter("vantage_replayed_total", "Pending writes replayed", m.Replayed)
		counter("vantage_events_total", "File events seen", m.EventsSeen)
		counter("vantage_errors_total", "Total errors", m.ErrorCount)
		fmt.Fprintf(w, "# HELP vantage_uptime_seconds Uptime in seconds\n")
		fmt.Fprintf(w, "# TYPE vantage_uptime_seconds gauge\n")
		fmt.Fprintf(w, "vantage_uptime_seconds %d\n", m.Uptime)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, d.Metrics())
		})
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			st, err := d.store.Stats()
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, st)
		})
		r.Get("/documents", d.listDocuments)
		r.Get("/documents/{ref}", d.getDocument)
	})

	return r
}

func (d *Daemon) listDocuments(w http.ResponseWriter, r *http.Request) {
	filter := database.DocumentFilter{}
	q := r.URL.Query()
	if name := q.Get("name"); name != "" {
		filter.Name = &name
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if s := q.Get(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + key})
				return
			}
			*dst = n
		}
	}

	docs, err := d.store.ListDocuments(filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []*database.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (d *Daemon) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := d.store.GetDocument(chi.URLParam(r, "ref"))
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, database.ErrAmbiguous):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*database.Document
		Payload json.RawMessage `json:"payload"`
	}{doc, json.RawMessage(doc.Payload)})
}

// serveMetrics starts an HTTP server exposing metrics and the document API.
func (d *Daemon) serveMetrics(ctx context.Context) {
	defer d.wg.Done()

	server := &http.Server{
		Addr:    d.config.MetricsAddr,
		Handler: d.Handler(),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.Printf("[INFO] Metrics server listening on http://%s/metrics", d.config.MetricsAddr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("[ERROR] Metrics server: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
