package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mr-Dark-debug/vantage/internal/database"
	"github.com/Mr-Dark-debug/vantage/internal/logging"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/schema"
	"github.com/Mr-Dark-debug/vantage/internal/structindex"
)

// ErrInvalidDocument wraps schema and decoding failures.
var ErrInvalidDocument = errors.New("ingest: invalid document")

// RejectedError carries the schema violations of a rejected payload.
type RejectedError struct {
	Source     string
	Violations []schema.ValidationError
}

func (e *RejectedError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s: rejected", e.Source)
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s: %d violation(s): %s", e.Source, len(parts), strings.Join(parts, "; "))
}

func (e *RejectedError) Unwrap() error { return ErrInvalidDocument }

// Result describes one import.
type Result struct {
	Document *database.Document
	// Inserted is false when an identical payload was already stored.
	Inserted bool
}

// Importer validates, parses and stores scene documents. Every payload is
// journaled as a pending write first so an interrupted import is replayed.
type Importer struct {
	store     database.Store
	validator *schema.Validator
}

// NewImporter returns an importer. A nil validator skips schema checks.
func NewImporter(store database.Store, validator *schema.Validator) *Importer {
	return &Importer{store: store, validator: validator}
}

// ImportFile reads path and imports it under its base name.
func (im *Importer) ImportFile(path string) (Result, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return im.Import(DocumentName(path), abs, payload)
}

// Import journals payload, then validates and stores it.
func (im *Importer) Import(name, source string, payload []byte) (Result, error) {
	writeID, err := im.store.WritePendingPayload(source, payload)
	if err != nil {
		return Result{}, fmt.Errorf("journaling %s: %w", source, err)
	}
	return im.finish(writeID, name, source, payload)
}

// Replay re-imports journaled payloads left by an interrupted run.
// It returns the number of payloads stored.
func (im *Importer) Replay() (int, error) {
	pending, err := im.store.GetPendingPayloads()
	if err != nil {
		return 0, fmt.Errorf("getting pending payloads: %w", err)
	}
	stored := 0
	for _, pw := range pending {
		if _, err := im.finish(pw.WriteID, DocumentName(pw.Source), pw.Source, pw.Payload); err != nil {
			logging.For("ingest").Warn("replay failed", "write_id", pw.WriteID, "err", err)
			continue
		}
		stored++
	}
	return stored, nil
}

func (im *Importer) finish(writeID int64, name, source string, payload []byte) (Result, error) {
	doc, err := im.check(source, payload)
	if err != nil {
		if ferr := im.store.FailPendingPayload(writeID, err.Error()); ferr != nil {
			return Result{}, fmt.Errorf("%w (marking write %d failed: %v)", err, writeID, ferr)
		}
		return Result{}, err
	}

	rec := Record(name, source, payload, doc)
	inserted, err := im.store.SaveDocument(rec)
	if err != nil {
		return Result{}, fmt.Errorf("storing %s: %w", source, err)
	}
	if err := im.store.CommitPendingPayload(writeID); err != nil {
		return Result{}, fmt.Errorf("committing write %d: %w", writeID, err)
	}
	logging.For("ingest").Info("document stored", "doc_id", rec.DocID, "source", source, "inserted", inserted)
	return Result{Document: rec, Inserted: inserted}, nil
}

func (im *Importer) check(source string, payload []byte) (*scene.Document, error) {
	if im.validator != nil && !im.validator.Validate(payload) {
		return nil, &RejectedError{Source: source, Violations: im.validator.Errors()}
	}
	doc, err := scene.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, source, err)
	}
	return doc, nil
}

// Record builds the stored form of a parsed document.
func Record(name, source string, payload []byte, doc *scene.Document) *database.Document {
	rec := database.NewDocument(name, source, payload)
	counts := doc.Counts()
	rec.Title = doc.Title()
	rec.Points = counts[scene.KindPoints]
	rec.Lines = counts[scene.KindLines]
	rec.Aux = counts[scene.KindAux]
	rec.Frames = len(structindex.Build(doc).Frames())
	return rec
}

// DocumentName derives a document name from a file path.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDocumentFile reports whether path looks like a scene document.
func IsDocumentFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".json")
}
