// Package database provides the storage layer for Vantage.
//
// It implements the Store interface using SQLite in WAL mode. Documents
// are stored whole with their checksum and per-kind counts; viewer
// sessions keep the last state a document was viewed in; pending writes
// journal raw payloads so ingestion survives a crash. DBService is the
// primary entry point for all database operations.
package database

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Mr-Dark-debug/vantage/internal/camera"
	"github.com/Mr-Dark-debug/vantage/internal/core"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/visibility"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	// ErrNotFound is returned when no row matches a lookup.
	ErrNotFound = errors.New("database: not found")
	// ErrAmbiguous is returned when an id prefix matches several documents.
	ErrAmbiguous = errors.New("database: ambiguous document reference")
)

// Store defines the interface for document persistence.
// This abstraction allows for mocking in tests and potential
// future backends beyond SQLite.
type Store interface {
	// SaveDocument stores doc. A document whose checksum is already
	// stored is not duplicated: doc takes the existing id and false is
	// returned.
	SaveDocument(doc *Document) (bool, error)
	// GetDocument returns a document with its payload by id, unique id
	// prefix, or name (most recent wins).
	GetDocument(ref string) (*Document, error)
	// ListDocuments returns documents without payloads, most recent first.
	ListDocuments(filter DocumentFilter) ([]*Document, error)
	// DeleteDocument removes a document and its session.
	DeleteDocument(docID string) error

	// SaveSession stores the viewer session of a document, replacing any
	// previous one.
	SaveSession(session *Session) error
	// GetSession returns the viewer session of a document.
	GetSession(docID string) (*Session, error)

	// WritePendingPayload stores a raw payload for crash recovery.
	WritePendingPayload(source string, payload []byte) (int64, error)
	// CommitPendingPayload marks a pending write as committed.
	CommitPendingPayload(writeID int64) error
	// FailPendingPayload marks a pending write as rejected with a reason.
	FailPendingPayload(writeID int64, reason string) error
	// GetPendingPayloads returns all payloads that haven't been committed.
	GetPendingPayloads() ([]PendingWrite, error)

	// Stats returns store-wide counters.
	Stats() (*StoreStats, error)

	// Close gracefully shuts down the database connection.
	Close() error
}

// ============================================================
// Domain Models
// ============================================================

// Document is one stored scene document.
type Document struct {
	DocID     string `json:"doc_id"`
	Name      string `json:"name"`
	Source    string `json:"source,omitempty"`
	Title     string `json:"title,omitempty"`
	Checksum  string `json:"checksum"`
	Payload   []byte `json:"-"`
	Points    int    `json:"points"`
	Lines     int    `json:"lines"`
	Aux       int    `json:"aux"`
	Frames    int    `json:"frames"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// NewDocument creates a document record for payload with a fresh id and
// the payload checksum. Counts are left for the caller.
func NewDocument(name, source string, payload []byte) *Document {
	return &Document{
		DocID:    uuid.NewString(),
		Name:     name,
		Source:   source,
		Checksum: Checksum(payload),
		Payload:  payload,
	}
}

// Checksum is the hex sha256 of payload.
func Checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Entities is the total entity count.
func (d *Document) Entities() int { return d.Points + d.Lines + d.Aux }

// SessionState is what a viewer restores when reopening a document.
type SessionState struct {
	Mode      core.Mode           `json:"mode"`
	Selection selection.Selection `json:"selection"`
	Locked    bool                `json:"locked,omitempty"`
	Frame     *int                `json:"frame,omitempty"`
	Filters   visibility.Filters  `json:"filters"`
	Camera    camera.State        `json:"camera"`
	Settings  core.ViewerSettings `json:"settings"`
}

// Session is the stored viewer session of a document.
type Session struct {
	SessionID string       `json:"session_id"`
	DocID     string       `json:"doc_id"`
	State     SessionState `json:"state"`
	CreatedAt int64        `json:"created_at"`
	UpdatedAt int64        `json:"updated_at"`
}

// DocumentFilter defines query parameters for document listing.
type DocumentFilter struct {
	Name   *string `json:"name,omitempty"`
	Since  *int64  `json:"since,omitempty"` // Unix nanoseconds
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// StoreStats holds store-wide counters.
type StoreStats struct {
	Documents     int   `json:"documents"`
	Entities      int   `json:"entities"`
	Sessions      int   `json:"sessions"`
	Pending       int   `json:"pending"`
	Failed        int   `json:"failed"`
	PayloadBytes  int64 `json:"payload_bytes"`
	LastUpdatedAt int64 `json:"last_updated_at"`
}

// PendingWrite represents an uncommitted ingestion payload.
type PendingWrite struct {
	WriteID   int64  `json:"write_id"`
	Source    string `json:"source"`
	Payload   []byte `json:"payload"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// ============================================================
// DBService Implementation
// ============================================================

// DBService implements the Store interface using SQLite.
// It manages the database connection pool, prepared statements,
// and ensures thread-safe access through a read-write mutex.
type DBService struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	// Prepared statements for hot-path operations
	stmtInsertDocument *sql.Stmt
	stmtUpsertSession  *sql.Stmt
	stmtInsertPending  *sql.Stmt
	stmtCommitPending  *sql.Stmt
	stmtFailPending    *sql.Stmt
}

// NewDBService creates a new database service, initializes the schema,
// and prepares frequently-used statements.
//
// The path parameter specifies the SQLite database file location.
// Use ":memory:" for in-memory databases (useful for testing).
func NewDBService(path string) (*DBService, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON&_cache_size=-64000", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	svc := &DBService{
		db:   db,
		path: path,
	}

	if err := svc.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	if err := svc.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing statements: %w", err)
	}

	return svc, nil
}

// Path is the database location.
func (s *DBService) Path() string { return s.path }

// initSchema reads the embedded schema.sql and executes it.
func (s *DBService) initSchema() error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("reading embedded schema: %w", err)
	}

	if _, err := s.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	return nil
}

// prepareStatements creates prepared statements for frequently-used
// insert and update operations to minimize parsing overhead.
func (s *DBService) prepareStatements() error {
	var err error

	s.stmtInsertDocument, err = s.db.Prepare(`
		INSERT INTO documents (doc_id, name, source, title, checksum, payload,
			points, lines, aux, frames, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertDocument: %w", err)
	}

	s.stmtUpsertSession, err = s.db.Prepare(`
		INSERT INTO sessions (session_id, doc_id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing UpsertSession: %w", err)
	}

	s.stmtInsertPending, err = s.db.Prepare(`
		INSERT INTO pending_writes (source, payload, status, created_at) VALUES (?, ?, 'pending', ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing InsertPending: %w", err)
	}

	s.stmtCommitPending, err = s.db.Prepare(`
		UPDATE pending_writes SET status = 'committed', committed_at = ? WHERE write_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing CommitPending: %w", err)
	}

	s.stmtFailPending, err = s.db.Prepare(`
		UPDATE pending_writes SET status = 'failed', error = ?, committed_at = ? WHERE write_id = ?
	`)
	if err != nil {
		return fmt.Errorf("preparing FailPending: %w", err)
	}

	return nil
}

// SaveDocument stores doc, deduplicating on checksum. Missing id,
// checksum and timestamps are filled in.
func (s *DBService) SaveDocument(doc *Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.DocID == "" {
		doc.DocID = uuid.NewString()
	}
	if doc.Checksum == "" {
		doc.Checksum = Checksum(doc.Payload)
	}
	now := time.Now().UnixNano()

	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("beginning document transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	var created int64
	err = tx.QueryRow(`SELECT doc_id, created_at FROM documents WHERE checksum = ?`, doc.Checksum).
		Scan(&existing, &created)
	switch {
	case err == nil:
		if _, err := tx.Exec(`
			UPDATE documents SET name = ?, source = ?, updated_at = ? WHERE doc_id = ?
		`, doc.Name, doc.Source, now, existing); err != nil {
			return false, fmt.Errorf("touching document %s: %w", existing, err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("committing document %s: %w", existing, err)
		}
		doc.DocID, doc.CreatedAt, doc.UpdatedAt = existing, created, now
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("looking up checksum: %w", err)
	}

	if doc.CreatedAt == 0 {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err = tx.Stmt(s.stmtInsertDocument).Exec(
		doc.DocID, doc.Name, doc.Source, doc.Title, doc.Checksum, doc.Payload,
		doc.Points, doc.Lines, doc.Aux, doc.Frames, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting document %s: %w", doc.DocID, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing document %s: %w", doc.DocID, err)
	}
	return true, nil
}

const documentColumns = `doc_id, name, source, title, checksum, points, lines, aux, frames, created_at, updated_at`

// GetDocument resolves ref as an exact id, then a unique id prefix, then
// a name.
func (s *DBService) GetDocument(ref string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrNotFound
	}

	queries := []struct {
		where string
		arg   string
	}{
		{`doc_id = ?`, ref},
		{`doc_id LIKE ? ESCAPE '\'`, escapeLike(ref) + "%"},
		{`name = ?`, ref},
	}
	for _, q := range queries {
		rows, err := s.db.Query(`SELECT `+documentColumns+`, payload FROM documents WHERE `+
			q.where+` ORDER BY updated_at DESC LIMIT 2`, q.arg)
		if err != nil {
			return nil, fmt.Errorf("querying document %q: %w", ref, err)
		}
		docs, err := scanDocuments(rows, true)
		rows.Close()
		if err != nil {
			return nil, err
		}
		switch {
		case len(docs) == 1:
			return docs[0], nil
		case len(docs) > 1 && q.where != `name = ?`:
			return nil, fmt.Errorf("%w: %q", ErrAmbiguous, ref)
		case len(docs) > 1:
			return docs[0], nil
		}
	}
	return nil, fmt.Errorf("document %q: %w", ref, ErrNotFound)
}

// ListDocuments returns documents matching filter, most recently updated
// first, without payloads.
func (s *DBService) ListDocuments(filter DocumentFilter) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := make([]any, 0)

	if filter.Name != nil {
		query += ` AND name = ?`
		args = append(args, *filter.Name)
	}
	if filter.Since != nil {
		query += ` AND updated_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY updated_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else {
		query += ` LIMIT 100`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows, false)
}

// DeleteDocument removes a document. Its session goes with it.
func (s *DBService) DeleteDocument(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	return nil
}

// SaveSession stores session, replacing the document's previous one.
func (s *DBService) SaveSession(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	now := time.Now().UnixNano()
	if session.CreatedAt == 0 {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	_, err = s.stmtUpsertSession.Exec(session.SessionID, session.DocID, string(state),
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving session for document %s: %w", session.DocID, err)
	}
	return nil
}

// GetSession returns the viewer session of a document.
func (s *DBService) GetSession(docID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := &Session{}
	var state string
	err := s.db.QueryRow(`
		SELECT session_id, doc_id, state, created_at, updated_at
		FROM sessions WHERE doc_id = ?
	`, docID).Scan(&sess.SessionID, &sess.DocID, &state, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session for document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session for document %s: %w", docID, err)
	}
	if err := json.Unmarshal([]byte(state), &sess.State); err != nil {
		return nil, fmt.Errorf("decoding session for document %s: %w", docID, err)
	}
	return sess, nil
}

// WritePendingPayload stores a raw payload in the pending_writes table
// for crash recovery. Returns the write ID for later commitment.
func (s *DBService) WritePendingPayload(source string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.stmtInsertPending.Exec(source, payload, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("writing pending payload: %w", err)
	}
	return result.LastInsertId()
}

// CommitPendingPayload marks a pending write as committed.
func (s *DBService) CommitPendingPayload(writeID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	_, err := s.stmtCommitPending.Exec(now, writeID)
	if err != nil {
		return fmt.Errorf("committing pending payload %d: %w", writeID, err)
	}
	return nil
}

// FailPendingPayload marks a pending write as failed so it is not
// replayed.
func (s *DBService) FailPendingPayload(writeID int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	_, err := s.stmtFailPending.Exec(reason, now, writeID)
	if err != nil {
		return fmt.Errorf("failing pending payload %d: %w", writeID, err)
	}
	return nil
}

// GetPendingPayloads returns all uncommitted payloads for crash recovery.
func (s *DBService) GetPendingPayloads() ([]PendingWrite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT write_id, source, payload, status, created_at
		FROM pending_writes
		WHERE status = 'pending'
		ORDER BY write_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying pending payloads: %w", err)
	}
	defer rows.Close()

	var writes []PendingWrite
	for rows.Next() {
		var w PendingWrite
		if err := rows.Scan(&w.WriteID, &w.Source, &w.Payload, &w.Status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pending write: %w", err)
		}
		writes = append(writes, w)
	}
	return writes, rows.Err()
}

// Stats returns store-wide counters.
func (s *DBService) Stats() (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &StoreStats{}
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(points + lines + aux), 0),
			COALESCE(SUM(LENGTH(payload)), 0),
			COALESCE(MAX(updated_at), 0)
		FROM documents
	`).Scan(&st.Documents, &st.Entities, &st.PayloadBytes, &st.LastUpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("querying document stats: %w", err)
	}

	err = s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&st.Sessions)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	err = s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)
		FROM pending_writes
	`).Scan(&st.Pending, &st.Failed)
	if err != nil {
		return nil, fmt.Errorf("counting pending writes: %w", err)
	}

	return st, nil
}

// Close gracefully shuts down the database, closing all prepared statements
// and the underlying connection pool.
func (s *DBService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmts := []*sql.Stmt{
		s.stmtInsertDocument, s.stmtUpsertSession,
		s.stmtInsertPending, s.stmtCommitPending, s.stmtFailPending,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}

	return s.db.Close()
}

// ============================================================
// Scan Helpers
// ============================================================

func scanDocuments(rows *sql.Rows, withPayload bool) ([]*Document, error) {
	var docs []*Document
	for rows.Next() {
		d := &Document{}
		dest := []any{
			&d.DocID, &d.Name, &d.Source, &d.Title, &d.Checksum,
			&d.Points, &d.Lines, &d.Aux, &d.Frames, &d.CreatedAt, &d.UpdatedAt,
		}
		if withPayload {
			dest = append(dest, &d.Payload)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
