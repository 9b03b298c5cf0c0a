// Package audit records CLI activity in a SQLite event log.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultAuditPath = "audit/events.db"

// EnvAuditDB overrides the audit database used when no path is configured.
const EnvAuditDB = "ESTHERSIM_AUDIT_DB"

const defaultRecentLimit = 20

const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		actor TEXT NOT NULL,
		type TEXT NOT NULL,
		payload_json TEXT NOT NULL
	)
`

// Event is one recorded audit entry.
type Event struct {
	ID          int64
	Timestamp   string
	Actor       string
	Type        string
	PayloadJSON string
}

// Logger writes audit events to a specific SQLite DB path. A nil Logger or
// an empty DBPath falls back to ESTHERSIM_AUDIT_DB, then audit/events.db.
type Logger struct {
	DBPath string
}

func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath}
}

// LogEvent writes an audit event to the default log.
func LogEvent(actor string, eventType string, payload any) error {
	var l *Logger
	return l.LogEvent(actor, eventType, payload)
}

// LogEvent appends one event. payload is stored as JSON.
func (l *Logger) LogEvent(actor string, eventType string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	db, err := l.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	_, err = db.Exec(
		"INSERT INTO events (ts, actor, type, payload_json) VALUES (?, ?, ?, ?)",
		time.Now().UTC(),
		actor,
		eventType,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first. eventPrefix, when set,
// filters on the event type prefix.
func (l *Logger) Recent(limit int, eventPrefix string) ([]Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	db, err := l.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.Query(
		"SELECT id, ts, actor, type, payload_json FROM events WHERE substr(type, 1, length(?)) = ? ORDER BY id DESC LIMIT ?",
		eventPrefix,
		eventPrefix,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Actor, &ev.Type, &ev.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func (l *Logger) open() (*sql.DB, error) {
	dbPath := ""
	if l != nil {
		dbPath = l.DBPath
	}
	resolved, err := resolveDBPath(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return db, nil
}

func resolveDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		dbPath = os.Getenv(EnvAuditDB)
	}
	if dbPath == "" {
		dbPath = defaultAuditPath
	}
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure audit db dir: %w", err)
	}
	return absPath, nil
}
