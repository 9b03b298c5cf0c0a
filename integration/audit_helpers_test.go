package integration_test

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func openAuditDB(t *testing.T, dbPath string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("open audit db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func requireAuditEvents(t *testing.T, dbPath string, want []string) {
	t.Helper()
	db := openAuditDB(t, dbPath)
	for _, eventType := range want {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM events WHERE type = ?", eventType).Scan(&count); err != nil {
			t.Fatalf("count audit event %s: %v", eventType, err)
		}
		if count == 0 {
			t.Fatalf("missing audit event %s in %s", eventType, dbPath)
		}
	}
}

// lastAuditPayload decodes the payload of the newest event of eventType.
func lastAuditPayload(t *testing.T, dbPath, eventType string) map[string]any {
	t.Helper()
	db := openAuditDB(t, dbPath)

	var raw string
	err := db.QueryRow("SELECT payload_json FROM events WHERE type = ? ORDER BY id DESC LIMIT 1", eventType).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing audit event %s in %s", eventType, dbPath)
	}
	if err != nil {
		t.Fatalf("query audit event %s: %v", eventType, err)
	}

	payload := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decode %s payload: %v", eventType, err)
	}
	return payload
}
