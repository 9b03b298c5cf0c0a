package audit

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestLogEventAndRecent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit", "audit.sqlite")
	logger := NewLogger(dbPath)

	if err := logger.LogEvent("cli", "backengine_started", map[string]any{"deck": "al_foil"}); err != nil {
		t.Fatalf("log started: %v", err)
	}
	if err := logger.LogEvent("cli", "backengine_finished", map[string]any{"deck": "al_foil", "message": "OK"}); err != nil {
		t.Fatalf("log finished: %v", err)
	}
	if err := logger.LogEvent("cli", "output_save_finished", map[string]any{"path": "/tmp/out.h5"}); err != nil {
		t.Fatalf("log save: %v", err)
	}

	events, err := logger.Recent(10, "backengine_")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 backengine events, got %d", len(events))
	}
	if events[0].Type != "backengine_finished" || events[1].Type != "backengine_started" {
		t.Fatalf("expected newest first, got %s then %s", events[0].Type, events[1].Type)
	}
	if events[0].Timestamp == "" || events[0].Actor != "cli" {
		t.Fatalf("unexpected event %+v", events[0])
	}

	var payload map[string]string
	if err := json.Unmarshal([]byte(events[0].PayloadJSON), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["message"] != "OK" {
		t.Fatalf("unexpected payload %v", payload)
	}

	all, err := logger.Recent(1, "")
	if err != nil {
		t.Fatalf("recent all: %v", err)
	}
	if len(all) != 1 || all[0].Type != "output_save_finished" {
		t.Fatalf("unexpected limited result %+v", all)
	}
}

func TestDefaultPathFromEnv(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "env.sqlite")
	t.Setenv(EnvAuditDB, dbPath)

	if err := LogEvent("cli", "deck_written", map[string]any{}); err != nil {
		t.Fatalf("log event: %v", err)
	}
	events, err := NewLogger("").Recent(5, "deck_")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected event in env db, got %d", len(events))
	}
}

func TestRecentPrefixIsLiteral(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "audit.sqlite"))
	for _, eventType := range []string{"deck_written", "deckXwritten", "Deck_written", "deck%done"} {
		if err := logger.LogEvent("cli", eventType, map[string]any{}); err != nil {
			t.Fatalf("log %s: %v", eventType, err)
		}
	}

	cases := []struct {
		prefix string
		want   []string
	}{
		{"deck_", []string{"deck_written"}},
		{"deck%", []string{"deck%done"}},
		{"", []string{"deck%done", "Deck_written", "deckXwritten", "deck_written"}},
	}
	for _, tc := range cases {
		events, err := logger.Recent(10, tc.prefix)
		if err != nil {
			t.Fatalf("recent %q: %v", tc.prefix, err)
		}
		if len(events) != len(tc.want) {
			t.Fatalf("recent %q returned %d events, want %d", tc.prefix, len(events), len(tc.want))
		}
		for i, ev := range events {
			if ev.Type != tc.want[i] {
				t.Fatalf("recent %q event %d = %s, want %s", tc.prefix, i, ev.Type, tc.want[i])
			}
		}
	}
}
