package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `
tool:
  namespace: CUSTOM
runner:
  command: ["/opt/esther/esth", "{deck}"]
staging: remove_on_success
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Staging != StagingRemoveOnSuccess {
		t.Errorf("expected staging %s, got %s", StagingRemoveOnSuccess, cfg.Staging)
	}
	if cfg.Runner.Command[0] != "/opt/esther/esth" {
		t.Errorf("unexpected runner command %v", cfg.Runner.Command)
	}
	if cfg.Runner.ForceFlag != "--forcer-passage" {
		t.Errorf("expected default force flag, got %q", cfg.Runner.ForceFlag)
	}

	layout := cfg.Layout("/opt/esther")
	if layout.Namespace != "CUSTOM" {
		t.Errorf("expected namespace CUSTOM, got %s", layout.Namespace)
	}
	if layout.InputSubdir != "ESTHER_entrees" {
		t.Errorf("expected default input subdir, got %s", layout.InputSubdir)
	}
}

func TestLoadRejectsUnknownStaging(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("staging: shred\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown staging policy")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Staging != StagingRetain {
		t.Fatalf("expected default staging, got %s", cfg.Staging)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Write(path, Default()); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if len(cfg.Converter.Command) != 2 {
		t.Fatalf("unexpected converter command %v", cfg.Converter.Command)
	}
}
