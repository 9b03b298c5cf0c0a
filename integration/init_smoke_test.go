package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"esthersim/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")

	res := harness.Run(t, binPath, runDir, nil, "init", "--workspace", workspaceRoot)
	if res.Code != 0 {
		t.Fatalf("esthersim init exit code %d\n%s", res.Code, res.Output())
	}
	if !strings.Contains(res.Stdout, "Initialized workspace: "+workspaceRoot) {
		t.Fatalf("unexpected init output\n%s", res.Output())
	}

	paths := []string{
		filepath.Join(workspaceRoot, "decks"),
		filepath.Join(workspaceRoot, "outputs"),
		filepath.Join(workspaceRoot, "audit"),
		filepath.Join(workspaceRoot, "esthersim.yml"),
		filepath.Join(workspaceRoot, "decks", "example.yml"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing init path %s: %v", path, err)
		}
	}

	auditPath := filepath.Join(workspaceRoot, "audit", "audit.sqlite")
	if _, err := os.Stat(auditPath); err != nil {
		t.Fatalf("audit db not written at %s: %v", auditPath, err)
	}
	requireAuditEvents(t, auditPath, []string{
		"workspace_init_started",
		"workspace_init_finished",
	})
}

func TestInitKeepsExistingConfig(t *testing.T) {
	binPath := harness.BuildBinary(t)
	workspaceRoot := t.TempDir()
	custom := "staging: remove_on_success\n"
	harness.WriteFiles(t, workspaceRoot, map[string]string{"esthersim.yml": custom})

	res := harness.Run(t, binPath, t.TempDir(), nil, "init", "--workspace", workspaceRoot)
	if res.Code != 0 {
		t.Fatalf("esthersim init exit code %d\n%s", res.Code, res.Output())
	}
	data, err := os.ReadFile(filepath.Join(workspaceRoot, "esthersim.yml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != custom {
		t.Fatalf("init overwrote config:\n%s", data)
	}
}
