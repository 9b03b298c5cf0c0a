package adapters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stageCase(t *testing.T) (root, casePath string) {
	t.Helper()
	root = t.TempDir()
	deckDir := filepath.Join(root, "ESTHER_entrees", "SIMEX", "al_foil")
	if err := os.MkdirAll(deckDir, 0o755); err != nil {
		t.Fatalf("mkdir deck dir: %v", err)
	}
	casePath = filepath.Join(deckDir, "al_foil.txt")
	if err := os.WriteFile(casePath, []byte("DEBUT_MATERIAU\n"), 0o644); err != nil {
		t.Fatalf("write case file: %v", err)
	}
	return root, casePath
}

func TestSingleRunDefaults(t *testing.T) {
	req := SingleRun("/x/case.txt", "/x", true)
	if req.Multiple || req.NProcs != 1 || req.Comment != nil || req.RecoverOutputs {
		t.Fatalf("unexpected single run request %+v", req)
	}
	if req.Interval != DefaultInterval || !req.ForcePassage {
		t.Fatalf("unexpected single run request %+v", req)
	}
}

func TestExecAdapterMessageAndTranscript(t *testing.T) {
	root, casePath := stageCase(t)
	adapter := &ExecAdapter{
		Command: []string{"sh", "-c", `echo "root=$ESTHER_ESTHER"; echo "done $1 $2"`, "sh", "{deck_name}", "{nprocs}"},
	}

	run, err := adapter.Start(SingleRun(casePath, root, false))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := run.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got, want := run.Message(), "Esther run completed: done al_foil 1"; got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}

	transcript, err := os.ReadFile(filepath.Join(filepath.Dir(casePath), TranscriptName))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(transcript), "root="+root) {
		t.Fatalf("expected ESTHER_ESTHER in transcript, got %q", transcript)
	}

	// Wait is idempotent.
	if err := run.Wait(); err != nil {
		t.Fatalf("second wait: %v", err)
	}
}

func TestExecAdapterRunsInToolRoot(t *testing.T) {
	root, casePath := stageCase(t)
	adapter := &ExecAdapter{Command: []string{"sh", "-c", "pwd"}}

	run, err := adapter.Start(SingleRun(casePath, root, false))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := run.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	msg := run.Message()
	if !strings.HasSuffix(msg, root) && !strings.HasSuffix(msg, resolved) {
		t.Fatalf("expected run in %s, got %q", root, msg)
	}
}

func TestExecAdapterForceFlag(t *testing.T) {
	root, casePath := stageCase(t)
	adapter := &ExecAdapter{
		Command:   []string{"sh", "-c", `echo "args:$*"`, "sh"},
		ForceFlag: "--forcer-passage",
	}

	run, err := adapter.Start(SingleRun(casePath, root, true))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := run.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !strings.HasSuffix(run.Message(), "args:--forcer-passage") {
		t.Fatalf("expected force flag, got %q", run.Message())
	}
}

func TestExecAdapterFailure(t *testing.T) {
	root, casePath := stageCase(t)
	adapter := &ExecAdapter{Command: []string{"sh", "-c", "echo boom; exit 3"}}

	run, err := adapter.Start(SingleRun(casePath, root, false))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := run.Wait(); err == nil {
		t.Fatalf("expected wait error")
	}
	if got, want := run.Message(), "Esther run failed with exit code 3: boom"; got != want {
		t.Fatalf("Message = %q, want %q", got, want)
	}
}

func TestExecAdapterMissingBinary(t *testing.T) {
	root, casePath := stageCase(t)
	adapter := &ExecAdapter{Command: []string{"{root}/esth", "{deck}"}}
	if _, err := adapter.Start(SingleRun(casePath, root, false)); err == nil {
		t.Fatalf("expected start error for missing executable")
	}
}

func TestExecAdapterRejectsInvalidRequest(t *testing.T) {
	adapter := &ExecAdapter{Command: []string{"true"}}
	if _, err := adapter.Start(RunRequest{ToolRoot: "/x", NProcs: 1}); err == nil {
		t.Fatalf("expected error for missing case path")
	}
}

func TestMockAdapterWritesOutputs(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	testChdir(t, cwd)

	root, casePath := stageCase(t)
	outDir := filepath.Join(root, "ESTHER_sorties", "tmp_input", "stock_t_m")
	adapter := &MockAdapter{
		Message:   "OK",
		Outputs:   map[string]string{"al_foil_sorties.txt": "t rho\n"},
		OutputDir: outDir,
	}

	run, err := adapter.Start(SingleRun(casePath, root, false))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := run.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if run.Message() != "OK" {
		t.Fatalf("Message = %q", run.Message())
	}
	if _, err := os.Stat(filepath.Join(outDir, "al_foil_sorties.txt")); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if len(adapter.Requests) != 1 || adapter.Requests[0].CasePath != casePath {
		t.Fatalf("unexpected recorded requests %+v", adapter.Requests)
	}

	now, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if now == cwd {
		t.Fatalf("expected mock to change working directory")
	}
}
