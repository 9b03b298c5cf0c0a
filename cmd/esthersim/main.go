package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"esthersim/internal/audit"
	"esthersim/internal/config"
	"esthersim/internal/esther"
	"esthersim/internal/workspace"
)

const appName = "esthersim"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: Esther radiation-hydrodynamics runner\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init     Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  run      Run Esther on a deck")
		fmt.Fprintln(os.Stderr, "  save     Convert the results of a deck to openPMD")
		fmt.Fprintln(os.Stderr, "  deck     Write or diff decks")
		fmt.Fprintln(os.Stderr, "  history  Show recent audit events")
		fmt.Fprintln(os.Stderr, "  help     Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n  %s  Esther installation root (required for run)\n", esther.EnvRoot)
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	var cmdErr error
	switch args[0] {
	case "init":
		cmdErr = runInit(args[1:], workspacePath)
	case "run":
		cmdErr = runRun(args[1:], workspacePath)
	case "save":
		cmdErr = runSave(args[1:], workspacePath)
	case "deck":
		cmdErr = runDeck(args[1:], workspacePath)
	case "history":
		cmdErr = runHistory(args[1:], workspacePath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, cmdErr)
		os.Exit(1)
	}
}

type resolvedWorkspace struct {
	Workspace *workspace.Workspace
	Config    *config.Config
	Logger    *audit.Logger
}

func resolveWorkspace(root string, auditDB string) (*resolvedWorkspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(ws.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	dbPath := ws.AuditDBPath
	if auditDB != "" {
		dbPath, err = ws.ResolvePath(auditDB)
		if err != nil {
			return nil, fmt.Errorf("resolve --audit-db: %w", err)
		}
	}
	return &resolvedWorkspace{
		Workspace: ws,
		Config:    cfg,
		Logger:    audit.NewLogger(dbPath),
	}, nil
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	if err := logger.LogEvent("cli", "workspace_init_started", map[string]any{"workspace": ws.Root}); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	var finishErr error
	defer func() {
		finishPayload := map[string]any{
			"workspace": ws.Root,
		}
		if finishErr != nil {
			finishPayload["error"] = finishErr.Error()
		}
		_ = logger.LogEvent("cli", "workspace_init_finished", finishPayload)
	}()

	if err := ws.EnsureDirs(); err != nil {
		finishErr = err
		return finishErr
	}
	if _, err := os.Stat(ws.ConfigPath); os.IsNotExist(err) {
		if err := config.Write(ws.ConfigPath, config.Default()); err != nil {
			finishErr = err
			return finishErr
		}
	}
	if err := writeFileIfMissing(filepath.Join(ws.DecksDir, "example.yml"), exampleDeckTemplate); err != nil {
		finishErr = err
		return finishErr
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  export %s=/path/to/esther\n", esther.EnvRoot)
	fmt.Fprintf(os.Stdout, "  %s run --workspace %s --params decks/example.yml --save\n", appName, ws.Root)
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

const exampleDeckTemplate = `# Esther case. Lines under "deck" are written verbatim to <name>.txt.
name: example
force_passage: false
deck:
  - DEBUT_MATERIAU
  - MATERIAU Al
  - EPAISSEUR_COUCHE 10e-6
  - NOMBRE_MAILLES 200
  - FIN_MATERIAU
files: {}
`
