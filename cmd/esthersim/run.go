package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"esthersim/internal/adapters"
	"esthersim/internal/config"
	"esthersim/internal/convert"
	"esthersim/internal/esther"
	"esthersim/internal/interactor"
	"esthersim/internal/notify"
	"esthersim/internal/params"
)

type runOptions struct {
	paramsPath   string
	runnerName   string
	output       string
	auditDB      string
	save         bool
	cleanStaging bool
	notify       bool
	verbose      bool
}

func runRun(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	opts := runOptions{}
	fs.StringVar(&opts.paramsPath, "params", "", "Path to deck YAML")
	fs.StringVar(&opts.runnerName, "runner", "exec", "Runner: exec or mock")
	fs.StringVar(&opts.output, "output", "", "Destination for the converted output (with --save)")
	fs.StringVar(&opts.auditDB, "audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	fs.BoolVar(&opts.save, "save", false, "Convert results to openPMD after the run")
	fs.BoolVar(&opts.cleanStaging, "clean-staging", false, "Remove the staged deck after a successful run")
	fs.BoolVar(&opts.notify, "notify", false, "Send a desktop notification when the run finishes")
	fs.BoolVar(&opts.verbose, "verbose", false, "Stream the Esther transcript to stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspace(workspacePath, opts.auditDB)
	if err != nil {
		return err
	}
	deck, err := loadDeck(resolved, opts.paramsPath)
	if err != nil {
		return err
	}
	root, err := esther.RootFromEnv()
	if err != nil {
		return err
	}
	layout := resolved.Config.Layout(root)

	runner, err := newRunner(opts, resolved.Config, layout, deck)
	if err != nil {
		return err
	}
	pmi := interactor.New(deck, layout, runner, &convert.ExecConverter{Command: resolved.Config.Converter.Command})
	if opts.cleanStaging || resolved.Config.Staging == config.StagingRemoveOnSuccess {
		pmi.Staging = interactor.StagingRemoveOnSuccess
	}
	if opts.output != "" {
		pmi.OutputPath, err = resolved.Workspace.ResolvePath(opts.output)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
	}

	logger := resolved.Logger
	startPayload := map[string]any{
		"workspace": resolved.Workspace.Root,
		"runner":    runner.Name(),
		"deck":      deck.Name,
		"deck_dir":  deck.FilesPath(),
		"staged":    layout.InputDeckDir(filepath.Base(deck.FilesPath())),
		"esther":    layout.Root,
	}
	if err := logger.LogEvent("cli", "backengine_started", startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	message, runErr := pmi.RunBackengine()

	finishPayload := map[string]any{
		"runner":  runner.Name(),
		"deck":    deck.Name,
		"message": message,
	}
	if runErr != nil {
		finishPayload["error"] = runErr.Error()
	}
	if err := logger.LogEvent("cli", "backengine_finished", finishPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	notifier := &notify.Notifier{Enabled: opts.notify}
	title, body := notify.FormatRunComplete(deck.Name, message, runErr)
	if err := notifier.Send(title, body); err != nil {
		fmt.Fprintln(os.Stderr, "notification failed:", err)
	}

	if message != "" {
		fmt.Fprintln(os.Stdout, message)
	}
	if runErr != nil {
		return runErr
	}
	if !opts.save {
		return nil
	}
	return saveOutput(resolved, pmi, deck, notifier)
}

func runSave(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	paramsPath := fs.String("params", "", "Path to deck YAML")
	output := fs.String("output", "", "Destination for the converted output (default: leave in deck dir)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	notifyFlag := fs.Bool("notify", false, "Send a desktop notification when the output is saved")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspace(workspacePath, *auditDB)
	if err != nil {
		return err
	}
	deck, err := loadDeck(resolved, *paramsPath)
	if err != nil {
		return err
	}
	pmi := interactor.New(deck, esther.Layout{}, nil, &convert.ExecConverter{Command: resolved.Config.Converter.Command})
	if *output != "" {
		pmi.OutputPath, err = resolved.Workspace.ResolvePath(*output)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
	}
	return saveOutput(resolved, pmi, deck, &notify.Notifier{Enabled: *notifyFlag})
}

func saveOutput(resolved *resolvedWorkspace, pmi *interactor.PhotonMatterInteractor, deck *params.Deck, notifier *notify.Notifier) error {
	logger := resolved.Logger
	startPayload := map[string]any{
		"deck":     deck.Name,
		"deck_dir": deck.FilesPath(),
		"output":   pmi.OutputPath,
	}
	if err := logger.LogEvent("cli", "output_save_started", startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	path, saveErr := pmi.SaveOutput()

	finishPayload := map[string]any{
		"deck": deck.Name,
		"path": path,
	}
	if saveErr != nil {
		finishPayload["error"] = saveErr.Error()
	}
	if err := logger.LogEvent("cli", "output_save_finished", finishPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	if saveErr != nil {
		return saveErr
	}
	title, body := notify.FormatOutputSaved(deck.Name, path)
	if err := notifier.Send(title, body); err != nil {
		fmt.Fprintln(os.Stderr, "notification failed:", err)
	}
	fmt.Fprintf(os.Stdout, "Saved output: %s\n", path)
	return nil
}

func newRunner(opts runOptions, cfg *config.Config, layout esther.Layout, deck *params.Deck) (adapters.EstherRunner, error) {
	switch opts.runnerName {
	case "exec":
		runner := &adapters.ExecAdapter{
			Command:   cfg.Runner.Command,
			ForceFlag: cfg.Runner.ForceFlag,
		}
		if opts.verbose {
			runner.Stdout = os.Stdout
		}
		return runner, nil
	case "mock":
		return &adapters.MockAdapter{
			Message: "mock run completed (no simulation executed)",
			Outputs: map[string]string{
				deck.Name + "_sorties.txt": "mock adapter: no simulation executed\n",
			},
			OutputDir: layout.OutputStagingDir(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown runner: %s", opts.runnerName)
	}
}

func loadDeck(resolved *resolvedWorkspace, paramsPath string) (*params.Deck, error) {
	if paramsPath == "" {
		return nil, fmt.Errorf("--params is required")
	}
	absPath, err := resolved.Workspace.ResolvePath(paramsPath)
	if err != nil {
		return nil, fmt.Errorf("resolve --params: %w", err)
	}
	return params.Load(absPath, resolved.Workspace.DecksDir)
}
