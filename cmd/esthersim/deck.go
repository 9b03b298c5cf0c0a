package main

import (
	"flag"
	"fmt"
	"os"

	"esthersim/internal/params"
)

func runDeck(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s deck: missing subcommand", appName)
	}

	switch args[0] {
	case "write":
		return runDeckWrite(args[1:], workspacePath)
	case "diff":
		return runDeckDiff(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s deck: unknown subcommand %q", appName, args[0])
	}
}

func runDeckWrite(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("deck write", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	paramsPath := fs.String("params", "", "Path to deck YAML")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspace(workspacePath, "")
	if err != nil {
		return err
	}
	deck, err := loadDeck(resolved, *paramsPath)
	if err != nil {
		return err
	}
	if err := deck.Serialize(); err != nil {
		return err
	}
	payload := map[string]any{
		"deck": deck.Name,
		"path": deck.CasePath(),
	}
	if err := resolved.Logger.LogEvent("cli", "deck_written", payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	fmt.Fprintf(os.Stdout, "Wrote deck: %s\n", deck.CasePath())
	return nil
}

func runDeckDiff(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("deck diff", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%s deck diff: expected two deck files", appName)
	}

	resolved, err := resolveWorkspace(workspacePath, "")
	if err != nil {
		return err
	}
	a, err := loadDeck(resolved, fs.Arg(0))
	if err != nil {
		return err
	}
	b, err := loadDeck(resolved, fs.Arg(1))
	if err != nil {
		return err
	}
	diff, err := params.Diff(a, b)
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Fprintln(os.Stdout, "Decks are identical.")
		return nil
	}
	fmt.Fprint(os.Stdout, diff)
	return nil
}

func runHistory(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	limit := fs.Int("limit", 20, "Maximum number of events")
	eventType := fs.String("type", "", "Only show events whose type starts with this prefix")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspace(workspacePath, *auditDB)
	if err != nil {
		return err
	}
	events, err := resolved.Logger.Recent(*limit, *eventType)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\n", ev.Timestamp, ev.Type, ev.PayloadJSON)
	}
	return nil
}
