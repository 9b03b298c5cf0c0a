// Package convert turns Esther text output into an archival openPMD file.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNoOutput is returned when a converter does not report an output file.
var ErrNoOutput = errors.New("converter produced no output path")

// Converter maps a deck directory holding Esther results to one archival file.
type Converter interface {
	Convert(dir string) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(dir string) (string, error)

func (f ConverterFunc) Convert(dir string) (string, error) {
	return f(dir)
}

// ExecConverter runs an external conversion helper.
//
// Command supports the {dir} and {name} placeholders. The helper must print
// the path of the produced file as the last non-empty line of stdout;
// relative paths are resolved against dir.
type ExecConverter struct {
	Command []string
}

func (c *ExecConverter) Convert(dir string) (string, error) {
	if len(c.Command) == 0 || strings.TrimSpace(c.Command[0]) == "" {
		return "", errors.New("converter command is required")
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve deck dir: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return "", fmt.Errorf("stat deck dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("deck dir is not a directory: %s", absDir)
	}

	replacer := strings.NewReplacer(
		"{dir}", absDir,
		"{name}", filepath.Base(absDir),
	)
	args := make([]string, len(c.Command))
	for i, arg := range c.Command {
		args[i] = replacer.Replace(arg)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = absDir
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("convert %s: %w\nstderr:\n%s", absDir, err, stderr.String())
	}

	outPath := lastNonEmptyLine(stdout.String())
	if outPath == "" {
		return "", ErrNoOutput
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(absDir, outPath)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("converter output: %w", err)
	}
	return outPath, nil
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
