// Package esther describes the on-disk protocol shared with an Esther installation.
package esther

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvRoot names the environment variable holding the Esther installation root.
const EnvRoot = "ESTHER_ESTHER"

const (
	DefaultInputSubdir    = "ESTHER_entrees"
	DefaultNamespace      = "SIMEX"
	DefaultOutputSubdir   = "ESTHER_sorties"
	DefaultOutputRunDir   = "tmp_input"
	DefaultOutputStockDir = "stock_t_m"
)

// CaseFileExt is the extension Esther expects on case files.
const CaseFileExt = ".txt"

// ErrRootNotSet is returned when ESTHER_ESTHER is missing or blank.
var ErrRootNotSet = errors.New(EnvRoot + " is not set")

// Layout defines the directories Esther reads decks from and writes results to.
type Layout struct {
	Root           string
	InputSubdir    string
	Namespace      string
	OutputSubdir   string
	OutputRunDir   string
	OutputStockDir string
}

// DefaultLayout returns the stock layout rooted at root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:           root,
		InputSubdir:    DefaultInputSubdir,
		Namespace:      DefaultNamespace,
		OutputSubdir:   DefaultOutputSubdir,
		OutputRunDir:   DefaultOutputRunDir,
		OutputStockDir: DefaultOutputStockDir,
	}
}

// LayoutFromEnv resolves the installation root from ESTHER_ESTHER.
func LayoutFromEnv() (Layout, error) {
	root, err := RootFromEnv()
	if err != nil {
		return Layout{}, err
	}
	return DefaultLayout(root), nil
}

// RootFromEnv returns the absolute installation root named by ESTHER_ESTHER.
func RootFromEnv() (string, error) {
	root := strings.TrimSpace(os.Getenv(EnvRoot))
	if root == "" {
		return "", ErrRootNotSet
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", EnvRoot, err)
	}
	return abs, nil
}

// Validate reports missing layout fields.
func (l Layout) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"root", l.Root},
		{"input_subdir", l.InputSubdir},
		{"namespace", l.Namespace},
		{"output_subdir", l.OutputSubdir},
		{"output_run_dir", l.OutputRunDir},
		{"output_stock_dir", l.OutputStockDir},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("esther layout missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// InputDir is the namespace directory Esther scans for SIMEX decks.
func (l Layout) InputDir() string {
	return filepath.Join(l.Root, l.InputSubdir, l.Namespace)
}

// InputDeckDir is where a deck directory named name is staged.
func (l Layout) InputDeckDir(name string) string {
	return filepath.Join(l.InputDir(), name)
}

// OutputStagingDir holds the flat set of result files of the last run.
func (l Layout) OutputStagingDir() string {
	return filepath.Join(l.Root, l.OutputSubdir, l.OutputRunDir, l.OutputStockDir)
}
