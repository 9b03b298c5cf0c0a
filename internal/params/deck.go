// Package params holds the YAML-backed Esther input deck.
package params

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"esthersim/internal/esther"
)

const DeckExt = esther.CaseFileExt

// Deck describes one Esther case: the lines of the case file plus optional
// auxiliary files written next to it.
type Deck struct {
	Name  string            `yaml:"name"`
	Dir   string            `yaml:"files_path"`
	Force bool              `yaml:"force_passage"`
	Lines []string          `yaml:"deck"`
	Files map[string]string `yaml:"files"`

	source string
}

// Load reads a deck file. A relative files_path resolves against the deck
// file's directory; an empty one defaults to <decksDir>/<name>.
func Load(path, decksDir string) (*Deck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck: %w", err)
	}
	deck, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := deck.resolveDir(filepath.Dir(path), decksDir); err != nil {
		return nil, err
	}
	return deck, nil
}

// Parse decodes and validates deck YAML. source is only used in error messages.
func Parse(data []byte, source string) (*Deck, error) {
	var deck Deck
	if err := yaml.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}
	deck.source = source
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Validate checks the fields required to serialize the deck.
func (d *Deck) Validate() error {
	var problems []string
	name := strings.TrimSpace(d.Name)
	switch {
	case name == "":
		problems = append(problems, "name is required")
	case name != d.Name:
		problems = append(problems, fmt.Sprintf("name %q must not have leading or trailing spaces", d.Name))
	case !isPlainName(name):
		problems = append(problems, fmt.Sprintf("name %q must not contain path separators", d.Name))
	}
	if len(d.Lines) == 0 {
		problems = append(problems, "deck must contain at least one line")
	}
	for fileName := range d.Files {
		if !isPlainName(fileName) {
			problems = append(problems, fmt.Sprintf("file name %q must not contain path separators", fileName))
		}
		if fileName == d.Name+DeckExt {
			problems = append(problems, fmt.Sprintf("file %q collides with the case file", fileName))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	source := d.source
	if source == "" {
		source = "deck"
	}
	return fmt.Errorf("%s: %s", source, strings.Join(problems, "; "))
}

func (d *Deck) resolveDir(baseDir, decksDir string) error {
	dir := strings.TrimSpace(d.Dir)
	if dir == "" {
		if decksDir == "" {
			return fmt.Errorf("%s: files_path is required", d.source)
		}
		dir = filepath.Join(decksDir, d.Name)
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve files_path: %w", err)
	}
	d.Dir = abs
	return nil
}

// Render returns the case file contents.
func (d *Deck) Render() string {
	var b strings.Builder
	for _, line := range d.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Serialize writes the case file and the auxiliary files into FilesPath.
func (d *Deck) Serialize() error {
	if d.Dir == "" {
		return fmt.Errorf("deck %s has no files_path", d.Name)
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create deck dir: %w", err)
	}
	casePath := filepath.Join(d.Dir, d.Name+DeckExt)
	if err := os.WriteFile(casePath, []byte(d.Render()), 0o644); err != nil {
		return fmt.Errorf("write case file: %w", err)
	}
	names := make([]string, 0, len(d.Files))
	for name := range d.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(d.Dir, name), []byte(d.Files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (d *Deck) FilesPath() string  { return d.Dir }
func (d *Deck) Filename() string   { return d.Name }
func (d *Deck) ForcePassage() bool { return d.Force }

// CasePath is the path of the serialized case file.
func (d *Deck) CasePath() string {
	return filepath.Join(d.Dir, d.Name+DeckExt)
}

func isPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
