package params

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders a unified diff of the case files of a and b. Auxiliary files
// are compared too and appended as separate hunks. An empty string means the
// decks serialize identically.
func Diff(a, b *Deck) (string, error) {
	var diffStrings []string

	caseDiff, err := unified(a.Render(), b.Render(), a.Name+DeckExt, b.Name+DeckExt, labelFor(a), labelFor(b))
	if err != nil {
		return "", err
	}
	if caseDiff != "" {
		diffStrings = append(diffStrings, caseDiff)
	}

	for _, name := range auxNames(a, b) {
		auxDiff, err := unified(a.Files[name], b.Files[name], name, name, labelFor(a), labelFor(b))
		if err != nil {
			return "", err
		}
		if auxDiff != "" {
			diffStrings = append(diffStrings, auxDiff)
		}
	}
	return strings.Join(diffStrings, "\n"), nil
}

func unified(oldText, newText, oldName, newName, oldLabel, newLabel string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: filepath.Join(oldLabel, oldName),
		ToFile:   filepath.Join(newLabel, newName),
		Context:  3,
	}
	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", newName, err)
	}
	if strings.TrimSpace(diffText) == "" {
		return "", nil
	}
	return diffText, nil
}

func labelFor(d *Deck) string {
	if d.source != "" {
		return strings.TrimSuffix(filepath.Base(d.source), filepath.Ext(d.source))
	}
	return d.Name
}

func auxNames(a, b *Deck) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, files := range []map[string]string{a.Files, b.Files} {
		for name := range files {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
