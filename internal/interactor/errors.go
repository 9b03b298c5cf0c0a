package interactor

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrStagingExists is returned when the staging directory for a deck is
	// already present. Staged decks are never merged or overwritten.
	ErrStagingExists = fmt.Errorf("esther staging directory: %w", fs.ErrExist)

	ErrDeckNotFound = errors.New("esther input file not found")

	// ErrNoData is returned by Data until field data has been loaded, which
	// this version never does.
	ErrNoData = errors.New("no field data loaded")

	ErrNotSupported = errors.New("not supported")
)

// DeckNotFoundError reports a staged directory without the expected case file.
type DeckNotFoundError struct {
	Path string
}

func (e *DeckNotFoundError) Error() string {
	return fmt.Sprintf("esther input file %s not found", e.Path)
}

func (e *DeckNotFoundError) Is(target error) bool {
	return target == ErrDeckNotFound
}
