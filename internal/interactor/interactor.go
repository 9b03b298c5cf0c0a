// Package interactor drives the Esther radiation-hydrodynamics backengine.
//
// A run serializes the deck, stages it below ESTHER_ESTHER, starts Esther and
// waits for it, then copies the results back into the deck directory.
// SaveOutput converts those results into a single openPMD file.
package interactor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"esthersim/internal/adapters"
	"esthersim/internal/convert"
	"esthersim/internal/esther"
)

// Parameters serializes an Esther case into FilesPath/Filename.txt.
type Parameters interface {
	Serialize() error
	FilesPath() string
	Filename() string
	ForcePassage() bool
}

// StagingPolicy controls what happens to the staged deck directory below
// the Esther input tree.
type StagingPolicy int

const (
	// StagingRetain leaves the staged directory in place. A later run of a
	// deck with the same directory name fails until it is removed.
	StagingRetain StagingPolicy = iota
	// StagingRemoveOnSuccess removes the staged directory once results have
	// been copied back. Failed runs always keep it.
	StagingRemoveOnSuccess
)

// FieldData holds field data read back from an archival file.
type FieldData struct {
	Path string
}

// PhotonMatterInteractor runs one Esther simulation per RunBackengine call.
//
// Calls are not safe for concurrent use: the working directory is process
// global and Esther changes it while starting.
type PhotonMatterInteractor struct {
	Params    Parameters
	Layout    esther.Layout
	Runner    adapters.EstherRunner
	Converter convert.Converter
	// OutputPath is where SaveOutput moves the archival file. Empty leaves
	// it where the converter wrote it.
	OutputPath string
	Staging    StagingPolicy

	data *FieldData
}

// New returns an interactor for params. A zero layout root is resolved from
// ESTHER_ESTHER when the backengine runs.
func New(params Parameters, layout esther.Layout, runner adapters.EstherRunner, converter convert.Converter) *PhotonMatterInteractor {
	return &PhotonMatterInteractor{
		Params:    params,
		Layout:    layout,
		Runner:    runner,
		Converter: converter,
	}
}

// ExpectedData lists the datasets the interactor consumes. It needs none.
func (p *PhotonMatterInteractor) ExpectedData() []string {
	return nil
}

// ProvidedData lists the datasets the interactor produces. It declares none.
func (p *PhotonMatterInteractor) ProvidedData() []string {
	return nil
}

// RunBackengine runs Esther on the serialized parameters and returns the
// tool's completion message.
//
// The message is also returned alongside a runner error when the run
// started. Staged files are left behind on every failure.
func (p *PhotonMatterInteractor) RunBackengine() (string, error) {
	if p.Params == nil {
		return "", errors.New("parameters are required")
	}
	if p.Runner == nil {
		return "", errors.New("esther runner is required")
	}
	layout, err := p.resolveLayout()
	if err != nil {
		return "", err
	}

	if err := p.Params.Serialize(); err != nil {
		return "", fmt.Errorf("serialize parameters: %w", err)
	}
	deckDir, err := filepath.Abs(p.Params.FilesPath())
	if err != nil {
		return "", fmt.Errorf("resolve deck dir: %w", err)
	}

	stagedDir := layout.InputDeckDir(filepath.Base(deckDir))
	if err := copyTree(deckDir, stagedDir); err != nil {
		return "", err
	}

	casePath := filepath.Join(stagedDir, p.Params.Filename()+esther.CaseFileExt)
	if info, err := os.Stat(casePath); err != nil || !info.Mode().IsRegular() {
		return "", &DeckNotFoundError{Path: casePath}
	}

	var message string
	err = withWorkingDir(func() error {
		req := adapters.SingleRun(casePath, layout.Root, p.Params.ForcePassage())
		run, err := p.Runner.Start(req)
		if err != nil {
			return fmt.Errorf("start %s runner: %w", p.Runner.Name(), err)
		}
		waitErr := run.Wait()
		message = run.Message()
		if waitErr != nil {
			return fmt.Errorf("esther run: %w", waitErr)
		}
		return nil
	})
	if tErr := recoverTranscript(stagedDir, deckDir); tErr != nil {
		err = errors.Join(err, tErr)
	}
	if err != nil {
		return message, err
	}

	if err := copyFlat(layout.OutputStagingDir(), deckDir); err != nil {
		return message, err
	}

	if p.Staging == StagingRemoveOnSuccess {
		if err := os.RemoveAll(stagedDir); err != nil {
			return message, fmt.Errorf("remove staged deck: %w", err)
		}
	}
	return message, nil
}

// SaveOutput converts the results in the deck directory to an archival
// file and moves it to OutputPath when one is set. It returns the final
// location of the file.
func (p *PhotonMatterInteractor) SaveOutput() (string, error) {
	if p.Params == nil {
		return "", errors.New("parameters are required")
	}
	if p.Converter == nil {
		return "", errors.New("converter is required")
	}
	h5Path, err := p.Converter.Convert(p.Params.FilesPath())
	if err != nil {
		return "", fmt.Errorf("convert output: %w", err)
	}
	if p.OutputPath == "" {
		return h5Path, nil
	}
	return moveFile(h5Path, p.OutputPath)
}

// Data returns loaded field data, or ErrNoData. Nothing loads field data
// yet, so every call returns ErrNoData.
func (p *PhotonMatterInteractor) Data() (*FieldData, error) {
	if p.data == nil {
		return nil, ErrNoData
	}
	return p.data, nil
}

// ReadOutput would load field data from an archival file.
func (p *PhotonMatterInteractor) ReadOutput(path string) error {
	return fmt.Errorf("read %s: %w", path, ErrNotSupported)
}

func (p *PhotonMatterInteractor) resolveLayout() (esther.Layout, error) {
	layout := p.Layout
	switch {
	case layout == (esther.Layout{}):
		var err error
		if layout, err = esther.LayoutFromEnv(); err != nil {
			return esther.Layout{}, err
		}
	case layout.Root == "":
		root, err := esther.RootFromEnv()
		if err != nil {
			return esther.Layout{}, err
		}
		layout.Root = root
	}
	if err := layout.Validate(); err != nil {
		return esther.Layout{}, err
	}
	root, err := filepath.Abs(layout.Root)
	if err != nil {
		return esther.Layout{}, fmt.Errorf("resolve esther root: %w", err)
	}
	layout.Root = root
	return layout, nil
}

// recoverTranscript copies the runner transcript, if any, from the staged
// deck into the caller's deck directory.
func recoverTranscript(stagedDir, deckDir string) error {
	src := filepath.Join(stagedDir, adapters.TranscriptName)
	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat transcript: %w", err)
	}
	return copyFile(src, filepath.Join(deckDir, adapters.TranscriptName), info)
}
