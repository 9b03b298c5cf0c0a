package adapters

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MockAdapter is a deterministic, offline runner. Like the real tool it
// changes the working directory to the installation root, then writes
// Outputs into OutputDir.
type MockAdapter struct {
	Message   string
	Outputs   map[string]string
	OutputDir string
	StartErr  error
	WaitErr   error

	// Requests records every request passed to Start.
	Requests []RunRequest
}

func (a *MockAdapter) Name() string {
	return "mock"
}

func (a *MockAdapter) Start(req RunRequest) (Run, error) {
	a.Requests = append(a.Requests, req)
	if a.StartErr != nil {
		return nil, a.StartErr
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.CasePath); err != nil {
		return nil, fmt.Errorf("stat case file: %w", err)
	}
	if err := os.Chdir(req.ToolRoot); err != nil {
		return nil, fmt.Errorf("chdir tool root: %w", err)
	}
	return &mockRun{adapter: a}, nil
}

type mockRun struct {
	adapter *MockAdapter
}

func (r *mockRun) Wait() error {
	a := r.adapter
	if len(a.Outputs) > 0 {
		if a.OutputDir == "" {
			return errors.New("mock output dir is required")
		}
		if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		for name, content := range a.Outputs {
			if err := os.WriteFile(filepath.Join(a.OutputDir, name), []byte(content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
		}
	}
	return a.WaitErr
}

func (r *mockRun) Message() string {
	if r.adapter.Message == "" {
		return "mock run completed"
	}
	return r.adapter.Message
}
