package adapters

import (
	"errors"
	"strings"
	"time"
)

// DefaultInterval is the progress polling interval handed to Esther.
const DefaultInterval = 1000 * time.Millisecond

// EstherRunner starts an Esther simulation for a staged case file.
type EstherRunner interface {
	Name() string
	Start(req RunRequest) (Run, error)
}

// Run is the handle of a started simulation.
type Run interface {
	// Wait blocks until the simulation exits. There is no timeout.
	Wait() error
	// Message is the completion message reported by the tool. It is only
	// meaningful after Wait returns.
	Message() string
}

// RunRequest configures one Esther invocation.
type RunRequest struct {
	CasePath       string
	ToolRoot       string
	Multiple       bool
	NProcs         int
	ForcePassage   bool
	Comment        *string
	Interval       time.Duration
	RecoverOutputs bool
}

// SingleRun returns the request used for a single-process, single-case run.
func SingleRun(casePath, toolRoot string, forcePassage bool) RunRequest {
	return RunRequest{
		CasePath:       casePath,
		ToolRoot:       toolRoot,
		Multiple:       false,
		NProcs:         1,
		ForcePassage:   forcePassage,
		Comment:        nil,
		Interval:       DefaultInterval,
		RecoverOutputs: false,
	}
}

func (r RunRequest) validate() error {
	if strings.TrimSpace(r.CasePath) == "" {
		return errors.New("case path is required")
	}
	if strings.TrimSpace(r.ToolRoot) == "" {
		return errors.New("tool root is required")
	}
	if r.NProcs < 1 {
		return errors.New("nprocs must be at least 1")
	}
	return nil
}
