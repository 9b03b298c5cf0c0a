package adapters

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"esthersim/internal/esther"
)

// TranscriptName is the file, next to the staged case file, that receives the
// tool's stdout and stderr.
const TranscriptName = "esther.log"

// ExecAdapter shells out to the Esther executable.
//
// Command is expanded per run. Supported placeholders: {root}, {deck},
// {deck_dir}, {deck_name}, {nprocs}, {interval_ms}.
type ExecAdapter struct {
	Command   []string
	ForceFlag string
	// Stdout, if set, also receives the transcript.
	Stdout io.Writer
}

func (a *ExecAdapter) Name() string {
	return "exec"
}

func (a *ExecAdapter) Start(req RunRequest) (Run, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(a.Command) == 0 || strings.TrimSpace(a.Command[0]) == "" {
		return nil, errors.New("esther command is required")
	}

	args := expandCommand(a.Command, req)
	if req.ForcePassage && a.ForceFlag != "" {
		args = append(args, a.ForceFlag)
	}

	transcriptPath := filepath.Join(filepath.Dir(req.CasePath), TranscriptName)
	transcriptFile, err := os.OpenFile(transcriptPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}

	var out io.Writer = transcriptFile
	if a.Stdout != nil {
		out = io.MultiWriter(transcriptFile, a.Stdout)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = req.ToolRoot
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = mergeEnv(os.Environ(), map[string]string{
		esther.EnvRoot: req.ToolRoot,
	})

	if err := cmd.Start(); err != nil {
		_ = transcriptFile.Close()
		return nil, fmt.Errorf("start %s: %w", args[0], err)
	}

	return &execRun{
		cmd:            cmd,
		transcript:     transcriptFile,
		transcriptPath: transcriptPath,
	}, nil
}

type execRun struct {
	cmd            *exec.Cmd
	transcript     *os.File
	transcriptPath string

	once    sync.Once
	waitErr error
	message string
}

func (r *execRun) Wait() error {
	r.once.Do(func() {
		r.waitErr = r.cmd.Wait()
		_ = r.transcript.Close()

		last := lastLine(r.transcriptPath)
		if r.waitErr != nil {
			r.message = fmt.Sprintf("Esther run failed with exit code %d", exitCodeFromError(r.waitErr))
		} else {
			r.message = "Esther run completed"
		}
		if last != "" {
			r.message += ": " + last
		}
	})
	return r.waitErr
}

func (r *execRun) Message() string {
	return r.message
}

func expandCommand(command []string, req RunRequest) []string {
	replacer := strings.NewReplacer(
		"{root}", req.ToolRoot,
		"{deck}", req.CasePath,
		"{deck_dir}", filepath.Dir(req.CasePath),
		"{deck_name}", strings.TrimSuffix(filepath.Base(req.CasePath), filepath.Ext(req.CasePath)),
		"{nprocs}", strconv.Itoa(req.NProcs),
		"{interval_ms}", strconv.FormatInt(req.Interval.Milliseconds(), 10),
	)
	args := make([]string, len(command))
	for i, arg := range command {
		args[i] = replacer.Replace(arg)
	}
	return args
}

func lastLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() {
		_ = f.Close()
	}()

	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	return last
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		key := entry
		if idx := strings.IndexByte(entry, '='); idx >= 0 {
			key = entry[:idx]
		}
		if _, ok := overrides[key]; ok {
			continue
		}
		merged = append(merged, entry)
	}
	for key, value := range overrides {
		merged = append(merged, fmt.Sprintf("%s=%s", key, value))
	}
	return merged
}

func exitCodeFromError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
