package convergence

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/slidectl/slidectl/pkg/errors"
)

// Request describes one collaborator invocation. Paths are relative to the
// workspace root; the collaborator must write its output to OutputPath and
// exit zero on success.
type Request struct {
	// Name identifies the collaborator role (instruct, build, augment,
	// render, measure).
	Name string

	// InputPath is the artifact the collaborator consumes.
	InputPath string

	// OutputPath is the fixed path the collaborator must write.
	OutputPath string

	// Iteration is the current convergence iteration, starting at 1.
	Iteration int
}

// Result reports a completed invocation.
type Result struct {
	OutputPath string
	Duration   time.Duration
}

// Collaborator is an external system the controller invokes synchronously.
// Implementations are opaque capabilities: the controller never retries a
// failed call, and interprets any error as a terminal failure.
type Collaborator interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// CollaboratorFunc adapts a function to the Collaborator interface.
type CollaboratorFunc func(ctx context.Context, req Request) (Result, error)

// Run calls f.
func (f CollaboratorFunc) Run(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// ExecCollaborator runs a configured shell command in the workspace root.
//
// The command receives the input path, output path, and iteration counter
// as positional arguments, and the same values in SLIDECTL_INPUT,
// SLIDECTL_OUTPUT, and SLIDECTL_ITERATION. A non-zero exit maps to
// COLLABORATOR_FAILED; exceeding the timeout maps to COLLABORATOR_TIMEOUT.
type ExecCollaborator struct {
	Name    string
	Command string
	Dir     string
	Timeout time.Duration
	Logger  *log.Logger
}

// NewExecCollaborator creates a collaborator that shells out to command,
// running in dir with the given timeout.
func NewExecCollaborator(name, command, dir string, timeout time.Duration, logger *log.Logger) *ExecCollaborator {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &ExecCollaborator{
		Name:    name,
		Command: command,
		Dir:     dir,
		Timeout: timeout,
		Logger:  logger,
	}
}

// Run executes the configured command and waits for it to finish.
func (e *ExecCollaborator) Run(ctx context.Context, req Request) (Result, error) {
	if e.Command == "" {
		return Result{}, errors.New(errors.ErrCodeCollaboratorFailed,
			"no command configured for %s collaborator", e.Name)
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	iteration := strconv.Itoa(req.Iteration)

	// Arguments after the script become $0..$3, so commands can
	// reference $1 (input), $2 (output), and $3 (iteration) directly.
	cmd := exec.CommandContext(ctx, "sh", "-c", e.Command,
		e.Name, req.InputPath, req.OutputPath, iteration)
	cmd.Dir = e.Dir
	cmd.Env = append(os.Environ(),
		"SLIDECTL_INPUT="+req.InputPath,
		"SLIDECTL_OUTPUT="+req.OutputPath,
		"SLIDECTL_ITERATION="+iteration,
	)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	e.Logger.Debug("invoking collaborator",
		"name", e.Name, "input", req.InputPath, "output", req.OutputPath, "iteration", req.Iteration)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, errors.Wrap(errors.ErrCodeCollaboratorTimeout, err,
				"%s collaborator exceeded %s timeout", e.Name, e.Timeout)
		}
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			e.Logger.Debug("collaborator failed", "name", e.Name, "output", output.String())
			return Result{}, errors.Wrap(errors.ErrCodeCollaboratorFailed, err,
				"%s collaborator exited with code %d", e.Name, exitErr.ExitCode())
		}
		return Result{}, errors.Wrap(errors.ErrCodeCollaboratorFailed, err,
			"%s collaborator could not be started", e.Name)
	}

	return Result{OutputPath: req.OutputPath, Duration: elapsed}, nil
}

// Ensure implementations satisfy the interface.
var (
	_ Collaborator = (*ExecCollaborator)(nil)
	_ Collaborator = (CollaboratorFunc)(nil)
)
