// Package state persists the run state of a workspace and serializes
// pipeline runs with an exclusive lock.
//
// The run state lives in .state/run.json and records the iteration count,
// the last successfully completed step, the lock flag, and per-slide
// content checksums. Every save is atomic (write-temp-then-rename), so a
// crash mid-iteration leaves the last committed state intact and a later
// run can resume from it.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/slidectl/slidectl/pkg/errors"
)

// RunStateVersion is the version tag written to run.json.
const RunStateVersion = "1.0"

// Pipeline step names.
const (
	StepIngest   = "ingest"
	StepInstruct = "instruct"
	StepBuild    = "build"
	StepRender   = "render"
	StepMeasure  = "measure"
	StepOptimize = "optimize"
	StepExport   = "export"
)

// Steps lists the pipeline step names in execution order. LastOK always
// holds one of these (or is empty before the first step completes).
var Steps = []string{
	StepIngest,
	StepInstruct,
	StepBuild,
	StepRender,
	StepMeasure,
	StepOptimize,
	StepExport,
}

// RunState is the persisted workspace run record.
type RunState struct {
	Version   string            `json:"version" bson:"version"`
	RunID     string            `json:"run_id" bson:"run_id"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" bson:"updated_at"`
	Steps     []string          `json:"steps" bson:"steps"`
	LastOK    string            `json:"last_ok,omitempty" bson:"last_ok,omitempty"`
	Iteration int               `json:"iteration" bson:"iteration"`
	Lock      bool              `json:"lock" bson:"lock"`
	Checksums map[string]string `json:"content_checksums,omitempty" bson:"content_checksums,omitempty"`
}

// newRunState creates a fresh run state with a new run ID.
func newRunState() *RunState {
	now := time.Now()
	return &RunState{
		Version:   RunStateVersion,
		RunID:     uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Steps:     append([]string(nil), Steps...),
		Iteration: 0,
		Checksums: map[string]string{},
	}
}

// Manager owns run.json and the workspace lock file within one state
// directory. It is not safe for concurrent use by multiple goroutines;
// cross-process exclusion is what the lock file is for.
type Manager struct {
	dir      string
	runFile  string
	lockFile string
}

// NewManager creates a manager for the given state directory
// (conventionally <workspace>/.state).
func NewManager(dir string) *Manager {
	return &Manager{
		dir:      dir,
		runFile:  filepath.Join(dir, "run.json"),
		lockFile: filepath.Join(dir, "lock"),
	}
}

// Initialize writes a fresh run.json, replacing any previous state.
func (m *Manager) Initialize() (*RunState, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return nil, err
	}
	st := newRunState()
	if err := m.save(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Exists reports whether run.json is present.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.runFile)
	return err == nil
}

// Load reads the current run state.
func (m *Manager) Load() (*RunState, error) {
	data, err := os.ReadFile(m.runFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "run state %s", m.runFile)
		}
		return nil, err
	}
	var st RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidState, err, "parse run state %s", m.runFile)
	}
	if st.Checksums == nil {
		st.Checksums = map[string]string{}
	}
	return &st, nil
}

// LoadOrInit loads the run state, creating a fresh one if none exists.
func (m *Manager) LoadOrInit() (*RunState, error) {
	if m.Exists() {
		return m.Load()
	}
	return m.Initialize()
}

// Save persists the run state, bumping UpdatedAt.
func (m *Manager) Save(st *RunState) error {
	st.UpdatedAt = time.Now()
	return m.save(st)
}

// save writes run.json atomically: marshal, write a temp file in the same
// directory, then rename over the target.
func (m *Manager) save(st *RunState) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.runFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, m.runFile)
}

// UpdateStep records a successfully completed step.
func (m *Manager) UpdateStep(step string) error {
	st, err := m.Load()
	if err != nil {
		return err
	}
	st.LastOK = step
	return m.Save(st)
}

// IncrementIteration bumps the iteration counter and returns the new value.
func (m *Manager) IncrementIteration() (int, error) {
	st, err := m.Load()
	if err != nil {
		return 0, err
	}
	st.Iteration++
	if err := m.Save(st); err != nil {
		return 0, err
	}
	return st.Iteration, nil
}

// ResetIteration sets the iteration counter back to zero.
func (m *Manager) ResetIteration() error {
	st, err := m.Load()
	if err != nil {
		return err
	}
	st.Iteration = 0
	return m.Save(st)
}

// SetChecksum records the content checksum for one slide's source markup.
// The controller uses an unchanged checksum to prove a slide's measurement
// can be reused.
func (m *Manager) SetChecksum(slideID, sum string) error {
	st, err := m.Load()
	if err != nil {
		return err
	}
	st.Checksums[slideID] = sum
	return m.Save(st)
}

// Reset discards run.json and the lock file. This is the explicit reset
// operation; nothing in the pipeline deletes state implicitly.
func (m *Manager) Reset() error {
	if err := os.Remove(m.runFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(m.lockFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
