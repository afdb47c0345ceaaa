// Package workspace defines the on-disk layout of a slidectl workspace and
// resolves the fixed artifact paths the pipeline and its collaborators
// exchange files through.
//
// Layout under the workspace root:
//
//	config/            policy configuration
//	ingest/            normalized manuscript and structure JSON
//	instruct/          slide design instructions (generator output)
//	build/             slide markup and assets
//	build/assets/svg/  generated vector assets
//	render/            intermediate rendered output
//	optimize/          measurement and patch artifacts per iteration
//	report/            CSV and JSON reports
//	out/               final deliverables
//	.state/            run lock and run history
//	.logs/             execution logs
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/slidectl/slidectl/pkg/errors"
)

// Workspace resolves paths inside one workspace root.
type Workspace struct {
	Root string
}

// New creates a workspace handle for the given root. The root is made
// absolute so collaborator commands can run from any working directory.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Workspace{Root: abs}, nil
}

// Directory accessors.

func (w *Workspace) ConfigDir() string   { return filepath.Join(w.Root, "config") }
func (w *Workspace) IngestDir() string   { return filepath.Join(w.Root, "ingest") }
func (w *Workspace) InstructDir() string { return filepath.Join(w.Root, "instruct") }
func (w *Workspace) BuildDir() string    { return filepath.Join(w.Root, "build") }
func (w *Workspace) SVGAssetDir() string { return filepath.Join(w.Root, "build", "assets", "svg") }
func (w *Workspace) RenderDir() string   { return filepath.Join(w.Root, "render") }
func (w *Workspace) OptimizeDir() string { return filepath.Join(w.Root, "optimize") }
func (w *Workspace) ReportDir() string   { return filepath.Join(w.Root, "report") }
func (w *Workspace) OutDir() string      { return filepath.Join(w.Root, "out") }
func (w *Workspace) StateDir() string    { return filepath.Join(w.Root, ".state") }
func (w *Workspace) LogDir() string      { return filepath.Join(w.Root, ".logs") }

// Fixed artifact paths. Collaborators read and write these by contract:
// the measurement collaborator writes MeasureFile, the regeneration
// collaborator reads PatchFile, and the report writer owns the report dir.

func (w *Workspace) PolicyFile() string    { return filepath.Join(w.ConfigDir(), "policy.toml") }
func (w *Workspace) StructureFile() string { return filepath.Join(w.IngestDir(), "structure.json") }
func (w *Workspace) NormalizedFile() string {
	return filepath.Join(w.IngestDir(), "normalized.md")
}
func (w *Workspace) MeasureFile() string {
	return filepath.Join(w.OptimizeDir(), "measure.json")
}
func (w *Workspace) ScorecardFile() string {
	return filepath.Join(w.OptimizeDir(), "scorecard.json")
}
func (w *Workspace) PatchFile() string {
	return filepath.Join(w.OptimizeDir(), "patches.json")
}
func (w *Workspace) ReportCSVFile() string {
	return filepath.Join(w.ReportDir(), "report.csv")
}
func (w *Workspace) HistoryFile() string {
	return filepath.Join(w.ReportDir(), "history.jsonl")
}
func (w *Workspace) CacheDir() string {
	return filepath.Join(w.StateDir(), "cache")
}

// directories returns every directory the scaffold creates.
func (w *Workspace) directories() []string {
	return []string{
		w.ConfigDir(),
		w.IngestDir(),
		w.InstructDir(),
		w.BuildDir(),
		w.SVGAssetDir(),
		w.RenderDir(),
		w.OptimizeDir(),
		w.ReportDir(),
		w.OutDir(),
		w.StateDir(),
		w.LogDir(),
	}
}

// Initialize creates the workspace scaffold. Without force, an already
// scaffolded root is an error so a typo never silently merges two decks.
func (w *Workspace) Initialize(force bool) error {
	if w.Exists() && !force {
		return errors.New(errors.ErrCodeInvalidInput,
			"workspace already exists at %s (use --force to reuse it)", w.Root)
	}
	for _, dir := range w.directories() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists reports whether the root holds a workspace scaffold. An empty or
// unrelated directory is not a workspace.
func (w *Workspace) Exists() bool {
	info, err := os.Stat(w.ConfigDir())
	return err == nil && info.IsDir()
}

// Validate checks that every scaffold directory is present and returns
// the missing ones.
func (w *Workspace) Validate() (missing []string, err error) {
	if !w.Exists() {
		return nil, errors.New(errors.ErrCodeWorkspaceNotFound, "workspace not found at %s", w.Root)
	}
	for _, dir := range w.directories() {
		if info, serr := os.Stat(dir); serr != nil || !info.IsDir() {
			rel, rerr := filepath.Rel(w.Root, dir)
			if rerr != nil {
				rel = dir
			}
			missing = append(missing, rel)
		}
	}
	return missing, nil
}

// Rel converts an absolute path inside the workspace into a path relative
// to the workspace root. Collaborators receive workspace-relative paths so
// the workspace stays relocatable.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.Root, path)
	if err != nil {
		return path
	}
	return rel
}
