package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/workspace"
)

func scorecardFixture() *metrics.Scorecard {
	return &metrics.Scorecard{
		Version:   metrics.ScorecardVersion,
		Iteration: 2,
		Slides: []metrics.SlideMetrics{
			{SlideID: "s1", PageIndex: 0, Density: 0.12, WhitespaceRatio: 0.30},
			{SlideID: "s2", PageIndex: 1, Density: 0.45, WhitespaceRatio: 0.20, Overlaps: 1, Warnings: []string{metrics.WarnOverlap}},
		},
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()

	want := []string{"init", "ingest", "build", "measure", "optimize", "status", "report", "export", "serve", "cache", "completion"}
	have := map[string]bool{}
	for _, cmd := range root.Commands() {
		have[cmd.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil error", err: nil, want: ExitConverged},
		{name: "generic error", err: errors.New(errors.ErrCodeInternal, "boom"), want: ExitFailure},
		{name: "collaborator failure", err: errors.New(errors.ErrCodeCollaboratorFailed, "exit 2"), want: ExitCollaborator},
		{name: "collaborator timeout", err: errors.New(errors.ErrCodeCollaboratorTimeout, "hung"), want: ExitCollaborator},
		{name: "exhausted code", err: errors.New(errors.ErrCodeExhausted, "budget"), want: ExitExhausted},
		{name: "explicit exit error", err: &ExitError{Code: ExitExhausted, Message: "not converged"}, want: ExitExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOpenWorkspaceRequiresInit(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	c.wsPath = t.TempDir()

	_, err := c.openWorkspace()
	if err == nil {
		t.Fatal("openWorkspace() succeeded on an uninitialized directory")
	}
	if errors.GetCode(err) != errors.ErrCodeWorkspaceNotFound {
		t.Errorf("openWorkspace() error code = %v, want %v",
			errors.GetCode(err), errors.ErrCodeWorkspaceNotFound)
	}

	ws, err := workspace.New(c.wsPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Initialize(false); err != nil {
		t.Fatal(err)
	}

	opened, err := c.openWorkspace()
	if err != nil {
		t.Fatalf("openWorkspace() error = %v", err)
	}
	if opened.Root != ws.Root {
		t.Errorf("openWorkspace() root = %q, want %q", opened.Root, ws.Root)
	}
}

func TestInitCommandScaffoldsWorkspace(t *testing.T) {
	dir := t.TempDir()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs([]string{"init", "--ws", dir})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	if err := root.Execute(); err != nil {
		t.Fatalf("init command error = %v", err)
	}

	for _, sub := range []string{"config", "ingest", "optimize", "report", ".state"} {
		if _, err := os.Stat(filepath.Join(dir, sub)); err != nil {
			t.Errorf("init did not create %s: %v", sub, err)
		}
	}
}

func TestLoadPolicyUsesDefaultsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Initialize(false); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, log.InfoLevel)
	cfg, err := c.loadPolicy(ws)
	if err != nil {
		t.Fatalf("loadPolicy() error = %v", err)
	}
	if cfg.Optimize.MaxIterations != 3 {
		t.Errorf("default max_iterations = %d, want 3", cfg.Optimize.MaxIterations)
	}
}

func TestNewCacheBackends(t *testing.T) {
	dir := t.TempDir()
	ws, err := workspace.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Initialize(false); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, log.InfoLevel)

	for _, backend := range []string{"", "none", "file"} {
		cfg, err := c.loadPolicy(ws)
		if err != nil {
			t.Fatal(err)
		}
		cfg.Cache.Backend = backend
		store, err := c.newCache(context.Background(), cfg, ws)
		if err != nil {
			t.Errorf("newCache(%q) error = %v", backend, err)
			continue
		}
		if store == nil {
			t.Errorf("newCache(%q) returned nil", backend)
		}
	}

	cfg, err := c.loadPolicy(ws)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Cache.Backend = "bogus"
	if _, err := c.newCache(context.Background(), cfg, ws); err == nil {
		t.Error("newCache() accepted an unknown backend")
	}
}

func TestRenderScorecardTableMarksFailures(t *testing.T) {
	card := scorecardFixture()
	out := renderScorecardTable(card)
	for _, want := range []string{"s1", "s2", "overlap"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
