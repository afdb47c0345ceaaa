// Package cli implements the slidectl command-line interface.
package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/slidectl/slidectl/pkg/buildinfo"
	"github.com/slidectl/slidectl/pkg/cache"
	"github.com/slidectl/slidectl/pkg/config"
	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/history"
	"github.com/slidectl/slidectl/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "slidectl"

	// defaultServeAddr is the default listen address for the status server.
	defaultServeAddr = "127.0.0.1:8713"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Exit codes surfaced to the shell.
const (
	ExitConverged    = 0
	ExitFailure      = 1
	ExitCollaborator = 3
	ExitExhausted    = 6
	ExitInterrupted  = 130
)

// =============================================================================
// Exit Errors
// =============================================================================

// ExitError carries a specific process exit code alongside the message.
// main inspects it to distinguish exhaustion and collaborator failures
// from ordinary errors.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// ExitCode returns the exit code for err: an [ExitError]'s own code, a
// collaborator error code, or ExitFailure for everything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitConverged
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeCollaboratorFailed, errors.ErrCodeCollaboratorTimeout:
		return ExitCollaborator
	case errors.ErrCodeExhausted:
		return ExitExhausted
	}
	return ExitFailure
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// wsPath is the workspace root, set by the persistent --ws flag.
	wsPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "slidectl",
		Short:        "Slidectl measures slide decks and drives them to quality convergence",
		Long:         `Slidectl is a CLI tool that measures rendered slide geometry (density, whitespace, element overlap), emits deterministic correction patches for failing slides, and iterates with external regeneration and rendering tools until the deck converges or the iteration budget is spent.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.wsPath, "ws", ".", "workspace root directory")

	// Register all subcommands
	root.AddCommand(c.initCommand())
	root.AddCommand(c.ingestCommand())
	root.AddCommand(c.buildCommand())
	root.AddCommand(c.measureCommand())
	root.AddCommand(c.optimizeCommand())
	root.AddCommand(c.statusCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Workspace & Policy Loading
// =============================================================================

// openWorkspace resolves the --ws flag into a validated workspace.
func (c *CLI) openWorkspace() (*workspace.Workspace, error) {
	ws, err := workspace.New(c.wsPath)
	if err != nil {
		return nil, err
	}
	if !ws.Exists() {
		return nil, errors.New(errors.ErrCodeWorkspaceNotFound,
			"no workspace at %s; run 'slidectl init' first", ws.Root)
	}
	return ws, nil
}

// loadPolicy reads config/policy.toml, falling back to defaults when the
// file is absent.
func (c *CLI) loadPolicy(ws *workspace.Workspace) (*config.Config, error) {
	cfg, err := config.Load(ws.PolicyFile())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// Backend Factories
// =============================================================================

// newCache builds the measurement cache selected by the policy.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "", "none":
		return cache.NewNullCache(), nil
	case "file":
		return cache.NewFileCache(ws.CacheDir())
	case "redis":
		shared, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		// Scope keys by workspace so runs against different decks can share
		// one Redis server.
		return cache.NewScoped(shared, "slidectl:"+cache.Hash([]byte(ws.Root))[:12]+":"), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", cfg.Cache.Backend)
	}
}

// newHistory builds the scorecard archive selected by the policy.
func (c *CLI) newHistory(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) (history.Store, error) {
	switch cfg.History.Backend {
	case "", "none":
		return history.NewNullStore(), nil
	case "file":
		return history.NewFileStore(ws.HistoryFile()), nil
	case "mongo":
		return history.NewMongoStore(ctx, cfg.History.MongoURI, cfg.History.MongoDatabase)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown history backend %q", cfg.History.Backend)
	}
}

// closeQuietly closes a backend and logs instead of failing the command.
func (c *CLI) closeQuietly(ctx context.Context, name string, close func(context.Context) error) {
	if err := close(ctx); err != nil {
		c.Logger.Debug(fmt.Sprintf("failed to close %s", name), "error", err)
	}
}

// dropCtx adapts a context-free Close to the closeQuietly signature.
func dropCtx(close func() error) func(context.Context) error {
	return func(context.Context) error { return close() }
}
