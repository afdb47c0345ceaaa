// Package convergence drives the measure/optimize/render loop until every
// slide passes its thresholds or the iteration budget runs out.
//
// The controller is a sequential state machine: each transition depends on
// the completed output of the previous step, so no two iterations ever run
// concurrently. External regeneration, rendering, and geometry probing are
// delegated to [Collaborator] implementations and treated as opaque,
// synchronous calls; a failed call terminates the run rather than being
// retried.
//
// The whole run is bracketed by the workspace lock and the persisted run
// state: the lock is acquired before any mutation and released on every
// exit path, and run.json is committed after each transition so a crash
// or cancellation leaves the last completed iteration intact.
package convergence

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/slidectl/slidectl/pkg/cache"
	"github.com/slidectl/slidectl/pkg/config"
	"github.com/slidectl/slidectl/pkg/errors"
	"github.com/slidectl/slidectl/pkg/history"
	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/observability"
	"github.com/slidectl/slidectl/pkg/patch"
	"github.com/slidectl/slidectl/pkg/state"
	"github.com/slidectl/slidectl/pkg/workspace"
)

// =============================================================================
// States
// =============================================================================

// State is one controller state.
type State string

const (
	StateMeasure  State = "MEASURE"
	StateDecide   State = "DECIDE"
	StateOptimize State = "OPTIMIZE"
	StateAugment  State = "AUGMENT"
	StateRender   State = "RENDER"

	// Terminal states.
	StateConverged State = "CONVERGED" // every slide passes
	StateExhausted State = "EXHAUSTED" // iteration budget spent, slides still failing
	StateFailed    State = "FAILED"    // collaborator or measurement failure
)

// Terminal reports whether the state ends the run.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateExhausted || s == StateFailed
}

// Outcome is the final result of a run.
type Outcome struct {
	State     State
	Iteration int
	// Scorecard is the last completed measurement. Set for CONVERGED and
	// EXHAUSTED; may be nil for FAILED when measurement itself failed.
	Scorecard *metrics.Scorecard
}

// =============================================================================
// Controller
// =============================================================================

// Controller owns one convergence run over a workspace.
type Controller struct {
	ws        *workspace.Workspace
	cfg       *config.Config
	agg       *metrics.Aggregator
	gen       *patch.Generator
	states    *state.Manager
	archive   history.Store
	augmenter Collaborator
	renderer  Collaborator
	measurer  Collaborator
	logger    *log.Logger
}

// Options configures a controller. Workspace and Config are required; nil
// collaborators are built from the configured commands, and a nil History
// store disables archiving.
type Options struct {
	Workspace *workspace.Workspace
	Config    *config.Config
	Cache     cache.Cache
	History   history.Store
	Augmenter Collaborator
	Renderer  Collaborator
	Measurer  Collaborator
	Logger    *log.Logger
}

// New creates a controller for the given workspace and policy.
func New(opts Options) (*Controller, error) {
	if opts.Workspace == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "workspace is required")
	}
	if opts.Config == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	agg := metrics.NewAggregator(opts.Config.MetricThresholds(), opts.Cache, logger)
	agg.Epsilon = opts.Config.Optimize.OverlapEpsilon
	if opts.Config.Optimize.Workers > 0 {
		agg.Workers = opts.Config.Optimize.Workers
	}

	archive := opts.History
	if archive == nil {
		archive = history.NewNullStore()
	}

	augmenter := opts.Augmenter
	if augmenter == nil {
		augmenter = NewExecCollaborator("augment", opts.Config.Commands.Augment,
			opts.Workspace.Root, opts.Config.Commands.Timeout(), logger)
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = NewExecCollaborator("render", opts.Config.Commands.Render,
			opts.Workspace.Root, opts.Config.Commands.Timeout(), logger)
	}
	measurer := opts.Measurer
	if measurer == nil {
		measurer = NewExecCollaborator("measure", opts.Config.Commands.Measure,
			opts.Workspace.Root, opts.Config.Commands.Timeout(), logger)
	}

	return &Controller{
		ws:        opts.Workspace,
		cfg:       opts.Config,
		agg:       agg,
		gen:       patch.NewGenerator(opts.Config.MetricThresholds()),
		states:    state.NewManager(opts.Workspace.StateDir()),
		archive:   archive,
		augmenter: augmenter,
		renderer:  renderer,
		measurer:  measurer,
		logger:    logger,
	}, nil
}

// Run executes the state machine until a terminal state is reached.
//
// The workspace lock is acquired first and released on every exit path,
// including cancellation. An EXHAUSTED outcome is not an error: the best
// available scorecard is still returned so callers can report it.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	if err := c.states.Lock(); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.states.Unlock(); err != nil {
			c.logger.Error("failed to release workspace lock", "error", err)
		}
	}()

	runState, err := c.states.LoadOrInit()
	if err != nil {
		return nil, err
	}
	if err := c.states.ResetIteration(); err != nil {
		return nil, err
	}

	c.logger.Info("starting convergence run",
		"run_id", runState.RunID,
		"max_iterations", c.cfg.Optimize.MaxIterations)

	outcome, err := c.loop(ctx, runState.RunID)
	if outcome != nil {
		observability.Convergence().OnTerminal(ctx, string(outcome.State), outcome.Iteration, err)
	}
	return outcome, err
}

// loop runs the transitions. Only terminal states return.
func (c *Controller) loop(ctx context.Context, runID string) (*Outcome, error) {
	var (
		iteration int
		cur       = StateMeasure
		card      *metrics.Scorecard
		slides    []metrics.SlideGeometry
	)

	fail := func(err error) (*Outcome, error) {
		return &Outcome{State: StateFailed, Iteration: iteration, Scorecard: card}, err
	}

	for {
		if err := ctx.Err(); err != nil {
			// Cancellation leaves run.json at its last committed values.
			return fail(errors.Wrap(errors.ErrCodeInternal, err, "run cancelled"))
		}

		switch cur {
		case StateMeasure:
			n, err := c.states.IncrementIteration()
			if err != nil {
				return fail(err)
			}
			iteration = n
			observability.Convergence().OnIterationStart(ctx, iteration)
			c.logger.Info("measuring slides", "iteration", iteration)

			card, slides, err = c.measure(ctx, runID, iteration)
			if err != nil {
				return fail(err)
			}
			cur = StateDecide

		case StateDecide:
			failing := len(card.Failing())
			switch {
			case failing == 0:
				c.logger.Info("all slides pass", "iteration", iteration)
				return &Outcome{State: StateConverged, Iteration: iteration, Scorecard: card}, nil
			case iteration >= c.cfg.Optimize.MaxIterations:
				c.logger.Warn("iteration budget exhausted",
					"iteration", iteration, "failing", failing)
				return &Outcome{State: StateExhausted, Iteration: iteration, Scorecard: card}, nil
			default:
				c.logger.Info("slides still failing",
					"iteration", iteration, "failing", failing)
				cur = StateOptimize
			}

		case StateOptimize:
			ps := c.gen.Build(card, slides)
			if ps.Empty() {
				// Every remaining warning is informational; nothing a
				// patch could improve.
				return &Outcome{State: StateConverged, Iteration: iteration, Scorecard: card}, nil
			}
			if err := patch.Save(c.ws.PatchFile(), ps); err != nil {
				return fail(err)
			}
			observability.Convergence().OnPatchEmitted(ctx, iteration, len(ps.Patches))
			if err := c.states.UpdateStep(state.StepOptimize); err != nil {
				return fail(err)
			}
			c.logger.Info("patches emitted", "iteration", iteration, "patches", len(ps.Patches))
			cur = StateAugment

		case StateAugment:
			req := Request{
				Name:       "augment",
				InputPath:  c.ws.Rel(c.ws.PatchFile()),
				OutputPath: c.ws.Rel(c.ws.BuildDir()),
				Iteration:  iteration,
			}
			if err := c.collaborate(ctx, c.augmenter, req); err != nil {
				return fail(err)
			}
			if err := c.states.UpdateStep(state.StepBuild); err != nil {
				return fail(err)
			}
			cur = StateRender

		case StateRender:
			req := Request{
				Name:       "render",
				InputPath:  c.ws.Rel(c.ws.BuildDir()),
				OutputPath: c.ws.Rel(c.ws.RenderDir()),
				Iteration:  iteration,
			}
			if err := c.collaborate(ctx, c.renderer, req); err != nil {
				return fail(err)
			}
			if err := c.states.UpdateStep(state.StepRender); err != nil {
				return fail(err)
			}
			// The probe turns the rendered output back into geometry for
			// the next measurement.
			probe := Request{
				Name:       "measure",
				InputPath:  c.ws.Rel(c.ws.RenderDir()),
				OutputPath: c.ws.Rel(c.ws.MeasureFile()),
				Iteration:  iteration,
			}
			if err := c.collaborate(ctx, c.measurer, probe); err != nil {
				return fail(err)
			}
			cur = StateMeasure

		default:
			return fail(errors.New(errors.ErrCodeInternal, "unexpected controller state %q", cur))
		}
	}
}

// measure loads the rendered geometry, computes the scorecard, and commits
// all per-iteration artifacts: scorecard file, history record, slide
// checksums, and the run-state step.
func (c *Controller) measure(ctx context.Context, runID string, iteration int) (*metrics.Scorecard, []metrics.SlideGeometry, error) {
	start := time.Now()

	slides, err := metrics.LoadSlides(c.ws.MeasureFile())
	if err != nil {
		observability.Convergence().OnMeasureComplete(ctx, iteration, 0, 0, time.Since(start), err)
		return nil, nil, err
	}

	card, err := c.agg.Scorecard(ctx, slides, iteration)
	if err != nil {
		observability.Convergence().OnMeasureComplete(ctx, iteration, len(slides), 0, time.Since(start), err)
		return nil, nil, err
	}
	observability.Convergence().OnMeasureComplete(ctx, iteration, len(slides), len(card.Failing()), time.Since(start), nil)

	if err := metrics.SaveScorecard(c.ws.ScorecardFile(), card); err != nil {
		return nil, nil, err
	}
	if err := c.archive.Append(ctx, history.Record{
		RunID:      runID,
		Workspace:  c.ws.Root,
		Iteration:  iteration,
		RecordedAt: time.Now().UTC(),
		Scorecard:  card,
	}); err != nil {
		// Archiving is advisory; a broken archive must not fail the run.
		c.logger.Warn("failed to archive scorecard", "error", err)
	}
	if err := c.recordChecksums(slides); err != nil {
		return nil, nil, err
	}
	if err := c.states.UpdateStep(state.StepMeasure); err != nil {
		return nil, nil, err
	}
	return card, slides, nil
}

// recordChecksums stores a content hash per slide so unchanged slides can
// be recognized on the next iteration.
func (c *Controller) recordChecksums(slides []metrics.SlideGeometry) error {
	for _, s := range slides {
		data, err := json.Marshal(s)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "checksum slide %s", s.SlideID)
		}
		if err := c.states.SetChecksum(s.SlideID, cache.Hash(data)); err != nil {
			return err
		}
	}
	return nil
}

// collaborate runs one collaborator call with observability bracketing.
func (c *Controller) collaborate(ctx context.Context, co Collaborator, req Request) error {
	observability.Collaborator().OnCollaboratorStart(ctx, req.Name, req.Iteration)
	start := time.Now()
	_, err := co.Run(ctx, req)
	observability.Collaborator().OnCollaboratorComplete(ctx, req.Name, req.Iteration, time.Since(start), err)
	if err != nil {
		c.logger.Error("collaborator failed", "name", req.Name, "iteration", req.Iteration, "error", err)
	}
	return err
}
