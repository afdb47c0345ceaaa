package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/slidectl/slidectl/pkg/convergence"
	"github.com/slidectl/slidectl/pkg/metrics"
	"github.com/slidectl/slidectl/pkg/observability"
)

// =============================================================================
// Messages
// =============================================================================

type iterationStartMsg struct{ iteration int }

type measureDoneMsg struct {
	iteration int
	slides    int
	failing   int
	err       error
}

type patchMsg struct {
	iteration int
	patches   int
}

type collaboratorMsg struct {
	name    string
	running bool
	err     error
}

type runDoneMsg struct {
	outcome *convergence.Outcome
	err     error
}

type tickMsg time.Time

// =============================================================================
// OptimizeModel - Live convergence view
// =============================================================================

// OptimizeModel is the bubbletea model for the live optimize view. It mirrors
// the controller's progress: current iteration, the running collaborator,
// and the latest scorecard.
type OptimizeModel struct {
	MaxIterations int
	Scorecard     func() *metrics.Scorecard // reads the latest scorecard artifact

	iteration int
	activity  string
	card      *metrics.Scorecard
	outcome   *convergence.Outcome
	err       error
	frame     int
	quitting  bool
}

// NewOptimizeModel creates the live view. loadScorecard is called after each
// measurement to pick up the freshly written scorecard.
func NewOptimizeModel(maxIterations int, loadScorecard func() *metrics.Scorecard) OptimizeModel {
	return OptimizeModel{
		MaxIterations: maxIterations,
		Scorecard:     loadScorecard,
		activity:      "starting",
	}
}

func tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m OptimizeModel) Init() tea.Cmd {
	return tick()
}

func (m OptimizeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.frame++
		if m.outcome != nil || m.err != nil {
			return m, tea.Quit
		}
		return m, tick()
	case iterationStartMsg:
		m.iteration = msg.iteration
		m.activity = "measuring"
	case measureDoneMsg:
		if msg.err == nil && m.Scorecard != nil {
			m.card = m.Scorecard()
		}
		m.activity = "deciding"
	case patchMsg:
		m.activity = fmt.Sprintf("%d patches emitted", msg.patches)
	case collaboratorMsg:
		if msg.running {
			m.activity = "running " + msg.name
		} else if msg.err == nil {
			m.activity = msg.name + " finished"
		}
	case runDoneMsg:
		m.outcome = msg.outcome
		m.err = msg.err
	}
	return m, nil
}

var tuiFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m OptimizeModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(StyleTitle.Render("slidectl optimize"))
	b.WriteString("\n\n")

	if m.iteration > 0 {
		b.WriteString(fmt.Sprintf("iteration %s of %d\n",
			StyleHighlight.Render(fmt.Sprintf("%d", m.iteration)), m.MaxIterations))
	}

	switch {
	case m.err != nil:
		b.WriteString(StyleError.Render(iconError+" "+m.err.Error()) + "\n")
	case m.outcome != nil:
		line := fmt.Sprintf("%s %s after %d iteration(s)", iconSuccess, m.outcome.State, m.outcome.Iteration)
		if m.outcome.State == convergence.StateConverged {
			b.WriteString(StyleSuccess.Render(line) + "\n")
		} else {
			b.WriteString(StyleWarning.Render(line) + "\n")
		}
	default:
		spin := styleIconSpinner.Render(tuiFrames[m.frame%len(tuiFrames)])
		b.WriteString(spin + " " + StyleDim.Render(m.activity) + "\n")
	}

	if m.card != nil {
		b.WriteString("\n")
		b.WriteString(renderScorecardTable(m.card))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// Hook Bridge
// =============================================================================

// tuiHooks forwards controller events into the bubbletea program.
type tuiHooks struct {
	program *tea.Program
}

func (h *tuiHooks) OnIterationStart(_ context.Context, iteration int) {
	h.program.Send(iterationStartMsg{iteration: iteration})
}

func (h *tuiHooks) OnMeasureComplete(_ context.Context, iteration, slides, failing int, _ time.Duration, err error) {
	h.program.Send(measureDoneMsg{iteration: iteration, slides: slides, failing: failing, err: err})
}

func (h *tuiHooks) OnPatchEmitted(_ context.Context, iteration, patches int) {
	h.program.Send(patchMsg{iteration: iteration, patches: patches})
}

func (h *tuiHooks) OnTerminal(context.Context, string, int, error) {}

func (h *tuiHooks) OnCollaboratorStart(_ context.Context, name string, _ int) {
	h.program.Send(collaboratorMsg{name: name, running: true})
}

func (h *tuiHooks) OnCollaboratorComplete(_ context.Context, name string, _ int, _ time.Duration, err error) {
	h.program.Send(collaboratorMsg{name: name, err: err})
}

// runOptimizeTUI drives a controller run behind the live view. The view
// exits when the run reaches a terminal state or the user interrupts.
func runOptimizeTUI(ctx context.Context, ctrl *convergence.Controller, maxIterations int, loadScorecard func() *metrics.Scorecard) (*convergence.Outcome, error) {
	model := NewOptimizeModel(maxIterations, loadScorecard)
	program := tea.NewProgram(model, tea.WithContext(ctx))

	hooks := &tuiHooks{program: program}
	observability.SetConvergenceHooks(hooks)
	observability.SetCollaboratorHooks(hooks)
	defer observability.Reset()

	type result struct {
		outcome *convergence.Outcome
		err     error
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resCh := make(chan result, 1)
	go func() {
		outcome, err := ctrl.Run(runCtx)
		resCh <- result{outcome, err}
		program.Send(runDoneMsg{outcome: outcome, err: err})
	}()

	if _, err := program.Run(); err != nil {
		// The view failed or the user quit; stop the run and surface its
		// last state.
		cancel()
		<-resCh
		return nil, err
	}
	// Covers the user quitting before the run finished; harmless when the
	// run already completed.
	cancel()
	res := <-resCh
	return res.outcome, res.err
}
