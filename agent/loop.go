package agent

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentloop/core"
)

// ErrEscalated is returned when a child agent signals escalation.
var ErrEscalated = errors.New("child agent escalated")

// LoopAgent executes a single child agent repeatedly with configurable
// termination controls: maximum iterations, an output predicate, interval
// timing and escalation monitoring. All iterations share the same RunContext,
// so the child accumulates session state across executions.
//
// When the child emits an event with Escalate=true, the loop forwards the
// event and terminates early without error.
//
// LoopAgent is ideal for:
//   - Monitoring and polling scenarios
//   - Retry logic with custom conditions
//   - Workflows requiring convergence checking
type LoopAgent struct {
	BaseAgent
	child       core.Agent        // Child agent to execute repeatedly
	maxIters    int               // Maximum number of iterations allowed
	interval    time.Duration     // Time delay between iterations
	stopOnError bool              // Whether to stop execution on child agent errors
	predicate   func(string) bool // Termination condition based on the child's last output
}

// NewLoopAgent constructs a looping coordinator around a child agent.
// Defaults: 100 iterations, no interval, stop on first error.
func NewLoopAgent(name string, child core.Agent, opts ...LoopOption) *LoopAgent {
	la := &LoopAgent{
		BaseAgent:   NewBaseAgent(name, core.AgentKindWorkflow),
		child:       child,
		maxIters:    100,
		stopOnError: true,
	}

	for _, o := range opts {
		o(la)
	}

	_ = la.SetSubAgents(child)

	return la
}

// LoopOption defines a configuration function for customizing LoopAgent behavior.
type LoopOption func(*LoopAgent)

// WithMaxIters sets the maximum number of iterations for the loop.
func WithMaxIters(n int) LoopOption {
	return func(l *LoopAgent) { l.maxIters = n }
}

// WithInterval sets the time delay between loop iterations. Useful for rate
// limiting and polling; zero means no delay.
func WithInterval(d time.Duration) LoopOption {
	return func(l *LoopAgent) { l.interval = d }
}

// WithPredicate sets a termination condition evaluated against the text of
// the child's last non-partial event each iteration. Returning true ends the
// loop early.
//
// Example:
//
//	WithPredicate(func(output string) bool {
//	    return strings.Contains(output, "COMPLETE")
//	})
func WithPredicate(pred func(string) bool) LoopOption {
	return func(l *LoopAgent) { l.predicate = pred }
}

// WithStopOnError controls whether a child error terminates the loop.
func WithStopOnError(stop bool) LoopOption {
	return func(l *LoopAgent) { l.stopOnError = stop }
}

// Run implements core.Agent performing iterative execution with escalation
// detection. Escalation terminates the loop early with a nil error.
func (l *LoopAgent) Run(runCtx *core.RunContext) error {
	for i := 0; i < l.maxIters; i++ {
		if err := runCtx.Err(); err != nil {
			return err
		}

		runCtx.LogDebug("agent.loop.iteration", "coordinator", l.Name(), "iteration", i+1)

		output, childErr := l.runChildOnce(runCtx)

		if errors.Is(childErr, ErrEscalated) {
			runCtx.LogInfo("agent.loop.escalated", "coordinator", l.Name(), "iteration", i+1)
			return nil
		}

		if childErr != nil {
			if l.stopOnError {
				return fmt.Errorf("loop iteration %d failed for agent %s: %w", i+1, l.child.Name(), childErr)
			}
			runCtx.LogWarn("agent.loop.iteration.failed", "coordinator", l.Name(), "iteration", i+1, "error", childErr.Error())
		}

		if l.predicate != nil && l.predicate(output) {
			runCtx.LogDebug("agent.loop.predicate_met", "coordinator", l.Name(), "iteration", i+1)
			return nil
		}

		if l.interval > 0 && i < l.maxIters-1 {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(l.interval):
			}
		}
	}

	runCtx.LogDebug("agent.loop.complete", "coordinator", l.Name(), "iterations", l.maxIters)

	return nil
}

// runChildOnce executes the child while intercepting its emitted events to
// detect escalation flags and capture output text before forwarding to the
// parent context. It returns the text of the child's last non-partial event
// and ErrEscalated when the child escalated.
func (l *LoopAgent) runChildOnce(runCtx *core.RunContext) (string, error) {
	interceptChan := make(chan core.Event, 10)
	resumeChan := make(chan struct{}, 10)
	childCtx := runCtx.NewChildContext(interceptChan, resumeChan, runCtx.Branch)

	done := make(chan error, 1)
	go func() {
		done <- l.child.Run(childCtx)
		close(interceptChan)
	}()

	var lastOutput string
	escalated := false

	for {
		select {
		case event, ok := <-interceptChan:
			if !ok {
				err := <-done
				if err == nil && escalated {
					return lastOutput, ErrEscalated
				}
				return lastOutput, err
			}

			if event.Actions.Escalate != nil && *event.Actions.Escalate {
				escalated = true
			}

			if err := runCtx.EmitEvent(event); err != nil {
				return lastOutput, err
			}

			// Partial events skip the resume handshake on both sides.
			if event.Partial != nil && *event.Partial {
				continue
			}

			if text := eventText(event); text != "" {
				lastOutput = text
			}

			if err := runCtx.WaitForResume(); err != nil {
				return lastOutput, err
			}

			select {
			case resumeChan <- struct{}{}:
			case <-runCtx.Done():
				return lastOutput, runCtx.Err()
			}

		case <-runCtx.Done():
			return lastOutput, runCtx.Err()
		}
	}
}

// eventText concatenates the text parts of an event's content.
func eventText(ev core.Event) string {
	if ev.Content == nil {
		return ""
	}

	var text string
	for _, p := range ev.Content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}
	return text
}

// CreateEscalationEvent constructs an event signaling escalation to the
// parent coordinator. Agents emit this when they cannot complete their task
// and need a higher level to take over.
func CreateEscalationEvent(invocationID, author string, content *core.Content) core.Event {
	escalate := true
	ev := core.NewEvent(invocationID, author)
	ev.Actions.Escalate = &escalate
	ev.Content = content
	return ev
}
