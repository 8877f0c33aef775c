// Copyright fmforge, 2026. All rights reserved.

// Package converge decides when the synthesis loop should stop. A
// Monitor observes one IterationRecord at a time and advances a state
// machine whose terminal states are the run outcomes.
// Implements: docs/ARCHITECTURE § Convergence.
package converge

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/fmforge/fmforge/pkg/types"
)

// Monitor states. Continue is the only non-terminal state.
const (
	StateContinue  = "continue"
	StateConverged = "converged"
	StateStalled   = "stalled"
	StateMaxIter   = "max-iter-reached"
)

// Events sent to the machine. Terminal states absorb everything.
const (
	eventStabilize = "stabilize"
	eventStall     = "stall"
	eventCap       = "cap"
)

type monitorContext struct{}

// Monitor tracks quiet and failure streaks across iterations and drives
// the convergence state machine. Create one per run; it is not safe for
// concurrent use.
type Monitor struct {
	interp *statekit.Interpreter[monitorContext]

	quietTarget int
	failTarget  int
	maxIter     int

	iterations  int
	quietStreak int
	failStreak  int
	lastReason  types.ParseStatus
}

// NewMonitor builds a Monitor from the synthesis settings: QuietIterations
// consecutive iterations without growth converge the run, FailureStreak
// consecutive same-reason parse failures stall it, and MaxIterations caps
// it.
func NewMonitor(cfg types.SynthesisConfig) (*Monitor, error) {
	quiet := cfg.QuietIterations
	if quiet < 1 {
		quiet = 2
	}
	fail := cfg.FailureStreak
	if fail < 1 {
		fail = 3
	}
	maxIter := cfg.MaxIterations
	if maxIter < 1 {
		maxIter = 10
	}

	builder := statekit.NewMachine[monitorContext]("convergence").
		WithInitial(statekit.StateID(StateContinue)).
		WithContext(monitorContext{})

	builder.State(StateContinue).
		On(eventStabilize).Target(StateConverged).
		On(eventStall).Target(StateStalled).
		On(eventCap).Target(StateMaxIter).
		Done()
	builder.State(StateConverged).Done()
	builder.State(StateStalled).Done()
	builder.State(StateMaxIter).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building convergence machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()

	return &Monitor{
		interp:      interp,
		quietTarget: quiet,
		failTarget:  fail,
		maxIter:     maxIter,
	}, nil
}

// Observe feeds one iteration's outcome to the monitor and returns the
// state afterwards. A generation failure that exhausted its retries
// stalls immediately; parse failures stall once the same reason repeats
// FailureStreak times; quiet merges converge once QuietIterations in a
// row stay quiet. The iteration cap applies only when nothing else
// terminated the run first.
func (mo *Monitor) Observe(rec types.IterationRecord) string {
	mo.iterations++

	switch {
	case rec.GenError != "":
		mo.quietStreak = 0
		mo.failStreak = 0
		mo.lastReason = ""
		mo.send(eventStall)

	case rec.Parse != types.ParseOK:
		mo.quietStreak = 0
		if rec.Parse == mo.lastReason {
			mo.failStreak++
		} else {
			mo.lastReason = rec.Parse
			mo.failStreak = 1
		}
		if mo.failStreak >= mo.failTarget {
			mo.send(eventStall)
		}

	default:
		mo.failStreak = 0
		mo.lastReason = ""
		if rec.Diff != nil && rec.Diff.Quiet() {
			mo.quietStreak++
		} else {
			mo.quietStreak = 0
		}
		if mo.quietStreak >= mo.quietTarget {
			mo.send(eventStabilize)
		}
	}

	if mo.State() == StateContinue && mo.iterations >= mo.maxIter {
		mo.send(eventCap)
	}
	return mo.State()
}

// State returns the current monitor state.
func (mo *Monitor) State() string {
	return string(mo.interp.State().Value)
}

// Terminal reports whether the monitor has reached a run outcome.
func (mo *Monitor) Terminal() bool {
	return mo.State() != StateContinue
}

// Iterations returns how many records the monitor has observed.
func (mo *Monitor) Iterations() int {
	return mo.iterations
}

func (mo *Monitor) send(event string) {
	mo.interp.Send(statekit.Event{Type: statekit.EventType(event)})
}

// Outcome maps a terminal monitor state to the run outcome recorded in
// the trace. The continue state maps to completed, which single-stage
// runs use directly.
func Outcome(state string) string {
	switch state {
	case StateConverged:
		return types.OutcomeConverged
	case StateStalled:
		return types.OutcomeStalled
	case StateMaxIter:
		return types.OutcomeMaxIter
	default:
		return types.OutcomeCompleted
	}
}
