// Copyright fmforge, 2026. All rights reserved.

package converge

import (
	"testing"

	"github.com/fmforge/fmforge/pkg/types"
)

func testMonitor(t *testing.T, quiet, fail, maxIter int) *Monitor {
	t.Helper()
	mo, err := NewMonitor(types.SynthesisConfig{
		QuietIterations: quiet,
		FailureStreak:   fail,
		MaxIterations:   maxIter,
	})
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return mo
}

func growth() types.IterationRecord {
	return types.IterationRecord{
		Parse: types.ParseOK,
		Diff:  &types.MergeDiff{Added: []string{"feature"}},
	}
}

func quiet() types.IterationRecord {
	return types.IterationRecord{Parse: types.ParseOK, Diff: &types.MergeDiff{}}
}

func parseFail(reason types.ParseStatus) types.IterationRecord {
	return types.IterationRecord{Parse: reason, ParseError: "parse failed"}
}

func genFail() types.IterationRecord {
	return types.IterationRecord{Parse: types.ParseEmpty, GenError: "generation timed out after retries"}
}

func TestMonitorConvergesAfterQuietStreak(t *testing.T) {
	// Growth stops after iteration 1; with K=2 the run converges at
	// exactly iteration 3, not earlier.
	mo := testMonitor(t, 2, 3, 10)

	if got := mo.Observe(growth()); got != StateContinue {
		t.Fatalf("iteration 1: got %s, want continue", got)
	}
	if got := mo.Observe(quiet()); got != StateContinue {
		t.Fatalf("iteration 2: got %s, want continue (one quiet iteration is not enough)", got)
	}
	if got := mo.Observe(quiet()); got != StateConverged {
		t.Fatalf("iteration 3: got %s, want converged", got)
	}
	if !mo.Terminal() {
		t.Fatal("monitor must be terminal after converging")
	}
}

func TestMonitorGrowthResetsQuietStreak(t *testing.T) {
	mo := testMonitor(t, 2, 3, 10)

	mo.Observe(quiet())
	mo.Observe(growth())
	if got := mo.Observe(quiet()); got != StateContinue {
		t.Fatalf("after reset one quiet iteration gave %s, want continue", got)
	}
	if got := mo.Observe(quiet()); got != StateConverged {
		t.Fatalf("second quiet iteration gave %s, want converged", got)
	}
}

func TestMonitorAliasOnlyIterationIsQuiet(t *testing.T) {
	mo := testMonitor(t, 1, 3, 10)

	rec := types.IterationRecord{
		Parse: types.ParseOK,
		Diff: &types.MergeDiff{
			Aliased:          []types.AliasedEntry{{Surface: "payments", FeatureID: "payments"}},
			ConflictsIgnored: []types.ConflictEntry{{FeatureID: "payments"}},
		},
	}
	if got := mo.Observe(rec); got != StateConverged {
		t.Fatalf("alias-only iteration gave %s, want converged with K=1", got)
	}
}

func TestMonitorStallsOnRepeatedFailureReason(t *testing.T) {
	mo := testMonitor(t, 2, 3, 10)

	mo.Observe(parseFail(types.ParseMalformed))
	if got := mo.Observe(parseFail(types.ParseMalformed)); got != StateContinue {
		t.Fatalf("two failures: got %s, want continue", got)
	}
	if got := mo.Observe(parseFail(types.ParseMalformed)); got != StateStalled {
		t.Fatalf("three same-reason failures: got %s, want stalled", got)
	}
}

func TestMonitorReasonChangeResetsFailureStreak(t *testing.T) {
	mo := testMonitor(t, 2, 2, 10)

	mo.Observe(parseFail(types.ParseMalformed))
	if got := mo.Observe(parseFail(types.ParseSchemaViolation)); got != StateContinue {
		t.Fatalf("reason change: got %s, want continue", got)
	}
	if got := mo.Observe(parseFail(types.ParseSchemaViolation)); got != StateStalled {
		t.Fatalf("repeated new reason: got %s, want stalled", got)
	}
}

func TestMonitorSuccessResetsFailureStreak(t *testing.T) {
	mo := testMonitor(t, 5, 2, 10)

	mo.Observe(parseFail(types.ParseEmpty))
	mo.Observe(growth())
	if got := mo.Observe(parseFail(types.ParseEmpty)); got != StateContinue {
		t.Fatalf("failure after success: got %s, want continue (streak was reset)", got)
	}
	if got := mo.Observe(parseFail(types.ParseEmpty)); got != StateStalled {
		t.Fatalf("second consecutive failure: got %s, want stalled", got)
	}
}

func TestMonitorGenerationFailureStallsImmediately(t *testing.T) {
	mo := testMonitor(t, 2, 3, 10)

	mo.Observe(growth())
	if got := mo.Observe(genFail()); got != StateStalled {
		t.Fatalf("exhausted generation retries gave %s, want stalled", got)
	}
}

func TestMonitorIterationCap(t *testing.T) {
	mo := testMonitor(t, 3, 3, 4)

	for i := 1; i <= 3; i++ {
		if got := mo.Observe(growth()); got != StateContinue {
			t.Fatalf("iteration %d: got %s, want continue", i, got)
		}
	}
	if got := mo.Observe(growth()); got != StateMaxIter {
		t.Fatalf("iteration 4: got %s, want max-iter-reached", got)
	}
}

func TestMonitorConvergenceBeatsCap(t *testing.T) {
	// When the quiet streak completes on the capped iteration, the more
	// informative verdict wins.
	mo := testMonitor(t, 2, 3, 3)

	mo.Observe(growth())
	mo.Observe(quiet())
	if got := mo.Observe(quiet()); got != StateConverged {
		t.Fatalf("cap and convergence coincided: got %s, want converged", got)
	}
}

func TestMonitorTerminalStatesAbsorb(t *testing.T) {
	mo := testMonitor(t, 1, 3, 10)

	mo.Observe(quiet())
	if got := mo.State(); got != StateConverged {
		t.Fatalf("setup: got %s, want converged", got)
	}

	// Nothing observed afterwards may change a terminal verdict.
	for _, rec := range []types.IterationRecord{growth(), genFail(), parseFail(types.ParseMalformed)} {
		if got := mo.Observe(rec); got != StateConverged {
			t.Fatalf("terminal state changed to %s", got)
		}
	}
}

func TestOutcomeMapping(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{StateConverged, types.OutcomeConverged},
		{StateStalled, types.OutcomeStalled},
		{StateMaxIter, types.OutcomeMaxIter},
		{StateContinue, types.OutcomeCompleted},
	}
	for _, tt := range tests {
		if got := Outcome(tt.state); got != tt.want {
			t.Errorf("Outcome(%s) = %s, want %s", tt.state, got, tt.want)
		}
	}
}
