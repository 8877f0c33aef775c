// Copyright fmforge, 2026. All rights reserved.

// Package synth drives synthesis runs: each iteration retrieves
// evidence, prompts the generator, parses the response into a fragment,
// merges it, and asks the convergence monitor whether to continue. The
// loop absorbs per-iteration failures into the trace and always returns
// a structurally valid model.
// Implements: docs/ARCHITECTURE § Synthesis Loop.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fmforge/fmforge/internal/converge"
	"github.com/fmforge/fmforge/internal/fragment"
	"github.com/fmforge/fmforge/internal/generate"
	"github.com/fmforge/fmforge/internal/logger"
	"github.com/fmforge/fmforge/internal/merge"
	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

// Searcher is the retrieval surface the loop consumes.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) (types.RetrievalContext, error)
}

// Loop orchestrates synthesis runs. One Loop serves one run at a time;
// independent runs need independent Loops.
type Loop struct {
	store  Searcher
	gen    generate.Client
	merger *merge.Merger
	cfg    types.Config
	log    *slog.Logger
}

// New builds a Loop over the given store and generator.
func New(store Searcher, gen generate.Client, cfg types.Config) *Loop {
	return &Loop{
		store:  store,
		gen:    gen,
		merger: merge.NewMerger(cfg.Merge),
		cfg:    cfg,
		log:    logger.ForComponent("synth"),
	}
}

// Run executes one synthesis run to completion and returns the final
// model with its full trace. Iteration failures never abort the run;
// they are recorded and fed to the convergence monitor, which decides
// whether the run continues, converges, stalls, or hits the cap.
func (l *Loop) Run(ctx context.Context) (*fm.Model, types.RunTrace, error) {
	syn := l.cfg.Synthesis
	if strings.TrimSpace(syn.RootFeature) == "" {
		return nil, types.RunTrace{}, fmt.Errorf("synthesis.root_feature is required")
	}

	monitor, err := converge.NewMonitor(syn)
	if err != nil {
		return nil, types.RunTrace{}, err
	}

	model := fm.NewModel(syn.RootFeature)
	trace := types.RunTrace{
		RunID:       NewRunID(syn.Mode, l.cfg.Generator.Model),
		Mode:        syn.Mode,
		RootFeature: model.Root().Name,
		Domain:      syn.Domain,
		Provider:    l.cfg.Generator.Provider,
		Model:       l.cfg.Generator.Model,
		Format:      l.cfg.Generator.Format,
		StartedAt:   time.Now().UTC(),
	}

	l.log.Info("run started",
		"run_id", trace.RunID,
		"mode", string(trace.Mode),
		"root", trace.RootFeature,
		"provider", string(trace.Provider))

	if syn.Mode == types.ModeSingle {
		model = l.runSingle(ctx, model, monitor, &trace)
	} else {
		model = l.runIterative(ctx, model, monitor, &trace)
	}

	trace.FinishedAt = time.Now().UTC()
	trace.FeatureCount = model.Len()

	l.log.Info("run finished",
		"run_id", trace.RunID,
		"outcome", trace.Outcome,
		"features", trace.FeatureCount,
		"iterations", len(trace.Iterations))

	return model, trace, nil
}

// runSingle performs exactly one iteration. The monitor verdict is
// recorded for diagnostics but never changes the outcome.
func (l *Loop) runSingle(ctx context.Context, model *fm.Model, monitor *converge.Monitor, trace *types.RunTrace) *fm.Model {
	model, rec := l.iterate(ctx, model, monitor, 1)
	trace.Iterations = append(trace.Iterations, rec)
	trace.Outcome = types.OutcomeCompleted
	return model
}

// runIterative loops until the monitor reaches a terminal state. The
// iteration cap inside the monitor guarantees termination.
func (l *Loop) runIterative(ctx context.Context, model *fm.Model, monitor *converge.Monitor, trace *types.RunTrace) *fm.Model {
	for i := 1; ; i++ {
		// Cancellation is honored between iterations only, so the model
		// is never dropped mid-merge.
		if ctx.Err() != nil {
			trace.Outcome = types.OutcomeCancelled
			return model
		}

		var rec types.IterationRecord
		model, rec = l.iterate(ctx, model, monitor, i)
		trace.Iterations = append(trace.Iterations, rec)

		if monitor.Terminal() {
			trace.Outcome = converge.Outcome(monitor.State())
			return model
		}
	}
}

// iterate performs one retrieval-generate-parse-merge step. All failure
// paths return the model unchanged with the failure recorded; only a
// clean parse reaches the merger.
func (l *Loop) iterate(ctx context.Context, model *fm.Model, monitor *converge.Monitor, index int) (*fm.Model, types.IterationRecord) {
	start := time.Now()
	rec := types.IterationRecord{Index: index}
	gcfg := l.cfg.Generator

	query, focus := Query(model, l.cfg.Synthesis, index)

	rc, err := l.store.Search(ctx, query, 0)
	if err != nil {
		rec.GenError = fmt.Sprintf("retrieval: %v", err)
		return l.finish(model, monitor, rec, start)
	}
	rec.Retrieval = rc

	prompt, err := BuildPrompt(l.cfg.Synthesis.Mode, l.cfg.Synthesis, gcfg.Format, model, rc, focus)
	if err != nil {
		rec.GenError = fmt.Sprintf("prompt: %v", err)
		return l.finish(model, monitor, rec, start)
	}
	rec.Prompt = prompt

	raw, err := generate.CallWithRetry(ctx, l.gen, prompt, gcfg.MaxRetries)
	if err != nil {
		rec.GenError = err.Error()
		return l.finish(model, monitor, rec, start)
	}
	rec.RawOutput = raw

	res := fragment.Parse(raw, gcfg.Format)
	rec.Parse = res.Status
	rec.ParseError = res.Detail
	rec.FragmentSize = len(res.Fragment.Features)
	if !res.OK() {
		return l.finish(model, monitor, rec, start)
	}

	next, diff, err := l.merger.Merge(model, res.Fragment, index, rc.ChunkIDs())
	if err != nil {
		rec.Parse = types.ParseSchemaViolation
		rec.ParseError = fmt.Sprintf("merge rejected fragment: %v", err)
		return l.finish(model, monitor, rec, start)
	}
	rec.Diff = &diff

	return l.finish(next, monitor, rec, start)
}

// finish stamps the record's closing fields, feeds it to the monitor,
// and logs the iteration.
func (l *Loop) finish(model *fm.Model, monitor *converge.Monitor, rec types.IterationRecord, start time.Time) (*fm.Model, types.IterationRecord) {
	rec.ModelSize = model.Len()
	rec.Verdict = monitor.Observe(rec)
	rec.ElapsedMS = time.Since(start).Milliseconds()

	l.log.Info("iteration finished",
		"index", rec.Index,
		"parse", string(rec.Parse),
		"model_size", rec.ModelSize,
		"verdict", rec.Verdict,
		"elapsed_ms", rec.ElapsedMS)

	return model, rec
}
