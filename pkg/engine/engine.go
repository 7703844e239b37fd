// Package engine drives the iterative BFS: extraction, repeated
// Propagate+Merge rounds until fixpoint or cap, then the distance
// filter. The engine owns generation lifetime on disk; the task funcs
// it schedules are pure, so any task may be re-executed safely.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/wikibfs/pkg/bfs"
	"github.com/dd0wney/wikibfs/pkg/config"
	"github.com/dd0wney/wikibfs/pkg/extract"
	"github.com/dd0wney/wikibfs/pkg/mapred"
	"github.com/dd0wney/wikibfs/pkg/metrics"
	"github.com/dd0wney/wikibfs/pkg/storage"
)

// State is the orchestrator's position in the pipeline.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateIterating
	StateConverged
	StateCapped
	StateNoSource
	StateFiltering
	StateDone
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateCapped:
		return "capped"
	case StateNoSource:
		return "no_source"
	case StateFiltering:
		return "filtering"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is how a finished run terminated.
type Outcome string

const (
	// OutcomeConverged means a round discovered no frontier work:
	// every reachable vertex has been fully expanded.
	OutcomeConverged Outcome = "converged"

	// OutcomeCapped means the round cap was hit first. The best
	// distances found so far are still reported.
	OutcomeCapped Outcome = "capped"

	// OutcomeNoSource means extraction never produced the source
	// vertex. The run is a clean empty result, not a failure.
	OutcomeNoSource Outcome = "no_source"
)

// NearRow is one vertex of the near-distance report (distance <= 5).
type NearRow struct {
	ID       string
	Distance int
}

// BucketTotals are the final distance-histogram counters.
type BucketTotals struct {
	LE5     uint64
	LE10    uint64
	LE20    uint64
	LE30    uint64
	LE40    uint64
	Over40  uint64
	Records uint64
}

// Sum returns the total across all six buckets. It always equals
// Records for a completed run.
func (b BucketTotals) Sum() uint64 {
	return b.LE5 + b.LE10 + b.LE20 + b.LE30 + b.LE40 + b.Over40
}

// Result summarizes one completed run.
type Result struct {
	RunID    string
	Outcome  Outcome
	Rounds   int
	Buckets  BucketTotals
	NearRows []NearRow
	Elapsed  time.Duration
}

// Engine runs the pipeline over an injected execution substrate.
type Engine struct {
	cfg     *config.Config
	runner  mapred.Runner
	store   *storage.GenerationStore
	metrics *metrics.Registry
	logger  *slog.Logger

	state State
}

// New wires an engine. The runner is the execution substrate; any
// implementation that regroups map output by key works.
func New(cfg *config.Config, runner mapred.Runner, store *storage.GenerationStore, m *metrics.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		runner:  runner,
		store:   store,
		metrics: m,
		logger:  logger,
		state:   StateIdle,
	}
}

// State returns the current pipeline state.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) setState(s State) {
	e.state = s
	e.logger.Debug("state transition", "state", s.String())
}

// Run executes the whole pipeline over a raw page collection and
// returns the distance report. A "source not found" run returns a
// Result with OutcomeNoSource and no error.
func (e *Engine) Run(ctx context.Context, pages []mapred.KV) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := e.logger.With("run_id", runID)

	logger.Info("starting run",
		"source", e.cfg.Source,
		"pages", len(pages),
		"max_rounds", e.cfg.MaxRounds,
	)

	result := &Result{RunID: runID}

	found, err := e.extract(ctx, pages)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Info("source not found, stopping with empty result")
		e.setState(StateNoSource)
		e.setState(StateDone)
		result.Outcome = OutcomeNoSource
		result.Elapsed = time.Since(start)
		return result, nil
	}

	final, rounds, outcome, err := e.iterate(ctx, logger)
	if err != nil {
		return nil, err
	}
	result.Rounds = rounds
	result.Outcome = outcome

	if err := e.filter(ctx, final, result); err != nil {
		return nil, err
	}

	e.setState(StateDone)
	result.Elapsed = time.Since(start)
	logger.Info("run finished",
		"outcome", string(result.Outcome),
		"rounds", result.Rounds,
		"records", result.Buckets.Records,
		"within_5", result.Buckets.LE5,
		"elapsed", result.Elapsed,
	)

	return result, nil
}

// extract runs the extraction pass, writes generation 0 and reports
// whether the source vertex was seeded.
func (e *Engine) extract(ctx context.Context, pages []mapred.KV) (bool, error) {
	e.setState(StateExtracting)

	out, counters, err := e.runner.Run(ctx, pages, extract.NewExtractTask(e.cfg.Source), extract.IdentityReduce)
	if err != nil {
		return false, fmt.Errorf("extraction: %w", err)
	}
	e.metrics.ObserveExtraction(counters)

	if counters[bfs.CounterFoundSource] == 0 {
		return false, nil
	}

	if err := e.writeGeneration(0, out); err != nil {
		return false, err
	}
	return true, nil
}

// iterate runs Propagate+Merge rounds until the frontier goes quiet
// or the round cap is reached. It returns the final generation number
// and how the loop terminated. At most two generations are live at
// once: once round k is durably written, round k-2 is reclaimed.
func (e *Engine) iterate(ctx context.Context, logger *slog.Logger) (int, int, Outcome, error) {
	e.setState(StateIterating)

	current := 0
	for round := 1; round <= e.cfg.MaxRounds; round++ {
		input, err := e.store.Read(current)
		if err != nil {
			return 0, 0, "", fmt.Errorf("round %d: %w", round, err)
		}

		out, counters, err := e.runner.Run(ctx, input, bfs.PropagateTask, bfs.MergeTask)
		if err != nil {
			return 0, 0, "", fmt.Errorf("round %d: %w", round, err)
		}

		if err := e.writeGeneration(round, out); err != nil {
			return 0, 0, "", err
		}
		if err := e.store.Delete(round - 2); err != nil {
			return 0, 0, "", err
		}
		current = round

		e.metrics.ObserveRound(counters)
		frontier := counters[bfs.CounterFrontierActive]
		logger.Info("round complete",
			"round", round,
			"records", len(out),
			"frontier_vertices", frontier,
		)

		if frontier == 0 {
			e.setState(StateConverged)
			return current, round, OutcomeConverged, nil
		}
	}

	logger.Warn("round cap reached before convergence",
		"max_rounds", e.cfg.MaxRounds,
	)
	e.setState(StateCapped)
	return current, e.cfg.MaxRounds, OutcomeCapped, nil
}

// filter runs the distance-bucketing pass over the final generation
// and fills in the report. The generation before the final one is
// reclaimed once filtering is done.
func (e *Engine) filter(ctx context.Context, final int, result *Result) error {
	e.setState(StateFiltering)

	input, err := e.store.Read(final)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	rows, counters, err := e.runner.Run(ctx, input, identityMap, bfs.FilterTask)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	e.metrics.ObserveFilter(counters)

	if err := e.store.Delete(final - 1); err != nil {
		return err
	}

	result.Buckets = BucketTotals{
		LE5:     counters[bfs.CounterDistanceLE5],
		LE10:    counters[bfs.CounterDistanceLE10],
		LE20:    counters[bfs.CounterDistanceLE20],
		LE30:    counters[bfs.CounterDistanceLE30],
		LE40:    counters[bfs.CounterDistanceLE40],
		Over40:  counters[bfs.CounterDistanceOver40],
		Records: counters[bfs.CounterRecordsTotal],
	}

	result.NearRows = make([]NearRow, 0, len(rows))
	for _, kv := range rows {
		distance, err := strconv.Atoi(kv.Value)
		if err != nil {
			return fmt.Errorf("filter output for %q: %w", kv.Key, err)
		}
		result.NearRows = append(result.NearRows, NearRow{ID: kv.Key, Distance: distance})
	}
	sort.Slice(result.NearRows, func(i, j int) bool {
		return result.NearRows[i].ID < result.NearRows[j].ID
	})

	return nil
}

// writeGeneration persists one generation and records write volume.
func (e *Engine) writeGeneration(round int, records []mapred.KV) error {
	before := e.store.Stats()
	if err := e.store.Write(round, records); err != nil {
		return err
	}
	after := e.store.Stats()
	e.metrics.ObserveStorage(
		after.BytesUncompressed-before.BytesUncompressed,
		after.BytesCompressed-before.BytesCompressed,
	)
	return nil
}

// identityMap feeds final-generation records unchanged into the
// filter reduce.
func identityMap(kv mapred.KV, c mapred.Counters) ([]mapred.KV, error) {
	return []mapred.KV{kv}, nil
}
