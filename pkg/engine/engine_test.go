package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/wikibfs/pkg/config"
	"github.com/dd0wney/wikibfs/pkg/mapred"
	"github.com/dd0wney/wikibfs/pkg/metrics"
	"github.com/dd0wney/wikibfs/pkg/storage"
)

// page builds a raw page whose text links to the given titles.
func page(title string, links ...string) mapred.KV {
	var b strings.Builder
	b.WriteString("About " + title + ". ")
	for _, link := range links {
		fmt.Fprintf(&b, "See [[%s]]. ", link)
	}
	return mapred.KV{Key: title, Value: b.String()}
}

// newTestEngine wires an engine over a temp data dir with small
// widths and the given source.
func newTestEngine(t *testing.T, source string, maxRounds int) (*Engine, *storage.GenerationStore) {
	t.Helper()

	cfg := config.Default()
	cfg.Source = source
	cfg.MaxRounds = maxRounds
	cfg.MapWidth = 4
	cfg.ReduceWidth = 3
	cfg.DataDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	store, err := storage.NewGenerationStore(cfg.DataDir)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := mapred.NewLocalRunner(cfg.MapWidth, cfg.ReduceWidth)

	return New(cfg, runner, store, metrics.NewRegistry(), logger), store
}

// nearDistances flattens the report rows into a map.
func nearDistances(result *Result) map[string]int {
	got := make(map[string]int)
	for _, row := range result.NearRows {
		got[row.ID] = row.Distance
	}
	return got
}

// TestPathGraph runs the full pipeline over a->b->c->d and checks
// exact distances and the convergence round
func TestPathGraph(t *testing.T) {
	eng, _ := newTestEngine(t, "a", 60)

	pages := []mapred.KV{
		page("a", "b"),
		page("b", "c"),
		page("c", "d"),
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, OutcomeConverged, result.Outcome)
	// Rounds 1..3 discover b, c, d; round 4 expands d and finds no
	// remaining frontier.
	assert.Equal(t, 4, result.Rounds)
	assert.Equal(t, StateDone, eng.State())

	assert.Equal(t, map[string]int{"a": 0, "b": 1, "c": 2, "d": 3}, nearDistances(result))
	assert.Equal(t, uint64(4), result.Buckets.LE5)
	assert.Equal(t, uint64(4), result.Buckets.Records)
}

// TestCycleKeepsMinimumDistance verifies a re-discovered source keeps
// distance 0 in a two-cycle
func TestCycleKeepsMinimumDistance(t *testing.T) {
	eng, _ := newTestEngine(t, "a", 60)

	pages := []mapred.KV{
		page("a", "b"),
		page("b", "a"),
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, OutcomeConverged, result.Outcome)
	assert.Equal(t, map[string]int{"a": 0, "b": 1}, nearDistances(result))
}

// TestUnreachableVertexStaysInfinite verifies a vertex outside the
// source component keeps the sentinel distance and lands beyond 40
func TestUnreachableVertexStaysInfinite(t *testing.T) {
	eng, _ := newTestEngine(t, "a", 60)

	pages := []mapred.KV{
		page("a", "b"),
		page("b", "a"),
		page("e", "f"), // nothing links to e
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, OutcomeConverged, result.Outcome)
	near := nearDistances(result)
	assert.NotContains(t, near, "e")
	assert.Equal(t, uint64(1), result.Buckets.Over40)
	assert.Equal(t, uint64(3), result.Buckets.Records)
}

// TestNormalizationMergesCasedLinks verifies differently-cased
// references to one article resolve to a single vertex
func TestNormalizationMergesCasedLinks(t *testing.T) {
	eng, _ := newTestEngine(t, "paul erdős", 60)

	pages := []mapred.KV{
		{Key: "Budapest", Value: "Home of [[Paul Erdős]] and [[paul erdős|the mathematician]]."},
		{Key: "Paul Erdős", Value: "Born in [[Budapest]]."},
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"budapest": 1, "paul erdős": 0}, nearDistances(result))
	assert.Equal(t, uint64(2), result.Buckets.Records)
}

// TestRoundCap verifies a long chain hits the cap and still reports
// the best distances found so far
func TestRoundCap(t *testing.T) {
	eng, _ := newTestEngine(t, "v0", 2)

	var pages []mapred.KV
	for i := 0; i < 8; i++ {
		pages = append(pages, page(fmt.Sprintf("v%d", i), fmt.Sprintf("v%d", i+1)))
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCapped, result.Outcome)
	assert.Equal(t, 2, result.Rounds)

	near := nearDistances(result)
	assert.Equal(t, 0, near["v0"])
	assert.Equal(t, 1, near["v1"])
	assert.Equal(t, 2, near["v2"])
	assert.NotContains(t, near, "v5")
}

// TestSourceNotFound verifies a missing source is a clean empty
// result, not an error
func TestSourceNotFound(t *testing.T) {
	eng, _ := newTestEngine(t, "kevin bacon", 60)

	pages := []mapred.KV{
		page("a", "b"),
		page("b", "a"),
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoSource, result.Outcome)
	assert.Equal(t, 0, result.Rounds)
	assert.Empty(t, result.NearRows)
	assert.Equal(t, StateDone, eng.State())
}

// TestBucketTotalsMatchRecords verifies the histogram invariant on a
// mixed graph
func TestBucketTotalsMatchRecords(t *testing.T) {
	eng, _ := newTestEngine(t, "hub", 60)

	pages := []mapred.KV{
		page("hub", "s1", "s2", "s3"),
		page("s1", "leaf"),
		page("s2", "hub"),
		page("s3", "s1"),
		page("island", "far away"),
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, result.Buckets.Records, result.Buckets.Sum())
	assert.NotZero(t, result.Buckets.Records)
}

// TestGenerationRetention verifies only the final generation survives
// a run: everything older is reclaimed on the two-live schedule
func TestGenerationRetention(t *testing.T) {
	eng, store := newTestEngine(t, "a", 60)

	pages := []mapred.KV{
		page("a", "b"),
		page("b", "c"),
		page("c", "d"),
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	final := result.Rounds
	assert.True(t, store.Exists(final), "final generation should survive")
	for round := 0; round < final; round++ {
		assert.False(t, store.Exists(round), "generation %d should be reclaimed", round)
	}
}

// TestEmptyCollection verifies an empty input is a no-source run
func TestEmptyCollection(t *testing.T) {
	eng, _ := newTestEngine(t, "a", 60)

	result, err := eng.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoSource, result.Outcome)
}

// TestTargetOnlyVertexGetsDistance verifies a vertex that exists only
// as a link target is still discovered and reported
func TestTargetOnlyVertexGetsDistance(t *testing.T) {
	eng, _ := newTestEngine(t, "a", 60)

	// d has no page of its own; it exists only as c's target.
	pages := []mapred.KV{
		page("a", "b"),
		page("b", "c"),
		page("c", "d"),
	}

	result, err := eng.Run(context.Background(), pages)
	require.NoError(t, err)

	near := nearDistances(result)
	require.Contains(t, near, "d")
	assert.Equal(t, 3, near["d"])
}
