package bfs

import (
	"errors"

	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// Counter names shared between the task funcs and the orchestrator.
// FrontierActive mirrors the "keep going" signal: it is non-zero for
// a round exactly when some merge input was GRAY.
const (
	CounterFoundSource       = "found_source"
	CounterFrontierActive    = "frontier_active"
	CounterMalformedRecords  = "malformed_records"
	CounterDuplicateEdgeSets = "duplicate_edge_sets"
)

// Propagate expands one vertex record into its contribution to the
// next generation. It is a pure function of the record: a GRAY vertex
// emits one empty-edged discovery record per neighbor at distance+1
// and re-emits itself as BLACK; WHITE and BLACK vertices pass through
// unchanged.
func Propagate(rec VertexRecord) []VertexRecord {
	if rec.Color != Gray {
		return []VertexRecord{rec}
	}

	out := make([]VertexRecord, 0, len(rec.Neighbors)+1)
	for _, neighbor := range rec.Neighbors {
		if neighbor == "" {
			continue
		}
		out = append(out, VertexRecord{
			ID:       neighbor,
			Distance: rec.Distance + 1,
			Color:    Gray,
		})
	}

	expanded := rec
	expanded.Color = Black
	return append(out, expanded)
}

// PropagateTask adapts Propagate to the map contract: it decodes the
// wire record, drops malformed ones silently (counted, not fatal) and
// escalates integer corruption as a task failure.
func PropagateTask(kv mapred.KV, c mapred.Counters) ([]mapred.KV, error) {
	rec, err := DecodeRecord(kv.Key, kv.Value)
	if err != nil {
		if errors.Is(err, ErrMalformedRecord) {
			c.Inc(CounterMalformedRecords)
			return nil, nil
		}
		return nil, err
	}

	expanded := Propagate(rec)
	out := make([]mapred.KV, 0, len(expanded))
	for _, r := range expanded {
		out = append(out, mapred.KV{Key: r.ID, Value: r.Encode()})
	}
	return out, nil
}
