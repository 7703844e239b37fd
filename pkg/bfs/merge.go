package bfs

import (
	"errors"

	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// MergeResult is the outcome of combining all records for one vertex.
type MergeResult struct {
	Record VertexRecord

	// FrontierActive is true when any merged input was GRAY, meaning
	// frontier work was discovered this round and another round is
	// still needed.
	FrontierActive bool

	// DuplicateEdgeSets counts extra non-empty edge sets beyond the
	// first. Correct extraction produces at most one true edge set
	// per vertex, so anything here points at upstream duplication.
	DuplicateEdgeSets int
}

// Merge combines all records sharing one vertex id into the canonical
// record for the next generation: the first non-empty edge set, the
// minimum distance and the darkest color. The fold is associative,
// commutative and idempotent, so any grouping or ordering of the same
// inputs produces the same record.
func Merge(id string, records []VertexRecord) (MergeResult, bool) {
	if len(records) == 0 {
		return MergeResult{}, false
	}

	merged := VertexRecord{
		ID:       id,
		Distance: InfiniteDistance,
		Color:    White,
	}

	result := MergeResult{}
	for _, rec := range records {
		if len(rec.Neighbors) > 0 {
			if merged.Neighbors == nil {
				merged.Neighbors = rec.Neighbors
			} else {
				result.DuplicateEdgeSets++
			}
		}

		if rec.Distance < merged.Distance {
			merged.Distance = rec.Distance
		}

		merged.Color = merged.Color.Darker(rec.Color)

		if rec.Color == Gray {
			result.FrontierActive = true
		}
	}

	result.Record = merged
	return result, true
}

// MergeTask adapts Merge to the reduce contract. Malformed values are
// skipped (counted); if every value for an id is malformed the vertex
// is dropped, which is tolerated data loss, not an error. Integer
// corruption fails the task.
func MergeTask(key string, values []string, c mapred.Counters) ([]mapred.KV, error) {
	records := make([]VertexRecord, 0, len(values))
	for _, value := range values {
		rec, err := DecodeRecord(key, value)
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) {
				c.Inc(CounterMalformedRecords)
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}

	result, ok := Merge(key, records)
	if !ok {
		return nil, nil
	}

	if result.FrontierActive {
		c.Inc(CounterFrontierActive)
	}
	if result.DuplicateEdgeSets > 0 {
		c.Add(CounterDuplicateEdgeSets, uint64(result.DuplicateEdgeSets))
	}

	return []mapred.KV{{Key: key, Value: result.Record.Encode()}}, nil
}
