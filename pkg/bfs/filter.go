package bfs

import (
	"errors"
	"strconv"

	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// Bucket classifies a final distance into one of six fixed ranges.
type Bucket int

const (
	BucketLE5 Bucket = iota
	BucketLE10
	BucketLE20
	BucketLE30
	BucketLE40
	BucketOver40
)

// Counter names for the distance report, one per bucket plus a total.
const (
	CounterRecordsTotal   = "records_total"
	CounterDistanceLE5    = "distance_le_5"
	CounterDistanceLE10   = "distance_le_10"
	CounterDistanceLE20   = "distance_le_20"
	CounterDistanceLE30   = "distance_le_30"
	CounterDistanceLE40   = "distance_le_40"
	CounterDistanceOver40 = "distance_over_40"
)

// BucketFor returns the bucket for a distance. The unreached sentinel
// lands in the >40 bucket like any other large distance.
func BucketFor(distance int) Bucket {
	switch {
	case distance <= 5:
		return BucketLE5
	case distance <= 10:
		return BucketLE10
	case distance <= 20:
		return BucketLE20
	case distance <= 30:
		return BucketLE30
	case distance <= 40:
		return BucketLE40
	default:
		return BucketOver40
	}
}

// CounterName returns the counter incremented for this bucket.
func (b Bucket) CounterName() string {
	switch b {
	case BucketLE5:
		return CounterDistanceLE5
	case BucketLE10:
		return CounterDistanceLE10
	case BucketLE20:
		return CounterDistanceLE20
	case BucketLE30:
		return CounterDistanceLE30
	case BucketLE40:
		return CounterDistanceLE40
	default:
		return CounterDistanceOver40
	}
}

// FilterTask is the final reduce pass: it takes every record left for
// a vertex id in the converged generation, keeps the minimum distance
// (color no longer matters), tallies the distance buckets and emits an
// output row only for vertices within distance 5 of the source.
func FilterTask(key string, values []string, c mapred.Counters) ([]mapred.KV, error) {
	distance := InfiniteDistance
	sawValid := false

	for _, value := range values {
		rec, err := DecodeRecord(key, value)
		if err != nil {
			if errors.Is(err, ErrMalformedRecord) {
				c.Inc(CounterMalformedRecords)
				continue
			}
			return nil, err
		}

		sawValid = true
		if rec.Distance < distance {
			distance = rec.Distance
		}
	}

	if !sawValid {
		return nil, nil
	}

	c.Inc(CounterRecordsTotal)

	bucket := BucketFor(distance)
	c.Inc(bucket.CounterName())

	if bucket != BucketLE5 {
		return nil, nil
	}
	return []mapred.KV{{Key: key, Value: strconv.Itoa(distance)}}, nil
}
