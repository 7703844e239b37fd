package mapred

import (
	"context"
	"fmt"
	"sort"
)

// KV is one keyed record flowing between phases.
type KV struct {
	Key   string
	Value string
}

// Counters accumulates named counts inside one task. The runner gives
// every task its own instance and folds them by addition once the
// phase completes, so tasks never share mutable state and re-running
// a task never double-counts.
type Counters map[string]uint64

// Inc increments a counter by one.
func (c Counters) Inc(name string) {
	c[name]++
}

// Add increments a counter by n.
func (c Counters) Add(name string, n uint64) {
	c[name] += n
}

// fold adds every counter from other into c.
func (c Counters) fold(other Counters) {
	for name, n := range other {
		c[name] += n
	}
}

// MapFunc transforms one input record into zero or more output
// records. It must be a pure function of its input: the runner may
// execute it any number of times, on any partition, in any order.
type MapFunc func(kv KV, c Counters) ([]KV, error)

// ReduceFunc folds all values sharing one key into zero or more
// output records. The value order is not specified, so the fold must
// be order-insensitive.
type ReduceFunc func(key string, values []string, c Counters) ([]KV, error)

// Runner executes one map+shuffle+reduce round over a record set.
// Implementations guarantee that all values for a key are delivered
// to exactly one ReduceFunc invocation.
type Runner interface {
	Run(ctx context.Context, input []KV, mapFn MapFunc, reduceFn ReduceFunc) ([]KV, Counters, error)
}

// LocalRunner runs both phases in-process on worker pools. Map tasks
// get disjoint slices of the input and task-local output buffers;
// reduce partitions are assigned by key hash.
type LocalRunner struct {
	mapWidth    int
	reduceWidth int
}

// NewLocalRunner creates a runner with the given phase widths.
func NewLocalRunner(mapWidth, reduceWidth int) *LocalRunner {
	if mapWidth <= 0 {
		mapWidth = 1
	}
	if reduceWidth <= 0 {
		reduceWidth = 1
	}
	return &LocalRunner{
		mapWidth:    mapWidth,
		reduceWidth: reduceWidth,
	}
}

// Run executes one full round. A failed task fails the whole round;
// partial progress is discarded, never persisted.
func (r *LocalRunner) Run(ctx context.Context, input []KV, mapFn MapFunc, reduceFn ReduceFunc) ([]KV, Counters, error) {
	counters := make(Counters)

	mapped, mapCounters, err := r.runMapPhase(ctx, input, mapFn)
	if err != nil {
		return nil, nil, fmt.Errorf("map phase: %w", err)
	}
	counters.fold(mapCounters)

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	output, reduceCounters, err := r.runReducePhase(ctx, mapped, reduceFn)
	if err != nil {
		return nil, nil, fmt.Errorf("reduce phase: %w", err)
	}
	counters.fold(reduceCounters)

	return output, counters, nil
}

// runMapPhase divides the input into chunks and maps them in parallel.
func (r *LocalRunner) runMapPhase(ctx context.Context, input []KV, mapFn MapFunc) ([]KV, Counters, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	chunkSize := (len(input) + r.mapWidth - 1) / r.mapWidth
	if chunkSize < 1 {
		chunkSize = 1
	}

	numChunks := 0
	if len(input) > 0 {
		numChunks = (len(input) + chunkSize - 1) / chunkSize
	}

	outputs := make([][]KV, numChunks)
	taskCounters := make([]Counters, numChunks)

	pool := newWorkerPool(r.mapWidth)
	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(input) {
			end = len(input)
		}

		chunk := input[start:end]
		slot := i

		pool.submit(func() error {
			local := make(Counters)
			out := make([]KV, 0, len(chunk))
			for _, kv := range chunk {
				emitted, err := mapFn(kv, local)
				if err != nil {
					return fmt.Errorf("map key %q: %w", kv.Key, err)
				}
				out = append(out, emitted...)
			}
			outputs[slot] = out
			taskCounters[slot] = local
			return nil
		})
	}

	if err := pool.close(); err != nil {
		return nil, nil, err
	}

	counters := make(Counters)
	var mapped []KV
	for i := range outputs {
		mapped = append(mapped, outputs[i]...)
		counters.fold(taskCounters[i])
	}

	return mapped, counters, nil
}

// runReducePhase regroups the mapped records by key and reduces each
// partition in parallel. Keys are processed in sorted order within a
// partition so output is deterministic for deterministic task funcs.
func (r *LocalRunner) runReducePhase(ctx context.Context, mapped []KV, reduceFn ReduceFunc) ([]KV, Counters, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	partitioner := NewHashPartition(r.reduceWidth)
	groups := make([]map[string][]string, r.reduceWidth)
	for i := range groups {
		groups[i] = make(map[string][]string)
	}

	for _, kv := range mapped {
		p := partitioner.GetPartition(kv.Key)
		groups[p][kv.Key] = append(groups[p][kv.Key], kv.Value)
	}

	outputs := make([][]KV, r.reduceWidth)
	taskCounters := make([]Counters, r.reduceWidth)

	pool := newWorkerPool(r.reduceWidth)
	for i := 0; i < r.reduceWidth; i++ {
		group := groups[i]
		slot := i

		if len(group) == 0 {
			continue
		}

		pool.submit(func() error {
			keys := make([]string, 0, len(group))
			for key := range group {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			local := make(Counters)
			out := make([]KV, 0, len(group))
			for _, key := range keys {
				emitted, err := reduceFn(key, group[key], local)
				if err != nil {
					return fmt.Errorf("reduce key %q: %w", key, err)
				}
				out = append(out, emitted...)
			}
			outputs[slot] = out
			taskCounters[slot] = local
			return nil
		})
	}

	if err := pool.close(); err != nil {
		return nil, nil, err
	}

	counters := make(Counters)
	var output []KV
	for i := range outputs {
		output = append(output, outputs[i]...)
		if taskCounters[i] != nil {
			counters.fold(taskCounters[i])
		}
	}

	return output, counters, nil
}
