// Package metrics exposes the BFS pipeline's counters through a
// prometheus registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dd0wney/wikibfs/pkg/bfs"
	"github.com/dd0wney/wikibfs/pkg/mapred"
)

// Registry holds all metrics for the application.
type Registry struct {
	// Traversal metrics
	FoundSource       prometheus.Counter
	RoundsTotal       prometheus.Counter
	FrontierVertices  prometheus.Counter
	MalformedRecords  prometheus.Counter
	DuplicateEdgeSets prometheus.Counter

	// Distance report metrics
	RecordsTotal    prometheus.Counter
	DistanceBuckets *prometheus.CounterVec

	// Storage metrics
	GenerationBytesUncompressed prometheus.Counter
	GenerationBytesCompressed   prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics
// initialized and registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		FoundSource: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_found_source_total",
			Help: "Times the source vertex was seeded during extraction",
		}),
		RoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_rounds_total",
			Help: "BFS rounds executed",
		}),
		FrontierVertices: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_frontier_vertices_total",
			Help: "Vertices with an active frontier observed across all rounds",
		}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_malformed_records_total",
			Help: "Intermediate records dropped for missing fields",
		}),
		DuplicateEdgeSets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_duplicate_edge_sets_total",
			Help: "Extra non-empty edge sets seen for a single vertex id",
		}),
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_filter_records_total",
			Help: "Vertices classified by the distance filter",
		}),
		DistanceBuckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wikibfs_distance_bucket_total",
			Help: "Vertices per final-distance bucket",
		}, []string{"bucket"}),
		GenerationBytesUncompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_generation_bytes_uncompressed_total",
			Help: "Generation record bytes before compression",
		}),
		GenerationBytesCompressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wikibfs_generation_bytes_compressed_total",
			Help: "Generation record bytes after snappy compression",
		}),
	}

	reg.MustRegister(
		r.FoundSource,
		r.RoundsTotal,
		r.FrontierVertices,
		r.MalformedRecords,
		r.DuplicateEdgeSets,
		r.RecordsTotal,
		r.DistanceBuckets,
		r.GenerationBytesUncompressed,
		r.GenerationBytesCompressed,
	)

	return r
}

// bucketLabels maps task counter names onto bucket label values.
var bucketLabels = map[string]string{
	bfs.CounterDistanceLE5:    "le_5",
	bfs.CounterDistanceLE10:   "le_10",
	bfs.CounterDistanceLE20:   "le_20",
	bfs.CounterDistanceLE30:   "le_30",
	bfs.CounterDistanceLE40:   "le_40",
	bfs.CounterDistanceOver40: "over_40",
}

// ObserveRound folds one round's task counters into the registry.
func (r *Registry) ObserveRound(c mapred.Counters) {
	r.RoundsTotal.Inc()
	r.FrontierVertices.Add(float64(c[bfs.CounterFrontierActive]))
	r.MalformedRecords.Add(float64(c[bfs.CounterMalformedRecords]))
	r.DuplicateEdgeSets.Add(float64(c[bfs.CounterDuplicateEdgeSets]))
}

// ObserveExtraction folds the extraction pass counters.
func (r *Registry) ObserveExtraction(c mapred.Counters) {
	r.FoundSource.Add(float64(c[bfs.CounterFoundSource]))
	r.MalformedRecords.Add(float64(c[bfs.CounterMalformedRecords]))
}

// ObserveFilter folds the distance filter counters.
func (r *Registry) ObserveFilter(c mapred.Counters) {
	r.RecordsTotal.Add(float64(c[bfs.CounterRecordsTotal]))
	r.MalformedRecords.Add(float64(c[bfs.CounterMalformedRecords]))
	for name, label := range bucketLabels {
		r.DistanceBuckets.WithLabelValues(label).Add(float64(c[name]))
	}
}

// ObserveStorage records generation write volume.
func (r *Registry) ObserveStorage(uncompressed, compressed uint64) {
	r.GenerationBytesUncompressed.Add(float64(uncompressed))
	r.GenerationBytesCompressed.Add(float64(compressed))
}

// GetPrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
