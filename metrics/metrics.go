// Package metrics exposes Prometheus counters and histograms for the witness
// and dispatch pipeline. All metrics live in DefaultRegistry so they are
// globally accessible without threading a registry through every component.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name exported by this process.
const Namespace = "reth_processor"

// DefaultRegistry is the process-wide Prometheus registry.
var DefaultRegistry = prometheus.NewRegistry()

var factory = promauto.With(DefaultRegistry)

func init() {
	DefaultRegistry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

var (
	// BlocksDispatched counts blocks whose Execute call on a FullExecutor or
	// CachedExecutor completed successfully. It is incremented by the
	// executors, not by the Dispatcher's block-interval filter.
	BlocksDispatched = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "dispatcher",
		Name:      "blocks_dispatched_total",
		Help:      "Number of blocks whose execution or proving completed successfully.",
	})

	// BlocksFailed counts blocks whose host execution, prover execution or
	// proving step returned an error. Errors from the on_execution_start
	// hook and from CachedExecutor's cache lookup are not counted.
	BlocksFailed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "dispatcher",
		Name:      "blocks_failed_total",
		Help:      "Number of blocks that failed execution or proving.",
	})

	// WitnessFetchDuration records how long fetching and reconstructing the
	// witness trie for a block took, in seconds.
	WitnessFetchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "host_executor",
		Name:      "witness_fetch_duration_seconds",
		Help:      "Time to fetch the execution witness and reconstruct the trie.",
		Buckets:   prometheus.DefBuckets,
	})

	// CacheHits / CacheMisses track InputCache effectiveness.
	CacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Number of ClientExecutorInput cache hits.",
	})
	CacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Number of ClientExecutorInput cache misses.",
	})

	// ProvingDuration records end-to-end proving time in seconds, per block.
	ProvingDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "prover",
		Name:      "proving_duration_seconds",
		Help:      "Wall-clock time spent in prover.ProveWithCycles.",
		Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200},
	})

	// ProverCycles records the reported cycle count of the last proof or
	// execution-only run.
	ProverCycles = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "prover",
		Name:      "last_run_cycles",
		Help:      "Cycle count reported for the most recently completed run.",
	})
)

// Handler returns the http.Handler that serves /metrics in the Prometheus
// text exposition format, including the default Go process collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
