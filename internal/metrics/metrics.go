// Package metrics holds the Prometheus collectors of the route planner.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tile-planner/internal/graph"
)

// Query outcomes.
const (
	OutcomeFound    = "found"
	OutcomeEmpty    = "empty"
	OutcomeFallback = "fallback"
	OutcomeNoPath   = "no_path"
)

var (
	// queriesTotal counts route queries.
	// Labels: outcome (found, empty, fallback, no_path)
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tile_planner",
		Subsystem: "query",
		Name:      "total",
		Help:      "Total route queries by outcome",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tile_planner",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Route query latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})

	// nodesExpanded is summed over every search a query runs.
	nodesExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tile_planner",
		Subsystem: "query",
		Name:      "nodes_expanded",
		Help:      "Nodes closed by A* per route query",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tile_planner",
		Subsystem: "hierarchy",
		Name:      "build_duration_seconds",
		Help:      "Time to build the hierarchy from a world",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	})

	// hierarchyNodes tracks the node count of the active hierarchy.
	// Labels: level
	hierarchyNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tile_planner",
		Subsystem: "hierarchy",
		Name:      "nodes",
		Help:      "Nodes per level of the active hierarchy",
	}, []string{"level"})

	// reloadsTotal counts world reloads.
	// Labels: result (success, error)
	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tile_planner",
		Subsystem: "hierarchy",
		Name:      "reloads_total",
		Help:      "World reloads by result",
	}, []string{"result"})
)

// RecordQuery records one finished route query.
func RecordQuery(outcome string, elapsed time.Duration, expanded int) {
	queriesTotal.WithLabelValues(outcome).Inc()
	queryDuration.Observe(elapsed.Seconds())
	nodesExpanded.Observe(float64(expanded))
}

// RecordBuild records a hierarchy build and publishes its level sizes.
func RecordBuild(elapsed time.Duration, stats []graph.LevelStats) {
	buildDuration.Observe(elapsed.Seconds())
	hierarchyNodes.Reset()
	for _, s := range stats {
		hierarchyNodes.WithLabelValues(strconv.Itoa(s.Level)).Set(float64(s.Nodes))
	}
}

// RecordReload counts a world reload attempt.
func RecordReload(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	reloadsTotal.WithLabelValues(result).Inc()
}
