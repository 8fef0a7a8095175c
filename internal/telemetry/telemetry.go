// Package telemetry exposes the prometheus metrics of the database and its watch
// engine. Every metric defaults to a no-op so that callers never check for nil.
package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter is the subset of prometheus.Counter used by this module.
type Counter interface {
	Inc()
	Add(float64)
}

// Gauge is the subset of prometheus.Gauge used by this module.
type Gauge interface {
	Set(float64)
	Inc()
	Dec()
	Add(float64)
	Sub(float64)
}

// CounterVec is a counter family partitioned by label values.
type CounterVec interface {
	With(labels ...string) Counter
}

// NoopStat implements every metric interface and records nothing.
type NoopStat struct{}

func (NoopStat) Inc()        {}
func (NoopStat) Dec()        {}
func (NoopStat) Add(float64) {}
func (NoopStat) Sub(float64) {}
func (NoopStat) Set(float64) {}

type noopCounterVec struct{}

func (noopCounterVec) With(...string) Counter { return NoopStat{} }

type prometheusCounterVec struct {
	vec *prometheus.CounterVec
}

func (p prometheusCounterVec) With(labelValues ...string) Counter {
	return p.vec.WithLabelValues(labelValues...)
}

// Label values of Metrics.WatchersRemoved.
const (
	RemovedUnwatch = "unwatch"
	RemovedDead    = "dead"
)

// Label values of Metrics.Commits.
const (
	CommitSuccess  = "success"
	CommitConflict = "conflict"
	CommitRejected = "rejected"
	CommitError    = "error"
)

// Metrics groups all metrics of one database instance.
type Metrics struct {
	// WatchersRegistered counts successful watch registrations.
	WatchersRegistered Counter
	// WatchersRemoved counts removed watchers by reason (unwatch, dead).
	WatchersRemoved CounterVec
	// WatchersActive tracks the number of registry entries.
	WatchersActive Gauge
	// EventsDelivered counts events handed to a watcher channel.
	EventsDelivered Counter
	// EventsDropped counts events lost because a watcher channel was full.
	EventsDropped Counter
	// ChangeRecords counts change records ingested from committed transactions.
	ChangeRecords Counter
	// Commits counts transaction commits by result (success, conflict, rejected, error).
	Commits CounterVec
}

// Noop returns metrics that record nothing.
func Noop() *Metrics {
	return &Metrics{
		WatchersRegistered: NoopStat{},
		WatchersRemoved:    noopCounterVec{},
		WatchersActive:     NoopStat{},
		EventsDelivered:    NoopStat{},
		EventsDropped:      NoopStat{},
		ChangeRecords:      NoopStat{},
		Commits:            noopCounterVec{},
	}
}

// ErrNoRegisterer is returned by New when registerer is nil.
var ErrNoRegisterer = errors.New("prometheus registerer is nil")

// New creates metrics under namespace and registers them in registerer.
func New(registerer prometheus.Registerer, namespace string) (*Metrics, error) {
	if registerer == nil {
		return nil, ErrNoRegisterer
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      name,
			Help:      help,
		})
	}

	var (
		registered = counter("watchers_registered_total", "Watch registrations.")
		delivered  = counter("events_delivered_total", "Events delivered to watcher channels.")
		dropped    = counter("events_dropped_total", "Events dropped because the watcher channel was full.")
		records    = counter("change_records_total", "Change records ingested from committed transactions.")
		removed    = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "watchers_removed_total",
			Help:      "Removed watchers by reason.",
		}, []string{"reason"})
		active = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watch",
			Name:      "watchers_active",
			Help:      "Watchers currently present in the registry.",
		})
		commits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "commits_total",
			Help:      "Transaction commits by result.",
		}, []string{"result"})
	)

	for _, collector := range []prometheus.Collector{
		registered, delivered, dropped, records, removed, active, commits,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return &Metrics{
		WatchersRegistered: registered,
		WatchersRemoved:    prometheusCounterVec{vec: removed},
		WatchersActive:     active,
		EventsDelivered:    delivered,
		EventsDropped:      dropped,
		ChangeRecords:      records,
		Commits:            prometheusCounterVec{vec: commits},
	}, nil
}
