// Package metrics counts table operations and bucket lock events in a private prometheus registry.
// Nothing is exposed over the network; the driver gathers the registry for its end of run report.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	hashtable "github.com/ryanengphoto/concurrent-hash-table"
	"go.uber.org/zap"
)

// Metrics holds the operation and lock counters. It implements hashtable.LockObserver.
type Metrics struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	readAcquired  prometheus.Counter
	readReleased  prometheus.Counter
	writeAcquired prometheus.Counter
	writeReleased prometheus.Counter
	logger        *zap.Logger
}

// New creates the counters and registers them. Lock events are logged at debug level on logger.
func New(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chtable_operations_total",
			Help: "Total number of table operations by operation and result",
		},
		[]string{"operation", "result"},
	)
	locks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chtable_bucket_lock_events_total",
			Help: "Total number of bucket lock acquisitions and releases by lock mode",
		},
		[]string{"mode", "event"},
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(operations, locks)

	return &Metrics{
		registry:      registry,
		operations:    operations,
		readAcquired:  locks.WithLabelValues(hashtable.ReadLock.String(), "acquired"),
		readReleased:  locks.WithLabelValues(hashtable.ReadLock.String(), "released"),
		writeAcquired: locks.WithLabelValues(hashtable.WriteLock.String(), "acquired"),
		writeReleased: locks.WithLabelValues(hashtable.WriteLock.String(), "released"),
		logger:        logger,
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Acquired counts a lock acquisition.
func (m *Metrics) Acquired(bucketNo int, mode hashtable.LockMode) {
	if mode == hashtable.WriteLock {
		m.writeAcquired.Inc()
	} else {
		m.readAcquired.Inc()
	}
	m.logger.Debug(mode.String()+" LOCK ACQUIRED", zap.Int("bucket", bucketNo))
}

// Released counts a lock release.
func (m *Metrics) Released(bucketNo int, mode hashtable.LockMode) {
	if mode == hashtable.WriteLock {
		m.writeReleased.Inc()
	} else {
		m.readReleased.Inc()
	}
	m.logger.Debug(mode.String()+" LOCK RELEASED", zap.Int("bucket", bucketNo))
}

// ObserveOperation counts one table operation, e.g. ("lookup", "found").
func (m *Metrics) ObserveOperation(operation, result string) {
	m.operations.WithLabelValues(operation, result).Inc()
}

// Sample is one gathered counter value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// String formats the sample the way the prometheus text format does, e.g. name{a="b"}.
func (s Sample) String() string {
	if len(s.Labels) == 0 {
		return s.Name
	}
	keys := make([]string, 0, len(s.Labels))
	for k := range s.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + `="` + s.Labels[k] + `"`
	}
	return s.Name + "{" + strings.Join(parts, ",") + "}"
}

// Gather returns every counter in the registry, sorted by name and labels.
func (m *Metrics) Gather() ([]Sample, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			samples = append(samples, Sample{Name: mf.GetName(), Labels: labels, Value: metric.GetCounter().GetValue()})
		}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].String() < samples[j].String() })

	return samples, nil
}

// LockTotals returns the total number of lock acquisitions and releases over both modes.
func (m *Metrics) LockTotals() (acquired, released float64, err error) {
	samples, err := m.Gather()
	if err != nil {
		return
	}
	for _, s := range samples {
		if s.Name != "chtable_bucket_lock_events_total" {
			continue
		}
		switch s.Labels["event"] {
		case "acquired":
			acquired += s.Value
		case "released":
			released += s.Value
		}
	}
	return
}
