package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TrackerCollector bundles Prometheus metrics for the observation pipeline:
// oracle traffic, snapshot-cache effectiveness, scheduler cadence, and data
// logger throughput. All methods are nil-safe so instrumentation can be left
// unwired in tests.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	OracleCalls    *prometheus.CounterVec
	CacheHits      prometheus.Counter
	TicksTotal     prometheus.Counter
	AppendDuration prometheus.Histogram
	DatasetEntries prometheus.Gauge
}

// NewTrackerCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	oracleCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_calls_total",
		Help: "Total number of position-oracle queries, labeled by body.",
	}, []string{"body"})
	oracleCalls, err := registerCounterVec(reg, oracleCalls, "oracle_calls_total")
	if err != nil {
		return nil, err
	}

	cacheHits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_cache_hits_total",
		Help: "Snapshot requests served from the single-slot cache without touching the oracle.",
	}), "snapshot_cache_hits_total")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_ticks_total",
		Help: "Completed scheduler ticks.",
	}), "tracker_ticks_total")
	if err != nil {
		return nil, err
	}

	appendDur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "datalog_append_duration_seconds",
		Help:    "Duration of dual-sink dataset appends.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})
	appendDur, err = registerHistogram(reg, appendDur, "datalog_append_duration_seconds")
	if err != nil {
		return nil, err
	}

	entries, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "datalog_entries",
		Help: "Logical entries in the in-memory dataset (baseline plus buffer).",
	}), "datalog_entries")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:       gatherer,
		OracleCalls:    oracleCalls,
		CacheHits:      cacheHits,
		TicksTotal:     ticks,
		AppendDuration: appendDur,
		DatasetEntries: entries,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// IncOracleCall records one oracle query. Satisfies the orchestrator's
// metrics-recorder interface.
func (c *TrackerCollector) IncOracleCall(body string) {
	if c == nil || c.OracleCalls == nil {
		return
	}
	c.OracleCalls.WithLabelValues(body).Inc()
}

// IncCacheHit records a snapshot served from the cache.
func (c *TrackerCollector) IncCacheHit() {
	if c == nil || c.CacheHits == nil {
		return
	}
	c.CacheHits.Inc()
}

// IncTick records one completed scheduler tick.
func (c *TrackerCollector) IncTick() {
	if c == nil || c.TicksTotal == nil {
		return
	}
	c.TicksTotal.Inc()
}

// ObserveAppend records the duration of one dataset append.
func (c *TrackerCollector) ObserveAppend(d time.Duration) {
	if c == nil || c.AppendDuration == nil {
		return
	}
	c.AppendDuration.Observe(d.Seconds())
}

// SetDatasetEntries updates the dataset size gauge.
func (c *TrackerCollector) SetDatasetEntries(count int) {
	if c == nil || c.DatasetEntries == nil {
		return
	}
	c.DatasetEntries.Set(float64(count))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
