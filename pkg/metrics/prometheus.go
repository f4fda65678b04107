// Package metrics provides Prometheus metrics for the keeper moderation engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the keeper service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Screening pipeline
	messagesScreened prometheus.Counter
	violations       *prometheus.CounterVec
	floodActions     *prometheus.CounterVec

	// Progression
	levelChanges *prometheus.CounterVec
	xpAwarded    prometheus.Counter

	// Games
	wagers *prometheus.CounterVec
	duels  *prometheus.CounterVec

	// Reputation
	reputationGrants  prometheus.Counter
	reputationDenials *prometheus.CounterVec

	// Store and oracle health
	storeLatency  prometheus.Histogram
	storeErrors   prometheus.Counter
	oracleErrors  prometheus.Counter
	activeActors  prometheus.Gauge
	activeDuels   prometheus.Gauge
	floodTracked  prometheus.Gauge

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "keeper",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	factory := promauto{registry: m.registry}

	m.messagesScreened = factory.counter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "messages_screened_total",
		Help: "Total inbound messages run through the screening pipeline.",
	})
	m.violations = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "violations_total",
		Help: "Content violations detected, by reason.",
	}, []string{"reason"})
	m.floodActions = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flood_actions_total",
		Help: "Flood scorer verdicts that triggered an action, by verdict.",
	}, []string{"verdict"})

	m.levelChanges = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "level_changes_total",
		Help: "Level transitions applied by the progression ledger, by direction.",
	}, []string{"direction"})
	m.xpAwarded = factory.counter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "xp_awarded_total",
		Help: "XP granted through message farming.",
	})

	m.wagers = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "wagers_total",
		Help: "Wager plays, by game and outcome.",
	}, []string{"game", "outcome"})
	m.duels = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "duels_total",
		Help: "Duel resolutions, by outcome.",
	}, []string{"outcome"})

	m.reputationGrants = factory.counter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reputation_grants_total",
		Help: "Successful peer reputation grants.",
	})
	m.reputationDenials = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reputation_denials_total",
		Help: "Rejected reputation grants, by cause.",
	}, []string{"cause"})

	m.storeLatency = factory.histogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_latency_ms",
		Help:    "Actor store operation latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.storeErrors = factory.counter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "store_errors_total",
		Help: "Actor store operation failures.",
	})
	m.oracleErrors = factory.counter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "role_oracle_errors_total",
		Help: "Role oracle lookups that failed and degraded to rank 0.",
	})
	m.activeActors = factory.gauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "actors_total",
		Help: "Actors tracked in the directory.",
	})
	m.activeDuels = factory.gauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "active_duels",
		Help: "Live duel sessions across all contexts.",
	})
	m.floodTracked = factory.gauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "flood_tracked_actors",
		Help: "Actors with live flood state in the registry.",
	})

	m.httpRequests = factory.counterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests served, by path and status.",
	}, []string{"path", "status"})
	m.httpRequestDuration = factory.histogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"path"})
}

// promauto mirrors promauto.With while tolerating a nil registry in tests.
type promauto struct {
	registry prometheus.Registerer
}

func (f promauto) register(c prometheus.Collector) {
	if f.registry != nil {
		f.registry.MustRegister(c)
	}
}

func (f promauto) counter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	f.register(c)
	return c
}

func (f promauto) counterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	f.register(c)
	return c
}

func (f promauto) gauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	g := prometheus.NewGauge(opts)
	f.register(g)
	return g
}

func (f promauto) histogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	f.register(h)
	return h
}

func (f promauto) histogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	f.register(h)
	return h
}

// Handler exposes the custom registry for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Registry exposes the custom registry for callers that gather directly.
func Registry() *prometheus.Registry {
	return customRegistry
}

// Package-level recording helpers backed by the global manager.

func RecordMessageScreened()          { globalManager.messagesScreened.Inc() }
func RecordViolation(reason string)   { globalManager.violations.WithLabelValues(reason).Inc() }
func RecordFloodAction(verdict string) { globalManager.floodActions.WithLabelValues(verdict).Inc() }

func RecordLevelUp()            { globalManager.levelChanges.WithLabelValues("up").Inc() }
func RecordLevelDown()          { globalManager.levelChanges.WithLabelValues("down").Inc() }
func RecordXPAwarded(n float64) { globalManager.xpAwarded.Add(n) }

func RecordWager(game, outcome string) { globalManager.wagers.WithLabelValues(game, outcome).Inc() }
func RecordDuel(outcome string)        { globalManager.duels.WithLabelValues(outcome).Inc() }

func RecordReputationGrant()            { globalManager.reputationGrants.Inc() }
func RecordReputationDenial(cause string) { globalManager.reputationDenials.WithLabelValues(cause).Inc() }

func RecordStoreLatency(ms float64) { globalManager.storeLatency.Observe(ms) }
func RecordStoreError()             { globalManager.storeErrors.Inc() }
func RecordOracleError()            { globalManager.oracleErrors.Inc() }

func UpdateActorCount(n int)   { globalManager.activeActors.Set(float64(n)) }
func UpdateActiveDuels(n int)  { globalManager.activeDuels.Set(float64(n)) }
func UpdateFloodTracked(n int) { globalManager.floodTracked.Set(float64(n)) }

func RecordHTTPRequest(path, status string) {
	globalManager.httpRequests.WithLabelValues(path, status).Inc()
}

func RecordHTTPDuration(path string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(path).Observe(ms)
}
