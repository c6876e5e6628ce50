package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reactor holds the collectors the reactor loop updates. Each instance owns
// its registry so several reactors can coexist in one process.
type Reactor struct {
	registry *prometheus.Registry

	EventsTotal      *prometheus.CounterVec
	QuarantinedTotal *prometheus.CounterVec
	BatchSize        prometheus.Histogram
	DispatchDuration prometheus.Histogram
	RelayoutsTotal   prometheus.Counter
	FramesApplied    prometheus.Counter
	ChurnCommits     prometheus.Counter
	SynthesizedTotal *prometheus.CounterVec
	DuplicateSpaces  prometheus.Counter
	Panics           prometheus.Counter
	RaiseRequests    prometheus.Counter
	QueueDepth       prometheus.Gauge
	TrackedWindows   prometheus.Gauge
	ActiveSpaces     prometheus.Gauge

	startTime time.Time

	mu       sync.Mutex
	snapshot Snapshot
}

// Snapshot is the JSON view returned by the metrics query.
type Snapshot struct {
	Events           uint64            `json:"events"`
	EventsByKind     map[string]uint64 `json:"events_by_kind,omitempty"`
	Quarantined      uint64            `json:"quarantined"`
	Batches          uint64            `json:"batches"`
	LargestBatch     int               `json:"largest_batch"`
	Relayouts        uint64            `json:"relayouts"`
	FramesApplied    uint64            `json:"frames_applied"`
	ChurnCommits     uint64            `json:"churn_commits"`
	SyntheticAppear  uint64            `json:"synthetic_appeared"`
	SyntheticDestroy uint64            `json:"synthetic_destroyed"`
	DuplicateSpaces  uint64            `json:"duplicate_space_changes"`
	Panics           uint64            `json:"panics"`
	RaiseRequests    uint64            `json:"raise_requests"`
	TrackedWindows   int               `json:"tracked_windows"`
	ActiveSpaces     int               `json:"active_spaces"`
	UptimeSeconds    float64           `json:"uptime_seconds"`
}

// NewReactor creates the collectors on a fresh registry.
func NewReactor() *Reactor {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Reactor{
		registry:  reg,
		startTime: time.Now(),

		EventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_events_total",
				Help: "Events dispatched by the reactor, by kind",
			},
			[]string{"kind"},
		),
		QuarantinedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_quarantined_events_total",
				Help: "Events held back while displays were reconfiguring",
			},
			[]string{"kind"},
		),
		BatchSize: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spacetile_reactor_batch_size",
				Help:    "Events drained per reactor wake-up",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		DispatchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spacetile_reactor_dispatch_duration_seconds",
				Help:    "Time spent handling a single event",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
			},
		),
		RelayoutsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_relayouts_total",
				Help: "Layout passes that produced frames",
			},
		),
		FramesApplied: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_frames_applied_total",
				Help: "Window frames handed to the animator",
			},
		),
		ChurnCommits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spacetile_topology_commits_total",
				Help: "Display churn periods committed",
			},
		),
		SynthesizedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetile_topology_synthesized_events_total",
				Help: "Window events synthesized when committing a churn snapshot",
			},
			[]string{"kind"},
		),
		DuplicateSpaces: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_duplicate_space_changes_total",
				Help: "Space change notifications ignored as duplicates",
			},
		),
		Panics: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_panics_total",
				Help: "Panics recovered while dispatching events",
			},
		),
		RaiseRequests: f.NewCounter(
			prometheus.CounterOpts{
				Name: "spacetile_reactor_raise_requests_total",
				Help: "Raise requests forwarded to the raise executor",
			},
		),
		QueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacetile_reactor_queue_depth",
				Help: "Events waiting in the reactor inbox",
			},
		),
		TrackedWindows: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacetile_reactor_tracked_windows",
				Help: "Windows known to the reactor",
			},
		),
		ActiveSpaces: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "spacetile_reactor_active_spaces",
				Help: "Spaces currently managed",
			},
		),
	}
	m.snapshot.EventsByKind = make(map[string]uint64)
	return m
}

// Registry exposes the underlying registry, for tests and custom exporters.
func (m *Reactor) Registry() *prometheus.Registry { return m.registry }

// Handler serves the collectors in the Prometheus text format.
func (m *Reactor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEvent counts one dispatched event.
func (m *Reactor) RecordEvent(kind string, d time.Duration) {
	m.EventsTotal.WithLabelValues(kind).Inc()
	m.DispatchDuration.Observe(d.Seconds())

	m.mu.Lock()
	m.snapshot.Events++
	m.snapshot.EventsByKind[kind]++
	m.mu.Unlock()
}

// RecordQuarantined counts an event held back during churn.
func (m *Reactor) RecordQuarantined(kind string) {
	m.QuarantinedTotal.WithLabelValues(kind).Inc()

	m.mu.Lock()
	m.snapshot.Quarantined++
	m.mu.Unlock()
}

// RecordBatch records how many events one wake-up drained.
func (m *Reactor) RecordBatch(n int) {
	m.BatchSize.Observe(float64(n))

	m.mu.Lock()
	m.snapshot.Batches++
	if n > m.snapshot.LargestBatch {
		m.snapshot.LargestBatch = n
	}
	m.mu.Unlock()
}

// RecordRelayout counts a layout pass and the frames it produced.
func (m *Reactor) RecordRelayout(frames int) {
	m.RelayoutsTotal.Inc()
	m.FramesApplied.Add(float64(frames))

	m.mu.Lock()
	m.snapshot.Relayouts++
	m.snapshot.FramesApplied += uint64(frames)
	m.mu.Unlock()
}

// RecordCommit counts a churn commit and the events it synthesized.
func (m *Reactor) RecordCommit(appeared, destroyed int) {
	m.ChurnCommits.Inc()
	m.SynthesizedTotal.WithLabelValues("appeared").Add(float64(appeared))
	m.SynthesizedTotal.WithLabelValues("destroyed").Add(float64(destroyed))

	m.mu.Lock()
	m.snapshot.ChurnCommits++
	m.snapshot.SyntheticAppear += uint64(appeared)
	m.snapshot.SyntheticDestroy += uint64(destroyed)
	m.mu.Unlock()
}

func (m *Reactor) RecordDuplicateSpaces() {
	m.DuplicateSpaces.Inc()

	m.mu.Lock()
	m.snapshot.DuplicateSpaces++
	m.mu.Unlock()
}

func (m *Reactor) RecordPanic() {
	m.Panics.Inc()

	m.mu.Lock()
	m.snapshot.Panics++
	m.mu.Unlock()
}

func (m *Reactor) RecordRaise() {
	m.RaiseRequests.Inc()

	m.mu.Lock()
	m.snapshot.RaiseRequests++
	m.mu.Unlock()
}

// SetOccupancy updates the gauges describing reactor state.
func (m *Reactor) SetOccupancy(windows, activeSpaces, queued int) {
	m.TrackedWindows.Set(float64(windows))
	m.ActiveSpaces.Set(float64(activeSpaces))
	m.QueueDepth.Set(float64(queued))

	m.mu.Lock()
	m.snapshot.TrackedWindows = windows
	m.snapshot.ActiveSpaces = activeSpaces
	m.mu.Unlock()
}

// Snapshot returns a copy of the current values.
func (m *Reactor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.snapshot
	out.EventsByKind = make(map[string]uint64, len(m.snapshot.EventsByKind))
	for k, v := range m.snapshot.EventsByKind {
		out.EventsByKind[k] = v
	}
	out.UptimeSeconds = time.Since(m.startTime).Seconds()
	return out
}
