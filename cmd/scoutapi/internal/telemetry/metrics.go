package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observation write outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeReplayed = "replayed"
	OutcomeDeleted  = "deleted"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
)

// Photo metadata write outcomes.
const (
	PhotoRegistered = "registered"
	PhotoReplayed   = "replayed"
	PhotoConfirmed  = "confirmed"
)

// ScoutMetrics holds Prometheus instruments for the scouting API.
// A nil *ScoutMetrics is valid and records nothing.
type ScoutMetrics struct {
	observationWrites *prometheus.CounterVec
	photoWrites       *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	syncRecords       *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// NewScoutMetrics creates the instruments and registers them on registry.
func NewScoutMetrics(registry prometheus.Registerer) (*ScoutMetrics, error) {
	m := &ScoutMetrics{
		observationWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_observation_writes_total",
				Help: "Observation write attempts by outcome",
			},
			[]string{"outcome"},
		),
		photoWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_photo_writes_total",
				Help: "Photo metadata writes by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_session_transitions_total",
				Help: "Successful session lifecycle transitions by audit action",
			},
			[]string{"action"},
		),
		syncRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_sync_records_total",
				Help: "Records returned by delta sync",
			},
			[]string{"kind"}, // kind: session, observation, tombstone, photo
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scout_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *ScoutMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.observationWrites.Describe(ch)
	m.photoWrites.Describe(ch)
	m.transitions.Describe(ch)
	m.syncRecords.Describe(ch)
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *ScoutMetrics) Collect(ch chan<- prometheus.Metric) {
	m.observationWrites.Collect(ch)
	m.photoWrites.Collect(ch)
	m.transitions.Collect(ch)
	m.syncRecords.Collect(ch)
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
}

// RecordObservationWrite counts one observation write attempt.
func (m *ScoutMetrics) RecordObservationWrite(outcome string) {
	if m == nil {
		return
	}
	m.observationWrites.WithLabelValues(outcome).Inc()
}

// RecordPhotoWrite counts one committed photo metadata write.
func (m *ScoutMetrics) RecordPhotoWrite(outcome string) {
	if m == nil {
		return
	}
	m.photoWrites.WithLabelValues(outcome).Inc()
}

// RecordTransition counts one committed lifecycle transition.
func (m *ScoutMetrics) RecordTransition(action string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action).Inc()
}

// RecordSync counts the records served by one sync call.
func (m *ScoutMetrics) RecordSync(sessions, observations, tombstones, photos int) {
	if m == nil {
		return
	}
	m.syncRecords.WithLabelValues("session").Add(float64(sessions))
	m.syncRecords.WithLabelValues("observation").Add(float64(observations))
	m.syncRecords.WithLabelValues("tombstone").Add(float64(tombstones))
	m.syncRecords.WithLabelValues("photo").Add(float64(photos))
}

// RecordRequest records one served HTTP request.
func (m *ScoutMetrics) RecordRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
