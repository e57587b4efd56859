package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grievance"

// Recorder receives counter increments from the services.
type Recorder interface {
	ComplaintSubmitted(department, severity string)
	ClassificationFailed()
	StatusUpdated(status string)
	NotificationOutcome(outcome string)
}

// Metrics owns a private registry so tests can build independent instances.
type Metrics struct {
	registry      *prometheus.Registry
	submitted     *prometheus.CounterVec
	classifyFails prometheus.Counter
	statusUpdates *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the service counters and the Go/process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaints_submitted_total",
			Help:      "Complaints accepted, by routed department and severity.",
		}, []string{"department", "severity"}),
		classifyFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_failures_total",
			Help:      "Submissions rejected because the classifier was unavailable.",
		}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_updates_total",
			Help:      "Persisted status transitions, by new status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts, by outcome (delivered, no_channel, relayed, failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submitted,
		m.classifyFails,
		m.statusUpdates,
		m.notifications,
	)
	return m
}

// TrackConnections exposes the live channel count as a gauge.
func (m *Metrics) TrackConnections(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_channels",
		Help:      "Citizens with a live notification channel on this instance.",
	}, func() float64 { return float64(count()) }))
}

func (m *Metrics) ComplaintSubmitted(department, severity string) {
	m.submitted.WithLabelValues(department, severity).Inc()
}

func (m *Metrics) ClassificationFailed() {
	m.classifyFails.Inc()
}

func (m *Metrics) StatusUpdated(status string) {
	m.statusUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) NotificationOutcome(outcome string) {
	m.notifications.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Nop discards every observation.
type Nop struct{}

func (Nop) ComplaintSubmitted(string, string) {}
func (Nop) ClassificationFailed()             {}
func (Nop) StatusUpdated(string)              {}
func (Nop) NotificationOutcome(string)        {}
