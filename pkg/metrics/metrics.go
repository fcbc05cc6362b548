package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service's Prometheus registry and metrics. Each collector has its own
// registry so tests can create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	SlotsCreatedTotal   prometheus.Counter
	ReservationsTotal   *prometheus.CounterVec
	CancellationsTotal  *prometheus.CounterVec
	CompletionsTotal    prometheus.Counter
	StoreRetriesTotal   prometheus.Counter
	NotificationsTotal  *prometheus.CounterVec
	NotificationDropped prometheus.Counter
}

// NewCollector registers all metrics under the given namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		SlotsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "slots_created_total",
			Help:      "Total availability slots created.",
		}),

		ReservationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome code.",
		}, []string{"outcome"}),

		CancellationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "cancellations_total",
			Help:      "Cancellation attempts by actor and outcome code.",
		}, []string{"actor", "outcome"}),

		CompletionsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "completions_total",
			Help:      "Bookings transitioned to completed by the sweep.",
		}),

		StoreRetriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "retries_total",
			Help:      "Transactions retried after a transient store failure.",
		}),

		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications handed to notifiers by kind and result.",
		}, []string{"kind", "result"}),

		NotificationDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Notifications dropped because the dispatch queue was full. Alert if non-zero.",
		}),
	}
}

// Handler exposes the collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Outcome returns the label used for an operation result: "ok" or the error code.
func Outcome(err error, code func(error) string) string {
	if err == nil {
		return "ok"
	}
	return code(err)
}
