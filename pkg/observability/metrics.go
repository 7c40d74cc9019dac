package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

const namespace = "prsdb"

// Metrics holds the collectors fed by journey lifecycle events and the HTTP adapter.
type Metrics struct {
	stepEvents      *prometheus.CounterVec
	fieldErrors     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gatherer        prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.
// If reg is also a Gatherer (e.g. *prometheus.Registry), Handler serves it;
// otherwise Handler serves the default gatherer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		stepEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_events_total",
				Help:      "Total number of journey step lifecycle events",
			},
			[]string{"segment", "event"},
		),
		fieldErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_field_errors_total",
				Help:      "Total number of field errors reported on step submissions",
			},
			[]string{"segment"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of journey HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		gatherer: prometheus.DefaultGatherer,
	}
	reg.MustRegister(m.stepEvents, m.fieldErrors, m.requestDuration)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Hooks returns lifecycle hooks that record every step event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	record := func(_ context.Context, e *domain.StepEvent) {
		m.stepEvents.WithLabelValues(e.Segment, string(e.Type)).Inc()
		if e.FieldErrors > 0 {
			m.fieldErrors.WithLabelValues(e.Segment).Add(float64(e.FieldErrors))
		}
	}
	return domain.LifecycleHooks{
		OnStepRender:      record,
		OnStepSubmit:      record,
		OnStepInvalid:     record,
		OnStepUnreachable: record,
	}
}

// ObserveRequest records the duration of one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registered metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
