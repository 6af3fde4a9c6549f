package intent

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the intent counters exported on /metrics
type Metrics struct {
	submitted prometheus.Counter
	withdrawn prometheus.Counter
	errors    *prometheus.CounterVec
	active    prometheus.Gauge
}

// NewMetrics creates the intent metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vport",
			Name:      "intents_submitted_total",
			Help:      "Number of intents acknowledged by the intent service.",
		}),
		withdrawn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vport",
			Name:      "intents_withdrawn_total",
			Help:      "Number of intents withdrawn from the intent service.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vport",
			Name:      "intent_errors_total",
			Help:      "Number of failed intent service calls.",
		}, []string{"op"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vport",
			Name:      "intents_active",
			Help:      "Number of intents installed by this process.",
		}),
	}
	reg.MustRegister(m.submitted, m.withdrawn, m.errors, m.active)
	return m
}

type instrumented struct {
	next    Service
	metrics *Metrics
}

// Instrument wraps svc so that every call is accounted in m
func Instrument(svc Service, m *Metrics) Service {
	return &instrumented{next: svc, metrics: m}
}

func (s *instrumented) Submit(ctx context.Context, in Intent) (uuid.UUID, error) {
	id, err := s.next.Submit(ctx, in)
	if err != nil {
		s.metrics.errors.WithLabelValues("submit").Inc()
		return id, err
	}
	s.metrics.submitted.Inc()
	s.metrics.active.Inc()
	return id, nil
}

func (s *instrumented) Withdraw(ctx context.Context, id uuid.UUID) error {
	if err := s.next.Withdraw(ctx, id); err != nil {
		s.metrics.errors.WithLabelValues("withdraw").Inc()
		return err
	}
	s.metrics.withdrawn.Inc()
	s.metrics.active.Dec()
	return nil
}
