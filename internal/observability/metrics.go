package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iamwavecut/ngguard/internal/moderation"
)

// Metrics implements moderation.Observer on top of prometheus collectors.
type Metrics struct {
	decisions          *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	subscriptionChecks *prometheus.CounterVec
	audit              *AuditLog
}

var _ moderation.Observer = (*Metrics)(nil)

// NewMetrics registers the collectors with reg. audit may be nil.
func NewMetrics(reg prometheus.Registerer, audit *AuditLog) (*Metrics, error) {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngguard_decisions_total",
				Help: "Moderation decisions by verdict and reason",
			},
			[]string{"verdict", "reason"},
		),
		processingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ngguard_message_processing_duration_seconds",
				Help:    "Time spent moderating one message",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"verdict"},
		),
		subscriptionChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ngguard_subscription_checks_total",
				Help: "Channel membership queries by result",
			},
			[]string{"result"},
		),
		audit: audit,
	}
	for _, c := range []prometheus.Collector{m.decisions, m.processingDuration, m.subscriptionChecks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) DecisionMade(ctx context.Context, msg moderation.IncomingMessage, decision moderation.Decision, elapsed time.Duration) {
	m.decisions.WithLabelValues(string(decision.Verdict), string(decision.Reason)).Inc()
	m.processingDuration.WithLabelValues(string(decision.Verdict)).Observe(elapsed.Seconds())
	if m.audit != nil {
		m.audit.Record(ctx, msg, decision)
	}
}

func (m *Metrics) SubscriptionChecked(result moderation.SubscriptionResult) {
	m.subscriptionChecks.WithLabelValues(string(result)).Inc()
}
