package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts money-moving outcomes across webhooks, settlement and payouts.
type LedgerMetrics struct {
	webhooks       *prometheus.CounterVec
	settlements    *prometheus.CounterVec
	payouts        *prometheus.CounterVec
	authorizations *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gtclicks_webhook_events_total",
		Help: "Payment webhook deliveries by provider and outcome.",
	}, []string{"provider", "outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gtclicks_settlements_total",
		Help: "Order settlement attempts by outcome.",
	}, []string{"outcome"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gtclicks_payouts_total",
		Help: "Payout state transitions by action and outcome.",
	}, []string{"action", "outcome"})
	authorizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gtclicks_transfer_authorizations_total",
		Help: "Transfer authorization decisions.",
	}, []string{"decision"})
	reg.MustRegister(webhooks, settlements, payouts, authorizations)
	return &LedgerMetrics{
		webhooks:       webhooks,
		settlements:    settlements,
		payouts:        payouts,
		authorizations: authorizations,
	}
}

func (m *LedgerMetrics) IncWebhook(provider, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

func (m *LedgerMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *LedgerMetrics) IncPayout(action, outcome string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

func (m *LedgerMetrics) IncAuthorization(decision string) {
	if m == nil || m.authorizations == nil {
		return
	}
	m.authorizations.WithLabelValues(normalizeLabel(decision)).Inc()
}

// normalizeLabel keeps label values lowercase and never empty.
func normalizeLabel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return v
}
