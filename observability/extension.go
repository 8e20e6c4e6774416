// Package observability provides a metrics extension for FlowStream that
// records stream lifecycle and negotiation event counts.
package observability

import (
	"context"

	"github.com/xraph/flowstream/plugin"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnStreamCreated     = (*MetricsExtension)(nil)
	_ plugin.OnStreamWithdrawn   = (*MetricsExtension)(nil)
	_ plugin.OnStreamCanceled    = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRequired   = (*MetricsExtension)(nil)
	_ plugin.OnPaymentNegotiated = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Ledger plugin to automatically track payment metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Stream metrics
	StreamsCreated   Counter
	StreamsCanceled  Counter
	StreamDeposit    Histogram
	StreamFlowRate   Histogram
	StreamLifeSecs   Histogram
	SettledOnCancel  Histogram
	RefundedOnCancel Histogram

	// Withdrawal metrics
	Withdrawals      Counter
	WithdrawalVolume Counter

	// Negotiation metrics
	PaymentsRequired   Counter
	PaymentsNegotiated Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Stream metrics
		StreamsCreated:   factory.Counter("flowstream.stream.created"),
		StreamsCanceled:  factory.Counter("flowstream.stream.canceled"),
		StreamDeposit:    factory.Histogram("flowstream.stream.deposit_units"),
		StreamFlowRate:   factory.Histogram("flowstream.stream.flow_rate_units"),
		StreamLifeSecs:   factory.Histogram("flowstream.stream.lifetime_seconds"),
		SettledOnCancel:  factory.Histogram("flowstream.cancel.settled_units"),
		RefundedOnCancel: factory.Histogram("flowstream.cancel.refunded_units"),

		// Withdrawal metrics
		Withdrawals:      factory.Counter("flowstream.withdrawal.count"),
		WithdrawalVolume: factory.Counter("flowstream.withdrawal.units"),

		// Negotiation metrics
		PaymentsRequired:   factory.Counter("flowstream.negotiation.payment_required"),
		PaymentsNegotiated: factory.Counter("flowstream.negotiation.negotiated"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (m *MetricsExtension) OnStreamCreated(_ context.Context, s interface{}) error {
	m.StreamsCreated.Inc()
	if st, ok := s.(*stream.Stream); ok {
		m.StreamDeposit.Observe(float64(st.Deposit.Units))
		m.StreamFlowRate.Observe(float64(st.FlowRate.Units))
	}
	return nil
}

// OnStreamWithdrawn implements plugin.OnStreamWithdrawn.
func (m *MetricsExtension) OnStreamWithdrawn(_ context.Context, _ interface{}, amount interface{}) error {
	m.Withdrawals.Inc()
	if a, ok := amount.(types.Amount); ok {
		m.WithdrawalVolume.Add(float64(a.Units))
	}
	return nil
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (m *MetricsExtension) OnStreamCanceled(_ context.Context, s, refund, settlement interface{}) error {
	m.StreamsCanceled.Inc()
	if st, ok := s.(*stream.Stream); ok && st.CancelledAt != nil {
		m.StreamLifeSecs.Observe(float64(st.CancelledAt.Unix() - st.StartTime.Unix()))
	}
	if r, ok := refund.(types.Amount); ok {
		m.RefundedOnCancel.Observe(float64(r.Units))
	}
	if sa, ok := settlement.(types.Amount); ok {
		m.SettledOnCancel.Observe(float64(sa.Units))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Negotiation hooks
// ──────────────────────────────────────────────────

// OnPaymentRequired implements plugin.OnPaymentRequired.
func (m *MetricsExtension) OnPaymentRequired(_ context.Context, _ string, _ interface{}) error {
	m.PaymentsRequired.Inc()
	return nil
}

// OnPaymentNegotiated implements plugin.OnPaymentNegotiated.
func (m *MetricsExtension) OnPaymentNegotiated(_ context.Context, _, _ string) error {
	m.PaymentsNegotiated.Inc()
	return nil
}
