// Package audithook bridges FlowStream lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/flowstream/plugin"
	"github.com/xraph/flowstream/stream"
	"github.com/xraph/flowstream/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnStreamCreated     = (*Extension)(nil)
	_ plugin.OnStreamWithdrawn   = (*Extension)(nil)
	_ plugin.OnStreamCanceled    = (*Extension)(nil)
	_ plugin.OnPaymentRequired   = (*Extension)(nil)
	_ plugin.OnPaymentNegotiated = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import a
// concrete backend; callers inject the real recorder at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges FlowStream lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated implements plugin.OnStreamCreated.
func (e *Extension) OnStreamCreated(ctx context.Context, s interface{}) error {
	st, _ := s.(*stream.Stream)
	if st == nil {
		return nil
	}

	return e.record(ctx, ActionStreamCreated, SeverityInfo, OutcomeSuccess,
		ResourceStream, st.ID.String(), CategoryPayment, nil,
		"sender", st.Sender.String(),
		"recipient", st.Recipient.String(),
		"deposit", st.Deposit.String(),
		"stop_time", st.StopTime,
	)
}

// OnStreamWithdrawn implements plugin.OnStreamWithdrawn.
func (e *Extension) OnStreamWithdrawn(ctx context.Context, s interface{}, amount interface{}) error {
	st, _ := s.(*stream.Stream)
	if st == nil {
		return nil
	}

	kv := []any{"recipient", st.Recipient.String()}
	if a, ok := amount.(types.Amount); ok {
		kv = append(kv, "amount", a.String())
	}

	return e.record(ctx, ActionStreamWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceStream, st.ID.String(), CategoryPayment, nil, kv...)
}

// OnStreamCanceled implements plugin.OnStreamCanceled.
func (e *Extension) OnStreamCanceled(ctx context.Context, s, refund, settlement interface{}) error {
	st, _ := s.(*stream.Stream)
	if st == nil {
		return nil
	}

	kv := []any{"sender", st.Sender.String(), "recipient", st.Recipient.String()}
	if r, ok := refund.(types.Amount); ok {
		kv = append(kv, "refund", r.String())
	}
	if sa, ok := settlement.(types.Amount); ok {
		kv = append(kv, "settlement", sa.String())
	}

	return e.record(ctx, ActionStreamCanceled, SeverityWarning, OutcomeSuccess,
		ResourceStream, st.ID.String(), CategoryPayment, nil, kv...)
}

// ──────────────────────────────────────────────────
// Negotiation hooks
// ──────────────────────────────────────────────────

// OnPaymentRequired implements plugin.OnPaymentRequired.
func (e *Extension) OnPaymentRequired(ctx context.Context, host string, _ interface{}) error {
	return e.record(ctx, ActionPaymentRequired, SeverityInfo, OutcomeSuccess,
		ResourceNegotiation, host, CategoryNegotiation, nil,
		"host", host,
	)
}

// OnPaymentNegotiated implements plugin.OnPaymentNegotiated.
func (e *Extension) OnPaymentNegotiated(ctx context.Context, host, streamID string) error {
	return e.record(ctx, ActionPaymentNegotiated, SeverityInfo, OutcomeSuccess,
		ResourceNegotiation, host, CategoryNegotiation, nil,
		"host", host,
		"stream_id", streamID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
