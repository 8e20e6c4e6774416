// Package provider implements the server side of the payment-required
// handshake: HTTP middleware that demands a funded payment stream before
// letting a request through.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/id"
	"github.com/xraph/flowstream/types"
)

// Terms are the payment conditions a route demands, advertised on every
// 402 response.
type Terms struct {
	// Rate is the price per second of access, in smallest token units.
	Rate types.Amount

	// Recipient is the settlement target streams must pay. Advertised
	// explicitly; clients must never infer it from the token identifier.
	Recipient types.Address
}

type contextKey struct{}

// StreamFromContext returns the validated stream ID attached by the
// middleware, if the request paid.
func StreamFromContext(ctx context.Context) (id.StreamID, bool) {
	sid, ok := ctx.Value(contextKey{}).(id.StreamID)
	return sid, ok
}

// Middleware gates a handler behind payment terms. Requests without a
// stream reference, or with one the ledger rejects, get a 402 carrying the
// terms headers; requests backed by a live stream pass through with the
// stream ID available via StreamFromContext.
type Middleware struct {
	ledger *flowstream.Ledger
	terms  Terms
	logger *slog.Logger
}

// New creates a payment middleware for the given terms.
func New(ledger *flowstream.Ledger, terms Terms, opts ...Option) *Middleware {
	m := &Middleware{
		ledger: ledger,
		terms:  terms,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) { m.logger = logger }
}

// Wrap returns next gated behind the payment terms.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := r.Header.Get(flowstream.HeaderStream)
		if ref == "" {
			m.demandPayment(w, "no stream reference")
			return
		}

		sid, err := m.validate(r.Context(), ref)
		if err != nil {
			m.logger.Debug("rejected stream reference",
				"stream_ref", ref,
				"reason", err,
			)
			m.demandPayment(w, err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, sid)))
	})
}

// validate checks that the referenced stream actually pays for this route:
// it must exist, be uncancelled, pay our recipient, and still be inside its
// funding window. The last check matters because the active flag survives
// natural expiry; only the clock knows a stream has run dry.
func (m *Middleware) validate(ctx context.Context, ref string) (id.StreamID, error) {
	sid, err := id.ParseStreamID(ref)
	if err != nil {
		return id.Nil, fmt.Errorf("malformed stream reference")
	}

	st, err := m.ledger.GetStream(ctx, sid)
	if err != nil {
		return id.Nil, fmt.Errorf("unknown stream")
	}

	if !st.Active {
		return id.Nil, fmt.Errorf("stream cancelled")
	}
	if !st.Recipient.Equal(m.terms.Recipient) {
		return id.Nil, fmt.Errorf("stream pays a different recipient")
	}
	if st.Expired(m.ledger.Clock().Now()) {
		return id.Nil, fmt.Errorf("stream expired")
	}

	return sid, nil
}

func (m *Middleware) demandPayment(w http.ResponseWriter, reason string) {
	h := w.Header()
	h.Set(flowstream.HeaderMode, flowstream.ModeStreaming)
	h.Set(flowstream.HeaderRate, m.terms.Rate.FormatMajor())
	h.Set(flowstream.HeaderRecipient, m.terms.Recipient.String())
	h.Set(flowstream.HeaderToken, m.terms.Rate.Token)

	http.Error(w, "payment required: "+reason, http.StatusPaymentRequired)
}
