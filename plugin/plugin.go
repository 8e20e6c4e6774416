// Package plugin provides an extensible plugin system for FlowStream.
// Plugins can hook into stream lifecycle and payment negotiation events.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Stream lifecycle hooks
// ──────────────────────────────────────────────────

// OnStreamCreated is called when a new payment stream is opened.
type OnStreamCreated interface {
	Plugin
	OnStreamCreated(ctx context.Context, stream interface{}) error
}

// OnStreamWithdrawn is called when a recipient withdraws accrued value.
// amount is the withdrawn Amount.
type OnStreamWithdrawn interface {
	Plugin
	OnStreamWithdrawn(ctx context.Context, stream interface{}, amount interface{}) error
}

// OnStreamCanceled is called when a stream is cancelled. refund and
// settlement are the Amounts returned to sender and paid to recipient.
type OnStreamCanceled interface {
	Plugin
	OnStreamCanceled(ctx context.Context, stream interface{}, refund, settlement interface{}) error
}

// ──────────────────────────────────────────────────
// Negotiation hooks
// ──────────────────────────────────────────────────

// OnPaymentRequired is called when the negotiator observes a 402 response.
type OnPaymentRequired interface {
	Plugin
	OnPaymentRequired(ctx context.Context, host string, terms interface{}) error
}

// OnPaymentNegotiated is called when a negotiation completes and a stream
// is bound to a target host.
type OnPaymentNegotiated interface {
	Plugin
	OnPaymentNegotiated(ctx context.Context, host string, streamID string) error
}

// ──────────────────────────────────────────────────
// Terms validators
// ──────────────────────────────────────────────────

// TermsValidator provides custom validation of advertised payment terms
// before the negotiator commits funds to them.
type TermsValidator interface {
	Plugin
	ValidateTerms(ctx context.Context, terms interface{}) error
}
