package extension

import (
	"time"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/plugin"
	"github.com/xraph/flowstream/store"
	"github.com/xraph/flowstream/vault"
)

// Option configures the FlowStream Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithVault sets the escrow vault for the ledger engine.
func WithVault(v vault.Vault) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, flowstream.WithVault(v))
	}
}

// WithLedgerOption passes a flowstream.Option through to the underlying engine.
func WithLedgerOption(opt flowstream.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, flowstream.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithSender sets the payer identity for the provided negotiator client.
func WithSender(sender string) Option {
	return func(e *Extension) { e.config.Sender = sender }
}

// WithStreamDuration sets the funding window per negotiated stream.
func WithStreamDuration(d time.Duration) Option {
	return func(e *Extension) { e.config.StreamDuration = d }
}

// WithDefaultToken sets the token assumed when payment terms omit one.
func WithDefaultToken(token string) Option {
	return func(e *Extension) { e.config.DefaultToken = token }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
