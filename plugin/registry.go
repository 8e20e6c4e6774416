package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onStreamCreated     []OnStreamCreated
	onStreamWithdrawn   []OnStreamWithdrawn
	onStreamCanceled    []OnStreamCanceled
	onPaymentRequired   []OnPaymentRequired
	onPaymentNegotiated []OnPaymentNegotiated
	termsValidators     []TermsValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnStreamCreated); ok {
		r.onStreamCreated = append(r.onStreamCreated, v)
	}
	if v, ok := p.(OnStreamWithdrawn); ok {
		r.onStreamWithdrawn = append(r.onStreamWithdrawn, v)
	}
	if v, ok := p.(OnStreamCanceled); ok {
		r.onStreamCanceled = append(r.onStreamCanceled, v)
	}
	if v, ok := p.(OnPaymentRequired); ok {
		r.onPaymentRequired = append(r.onPaymentRequired, v)
	}
	if v, ok := p.(OnPaymentNegotiated); ok {
		r.onPaymentNegotiated = append(r.onPaymentNegotiated, v)
	}
	if v, ok := p.(TermsValidator); ok {
		r.termsValidators = append(r.termsValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnStreamCreated)(nil)).Elem(), "OnStreamCreated")
	checkInterface(reflect.TypeOf((*OnStreamWithdrawn)(nil)).Elem(), "OnStreamWithdrawn")
	checkInterface(reflect.TypeOf((*OnStreamCanceled)(nil)).Elem(), "OnStreamCanceled")
	checkInterface(reflect.TypeOf((*OnPaymentRequired)(nil)).Elem(), "OnPaymentRequired")
	checkInterface(reflect.TypeOf((*OnPaymentNegotiated)(nil)).Elem(), "OnPaymentNegotiated")
	checkInterface(reflect.TypeOf((*TermsValidator)(nil)).Elem(), "TermsValidator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCreated emits a stream created event.
func (r *Registry) EmitStreamCreated(ctx context.Context, stream interface{}) {
	r.mu.RLock()
	plugins := r.onStreamCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCreated(ctx, stream)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamWithdrawn emits a withdrawal event.
func (r *Registry) EmitStreamWithdrawn(ctx context.Context, stream, amount interface{}) {
	r.mu.RLock()
	plugins := r.onStreamWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamWithdrawn(ctx, stream, amount)
		}); err != nil {
			r.logger.Warn("plugin OnStreamWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStreamCanceled emits a stream cancelled event.
func (r *Registry) EmitStreamCanceled(ctx context.Context, stream, refund, settlement interface{}) {
	r.mu.RLock()
	plugins := r.onStreamCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStreamCanceled(ctx, stream, refund, settlement)
		}); err != nil {
			r.logger.Warn("plugin OnStreamCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentRequired emits a payment required event.
func (r *Registry) EmitPaymentRequired(ctx context.Context, host string, terms interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentRequired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentRequired(ctx, host, terms)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentRequired failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentNegotiated emits a payment negotiated event.
func (r *Registry) EmitPaymentNegotiated(ctx context.Context, host, streamID string) {
	r.mu.RLock()
	plugins := r.onPaymentNegotiated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentNegotiated(ctx, host, streamID)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentNegotiated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// ValidateTerms runs all registered terms validators. Unlike event
// emission, a validator error aborts the negotiation, so the first
// failure is returned.
func (r *Registry) ValidateTerms(ctx context.Context, terms interface{}) error {
	r.mu.RLock()
	validators := r.termsValidators
	r.mu.RUnlock()

	for _, v := range validators {
		if err := r.callWithTimeout(ctx, v.Name(), func() error {
			return v.ValidateTerms(ctx, terms)
		}); err != nil {
			return fmt.Errorf("plugin %s rejected terms: %w", v.Name(), err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the payment pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
