// Package extension provides the Forge extension adapter for FlowStream.
//
// It implements the forge.Extension interface to integrate FlowStream
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.flowstream" or
// "flowstream" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/negotiator"
	"github.com/xraph/flowstream/store"
	"github.com/xraph/flowstream/store/memory"
	"github.com/xraph/flowstream/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "flowstream"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Stream-payment ledger with HTTP payment negotiation"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts FlowStream as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *flowstream.Ledger
	store      store.Store
	ledgerOpts []flowstream.Option
}

// New creates a new FlowStream Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *flowstream.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = flowstream.New(e.store, e.ledgerOpts...)

	if err := vessel.Provide(fapp.Container(), func() (*flowstream.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	// Provide a negotiating HTTP client when a payer identity is configured.
	if e.config.Sender != "" {
		sender := types.NormalizeAddress(e.config.Sender)
		return vessel.Provide(fapp.Container(), func() (*negotiator.Client, error) {
			return negotiator.New(e.engine, sender,
				negotiator.WithStreamDuration(e.config.StreamDuration),
				negotiator.WithDefaultToken(e.config.DefaultToken),
			), nil
		})
	}

	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("flowstream: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("flowstream: store not initialized")
	}
	return e.store.Ping(ctx)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("flowstream: configuration is required but not found in config files; " +
				"ensure 'extensions.flowstream' or 'flowstream' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("flowstream: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("sender", e.config.Sender),
		forge.F("stream_duration", e.config.StreamDuration),
		forge.F("default_token", e.config.DefaultToken),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.flowstream" first (namespaced pattern).
	if cm.IsSet("extensions.flowstream") {
		if err := cm.Bind("extensions.flowstream", &cfg); err == nil {
			e.Logger().Debug("flowstream: loaded config from file",
				forge.F("key", "extensions.flowstream"),
			)
			return cfg, true
		}
		e.Logger().Warn("flowstream: failed to bind extensions.flowstream config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "flowstream" key.
	if cm.IsSet("flowstream") {
		if err := cm.Bind("flowstream", &cfg); err == nil {
			e.Logger().Debug("flowstream: loaded config from file",
				forge.F("key", "flowstream"),
			)
			return cfg, true
		}
		e.Logger().Warn("flowstream: failed to bind flowstream config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.StreamDuration == 0 {
		cfg.StreamDuration = defaults.StreamDuration
	}
	if cfg.DefaultToken == "" {
		cfg.DefaultToken = defaults.DefaultToken
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Sender == "" && programmaticConfig.Sender != "" {
		yamlConfig.Sender = programmaticConfig.Sender
	}
	if yamlConfig.DefaultToken == "" && programmaticConfig.DefaultToken != "" {
		yamlConfig.DefaultToken = programmaticConfig.DefaultToken
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.StreamDuration == 0 && programmaticConfig.StreamDuration != 0 {
		yamlConfig.StreamDuration = programmaticConfig.StreamDuration
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
