package extension

import "time"

// Config holds the FlowStream extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.flowstream" or "flowstream" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Sender is the payer identity used when providing a negotiating HTTP
	// client. When empty, no negotiator is registered in the container.
	Sender string `json:"sender" mapstructure:"sender" yaml:"sender"`

	// StreamDuration is the funding window opened per negotiated stream
	// (default: 1h).
	StreamDuration time.Duration `json:"stream_duration" mapstructure:"stream_duration" yaml:"stream_duration"`

	// DefaultToken is the token assumed when payment terms omit one
	// (default: "mnee").
	DefaultToken string `json:"default_token" mapstructure:"default_token" yaml:"default_token"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StreamDuration: time.Hour,
		DefaultToken:   "mnee",
	}
}
