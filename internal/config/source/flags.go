package source

import "tunnelgate/internal/config/schema"

// FlagValues holds command-line overrides; nil fields were not given
type FlagValues struct {
	Host      *string
	Port      *int
	LogLevel  *string
	RelayMode *string
}

// FlagSource applies command-line flags on top of every other source
type FlagSource struct {
	values FlagValues
}

// NewFlagSource creates a new FlagSource
func NewFlagSource(values FlagValues) *FlagSource {
	return &FlagSource{values: values}
}

// Name returns the source name
func (s *FlagSource) Name() string {
	return "flags"
}

// Priority returns the source priority
func (s *FlagSource) Priority() int {
	return PriorityCLI
}

// LoadInto copies every provided flag into the config structure
func (s *FlagSource) LoadInto(cfg *schema.Root) error {
	if s.values.Host != nil {
		cfg.Proxy.Host = *s.values.Host
	}
	if s.values.Port != nil {
		cfg.Proxy.Port = *s.values.Port
	}
	if s.values.LogLevel != nil {
		cfg.Log.Level = *s.values.LogLevel
	}
	if s.values.RelayMode != nil {
		cfg.Proxy.RelayMode = *s.values.RelayMode
	}
	return nil
}
