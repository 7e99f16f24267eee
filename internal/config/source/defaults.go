package source

import (
	"time"

	"tunnelgate/internal/config/schema"
)

// Default values shared with validation and CLI help text
const (
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8080
	DefaultRequestLimit = 1024
	DefaultBufferSize   = 16 * 1024
	DefaultHealthListen = "127.0.0.1:9090"
)

// DefaultSource provides default configuration values
type DefaultSource struct{}

// NewDefaultSource creates a new DefaultSource
func NewDefaultSource() *DefaultSource {
	return &DefaultSource{}
}

// Name returns the source name
func (s *DefaultSource) Name() string {
	return "defaults"
}

// Priority returns the source priority
func (s *DefaultSource) Priority() int {
	return PriorityDefaults
}

// LoadInto loads default values into the configuration
func (s *DefaultSource) LoadInto(cfg *schema.Root) error {
	// Proxy defaults
	cfg.Proxy.Host = DefaultHost
	cfg.Proxy.Port = DefaultPort
	cfg.Proxy.RequestLimit = DefaultRequestLimit
	cfg.Proxy.BufferSize = DefaultBufferSize
	cfg.Proxy.RelayMode = schema.RelayModeIndependent
	cfg.Proxy.HandshakeTimeout = 0
	cfg.Proxy.DialTimeout = 0
	cfg.Proxy.MaxConnections = 0
	cfg.Proxy.ReusePort = false

	// Resolver defaults
	cfg.Resolver.CacheEnabled = false
	cfg.Resolver.CacheSize = 1024
	cfg.Resolver.CacheTTL = 60 * time.Second

	// Health defaults
	cfg.Health.Enabled = false
	cfg.Health.Listen = DefaultHealthListen

	// Log defaults
	cfg.Log.Level = schema.LogLevelInfo
	cfg.Log.Format = schema.LogFormatText
	cfg.Log.File = ""

	return nil
}

// GetDefaultConfig returns a fully initialized default configuration
func GetDefaultConfig() *schema.Root {
	cfg := &schema.Root{}
	source := NewDefaultSource()
	_ = source.LoadInto(cfg)
	return cfg
}
