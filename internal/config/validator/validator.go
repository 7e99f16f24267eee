// Package validator provides configuration validation
package validator

import (
	"fmt"
	"net"
	"strings"

	"tunnelgate/internal/config/schema"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string // Field path (e.g., "proxy.port")
	Value   string // Current value
	Message string // Error message
	Hint    string // Fix suggestion
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a formatted error message
func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n\n")

	for i, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Field))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     Current value: %s\n", err.Value))
		}
		sb.WriteString(fmt.Sprintf("     Error: %s\n", err.Message))
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     Hint: %s\n", err.Hint))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Hint:    hint,
	})
}

// Validator validates configuration
type Validator struct {
	rules []ValidationRule
}

// ValidationRule is a function that validates configuration
type ValidationRule func(cfg *schema.Root, result *ValidationResult)

// NewValidator creates a new Validator with default rules
func NewValidator() *Validator {
	v := &Validator{
		rules: make([]ValidationRule, 0),
	}

	v.AddRule(validateProxy)
	v.AddRule(validateResolver)
	v.AddRule(validateLog)
	v.AddRule(validateHealth)

	return v
}

// AddRule adds a validation rule
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules = append(v.rules, rule)
}

// Validate validates the configuration
func (v *Validator) Validate(cfg *schema.Root) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]ValidationError, 0),
	}

	for _, rule := range v.rules {
		rule(cfg, result)
	}

	return result
}

// ValidateConfig is a convenience function that creates a validator and validates
func ValidateConfig(cfg *schema.Root) *ValidationResult {
	return NewValidator().Validate(cfg)
}

// ============================================================================
// Validation Rules
// ============================================================================

func validateProxy(cfg *schema.Root, result *ValidationResult) {
	p := cfg.Proxy

	validatePort("proxy.port", p.Port, result)
	validateHost("proxy.host", p.Host, result)

	// The request line must fit "CONNECT h HTTP/1.1\r\n"
	if p.RequestLimit < 32 {
		result.AddError("proxy.request_limit",
			fmt.Sprintf("%d", p.RequestLimit),
			"request_limit must be at least 32 bytes",
			"Set a value >= 32, e.g., 1024")
	}

	if p.BufferSize < 512 {
		result.AddError("proxy.buffer_size",
			fmt.Sprintf("%d", p.BufferSize),
			"buffer_size must be at least 512 bytes",
			"Set a value >= 512, e.g., 16384")
	}

	switch p.RelayMode {
	case schema.RelayModeIndependent, schema.RelayModeLinked:
	default:
		result.AddError("proxy.relay_mode",
			p.RelayMode,
			"invalid relay mode",
			"Use one of: independent, linked")
	}

	if p.HandshakeTimeout < 0 {
		result.AddError("proxy.handshake_timeout",
			p.HandshakeTimeout.String(),
			"handshake_timeout must not be negative",
			"Use 0 to disable the deadline")
	}
	if p.DialTimeout < 0 {
		result.AddError("proxy.dial_timeout",
			p.DialTimeout.String(),
			"dial_timeout must not be negative",
			"Use 0 to disable the deadline")
	}
	if p.MaxConnections < 0 {
		result.AddError("proxy.max_connections",
			fmt.Sprintf("%d", p.MaxConnections),
			"max_connections must not be negative",
			"Use 0 for unlimited")
	}
}

func validateResolver(cfg *schema.Root, result *ValidationResult) {
	if !cfg.Resolver.CacheEnabled {
		return
	}
	if cfg.Resolver.CacheSize <= 0 {
		result.AddError("resolver.cache_size",
			fmt.Sprintf("%d", cfg.Resolver.CacheSize),
			"cache_size must be positive when the cache is enabled",
			"Set a value > 0, e.g., 1024")
	}
	if cfg.Resolver.CacheTTL <= 0 {
		result.AddError("resolver.cache_ttl",
			cfg.Resolver.CacheTTL.String(),
			"cache_ttl must be positive when the cache is enabled",
			"Set a duration, e.g., 60s")
	}
}

func validateLog(cfg *schema.Root, result *ValidationResult) {
	validateLogLevel("log.level", cfg.Log.Level, result)
	validateLogFormat("log.format", cfg.Log.Format, result)
}

func validateHealth(cfg *schema.Root, result *ValidationResult) {
	if !cfg.Health.Enabled {
		return
	}
	if _, err := net.ResolveTCPAddr("tcp", cfg.Health.Listen); err != nil {
		result.AddError("health.listen",
			cfg.Health.Listen,
			"invalid listen address",
			"Use format host:port, e.g., 127.0.0.1:9090")
	}
}

// ============================================================================
// Helpers
// ============================================================================

func validatePort(field string, port int, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field,
			fmt.Sprintf("%d", port),
			"port must be between 1 and 65535",
			"Use a valid port number")
	}
}

func validateHost(field, host string, result *ValidationResult) {
	if host == "" {
		return
	}
	if net.ParseIP(host) == nil && strings.ContainsAny(host, " :/") {
		result.AddError(field,
			host,
			"invalid host",
			"Use an IP address or hostname, e.g., 0.0.0.0")
	}
}

func validateLogLevel(field, level string, result *ValidationResult) {
	validLevels := map[string]bool{
		schema.LogLevelDebug: true,
		schema.LogLevelInfo:  true,
		schema.LogLevelWarn:  true,
		schema.LogLevelError: true,
	}
	if !validLevels[level] && level != "" {
		result.AddError(field,
			level,
			"invalid log level",
			"Use one of: debug, info, warn, error")
	}
}

func validateLogFormat(field, format string, result *ValidationResult) {
	validFormats := map[string]bool{
		schema.LogFormatText: true,
		schema.LogFormatJSON: true,
	}
	if !validFormats[format] && format != "" {
		result.AddError(field,
			format,
			"invalid log format",
			"Use one of: text, json")
	}
}
