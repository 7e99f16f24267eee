package source

import (
	"os"
	"strconv"
	"time"

	"tunnelgate/internal/config/schema"
)

// EnvSource loads configuration from environment variables
type EnvSource struct {
	prefix string
}

// NewEnvSource creates a new EnvSource with the specified prefix
func NewEnvSource(prefix string) *EnvSource {
	return &EnvSource{
		prefix: prefix,
	}
}

// Name returns the source name
func (s *EnvSource) Name() string {
	return "env"
}

// Priority returns the source priority
func (s *EnvSource) Priority() int {
	return PriorityEnv
}

// LoadInto loads environment variables into the config structure
func (s *EnvSource) LoadInto(cfg *schema.Root) error {
	// Proxy
	s.loadString("PROXY_HOST", &cfg.Proxy.Host)
	s.loadInt("PROXY_PORT", &cfg.Proxy.Port)
	s.loadInt("PROXY_REQUEST_LIMIT", &cfg.Proxy.RequestLimit)
	s.loadInt("PROXY_BUFFER_SIZE", &cfg.Proxy.BufferSize)
	s.loadString("PROXY_RELAY_MODE", &cfg.Proxy.RelayMode)
	s.loadDuration("PROXY_HANDSHAKE_TIMEOUT", &cfg.Proxy.HandshakeTimeout)
	s.loadDuration("PROXY_DIAL_TIMEOUT", &cfg.Proxy.DialTimeout)
	s.loadInt("PROXY_MAX_CONNECTIONS", &cfg.Proxy.MaxConnections)
	s.loadBool("PROXY_REUSE_PORT", &cfg.Proxy.ReusePort)

	// Resolver
	s.loadBool("RESOLVER_CACHE_ENABLED", &cfg.Resolver.CacheEnabled)
	s.loadInt("RESOLVER_CACHE_SIZE", &cfg.Resolver.CacheSize)
	s.loadDuration("RESOLVER_CACHE_TTL", &cfg.Resolver.CacheTTL)

	// Health
	s.loadBool("HEALTH_ENABLED", &cfg.Health.Enabled)
	s.loadString("HEALTH_LISTEN", &cfg.Health.Listen)

	// Log
	s.loadString("LOG_LEVEL", &cfg.Log.Level)
	s.loadString("LOG_FORMAT", &cfg.Log.Format)
	s.loadString("LOG_FILE", &cfg.Log.File)

	return nil
}

// getEnv gets environment variable with the configured prefix
func (s *EnvSource) getEnv(key string) (string, bool) {
	prefixedKey := s.prefix + "_" + key
	if v := os.Getenv(prefixedKey); v != "" {
		return v, true
	}
	return "", false
}

func (s *EnvSource) loadString(key string, target *string) {
	if v, ok := s.getEnv(key); ok {
		*target = v
	}
}

func (s *EnvSource) loadBool(key string, target *bool) {
	if v, ok := s.getEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func (s *EnvSource) loadInt(key string, target *int) {
	if v, ok := s.getEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// loadDuration accepts Go duration strings; a bare integer is taken as seconds
func (s *EnvSource) loadDuration(key string, target *time.Duration) {
	if v, ok := s.getEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		} else if secs, err := strconv.Atoi(v); err == nil {
			*target = time.Duration(secs) * time.Second
		}
	}
}
