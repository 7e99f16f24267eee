package schema

import "time"

// Relay modes
const (
	RelayModeIndependent = "independent" // each direction ends only on its own I/O failure
	RelayModeLinked      = "linked"      // either direction ending closes both connections
)

// ProxyConfig contains the CONNECT listener and tunnel settings
type ProxyConfig struct {
	Host             string        `yaml:"host" json:"host"`
	Port             int           `yaml:"port" json:"port"`
	RequestLimit     int           `yaml:"request_limit" json:"request_limit"`         // request read ceiling in bytes
	BufferSize       int           `yaml:"buffer_size" json:"buffer_size"`             // relay buffer per direction
	RelayMode        string        `yaml:"relay_mode" json:"relay_mode"`               // independent/linked
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"` // 0 = no deadline
	DialTimeout      time.Duration `yaml:"dial_timeout" json:"dial_timeout"`           // 0 = no deadline
	MaxConnections   int           `yaml:"max_connections" json:"max_connections"`     // 0 = unlimited
	ReusePort        bool          `yaml:"reuse_port" json:"reuse_port"`
}

// ResolverConfig contains target name resolution settings
type ResolverConfig struct {
	CacheEnabled bool          `yaml:"cache_enabled" json:"cache_enabled"`
	CacheSize    int           `yaml:"cache_size" json:"cache_size"`
	CacheTTL     time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}
