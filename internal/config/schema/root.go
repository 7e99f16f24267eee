// Package schema defines configuration structure types
package schema

// Root is the top-level configuration structure
type Root struct {
	Proxy    ProxyConfig    `yaml:"proxy" json:"proxy"`
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`
	Health   HealthConfig   `yaml:"health" json:"health"`
	Log      LogConfig      `yaml:"log" json:"log"`
}
