package schema

// HealthConfig contains health endpoint configuration
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}
