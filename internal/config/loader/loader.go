// Package loader provides multi-source configuration loading
package loader

import (
	"tunnelgate/internal/config/schema"
	"tunnelgate/internal/config/source"
	"tunnelgate/internal/config/validator"
	coreerrors "tunnelgate/internal/core/errors"
	corelog "tunnelgate/internal/core/log"
)

// EnvPrefix is the prefix of every environment variable the loader reads
const EnvPrefix = "TUNNELGATE"

// Loader loads configuration from multiple sources in priority order
type Loader struct {
	sources      []source.Source
	skipValidate bool
}

// NewLoader creates a new Loader
func NewLoader() *Loader {
	return &Loader{
		sources: make([]source.Source, 0),
	}
}

// AddSource adds a configuration source
func (l *Loader) AddSource(s source.Source) {
	l.sources = append(l.sources, s)
}

// SetSkipValidate disables the validation phase
func (l *Loader) SetSkipValidate(skip bool) {
	l.skipValidate = skip
}

// Load loads configuration from all sources in priority order
// Lower priority sources are loaded first, then higher priority sources override
func (l *Loader) Load() (*schema.Root, error) {
	if len(l.sources) == 0 {
		return nil, coreerrors.New(coreerrors.CodeInvalidParam, "no configuration sources registered")
	}

	cfg := &schema.Root{}
	for _, s := range source.Sorted(l.sources) {
		corelog.Debugf("Loading configuration from source: %s (priority %d)", s.Name(), s.Priority())
		if err := s.LoadInto(cfg); err != nil {
			return nil, coreerrors.Wrapf(err, coreerrors.CodeConfigError,
				"failed to load configuration from source %s", s.Name())
		}
	}

	if !l.skipValidate {
		if result := validator.ValidateConfig(cfg); !result.IsValid() {
			return nil, coreerrors.New(coreerrors.CodeConfigError, result.Error())
		}
	}

	return cfg, nil
}

// LoaderBuilder helps build a Loader with common configurations
type LoaderBuilder struct {
	loader       *Loader
	prefix       string
	configFile   string
	appEnv       string
	enableDotEnv bool
	flags        *source.FlagValues
	skipValidate bool
}

// NewLoaderBuilder creates a new LoaderBuilder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{
		loader:       NewLoader(),
		prefix:       EnvPrefix,
		enableDotEnv: true,
	}
}

// WithPrefix sets the environment variable prefix
func (b *LoaderBuilder) WithPrefix(prefix string) *LoaderBuilder {
	b.prefix = prefix
	return b
}

// WithConfigFile sets the configuration file path
func (b *LoaderBuilder) WithConfigFile(path string) *LoaderBuilder {
	b.configFile = path
	return b
}

// WithAppEnv sets the application environment (development/production)
func (b *LoaderBuilder) WithAppEnv(env string) *LoaderBuilder {
	b.appEnv = env
	return b
}

// WithDotEnv enables or disables .env file loading
func (b *LoaderBuilder) WithDotEnv(enabled bool) *LoaderBuilder {
	b.enableDotEnv = enabled
	return b
}

// WithFlags sets the command-line overrides
func (b *LoaderBuilder) WithFlags(values source.FlagValues) *LoaderBuilder {
	b.flags = &values
	return b
}

// WithSkipValidate enables or disables the validation phase
func (b *LoaderBuilder) WithSkipValidate(skip bool) *LoaderBuilder {
	b.skipValidate = skip
	return b
}

// Build creates the configured Loader
func (b *LoaderBuilder) Build() *Loader {
	// 1. Defaults (lowest priority)
	b.loader.AddSource(source.NewDefaultSource())

	// 2. YAML file
	configFile := source.FindConfigFile(b.configFile)
	if configFile != "" {
		b.loader.AddSource(source.NewYAMLSource(configFile))
		corelog.Debugf("Using config file: %s", configFile)
	}

	// 3. .env files
	if b.enableDotEnv {
		b.loader.AddSource(source.NewDotEnvSource(source.FindDotEnvDirs(configFile), b.appEnv))
	}

	// 4. Environment variables
	b.loader.AddSource(source.NewEnvSource(b.prefix))

	// 5. Command-line flags (highest priority)
	if b.flags != nil {
		b.loader.AddSource(source.NewFlagSource(*b.flags))
	}

	b.loader.SetSkipValidate(b.skipValidate)
	return b.loader
}

// Load is a convenience function that creates a loader and loads configuration
func Load(configFile string, flags source.FlagValues) (*schema.Root, error) {
	return NewLoaderBuilder().
		WithConfigFile(configFile).
		WithFlags(flags).
		Build().
		Load()
}
