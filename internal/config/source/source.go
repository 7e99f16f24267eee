// Package source provides the layered configuration sources of tunnelgate
package source

import (
	"sort"

	"tunnelgate/internal/config/schema"
)

// Source fills part of schema.Root. Sources are applied from lowest to highest
// priority, so a later source overwrites only the fields it actually sets.
type Source interface {
	Name() string
	Priority() int
	LoadInto(cfg *schema.Root) error
}

// Priorities, lowest first:
// built-in defaults, the YAML file (config.yaml / tunnelgate.yaml / -c),
// .env files, TUNNELGATE_* environment variables, then command-line flags.
const (
	PriorityDefaults = 1
	PriorityYAML     = 2
	PriorityDotEnv   = 3
	PriorityEnv      = 4
	PriorityCLI      = 5
)

// ByPriority orders sources so defaults come first and flags last
type ByPriority []Source

func (a ByPriority) Len() int           { return len(a) }
func (a ByPriority) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ByPriority) Less(i, j int) bool { return a[i].Priority() < a[j].Priority() }

// Sorted returns a copy of sources in application order.
// Sources with equal priority keep their registration order.
func Sorted(sources []Source) []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	sort.Stable(ByPriority(out))
	return out
}
