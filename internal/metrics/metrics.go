// Package metrics defines the minimal metrics surface the tool layer
// depends on. Concrete backends live in subpackages; a process that
// configures none uses Nop.
//
// Metric names are plain strings chosen by the caller. Backends are free to
// ignore names they do not recognize, which keeps the emitting code unaware
// of any vendor's naming or tagging rules.
package metrics

// Labels attaches dimension values to one observation.
type Labels map[string]string

// Backend receives counter increments and histogram samples.
// Implementations must be safe for concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) IncCounter(name string, delta float64, labels Labels)       {}
func (Nop) ObserveHistogram(name string, value float64, labels Labels) {}

var _ Backend = Nop{}
