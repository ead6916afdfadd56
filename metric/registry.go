package metric

import (
	"fmt"
	"sync"

	"github.com/devopsext/measured/exposition"
)

// Collector is anything that can render its populated accumulators into an
// encoder under a metric name. CounterVec and HistogramVec implement it.
type Collector interface {
	Kind() string
	CollectInto(name string, enc *exposition.Encoder)
}

type registryEntry struct {
	name      string
	help      string
	collector Collector
}

// Registry is an ordered set of named collectors, the unit a scrape
// endpoint exposes. Registration order is exposition order.
type Registry struct {
	mu      sync.Mutex
	entries []registryEntry
	names   map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]bool),
	}
}

func (r *Registry) Register(name, help string, c Collector) error {

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[name] {
		return fmt.Errorf("metric %q is already registered", name)
	}
	r.names[name] = true
	r.entries = append(r.entries, registryEntry{name: name, help: help, collector: c})
	return nil
}

// Expose writes the HELP/TYPE headers and samples of every registered
// collector. Counter families are named with their _total suffix in the
// headers, matching the sample lines.
func (r *Registry) Expose(enc *exposition.Encoder) {

	r.mu.Lock()
	entries := make([]registryEntry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	for _, e := range entries {

		family := e.name
		if e.collector.Kind() == "counter" {
			family += "_total"
		}

		enc.WriteHelp(family, e.help)
		enc.WriteType(family, e.collector.Kind())
		e.collector.CollectInto(e.name, enc)
	}
}
