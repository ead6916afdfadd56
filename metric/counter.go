package metric

import (
	"fmt"
	"sync/atomic"

	"github.com/devopsext/measured/exposition"
	"github.com/devopsext/measured/label"
)

// CounterVec is a monotonically increasing counter per label combination.
// Dense vectors preallocate one accumulator per possible combination and
// index it directly; sparse vectors create accumulators on first increment
// and never drop them. The backing is chosen at construction and fixed for
// the vector's lifetime.
type CounterVec struct {
	schema *label.Schema
	dense  []uint64
	sparse *sparseStore[uint64]
}

// NewCounterVec creates a dense counter vector. Every dimension of the
// schema must be fixed so the total cardinality is known up front.
func NewCounterVec(schema *label.Schema) (*CounterVec, error) {

	card, ok := schema.Cardinality()
	if !ok {
		return nil, fmt.Errorf("dense counter requires fixed-cardinality dimensions only, use NewSparseCounterVec")
	}

	return &CounterVec{
		schema: schema,
		dense:  make([]uint64, card),
	}, nil
}

// NewSparseCounterVec creates a sparse counter vector. Accumulators appear
// lazily on first increment, so untouched combinations cost nothing and
// dynamic dimensions are supported.
func NewSparseCounterVec(schema *label.Schema) *CounterVec {

	return &CounterVec{
		schema: schema,
		sparse: newSparseStore(func() *uint64 { return new(uint64) }),
	}
}

// Inc increments the counter for the given label-group value by 1.
func (c *CounterVec) Inc(values ...string) {
	c.Add(1, values...)
}

// Add increments the counter for the given label-group value by delta.
// Safe for arbitrary concurrent callers: increments are atomic fetch-adds
// and are never lost.
func (c *CounterVec) Add(delta uint64, values ...string) {

	k := c.schema.Key(values...)
	if c.dense != nil {
		atomic.AddUint64(&c.dense[k.FixedIndex()], delta)
		return
	}
	atomic.AddUint64(c.sparse.locate(k), delta)
}

func (c *CounterVec) Kind() string {
	return "counter"
}

// CollectInto writes one sample line per label combination, with the
// conventional _total suffix: every combination for a dense vector, the
// combinations touched at least once for a sparse one. Callable
// concurrently with Inc/Add; a collection pass reflects every increment
// that completed before it started.
func (c *CounterVec) CollectInto(name string, enc *exposition.Encoder) {

	pairs := make([]label.Pair, 0, c.schema.Dimensions())

	if c.dense != nil {
		for i := range c.dense {
			v := atomic.LoadUint64(&c.dense[i])
			pairs = c.schema.Decode(c.schema.KeyAt(uint64(i)), pairs[:0])
			enc.WriteCount(name, "_total", pairs, v)
		}
		return
	}

	c.sparse.walk(func(k label.Key, cell *uint64) {
		pairs = c.schema.Decode(k, pairs[:0])
		enc.WriteCount(name, "_total", pairs, atomic.LoadUint64(cell))
	})
}
