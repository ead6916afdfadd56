package metric

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/devopsext/measured/exposition"
	"github.com/devopsext/measured/label"
)

// Thresholds is the validated list of ascending bucket upper bounds shared
// by every label combination of one histogram.
type Thresholds struct {
	le []float64
}

func NewThresholds(le ...float64) (Thresholds, error) {

	if len(le) == 0 {
		return Thresholds{}, fmt.Errorf("histogram requires at least one threshold")
	}
	for i := 1; i < len(le); i++ {
		if le[i] <= le[i-1] {
			return Thresholds{}, fmt.Errorf("histogram thresholds must be strictly increasing, got %v after %v", le[i], le[i-1])
		}
	}

	t := Thresholds{le: make([]float64, len(le))}
	copy(t.le, le)
	return t, nil
}

// ExponentialThresholds builds count thresholds starting at start, each
// factor times the previous one.
func ExponentialThresholds(start, factor float64, count int) (Thresholds, error) {

	if count < 1 {
		return Thresholds{}, fmt.Errorf("exponential thresholds require a positive count")
	}
	if start <= 0 {
		return Thresholds{}, fmt.Errorf("exponential thresholds require a positive start")
	}
	if factor <= 1 {
		return Thresholds{}, fmt.Errorf("exponential thresholds require a factor greater than 1")
	}

	le := make([]float64, count)
	for i := range le {
		le[i] = start
		start *= factor
	}
	return Thresholds{le: le}, nil
}

// LinearThresholds builds count thresholds starting at start, each width
// above the previous one.
func LinearThresholds(start, width float64, count int) (Thresholds, error) {

	if count < 1 {
		return Thresholds{}, fmt.Errorf("linear thresholds require a positive count")
	}
	if width <= 0 {
		return Thresholds{}, fmt.Errorf("linear thresholds require a positive width")
	}

	le := make([]float64, count)
	for i := range le {
		le[i] = start
		start += width
	}
	return Thresholds{le: le}, nil
}

func (t Thresholds) Upper() []float64 {
	return t.le
}

// histogramCell holds the accumulators of one label combination: cumulative
// bucket counts, total observation count and the running sum.
type histogramCell struct {
	buckets []uint64
	count   uint64
	sumBits uint64
}

// Bucket counts are stored cumulative: an observation increments every
// bucket whose upper bound is at least the value. The descending scan
// stops at the first smaller threshold since the list is ascending.
func (h *histogramCell) observe(le []float64, value float64) {

	for i := len(le) - 1; i >= 0 && le[i] >= value; i-- {
		atomic.AddUint64(&h.buckets[i], 1)
	}
	atomic.AddUint64(&h.count, 1)

	for {
		old := atomic.LoadUint64(&h.sumBits)
		sum := math.Float64bits(math.Float64frombits(old) + value)
		if atomic.CompareAndSwapUint64(&h.sumBits, old, sum) {
			return
		}
	}
}

// HistogramVec is a bucketed distribution per label combination, with the
// same dense/sparse backing contract as CounterVec.
type HistogramVec struct {
	schema *label.Schema
	le     []float64
	leText []string
	dense  []histogramCell
	sparse *sparseStore[histogramCell]
}

// NewHistogramVec creates a dense histogram vector. Every dimension of the
// schema must be fixed.
func NewHistogramVec(schema *label.Schema, t Thresholds) (*HistogramVec, error) {

	h, err := newHistogramVec(schema, t)
	if err != nil {
		return nil, err
	}

	card, ok := schema.Cardinality()
	if !ok {
		return nil, fmt.Errorf("dense histogram requires fixed-cardinality dimensions only, use NewSparseHistogramVec")
	}

	h.dense = make([]histogramCell, card)
	for i := range h.dense {
		h.dense[i].buckets = make([]uint64, len(h.le))
	}
	return h, nil
}

// NewSparseHistogramVec creates a sparse histogram vector with cells
// materialized on first observation.
func NewSparseHistogramVec(schema *label.Schema, t Thresholds) (*HistogramVec, error) {

	h, err := newHistogramVec(schema, t)
	if err != nil {
		return nil, err
	}

	buckets := len(h.le)
	h.sparse = newSparseStore(func() *histogramCell {
		return &histogramCell{buckets: make([]uint64, buckets)}
	})
	return h, nil
}

func newHistogramVec(schema *label.Schema, t Thresholds) (*HistogramVec, error) {

	if len(t.le) == 0 {
		return nil, fmt.Errorf("histogram requires thresholds")
	}

	leText := make([]string, len(t.le))
	for i, le := range t.le {
		leText[i] = strconv.FormatFloat(le, 'g', -1, 64)
	}

	return &HistogramVec{
		schema: schema,
		le:     t.le,
		leText: leText,
	}, nil
}

// Observe records one value for the given label-group value. Different
// label combinations never contend with each other; observers of the same
// combination synchronize only on its own atomics.
func (h *HistogramVec) Observe(value float64, values ...string) {

	k := h.schema.Key(values...)
	if h.dense != nil {
		h.dense[k.FixedIndex()].observe(h.le, value)
		return
	}
	h.sparse.locate(k).observe(h.le, value)
}

func (h *HistogramVec) Kind() string {
	return "histogram"
}

// CollectInto writes, per populated label combination, one _bucket line
// per threshold with its le label, the conventional le="+Inf" bucket equal
// to the count, then the _sum and _count lines.
func (h *HistogramVec) CollectInto(name string, enc *exposition.Encoder) {

	pairs := make([]label.Pair, 0, h.schema.Dimensions()+1)

	if h.dense != nil {
		for i := range h.dense {
			pairs = h.schema.Decode(h.schema.KeyAt(uint64(i)), pairs[:0])
			h.collectCell(name, enc, pairs, &h.dense[i])
		}
		return
	}

	h.sparse.walk(func(k label.Key, cell *histogramCell) {
		pairs = h.schema.Decode(k, pairs[:0])
		h.collectCell(name, enc, pairs, cell)
	})
}

func (h *HistogramVec) collectCell(name string, enc *exposition.Encoder, pairs []label.Pair, cell *histogramCell) {

	count := atomic.LoadUint64(&cell.count)
	sum := math.Float64frombits(atomic.LoadUint64(&cell.sumBits))

	with := append(pairs, label.Pair{Name: "le"})
	for i := range h.le {
		with[len(with)-1].Value = h.leText[i]
		enc.WriteCount(name, "_bucket", with, atomic.LoadUint64(&cell.buckets[i]))
	}
	with[len(with)-1].Value = "+Inf"
	enc.WriteCount(name, "_bucket", with, count)

	enc.WriteSample(name, "_sum", pairs, sum)
	enc.WriteCount(name, "_count", pairs, count)
}
