package label

import (
	"fmt"
	"math"
)

// MaxDynamic is the number of dynamic dimensions one schema may declare.
// Dynamic handles live outside the fixed radix product, in a fixed-size
// slot array, so the composite key stays a comparable value.
const MaxDynamic = 3

// Dimension is one axis of a metric's label space: either a closed
// fixed-cardinality enumeration or a dynamic, interner-backed axis with
// open-ended cardinality.
type Dimension struct {
	name string
	set  *FixedSet
	in   *Interner
}

func Fixed(name string, set *FixedSet) Dimension {
	return Dimension{name: name, set: set}
}

func Dynamic(name string, in *Interner) Dimension {
	return Dimension{name: name, in: in}
}

func (d Dimension) Name() string {
	return d.name
}

// Key is the composite index of one label-group value: a mixed-radix
// sub-index over the fixed dimensions plus one interner handle per dynamic
// dimension. Keys are comparable and usable as map keys.
type Key struct {
	fixed uint64
	dyn   [MaxDynamic]uint32
}

// FixedIndex returns the dense sub-index over the fixed dimensions, in
// [0, Cardinality) when the schema has no dynamic dimensions.
func (k Key) FixedIndex() uint64 {
	return k.fixed
}

// Schema is the ordered set of dimensions one metric is indexed by. All
// label-group values of that metric share the schema: same axes, same
// order.
type Schema struct {
	dims    []Dimension
	radix   []uint64
	card    uint64
	dynamic int
}

func NewSchema(dims ...Dimension) (*Schema, error) {

	seen := make(map[string]bool, len(dims))
	for _, d := range dims {
		if d.name == "" {
			return nil, fmt.Errorf("dimension has no name")
		}
		if seen[d.name] {
			return nil, fmt.Errorf("duplicate dimension %q", d.name)
		}
		if d.set == nil && d.in == nil {
			return nil, fmt.Errorf("dimension %q has no backing set", d.name)
		}
		seen[d.name] = true
	}

	s := &Schema{
		dims:  dims,
		radix: make([]uint64, len(dims)),
		card:  1,
	}

	for i, d := range dims {
		if d.set == nil {
			s.dynamic++
			continue
		}
		n := uint64(d.set.Cardinality())
		if s.card > math.MaxUint64/n {
			return nil, fmt.Errorf("fixed cardinality product overflows at dimension %q", d.name)
		}
		s.radix[i] = s.card
		s.card *= n
	}

	if s.dynamic > MaxDynamic {
		return nil, fmt.Errorf("schema has %d dynamic dimensions, at most %d are supported", s.dynamic, MaxDynamic)
	}
	return s, nil
}

// MustSchema is NewSchema for statically known dimension lists.
func MustSchema(dims ...Dimension) *Schema {

	s, err := NewSchema(dims...)
	if err != nil {
		panic(err)
	}
	return s
}

// Dense reports whether every dimension is fixed, i.e. the whole key space
// is the bounded range [0, Cardinality).
func (s *Schema) Dense() bool {
	return s.dynamic == 0
}

// Cardinality returns the product of the fixed dimensions' cardinalities.
// The second result is false when the schema has dynamic dimensions, in
// which case the total key space is open-ended.
func (s *Schema) Cardinality() (uint64, bool) {
	return s.card, s.dynamic == 0
}

func (s *Schema) Dimensions() int {
	return len(s.dims)
}

// Key encodes one ordered tuple of per-dimension values into the composite
// index. Values for fixed dimensions must be members of their enumeration;
// values for dynamic dimensions are interned on first sight. A tuple of
// the wrong length is a programming error and panics.
func (s *Schema) Key(values ...string) Key {

	if len(values) != len(s.dims) {
		panic(fmt.Sprintf("schema has %d dimensions, got %d values", len(s.dims), len(values)))
	}

	var k Key
	slot := 0

	for i, d := range s.dims {
		if d.set != nil {
			k.fixed += uint64(d.set.Encode(values[i])) * s.radix[i]
			continue
		}
		k.dyn[slot] = uint32(d.in.Intern(values[i]))
		slot++
	}
	return k
}

// KeyAt maps a dense index back to its Key. Only meaningful for dense
// schemas, where indices and keys are the same bounded range.
func (s *Schema) KeyAt(index uint64) Key {
	return Key{fixed: index}
}

// Decode recovers the ordered name/value pairs a key was encoded from,
// appending them to pairs.
func (s *Schema) Decode(k Key, pairs []Pair) []Pair {

	slot := 0
	for i, d := range s.dims {

		var value string
		if d.set != nil {
			code := (k.fixed / s.radix[i]) % uint64(d.set.Cardinality())
			value = d.set.Decode(int(code))
		} else {
			value = d.in.Lookup(int(k.dyn[slot]))
			slot++
		}
		pairs = append(pairs, Pair{Name: d.name, Value: value})
	}
	return pairs
}
