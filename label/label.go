package label

import (
	"fmt"
	"strconv"
)

// Pair is one rendered label, ready for exposition output.
type Pair struct {
	Name  string
	Value string
}

// FixedSet is a closed enumeration of label values with a stable bijection
// between its values and the integers [0, N). The enumeration is fixed at
// construction and never grows, so Cardinality is a constant for the life
// of the set.
type FixedSet struct {
	values []string
	index  map[string]int
}

func NewFixedSet(values ...string) (*FixedSet, error) {

	if len(values) == 0 {
		return nil, fmt.Errorf("fixed set requires at least one value")
	}

	index := make(map[string]int, len(values))
	for i, v := range values {
		if _, ok := index[v]; ok {
			return nil, fmt.Errorf("fixed set has duplicate value %q", v)
		}
		index[v] = i
	}

	return &FixedSet{
		values: values,
		index:  index,
	}, nil
}

// MustFixedSet is NewFixedSet for statically known value lists.
func MustFixedSet(values ...string) *FixedSet {

	s, err := NewFixedSet(values...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *FixedSet) Cardinality() int {
	return len(s.values)
}

// Encode maps a value to its code. A value outside the enumeration is a
// programming error and panics.
func (s *FixedSet) Encode(value string) int {

	code, ok := s.index[value]
	if !ok {
		panic(fmt.Sprintf("label value %q is not in the fixed set", value))
	}
	return code
}

// Decode is the exact inverse of Encode over the enumeration.
func (s *FixedSet) Decode(code int) string {

	if code < 0 || code >= len(s.values) {
		panic("label code " + strconv.Itoa(code) + " is out of range")
	}
	return s.values[code]
}

// Values returns the enumeration in code order.
func (s *FixedSet) Values() []string {
	return s.values
}
