package metric

import (
	"sync"

	"github.com/devopsext/measured/label"
)

// sparseStore lazily materializes one accumulator per composite key. Cells
// are created with LoadOrStore so concurrent first touches of the same key
// agree on a single cell, and the winning creator records the key in an
// insertion-order list. Collection walks that list, which keeps repeated
// collections byte-stable: a key present in the list is always present in
// the map, while a key created mid-walk is simply picked up next pass.
// Cells are never removed.
type sparseStore[T any] struct {
	cells sync.Map

	mu    sync.Mutex
	order []label.Key

	alloc func() *T
}

func newSparseStore[T any](alloc func() *T) *sparseStore[T] {
	return &sparseStore[T]{alloc: alloc}
}

func (s *sparseStore[T]) locate(k label.Key) *T {

	if v, ok := s.cells.Load(k); ok {
		return v.(*T)
	}

	v, loaded := s.cells.LoadOrStore(k, s.alloc())
	if !loaded {
		s.mu.Lock()
		s.order = append(s.order, k)
		s.mu.Unlock()
	}
	return v.(*T)
}

func (s *sparseStore[T]) walk(f func(k label.Key, cell *T)) {

	s.mu.Lock()
	keys := make([]label.Key, len(s.order))
	copy(keys, s.order)
	s.mu.Unlock()

	for _, k := range keys {
		v, _ := s.cells.Load(k)
		f(k, v.(*T))
	}
}
