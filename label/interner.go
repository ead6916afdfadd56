package label

import (
	"math"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const internerShards = 32

// Interner assigns a stable small integer handle to every distinct string
// it sees. Handles are dense, start at 0 and are never reused while the
// table is live. One Interner may back dynamic dimensions of any number of
// metrics; all of them observe the same string-to-handle mapping.
//
// Lookups are sharded by value hash so concurrent writers on different
// strings do not contend. Handle allocation is serialized to keep the
// handle space dense.
type Interner struct {
	shards [internerShards]internerShard

	mu     sync.RWMutex
	values []string
}

type internerShard struct {
	mu      sync.RWMutex
	handles map[string]int
}

func NewInterner(values ...string) *Interner {

	in := &Interner{}
	for i := range in.shards {
		in.shards[i].handles = make(map[string]int)
	}
	for _, v := range values {
		in.Intern(v)
	}
	return in
}

func (in *Interner) shard(value string) *internerShard {
	return &in.shards[xxhash.Sum64String(value)%internerShards]
}

// Intern returns the handle for value, assigning the next free handle on
// first sight. Repeat calls from any number of goroutines return the same
// handle for the same string.
func (in *Interner) Intern(value string) int {

	s := in.shard(value)

	s.mu.RLock()
	h, ok := s.handles[value]
	s.mu.RUnlock()
	if ok {
		return h
	}

	// Allocation order: table lock first, then shard lock, so Lookup
	// never observes a handle without its value.
	in.mu.Lock()
	s.mu.Lock()

	if h, ok = s.handles[value]; !ok {
		h = len(in.values)
		if h >= math.MaxInt32 {
			panic("interner handle space exhausted")
		}
		in.values = append(in.values, value)
		s.handles[value] = h
	}

	s.mu.Unlock()
	in.mu.Unlock()
	return h
}

// Lookup resolves a handle previously returned by Intern. Handles are only
// ever produced internally, so an unknown handle is a programming error
// and panics.
func (in *Interner) Lookup(handle int) string {

	in.mu.RLock()
	defer in.mu.RUnlock()

	if handle < 0 || handle >= len(in.values) {
		panic("interner handle " + strconv.Itoa(handle) + " was never issued")
	}
	return in.values[handle]
}

// Len returns the number of distinct strings interned so far.
func (in *Interner) Len() int {

	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.values)
}
