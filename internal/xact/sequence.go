package xact

import "sync"

// Sequence id ranges. The GTPv2 range stops below gtp.CommandFlag so that
// the command bit never appears in a plain sequence id.
const (
	V1MinXID uint32 = 1
	V1MaxXID uint32 = 0xffff
	V2MinXID uint32 = 1
	V2MaxXID uint32 = 0x7fffff
)

// SequenceAllocator hands out transaction ids in [min, max], wrapping back
// to min after max.
type SequenceAllocator struct {
	min     uint32
	max     uint32
	current uint32
	mu      sync.Mutex
}

// NewSequenceAllocator creates an allocator whose first id is min.
func NewSequenceAllocator(min, max uint32) *SequenceAllocator {
	if min == 0 {
		min = 1 // sequence 0 is never handed out
	}
	if max < min {
		max = min
	}
	return &SequenceAllocator{min: min, max: max}
}

// Next returns the next id.
func (s *SequenceAllocator) Next() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current < s.min || s.current >= s.max {
		s.current = s.min
	} else {
		s.current++
	}
	return s.current
}

// Span returns the number of distinct ids the allocator cycles through.
func (s *SequenceAllocator) Span() int {
	return int(s.max-s.min) + 1
}
