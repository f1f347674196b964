package xact

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceAllocator_StartsFromMin(t *testing.T) {
	s := NewSequenceAllocator(100, 200)
	assert.Equal(t, uint32(100), s.Next())
	assert.Equal(t, uint32(101), s.Next())
}

func TestSequenceAllocator_SkipsZero(t *testing.T) {
	s := NewSequenceAllocator(0, 10)
	assert.Equal(t, uint32(1), s.Next())
}

func TestSequenceAllocator_WrapsAfterMax(t *testing.T) {
	s := NewSequenceAllocator(1, 3)
	got := []uint32{s.Next(), s.Next(), s.Next(), s.Next(), s.Next()}
	assert.Equal(t, []uint32{1, 2, 3, 1, 2}, got)
	assert.Equal(t, 3, s.Span())
}

func TestSequenceAllocator_V2RangeNeverSetsCommandBit(t *testing.T) {
	s := NewSequenceAllocator(V2MinXID, V2MaxXID)
	s.current = V2MaxXID - 1

	assert.Equal(t, V2MaxXID, s.Next())
	assert.Equal(t, V2MinXID, s.Next())
	assert.Zero(t, V2MaxXID&0x800000)
}

func TestSequenceAllocator_ConcurrentUnique(t *testing.T) {
	s := NewSequenceAllocator(V1MinXID, V1MaxXID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint32]bool)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := s.Next()
				mu.Lock()
				assert.False(t, seen[id], "duplicate id %d", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
}
