package xact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_AllocUntilExhausted(t *testing.T) {
	p := NewPool(2)

	a, err := p.Alloc()
	require.NoError(t, err)
	b, err := p.Alloc()
	require.NoError(t, err)
	assert.NotEqual(t, a.Handle(), b.Handle())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 2, p.Cap())

	_, err = p.Alloc()
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPool_FreeInvalidatesHandle(t *testing.T) {
	p := NewPool(1)

	tx, err := p.Alloc()
	require.NoError(t, err)
	h := tx.Handle()
	assert.Same(t, tx, p.Cycle(h))

	p.Free(tx)
	assert.Nil(t, p.Cycle(h))
	assert.Equal(t, 0, p.Len())

	reused, err := p.Alloc()
	require.NoError(t, err)
	assert.Equal(t, h.Index, reused.Handle().Index)
	assert.NotEqual(t, h.Generation, reused.Handle().Generation)
	assert.Nil(t, p.Cycle(h), "stale handle must not resolve to the reused slot")
	assert.Same(t, reused, p.Cycle(reused.Handle()))
}

func TestPool_ZeroHandleNeverResolves(t *testing.T) {
	p := NewPool(4)
	_, err := p.Alloc()
	require.NoError(t, err)

	assert.Nil(t, p.Cycle(Handle{}))
	assert.Nil(t, p.Cycle(Handle{Index: 99, Generation: 1}))
}

func TestPool_DoubleFreePanics(t *testing.T) {
	p := NewPool(1)
	tx, err := p.Alloc()
	require.NoError(t, err)
	p.Free(tx)

	assert.Panics(t, func() { p.Free(tx) })
}

func TestPool_StalePointerStaysFreed(t *testing.T) {
	p := NewPool(1)
	a, err := p.Alloc()
	require.NoError(t, err)
	p.Free(a)

	b, err := p.Alloc()
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.False(t, a.live)
	assert.True(t, b.live)

	assert.Panics(t, func() { p.Free(a) })
	assert.Same(t, b, p.Cycle(b.Handle()))
}
