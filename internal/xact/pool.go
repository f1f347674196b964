package xact

import "fmt"

// Handle is a weak reference to a pooled transaction. It stops resolving
// once the transaction is deleted, even if the slot is reused.
type Handle struct {
	Index      uint32
	Generation uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("%d/%d", h.Index, h.Generation)
}

// Pool is a fixed-capacity arena of transactions. It is not safe for
// concurrent use; the Manager serialises access.
//
// Every Alloc hands out a new record, so a pointer kept past Free keeps
// reading as deleted even after its slot is reused.
type Pool struct {
	slots []*Transaction
	gens  []uint32
	free  []uint32
}

// NewPool creates a pool holding at most capacity live transactions.
func NewPool(capacity int) *Pool {
	p := &Pool{
		slots: make([]*Transaction, capacity),
		gens:  make([]uint32, capacity),
		free:  make([]uint32, 0, capacity),
	}
	for i := capacity - 1; i >= 0; i-- {
		p.free = append(p.free, uint32(i))
	}
	return p
}

// Alloc takes a fresh transaction out of the pool.
func (p *Pool) Alloc() (*Transaction, error) {
	if len(p.free) == 0 {
		return nil, ErrPoolExhausted
	}

	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	p.gens[idx]++
	tx := &Transaction{handle: Handle{Index: idx, Generation: p.gens[idx]}, live: true}
	p.slots[idx] = tx
	return tx, nil
}

// Free returns the slot of tx to the pool and drops the buffers and links
// it held. Identity fields stay readable.
func (p *Pool) Free(tx *Transaction) {
	idx := tx.handle.Index
	if !tx.live || int(idx) >= len(p.slots) || p.slots[idx] != tx {
		panic(fmt.Sprintf("xact: double free of transaction %s", tx.handle))
	}
	tx.live = false
	tx.steps = [3]leg{}
	tx.assoc = nil
	tx.cb = nil
	p.slots[idx] = nil
	p.free = append(p.free, idx)
}

// Cycle resolves a handle, returning nil if the transaction it named has
// been freed.
func (p *Pool) Cycle(h Handle) *Transaction {
	if int(h.Index) >= len(p.slots) {
		return nil
	}
	tx := p.slots[h.Index]
	if tx == nil || tx.handle.Generation != h.Generation {
		return nil
	}
	return tx
}

// Len returns the number of live transactions.
func (p *Pool) Len() int { return len(p.slots) - len(p.free) }

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return len(p.slots) }
