package xact

import (
	"net"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

type listKey struct {
	version uint8
	xid     uint32
}

// Node is a GTP peer. It owns the transactions exchanged with that peer,
// kept in creation order, split by origin.
type Node struct {
	Addr net.Addr

	local  *linkedhashmap.Map
	remote *linkedhashmap.Map
}

// NewNode creates a peer with empty transaction lists.
func NewNode(addr net.Addr) *Node {
	return &Node{
		Addr:   addr,
		local:  linkedhashmap.New(),
		remote: linkedhashmap.New(),
	}
}

func (n *Node) String() string {
	if n.Addr == nil {
		return "<nil>"
	}
	return n.Addr.String()
}

func (n *Node) list(o Origin) *linkedhashmap.Map {
	if o == OriginLocal {
		return n.local
	}
	return n.remote
}

func (n *Node) add(tx *Transaction) {
	n.list(tx.origin).Put(listKey{tx.version, tx.xid}, tx)
}

func (n *Node) remove(tx *Transaction) {
	n.list(tx.origin).Remove(listKey{tx.version, tx.xid})
}

func (n *Node) find(o Origin, version uint8, xid uint32) *Transaction {
	v, ok := n.list(o).Get(listKey{version, xid})
	if !ok {
		return nil
	}
	return v.(*Transaction)
}

// transactions returns a snapshot of the list in creation order.
func (n *Node) transactions(o Origin) []*Transaction {
	values := n.list(o).Values()
	out := make([]*Transaction, 0, len(values))
	for _, v := range values {
		out = append(out, v.(*Transaction))
	}
	return out
}

func (n *Node) count(o Origin) int { return n.list(o).Size() }
