package xact

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/gtp"
)

// Origin tells which side started a transaction.
type Origin uint8

const (
	OriginLocal Origin = iota + 1
	OriginRemote
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	}
	return "unknown"
}

// Callback is invoked once when a locally originated transaction runs out
// of response retries. It runs without the manager lock held; the
// transaction is deleted right after it returns.
type Callback func(tx *Transaction, data interface{})

type leg struct {
	msgType uint8
	buf     []byte
}

// Transaction is one request/response exchange with a peer, up to three
// messages long.
//
// Identity fields (handle, version, origin, xid, node, data) never change
// once the transaction is handed out. The remaining state is guarded by the
// owning manager's lock, which the accessors take.
type Transaction struct {
	mu *sync.Mutex

	handle Handle
	live   bool

	version uint8
	origin  Origin
	xid     uint32
	node    *Node

	step  int
	steps [3]leg

	response txTimer
	holding  txTimer

	assoc *Transaction

	cb   Callback
	data interface{}
}

// Handle returns the weak reference to tx accepted by Manager.Cycle.
func (tx *Transaction) Handle() Handle { return tx.handle }

// Version returns the GTP version of the exchange.
func (tx *Transaction) Version() uint8 { return tx.version }

// Origin tells whether this node or the peer started the exchange.
func (tx *Transaction) Origin() Origin { return tx.origin }

// XID returns the internal sequence id, command flag included.
func (tx *Transaction) XID() uint32 { return tx.xid }

// Node returns the peer the transaction is exchanged with.
func (tx *Transaction) Node() *Node { return tx.node }

// Data returns the value passed to LocalCreate.
func (tx *Transaction) Data() interface{} { return tx.data }

// Step returns the number of messages exchanged so far.
func (tx *Transaction) Step() int {
	tx.lock()
	defer tx.unlock()
	return tx.step
}

// Associated returns the transaction linked by Manager.Associate, or nil.
func (tx *Transaction) Associated() *Transaction {
	tx.lock()
	defer tx.unlock()
	return tx.assoc
}

// Sequence returns the sequence number carried on the wire.
func (tx *Transaction) Sequence() uint32 { return gtp.SequenceOf(tx.version, tx.xid) }

// IsCommand reports whether the transaction belongs to a GTPv2
// command-triggered procedure.
func (tx *Transaction) IsCommand() bool {
	return tx.version == gtp.Version2 && tx.xid&gtp.CommandFlag != 0
}

// StepType returns the message type recorded for step i (0-based).
func (tx *Transaction) StepType(i int) uint8 {
	tx.lock()
	defer tx.unlock()
	return tx.steps[i].msgType
}

// StepBuffer returns the encoded message sent at step i, nil for received
// steps and after deletion.
func (tx *Transaction) StepBuffer(i int) []byte {
	tx.lock()
	defer tx.unlock()
	return tx.steps[i].buf
}

func (tx *Transaction) lock() {
	if tx.mu != nil {
		tx.mu.Lock()
	}
}

func (tx *Transaction) unlock() {
	if tx.mu != nil {
		tx.mu.Unlock()
	}
}

func (tx *Transaction) String() string {
	return fmt.Sprintf("[%d] %s (v%d)", tx.xid, tx.origin, tx.version)
}

func (tx *Transaction) fields() log.Fields {
	f := log.Fields{
		"xid":     tx.xid,
		"origin":  tx.origin.String(),
		"version": tx.version,
		"step":    tx.step,
	}
	if tx.node != nil {
		f["peer"] = tx.node.String()
	}
	return f
}

func (tx *Transaction) lastType() uint8 {
	if tx.step == 0 {
		return 0
	}
	return tx.steps[tx.step-1].msgType
}
