package xact

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/stats"
)

// DefaultPoolSize is used when Config.PoolSize is not set.
const DefaultPoolSize = 1024

// Sender delivers an encoded GTP message to a peer.
type Sender interface {
	SendTo(node *Node, b []byte) error
}

// TimerConfig holds the timer settings applied to a transaction. A zero
// timeout disables the timer. Retries count the restarts after the first
// expiry: with ResponseRetries N a request is retransmitted N times before
// the transaction gives up.
type TimerConfig struct {
	ResponseTimeout time.Duration
	ResponseRetries int
	HoldingTimeout  time.Duration
	HoldingRetries  int
}

// MessageKey identifies a message type of a given GTP version.
type MessageKey struct {
	Version uint8
	Type    uint8
}

// Config configures a Manager. Overrides are keyed by the message that
// creates the transaction.
type Config struct {
	PoolSize  int
	Timers    TimerConfig
	Overrides map[MessageKey]TimerConfig
}

// DefaultConfig returns the timers commonly used on GTP-C interfaces:
// T3-RESPONSE 3s with N3-REQUESTS 3, and a holding period covering the
// peer's whole retransmission schedule.
func DefaultConfig() Config {
	return Config{
		PoolSize: DefaultPoolSize,
		Timers: TimerConfig{
			ResponseTimeout: 3 * time.Second,
			ResponseRetries: 3,
			HoldingTimeout:  12 * time.Second,
		},
	}
}

func (c Config) timersFor(version, msgType uint8) TimerConfig {
	if t, ok := c.Overrides[MessageKey{version, msgType}]; ok {
		return t
	}
	return c.Timers
}

// Manager tracks every GTP transaction of the local node.
type Manager struct {
	mu sync.Mutex

	cfg       Config
	pool      *Pool
	sequences map[uint8]*SequenceAllocator
	sender    Sender
	clock     mclock.Clock
	stats     *stats.Collector
}

// NewManager creates a transaction manager. clock defaults to the system
// clock and collector may be nil.
func NewManager(cfg Config, sender Sender, clock mclock.Clock, collector *stats.Collector) *Manager {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if clock == nil {
		clock = mclock.System{}
	}
	return &Manager{
		cfg:  cfg,
		pool: NewPool(cfg.PoolSize),
		sequences: map[uint8]*SequenceAllocator{
			gtp.Version1: NewSequenceAllocator(V1MinXID, V1MaxXID),
			gtp.Version2: NewSequenceAllocator(V2MinXID, V2MaxXID),
		},
		sender: sender,
		clock:  clock,
		stats:  collector,
	}
}

// LocalCreate starts a transaction for a request sent by this node. The
// message is encoded and stored but not sent until Commit.
func (m *Manager) LocalCreate(node *Node, hdr gtp.HeaderDesc, payload []byte, cb Callback, data interface{}) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seq, ok := m.sequences[hdr.Version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, hdr.Version)
	}

	var tx *Transaction
	xid, err := m.nextXID(node, seq, hdr)
	if err == nil {
		tx, err = m.pool.Alloc()
	}
	if err != nil {
		log.WithFields(log.Fields{
			"peer": node.String(),
			"type": gtp.MessageTypeName(hdr.Version, hdr.Type),
		}).WithError(err).Error("Failed to create local transaction")
		return nil, err
	}

	tx.mu = &m.mu
	tx.version = hdr.Version
	tx.origin = OriginLocal
	tx.xid = xid
	tx.node = node
	tx.cb = cb
	tx.data = data
	m.setTimers(tx, hdr.Type)
	node.add(tx)
	m.stats.TransactionCreated(tx.origin.String())

	log.WithFields(tx.fields()).Debug("Local transaction created")

	if err := m.updateTx(tx, hdr, payload); err != nil {
		m.delete(tx)
		return nil, err
	}
	return tx, nil
}

// nextXID returns the next id not used by a local transaction with node.
func (m *Manager) nextXID(node *Node, seq *SequenceAllocator, hdr gtp.HeaderDesc) (uint32, error) {
	for i := 0; i < seq.Span(); i++ {
		xid := seq.Next()
		if gtp.IsCommand(hdr.Version, hdr.Type) {
			xid |= gtp.CommandFlag
		}
		if node.find(OriginLocal, hdr.Version, xid) == nil {
			return xid, nil
		}
	}
	return 0, ErrSequenceExhausted
}

func (m *Manager) remoteCreate(node *Node, version uint8, xid uint32, msgType uint8) (*Transaction, error) {
	tx, err := m.pool.Alloc()
	if err != nil {
		log.WithFields(log.Fields{
			"peer": node.String(),
			"xid":  xid,
			"type": gtp.MessageTypeName(version, msgType),
		}).Error("Failed to create remote transaction")
		return nil, err
	}

	tx.mu = &m.mu
	tx.version = version
	tx.origin = OriginRemote
	tx.xid = xid
	tx.node = node
	m.setTimers(tx, msgType)
	node.add(tx)
	m.stats.TransactionCreated(tx.origin.String())

	log.WithFields(tx.fields()).Debug("Remote transaction created")
	return tx, nil
}

// UpdateTx encodes the next outgoing message of tx. It fails without
// touching tx when the message is not legal at the current step.
func (m *Manager) UpdateTx(tx *Transaction, hdr gtp.HeaderDesc, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mustBeLive(tx)
	return m.updateTx(tx, hdr, payload)
}

func (m *Manager) updateTx(tx *Transaction, hdr gtp.HeaderDesc, payload []byte) error {
	stage := gtp.StageOf(tx.version, hdr.Type, tx.xid)
	if stage == gtp.StageUnknown {
		return &UnknownMessageError{Version: tx.version, Type: hdr.Type}
	}

	legal := false
	switch tx.origin {
	case OriginLocal:
		switch stage {
		case gtp.StageInitial:
			legal = tx.step == 0
		case gtp.StageFinal:
			legal = tx.step == 2
		}
	case OriginRemote:
		switch stage {
		case gtp.StageIntermediate, gtp.StageFinal:
			legal = tx.step == 1
		}
	}
	if !legal {
		return m.stepError("transmission", tx, stage, hdr.Type)
	}

	buf, err := gtp.Encode(tx.version, hdr, tx.xid, payload)
	if err != nil {
		return err
	}

	tx.steps[tx.step] = leg{msgType: hdr.Type, buf: buf}
	tx.step++

	log.WithFields(tx.fields()).WithField("type", m.typeName(tx, hdr.Type)).Debug("Message queued")
	return nil
}

// Receive matches an incoming message to its transaction, creating a remote
// transaction for new requests. ErrDuplicateRequest is returned together
// with the transaction when a retransmitted request has been answered from
// the stored reply; the caller must not process it again. Any other error
// means the message was rejected and the transaction deleted.
func (m *Manager) Receive(node *Node, h *gtp.Header) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sequences[h.Version]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, h.Version)
	}

	xid := gtp.XIDOf(h.Version, h.Sequence)
	stage := gtp.StageOf(h.Version, h.Type, xid)

	var origin Origin
	switch stage {
	case gtp.StageInitial:
		origin = OriginRemote
	case gtp.StageIntermediate:
		origin = OriginLocal
	case gtp.StageFinal:
		origin = finalOrigin(h.Version, h.Type, xid)
	default:
		err := &UnknownMessageError{Version: h.Version, Type: h.Type}
		log.WithFields(log.Fields{
			"peer": node.String(),
			"seq":  h.Sequence,
		}).WithError(err).Warn("Dropping message")
		return nil, err
	}

	tx := node.find(origin, h.Version, xid)
	if tx == nil {
		// A remote transaction already owns this id; the message is
		// a stray answer and must not replace it.
		if existing := node.find(OriginRemote, h.Version, xid); existing != nil {
			return nil, m.stepError("reception", existing, stage, h.Type)
		}
		var err error
		if tx, err = m.remoteCreate(node, h.Version, xid, h.Type); err != nil {
			return nil, err
		}
	}

	log.WithFields(tx.fields()).WithField("type", m.typeName(tx, h.Type)).Debug("Message received")

	if err := m.updateRx(tx, h.Type); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			return tx, err
		}
		m.delete(tx)
		return nil, err
	}
	return tx, nil
}

// finalOrigin picks the list holding the transaction a Final message
// belongs to. The Final of a three-step procedure answers an Intermediate
// this node sent, so it closes a remotely originated transaction.
func finalOrigin(version, msgType uint8, xid uint32) Origin {
	switch version {
	case gtp.Version1:
		if msgType == gtp.V1SGSNContextAcknowledge {
			return OriginRemote
		}
	case gtp.Version2:
		if xid&gtp.CommandFlag != 0 && !gtp.IsFailureIndication(version, msgType) {
			return OriginRemote
		}
		if msgType == gtp.V2ContextAcknowledge {
			return OriginRemote
		}
	}
	return OriginLocal
}

func (m *Manager) updateRx(tx *Transaction, msgType uint8) error {
	stage := gtp.StageOf(tx.version, msgType, tx.xid)

	switch tx.origin {
	case OriginLocal:
		switch stage {
		case gtp.StageIntermediate:
			if tx.steps[1].msgType == msgType {
				if tx.step != 2 && tx.step != 3 {
					return m.stepError("reception", tx, stage, msgType)
				}
				return m.duplicate(tx, msgType, 2)
			}
			if tx.step != 1 {
				return m.stepError("reception", tx, stage, msgType)
			}
			m.startTimer(tx, holdingTimer)
		case gtp.StageFinal:
			if tx.step != 1 {
				return m.stepError("reception", tx, stage, msgType)
			}
		default:
			return m.stepError("reception", tx, stage, msgType)
		}
	case OriginRemote:
		switch stage {
		case gtp.StageInitial:
			if tx.steps[0].msgType == msgType {
				if tx.step != 1 && tx.step != 2 {
					return m.stepError("reception", tx, stage, msgType)
				}
				return m.duplicate(tx, msgType, 1)
			}
			if tx.step != 0 {
				return m.stepError("reception", tx, stage, msgType)
			}
			m.startTimer(tx, holdingTimer)
		case gtp.StageFinal:
			if tx.step != 2 {
				return m.stepError("reception", tx, stage, msgType)
			}
		default:
			return m.stepError("reception", tx, stage, msgType)
		}
	}

	m.stopTimer(&tx.response)
	tx.steps[tx.step] = leg{msgType: msgType}
	tx.step++

	m.stats.RecordReceived(tx.node.String(), m.typeName(tx, msgType))
	return nil
}

// duplicate handles a retransmitted request: the holding timer restarts
// and the stored reply at step reply, if already sent, goes out again.
func (m *Manager) duplicate(tx *Transaction, msgType uint8, reply int) error {
	name := m.typeName(tx, msgType)
	m.stats.RecordDuplicate(tx.node.String(), name)
	m.startTimer(tx, holdingTimer)

	fields := tx.fields()
	fields["type"] = name

	r := tx.steps[reply]
	if r.buf == nil {
		log.WithFields(fields).Warn("Request duplicated, discarding")
		return ErrDuplicateRequest
	}

	log.WithFields(fields).Warn("Request duplicated, retransmitting reply")
	if err := m.send(tx, r.msgType, r.buf); err != nil {
		log.WithError(err).WithFields(fields).Error("Failed to retransmit reply")
	}
	return ErrDuplicateRequest
}

// Commit sends the last message queued on tx, or ends the transaction
// when nothing is left to send. Illegal commits delete the transaction.
func (m *Manager) Commit(tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mustBeLive(tx)

	msgType := tx.lastType()
	stage := gtp.StageOf(tx.version, msgType, tx.xid)

	fail := func() error {
		err := m.stepError("commit", tx, stage, msgType)
		m.delete(tx)
		return err
	}

	switch tx.origin {
	case OriginLocal:
		switch stage {
		case gtp.StageInitial:
			if tx.step != 1 {
				return fail()
			}
			m.startTimer(tx, responseTimer)
		case gtp.StageFinal:
			switch tx.step {
			case 2:
				m.delete(tx)
				return nil
			case 3:
			default:
				return fail()
			}
		default:
			return fail()
		}
	case OriginRemote:
		switch stage {
		case gtp.StageIntermediate:
			if tx.step != 2 {
				return fail()
			}
			m.startTimer(tx, responseTimer)
		case gtp.StageFinal:
			switch tx.step {
			case 2:
			case 3:
				m.delete(tx)
				return nil
			default:
				return fail()
			}
		default:
			return fail()
		}
	default:
		return fail()
	}

	last := tx.steps[tx.step-1]
	err := m.send(tx, last.msgType, last.buf)

	// Answered transactions are released by the holding timer only.
	if stage == gtp.StageFinal && !tx.holding.enabled() {
		m.delete(tx)
	}
	return err
}

// Associate links two live transactions, typically the two legs of a
// procedure relayed between peers. Neither may already be associated.
func (m *Manager) Associate(a, b *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mustBeLive(a)
	m.mustBeLive(b)
	if a.assoc != nil || b.assoc != nil {
		panic(fmt.Sprintf("xact: associate %s with %s: already associated", a, b))
	}
	a.assoc = b
	b.assoc = a
}

// Deassociate breaks the link created by Associate.
func (m *Manager) Deassociate(a, b *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mustBeLive(a)
	m.mustBeLive(b)
	m.deassociate(a, b)
}

func (m *Manager) deassociate(a, b *Transaction) {
	if a.assoc != b || b.assoc != a {
		panic(fmt.Sprintf("xact: deassociate %s from %s: not associated", a, b))
	}
	a.assoc = nil
	b.assoc = nil
}

// Delete removes tx. Deleting an already deleted transaction is a no-op.
func (m *Manager) Delete(tx *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx == nil || !tx.live {
		return
	}
	m.delete(tx)
}

// DeleteAll removes every transaction exchanged with node.
func (m *Manager) DeleteAll(node *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range []Origin{OriginLocal, OriginRemote} {
		for _, tx := range node.transactions(o) {
			if tx.live {
				m.delete(tx)
			}
		}
	}
}

func (m *Manager) delete(tx *Transaction) {
	log.WithFields(tx.fields()).Debug("Transaction deleted")

	m.stopTimer(&tx.response)
	m.stopTimer(&tx.holding)
	if tx.assoc != nil {
		m.deassociate(tx, tx.assoc)
	}
	tx.node.remove(tx)
	m.stats.TransactionDeleted(tx.origin.String())
	m.pool.Free(tx)
}

// Cycle resolves a handle to its transaction, or nil once it is deleted.
func (m *Manager) Cycle(h Handle) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Cycle(h)
}

// Find looks up a transaction by peer, version, id and origin.
func (m *Manager) Find(node *Node, version uint8, xid uint32, origin Origin) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return node.find(origin, version, xid)
}

// Count returns how many transactions of the given origin are held for node.
func (m *Manager) Count(node *Node, origin Origin) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return node.count(origin)
}

// Len returns the number of live transactions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Len()
}

func (m *Manager) send(tx *Transaction, msgType uint8, buf []byte) error {
	if err := m.sender.SendTo(tx.node, buf); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", m.typeName(tx, msgType), tx.node, err)
	}
	m.stats.RecordSent(tx.node.String(), m.typeName(tx, msgType))
	return nil
}

func (m *Manager) stepError(op string, tx *Transaction, stage gtp.Stage, msgType uint8) error {
	err := &StepError{
		Op:     op,
		XID:    tx.xid,
		Origin: tx.origin,
		Stage:  stage,
		Step:   tx.step,
		Type:   msgType,
	}
	log.WithFields(tx.fields()).WithField("type", m.typeName(tx, msgType)).WithError(err).Error("Invalid transaction step")
	return err
}

func (m *Manager) mustBeLive(tx *Transaction) {
	if tx == nil || !tx.live {
		panic("xact: use of deleted transaction")
	}
}

func (m *Manager) typeName(tx *Transaction, msgType uint8) string {
	return gtp.MessageTypeName(tx.version, msgType)
}
