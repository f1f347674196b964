package xact

import (
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	log "github.com/sirupsen/logrus"
)

type timerKind uint8

const (
	responseTimer timerKind = iota
	holdingTimer
)

func (k timerKind) String() string {
	if k == responseTimer {
		return "response"
	}
	return "holding"
}

// txTimer is one of the two per-transaction timers. A zero duration
// disables it. remaining counts the restarts left before it gives up.
type txTimer struct {
	duration  time.Duration
	remaining int
	timer     mclock.Timer
	token     uint64
}

func (t *txTimer) enabled() bool { return t.duration > 0 }

func (tx *Transaction) timer(kind timerKind) *txTimer {
	if kind == responseTimer {
		return &tx.response
	}
	return &tx.holding
}

func (m *Manager) setTimers(tx *Transaction, msgType uint8) {
	cfg := m.cfg.timersFor(tx.version, msgType)
	tx.response = txTimer{duration: cfg.ResponseTimeout, remaining: cfg.ResponseRetries}
	tx.holding = txTimer{duration: cfg.HoldingTimeout, remaining: cfg.HoldingRetries}
}

// startTimer (re)arms a timer for its configured duration.
func (m *Manager) startTimer(tx *Transaction, kind timerKind) {
	t := tx.timer(kind)
	if !t.enabled() {
		return
	}
	m.stopTimer(t)

	t.token++
	h, token := tx.handle, t.token
	t.timer = m.clock.AfterFunc(t.duration, func() {
		m.onTimer(h, kind, token)
	})
}

func (m *Manager) stopTimer(t *txTimer) {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// onTimer runs on the clock's goroutine. Fires that lost a race with a
// stop, a restart or a deletion are recognised by handle and token.
func (m *Manager) onTimer(h Handle, kind timerKind, token uint64) {
	m.mu.Lock()

	tx := m.pool.Cycle(h)
	if tx == nil {
		m.mu.Unlock()
		return
	}
	t := tx.timer(kind)
	if t.timer == nil || t.token != token {
		m.mu.Unlock()
		return
	}
	t.timer = nil

	if kind == holdingTimer {
		m.holdingExpired(tx)
		m.mu.Unlock()
		return
	}

	if !m.responseExpired(tx) {
		m.mu.Unlock()
		return
	}

	cb, data := tx.cb, tx.data
	tx.cb = nil
	m.mu.Unlock()

	if cb != nil {
		cb(tx, data)
	}

	m.mu.Lock()
	if tx := m.pool.Cycle(h); tx != nil {
		m.delete(tx)
	}
	m.mu.Unlock()
}

// responseExpired retransmits the last sent message while retries remain.
// It returns true once the transaction has to be given up.
func (m *Manager) responseExpired(tx *Transaction) bool {
	last := tx.steps[tx.step-1]
	name := m.typeName(tx, last.msgType)

	if tx.response.remaining > 0 {
		tx.response.remaining--
		m.startTimer(tx, responseTimer)

		log.WithFields(tx.fields()).WithFields(log.Fields{
			"type":      name,
			"remaining": tx.response.remaining,
		}).Warn("Response timeout, retransmitting")

		m.stats.RecordRetransmit(tx.node.String(), name)
		if err := m.send(tx, last.msgType, last.buf); err != nil {
			log.WithError(err).WithFields(tx.fields()).Error("Retransmission failed")
		}
		return false
	}

	log.WithFields(tx.fields()).WithField("type", name).Warn("No response, giving up")
	m.stats.RecordTimeout(tx.node.String(), name)
	return true
}

func (m *Manager) holdingExpired(tx *Transaction) {
	if tx.holding.remaining > 0 {
		tx.holding.remaining--
		m.startTimer(tx, holdingTimer)
		return
	}

	log.WithFields(tx.fields()).Debug("Holding timer expired")
	m.delete(tx)
}
