package stats

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gtp_xact"

// Collector records transaction layer activity both as Prometheus metrics
// and as in-process totals for the periodic report. A nil *Collector is a
// valid no-op collector.
type Collector struct {
	StartTime time.Time

	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	retransmissions  *prometheus.CounterVec
	duplicates       *prometheus.CounterVec
	timeouts         *prometheus.CounterVec
	active           *prometheus.GaugeVec

	sent         atomic.Uint64
	received     atomic.Uint64
	retransmits  atomic.Uint64
	dups         atomic.Uint64
	expired      atomic.Uint64
	activeLocal  atomic.Int64
	activeRemote atomic.Int64
}

// Totals is a point-in-time copy of the in-process counters.
type Totals struct {
	Sent          uint64 `json:"sent"`
	Received      uint64 `json:"received"`
	Retransmits   uint64 `json:"retransmits"`
	Duplicates    uint64 `json:"duplicates"`
	Timeouts      uint64 `json:"timeouts"`
	ActiveLocal   int64  `json:"active_local"`
	ActiveRemote  int64  `json:"active_remote"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// NewCollector creates a collector and registers its metrics with reg.
// A nil reg leaves the metrics unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		StartTime: time.Now(),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "GTP-C messages sent, including retransmissions.",
		}, []string{"peer", "type"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "GTP-C messages accepted by the transaction layer.",
		}, []string{"peer", "type"}),
		retransmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retransmissions_total",
			Help:      "Requests resent after a response timeout.",
		}, []string{"peer", "type"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "Duplicated requests received from peers.",
		}, []string{"peer", "type"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Transactions that gave up waiting for a response.",
		}, []string{"peer", "type"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_transactions",
			Help:      "Transactions currently held in the pool.",
		}, []string{"origin"}),
	}

	if reg != nil {
		for _, m := range []prometheus.Collector{
			c.messagesSent, c.messagesReceived, c.retransmissions,
			c.duplicates, c.timeouts, c.active,
		} {
			if err := reg.Register(m); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// RecordSent records a message handed to the transport.
func (c *Collector) RecordSent(peer, msgType string) {
	if c == nil {
		return
	}
	c.messagesSent.WithLabelValues(peer, msgType).Inc()
	c.sent.Add(1)
}

// RecordReceived records a message accepted by a transaction.
func (c *Collector) RecordReceived(peer, msgType string) {
	if c == nil {
		return
	}
	c.messagesReceived.WithLabelValues(peer, msgType).Inc()
	c.received.Add(1)
}

// RecordRetransmit records a retransmission.
func (c *Collector) RecordRetransmit(peer, msgType string) {
	if c == nil {
		return
	}
	c.retransmissions.WithLabelValues(peer, msgType).Inc()
	c.retransmits.Add(1)
}

// RecordDuplicate records a duplicated request.
func (c *Collector) RecordDuplicate(peer, msgType string) {
	if c == nil {
		return
	}
	c.duplicates.WithLabelValues(peer, msgType).Inc()
	c.dups.Add(1)
}

// RecordTimeout records a transaction timeout.
func (c *Collector) RecordTimeout(peer, msgType string) {
	if c == nil {
		return
	}
	c.timeouts.WithLabelValues(peer, msgType).Inc()
	c.expired.Add(1)
}

// TransactionCreated increments the active gauge for origin ("local" or "remote").
func (c *Collector) TransactionCreated(origin string) {
	if c == nil {
		return
	}
	c.active.WithLabelValues(origin).Inc()
	c.activeCounter(origin).Add(1)
}

// TransactionDeleted decrements the active gauge for origin.
func (c *Collector) TransactionDeleted(origin string) {
	if c == nil {
		return
	}
	c.active.WithLabelValues(origin).Dec()
	c.activeCounter(origin).Add(-1)
}

func (c *Collector) activeCounter(origin string) *atomic.Int64 {
	if origin == "local" {
		return &c.activeLocal
	}
	return &c.activeRemote
}

// Snapshot returns the current totals.
func (c *Collector) Snapshot() Totals {
	if c == nil {
		return Totals{}
	}
	return Totals{
		Sent:          c.sent.Load(),
		Received:      c.received.Load(),
		Retransmits:   c.retransmits.Load(),
		Duplicates:    c.dups.Load(),
		Timeouts:      c.expired.Load(),
		ActiveLocal:   c.activeLocal.Load(),
		ActiveRemote:  c.activeRemote.Load(),
		UptimeSeconds: int64(time.Since(c.StartTime) / time.Second),
	}
}
