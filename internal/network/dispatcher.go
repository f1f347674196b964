package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/xact"
	"gtp-xact/pkg/types"
)

// Dispatcher feeds received datagrams through the transaction manager and
// hands accepted messages to the registered handlers. It also keeps the
// registry of known peers.
type Dispatcher struct {
	mgr      *xact.Manager
	restarts uint8
	handlers *handlerMap

	peers map[string]*xact.Node
	mu    sync.Mutex
}

// NewDispatcher creates a dispatcher with the default echo handlers.
// restarts is advertised in the Recovery IE of echo messages.
func NewDispatcher(mgr *xact.Manager, restarts uint8) *Dispatcher {
	return &Dispatcher{
		mgr:      mgr,
		restarts: restarts,
		handlers: newDefaultHandlerMap(),
		peers:    make(map[string]*xact.Node),
	}
}

// Manager returns the transaction manager used by the dispatcher.
func (d *Dispatcher) Manager() *xact.Manager { return d.mgr }

// Restarts returns the local restart counter.
func (d *Dispatcher) Restarts() uint8 { return d.restarts }

// AddHandler registers fn for a message type, replacing any existing one.
func (d *Dispatcher) AddHandler(version, msgType uint8, fn HandlerFunc) {
	d.handlers.store(version, msgType, fn)
}

// Peer returns the node for addr, creating it on first use.
func (d *Dispatcher) Peer(addr *net.UDPAddr) *xact.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := addr.String()
	node, ok := d.peers[key]
	if !ok {
		node = xact.NewNode(addr)
		d.peers[key] = node
		log.WithField("peer", key).Debug("New peer")
	}
	return node
}

// RemovePeer forgets a peer and deletes every transaction exchanged with it.
func (d *Dispatcher) RemovePeer(addr *net.UDPAddr) {
	d.mu.Lock()
	node, ok := d.peers[addr.String()]
	delete(d.peers, addr.String())
	d.mu.Unlock()

	if ok {
		d.mgr.DeleteAll(node)
	}
}

// PeerCount returns the number of known peers.
func (d *Dispatcher) PeerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.peers)
}

// Run handles datagrams until msgs is closed or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, msgs <-chan types.Datagram) {
	for {
		select {
		case <-ctx.Done():
			return
		case dg, ok := <-msgs:
			if !ok {
				return
			}
			if err := d.Handle(dg); err != nil {
				log.WithError(err).WithField("from", dg.From).Warn("Failed to handle message")
			}
		}
	}
}

// Handle processes a single datagram. Duplicated requests are answered
// by the transaction layer and not passed to handlers.
func (d *Dispatcher) Handle(dg types.Datagram) error {
	h, err := gtp.Parse(dg.Data)
	if err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	tx, err := d.mgr.Receive(d.Peer(dg.From), h)
	if err != nil {
		if errors.Is(err, xact.ErrDuplicateRequest) {
			return nil
		}
		return err
	}

	fn, ok := d.handlers.load(h.Version, h.Type)
	if !ok {
		// Nothing will answer or commit it.
		d.mgr.Delete(tx)
		return &HandlerNotFoundError{Version: h.Version, MsgType: gtp.MessageTypeName(h.Version, h.Type)}
	}
	return fn(d, tx, h)
}
