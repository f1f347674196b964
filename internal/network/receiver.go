package network

import (
	"context"
	"errors"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"gtp-xact/pkg/types"
)

// Receiver reads GTP-C datagrams from a Conn.
type Receiver struct {
	conn    *Conn
	msgChan chan types.Datagram
}

// NewReceiver creates a receiver on the same socket the Conn sends from.
func NewReceiver(conn *Conn) *Receiver {
	return &Receiver{
		conn:    conn,
		msgChan: make(chan types.Datagram, 1000),
	}
}

// Start begins listening for incoming datagrams in a goroutine.
func (r *Receiver) Start(ctx context.Context) {
	go r.listen(ctx)
}

// Messages returns the channel of received datagrams. It is closed when
// the receiver stops.
func (r *Receiver) Messages() <-chan types.Datagram {
	return r.msgChan
}

func (r *Receiver) listen(ctx context.Context) {
	defer close(r.msgChan)

	local := r.conn.LocalAddr()
	buf := make([]byte, 65535)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, addr, err := r.conn.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return // normal shutdown
			}
			log.WithError(err).Warn("Error reading from UDP")
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		r.conn.recordReceived(addr, data)

		select {
		case r.msgChan <- types.Datagram{
			Data:      data,
			From:      addr,
			To:        local,
			Timestamp: time.Now(),
		}:
		case <-ctx.Done():
			return
		}
	}
}
