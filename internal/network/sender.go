package network

import (
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/xact"
)

// Capture records datagrams crossing the socket.
type Capture interface {
	Write(src, dst *net.UDPAddr, payload []byte, ts time.Time) error
}

// Conn is the GTP-C UDP endpoint. It implements xact.Sender.
type Conn struct {
	conn    *net.UDPConn
	mu      sync.Mutex
	capture Capture
}

// NewConn binds a UDP socket to addr:port.
func NewConn(addr string, port int) (*Conn, error) {
	localAddr := &net.UDPAddr{
		IP:   net.ParseIP(addr),
		Port: port,
	}

	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind UDP to %s:%d: %w", addr, port, err)
	}
	return &Conn{conn: conn}, nil
}

// SetCapture makes the connection record every datagram into c.
func (c *Conn) SetCapture(capture Capture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capture = capture
}

// SendTo transmits b to the peer.
func (c *Conn) SendTo(node *xact.Node, b []byte) error {
	dst, err := udpAddr(node.Addr)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.conn.WriteToUDP(b, dst); err != nil {
		return fmt.Errorf("failed to send to %s: %w", dst, err)
	}
	c.record(c.localUDPAddr(), dst, b)
	return nil
}

// record must be called with c.mu held.
func (c *Conn) record(src, dst *net.UDPAddr, b []byte) {
	if c.capture == nil {
		return
	}
	if err := c.capture.Write(src, dst, b, time.Now()); err != nil {
		log.WithError(err).Warn("Failed to capture packet")
	}
}

func (c *Conn) recordReceived(src *net.UDPAddr, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(src, c.localUDPAddr(), b)
}

func (c *Conn) localUDPAddr() *net.UDPAddr {
	addr, _ := c.conn.LocalAddr().(*net.UDPAddr)
	return addr
}

// Close closes the UDP connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local address the connection is bound to.
func (c *Conn) LocalAddr() *net.UDPAddr {
	return c.localUDPAddr()
}

func udpAddr(addr net.Addr) (*net.UDPAddr, error) {
	if a, ok := addr.(*net.UDPAddr); ok {
		return a, nil
	}
	if addr == nil {
		return nil, fmt.Errorf("peer has no address")
	}
	a, err := net.ResolveUDPAddr("udp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve peer %s: %w", addr, err)
	}
	return a, nil
}
