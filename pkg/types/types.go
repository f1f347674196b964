package types

import (
	"net"
	"time"
)

// Datagram is a single UDP payload seen on the GTP-C socket or read back
// from a capture file.
type Datagram struct {
	Data      []byte
	From      *net.UDPAddr
	To        *net.UDPAddr
	Timestamp time.Time
}

// PeerConfig identifies a GTP-C peer this node keeps alive with echo
// requests.
type PeerConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Version uint8  `yaml:"version" mapstructure:"version"`
}

// UDPAddr returns the peer's UDP address.
func (p PeerConfig) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(p.Address), Port: p.Port}
}
