package pcap

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/gtp"
	"gtp-xact/pkg/types"
)

// Parser reads pcap captures and extracts GTP-C datagrams.
type Parser struct {
	// Port selects GTP-C traffic; 0 means gtp.ControlPort.
	Port int
}

// NewParser creates a new pcap parser for the standard GTP-C port.
func NewParser() *Parser {
	return &Parser{Port: gtp.ControlPort}
}

// ParseFile reads a pcap file and returns its GTP-C datagrams in order.
func (p *Parser) ParseFile(filename string) ([]types.Datagram, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open pcap file %s: %w", filename, err)
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads a pcap stream and returns its GTP-C datagrams in order.
func (p *Parser) Parse(r io.Reader) ([]types.Datagram, error) {
	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}

	linkType := reader.LinkType()
	log.WithField("link_type", linkType.String()).Debug("PCAP link type detected")

	packetSource := gopacket.NewPacketSource(reader, linkType)
	packetSource.DecodeOptions.Lazy = true
	packetSource.DecodeOptions.NoCopy = true

	port := layers.UDPPort(p.port())
	var out []types.Datagram
	total := 0

	for packet := range packetSource.Packets() {
		total++

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if udp.DstPort != port && udp.SrcPort != port {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}

		var srcIP, dstIP net.IP
		if ipv4, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
			srcIP, dstIP = ipv4.SrcIP, ipv4.DstIP
		} else if ipv6, ok := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6); ok {
			srcIP, dstIP = ipv6.SrcIP, ipv6.DstIP
		}

		// Copy payload since we're using NoCopy
		data := make([]byte, len(udp.Payload))
		copy(data, udp.Payload)

		out = append(out, types.Datagram{
			Data:      data,
			From:      &net.UDPAddr{IP: append(net.IP(nil), srcIP...), Port: int(udp.SrcPort)},
			To:        &net.UDPAddr{IP: append(net.IP(nil), dstIP...), Port: int(udp.DstPort)},
			Timestamp: packet.Metadata().Timestamp,
		})
	}

	log.WithFields(log.Fields{
		"total_packets": total,
		"gtp_packets":   len(out),
	}).Debug("PCAP parsing complete")

	return out, nil
}

// CountMessages returns the number of GTP-C messages per type name found in
// a pcap file. Names are prefixed with the GTP version, e.g. "v2/EchoRequest".
func (p *Parser) CountMessages(filename string) (map[string]int, error) {
	datagrams, err := p.ParseFile(filename)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, dg := range datagrams {
		h, err := gtp.Parse(dg.Data)
		if err != nil {
			counts["malformed"]++
			continue
		}
		counts[fmt.Sprintf("v%d/%s", h.Version, gtp.MessageTypeName(h.Version, h.Type))]++
	}
	return counts, nil
}

func (p *Parser) port() int {
	if p.Port == 0 {
		return gtp.ControlPort
	}
	return p.Port
}
