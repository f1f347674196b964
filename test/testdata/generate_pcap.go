//go:build ignore

// This program generates a sample GTP-C pcap file for testing
// `gtp-xactd --count`.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	v2ie "github.com/wmnsk/go-gtp/gtpv2/ie"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/pcap"
)

func main() {
	filename := "test/testdata/sample.pcap"
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	w, err := pcap.Create(filename)
	if err != nil {
		panic(err)
	}
	defer w.Close()

	mme := &net.UDPAddr{IP: net.ParseIP("192.168.1.10"), Port: gtp.ControlPort}
	sgw := &net.UDPAddr{IP: net.ParseIP("192.168.1.20"), Port: gtp.ControlPort}
	ts := time.Now()

	write := func(src, dst *net.UDPAddr, version uint8, desc gtp.HeaderDesc, xid uint32, payload []byte) {
		b, err := gtp.Encode(version, desc, xid, payload)
		if err != nil {
			panic(fmt.Sprintf("failed to encode: %v", err))
		}
		if err := w.Write(src, dst, b, ts); err != nil {
			panic(fmt.Sprintf("failed to write packet: %v", err))
		}
		ts = ts.Add(10 * time.Millisecond)
	}

	recovery, err := gtp.RecoveryIE(gtp.Version2, 1)
	if err != nil {
		panic(err)
	}
	cause, err := v2ie.NewCause(16, 0, 0, 0, nil).Marshal()
	if err != nil {
		panic(err)
	}

	// === 1. Echo exchange ===
	write(mme, sgw, gtp.Version2, gtp.HeaderDesc{Version: 2, Type: gtp.V2EchoRequest}, 1, recovery)
	write(sgw, mme, gtp.Version2, gtp.HeaderDesc{Version: 2, Type: gtp.V2EchoResponse}, 1, recovery)

	// === 2. Three sessions, the second request retransmitted once ===
	for i := uint32(0); i < 3; i++ {
		xid := 2 + i
		req := gtp.HeaderDesc{Version: 2, Type: gtp.V2CreateSessionRequest, TEIDPresent: true}
		write(mme, sgw, gtp.Version2, req, xid, nil)
		if i == 1 {
			write(mme, sgw, gtp.Version2, req, xid, nil)
		}
		resp := gtp.HeaderDesc{Version: 2, Type: gtp.V2CreateSessionResponse, TEIDPresent: true, TEID: 0x1000 + i}
		write(sgw, mme, gtp.Version2, resp, xid, cause)
	}

	// === 3. Bearer resource command procedure ===
	cmd := gtp.HeaderDesc{Version: 2, Type: gtp.V2BearerResourceCommand, TEIDPresent: true, TEID: 0x1000}
	write(mme, sgw, gtp.Version2, cmd, gtp.CommandFlag|5, nil)
	create := gtp.HeaderDesc{Version: 2, Type: gtp.V2CreateBearerRequest, TEIDPresent: true, TEID: 0x2000}
	write(sgw, mme, gtp.Version2, create, gtp.CommandFlag|5, nil)
	done := gtp.HeaderDesc{Version: 2, Type: gtp.V2CreateBearerResponse, TEIDPresent: true, TEID: 0x1000}
	write(mme, sgw, gtp.Version2, done, gtp.CommandFlag|5, cause)

	fmt.Printf("Wrote %d packets to %s\n", w.Count(), filename)
}
