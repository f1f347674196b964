package network

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/pcap"
	"gtp-xact/internal/xact"
	"gtp-xact/pkg/types"
)

type endpoint struct {
	conn *Conn
	mgr  *xact.Manager
	d    *Dispatcher
}

func newEndpoint(t *testing.T, ctx context.Context, restarts uint8) *endpoint {
	t.Helper()

	conn, err := NewConn("127.0.0.1", 0)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	mgr := xact.NewManager(xact.DefaultConfig(), conn, nil, nil)
	d := NewDispatcher(mgr, restarts)

	r := NewReceiver(conn)
	r.Start(ctx)
	go d.Run(ctx, r.Messages())

	return &endpoint{conn: conn, mgr: mgr, d: d}
}

func (e *endpoint) peerConfig(version uint8) types.PeerConfig {
	addr := e.conn.LocalAddr()
	return types.PeerConfig{Address: addr.IP.String(), Port: addr.Port, Version: version}
}

func TestDispatcher_EchoExchange(t *testing.T) {
	for _, version := range []uint8{gtp.Version1, gtp.Version2} {
		t.Run(fmt.Sprintf("v%d", version), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a := newEndpoint(t, ctx, 1)
			b := newEndpoint(t, ctx, 42)

			responses := make(chan *gtp.Header, 1)
			a.d.AddHandler(version, echoResponseType(version), func(d *Dispatcher, tx *xact.Transaction, h *gtp.Header) error {
				responses <- h
				return d.Manager().Commit(tx)
			})

			tx, err := a.d.SendEcho(b.peerConfig(version), nil)
			require.NoError(t, err)

			select {
			case h := <-responses:
				assert.Equal(t, version, h.Version)
				assert.Equal(t, tx.Sequence(), h.Sequence)
				recovery, err := gtp.RecoveryIE(version, 42)
				require.NoError(t, err)
				assert.Equal(t, recovery, h.Payload)
			case <-time.After(2 * time.Second):
				t.Fatal("no echo response received")
			}

			assert.Eventually(t, func() bool { return a.mgr.Len() == 0 }, time.Second, 10*time.Millisecond)
			assert.Equal(t, 1, b.mgr.Len(), "responder holds the transaction for duplicates")
			assert.Equal(t, 1, b.d.PeerCount())
		})
	}
}

func TestDispatcher_CapturesTraffic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newEndpoint(t, ctx, 1)
	b := newEndpoint(t, ctx, 2)

	var buf bytes.Buffer
	w, err := pcap.NewWriter(&buf)
	require.NoError(t, err)
	a.conn.SetCapture(w)

	_, err = a.d.SendEcho(b.peerConfig(gtp.Version2), nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return w.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	parser := &pcap.Parser{Port: b.conn.LocalAddr().Port}
	got, err := parser.Parse(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	req, err := gtp.Parse(got[0].Data)
	require.NoError(t, err)
	assert.Equal(t, gtp.V2EchoRequest, req.Type)
	resp, err := gtp.Parse(got[1].Data)
	require.NoError(t, err)
	assert.Equal(t, gtp.V2EchoResponse, resp.Type)
}

type discardSender struct{ sent int }

func (s *discardSender) SendTo(*xact.Node, []byte) error {
	s.sent++
	return nil
}

func newOfflineDispatcher() (*Dispatcher, *discardSender) {
	sender := &discardSender{}
	mgr := xact.NewManager(xact.DefaultConfig(), sender, new(mclock.Simulated), nil)
	return NewDispatcher(mgr, 1), sender
}

func datagram(t *testing.T, version uint8, desc gtp.HeaderDesc, seq uint32) types.Datagram {
	t.Helper()
	b, err := gtp.Encode(version, desc, seq, nil)
	require.NoError(t, err)
	return types.Datagram{
		Data: b,
		From: &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: gtp.ControlPort},
	}
}

func TestDispatcher_Handle_DuplicateNotDispatched(t *testing.T) {
	d, sender := newOfflineDispatcher()

	calls := 0
	d.AddHandler(gtp.Version2, gtp.V2CreateSessionRequest, func(*Dispatcher, *xact.Transaction, *gtp.Header) error {
		calls++
		return nil
	})

	dg := datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2CreateSessionRequest, TEIDPresent: true}, 3)
	require.NoError(t, d.Handle(dg))
	require.NoError(t, d.Handle(dg))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, sender.sent)
	assert.Equal(t, 1, d.Manager().Len())
}

func TestDispatcher_Handle_EchoRequestAnswered(t *testing.T) {
	d, sender := newOfflineDispatcher()

	require.NoError(t, d.Handle(datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2EchoRequest}, 9)))
	assert.Equal(t, 1, sender.sent)

	// retransmitted echo request gets the stored response again
	require.NoError(t, d.Handle(datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2EchoRequest}, 9)))
	assert.Equal(t, 2, sender.sent)
}

func TestDispatcher_Handle_Errors(t *testing.T) {
	d, _ := newOfflineDispatcher()

	err := d.Handle(types.Datagram{Data: []byte{0x40}, From: &net.UDPAddr{IP: net.ParseIP("192.0.2.10")}})
	assert.ErrorIs(t, err, gtp.ErrTooShort)

	err = d.Handle(datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2CreateSessionRequest, TEIDPresent: true}, 5))
	var notFound *HandlerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "CreateSessionRequest", notFound.MsgType)
	assert.Equal(t, 0, d.Manager().Len(), "unhandled request is released")

	err = d.Handle(datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2CreateSessionResponse, TEIDPresent: true}, 77))
	assert.Error(t, err)
}

func TestDispatcher_Handle_UnhandledRequestsDoNotLeak(t *testing.T) {
	cfg := xact.DefaultConfig()
	cfg.PoolSize = 2
	cfg.Timers.HoldingTimeout = 0
	d := NewDispatcher(xact.NewManager(cfg, &discardSender{}, new(mclock.Simulated), nil), 1)

	for seq := uint32(1); seq <= 5; seq++ {
		err := d.Handle(datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2ModifyBearerRequest, TEIDPresent: true}, seq))
		var notFound *HandlerNotFoundError
		require.ErrorAs(t, err, &notFound, "seq %d", seq)
	}
	assert.Equal(t, 0, d.Manager().Len())
}

func TestDispatcher_Handle_MalformedHeader(t *testing.T) {
	d, sender := newOfflineDispatcher()
	from := &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: gtp.ControlPort}

	for _, data := range [][]byte{
		[]byte("00000000000"),
		{0x34, 0x01, 0x00, 0x04, 0, 0, 0, 0, 0, 0, 0, 0x05},
		{0x48, 0x20, 0xff, 0xff, 0, 0, 0, 1},
	} {
		var err error
		require.NotPanics(t, func() { err = d.Handle(types.Datagram{Data: data, From: from}) })
		assert.Error(t, err)
	}
	assert.Equal(t, 0, d.Manager().Len())
	assert.Equal(t, 0, sender.sent)
}

func TestDispatcher_RemovePeer(t *testing.T) {
	d, _ := newOfflineDispatcher()

	dg := datagram(t, gtp.Version2, gtp.HeaderDesc{Type: gtp.V2EchoRequest}, 1)
	require.NoError(t, d.Handle(dg))
	require.Equal(t, 1, d.Manager().Len())

	d.RemovePeer(dg.From)
	assert.Equal(t, 0, d.PeerCount())
	assert.Equal(t, 0, d.Manager().Len())
}

func TestDispatcher_PeerReused(t *testing.T) {
	d, _ := newOfflineDispatcher()

	addr := &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: gtp.ControlPort}
	same := &net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: gtp.ControlPort}
	assert.Same(t, d.Peer(addr), d.Peer(same))
	assert.Equal(t, 1, d.PeerCount())
}

func TestSendEcho_PeerNotResponding(t *testing.T) {
	sender := &discardSender{}
	clock := new(mclock.Simulated)
	cfg := xact.DefaultConfig()
	mgr := xact.NewManager(cfg, sender, clock, nil)
	d := NewDispatcher(mgr, 1)

	peer := types.PeerConfig{Address: "192.0.2.20", Port: gtp.ControlPort, Version: gtp.Version2}
	done := make(chan types.PeerConfig, 1)
	_, err := d.SendEcho(peer, func(tx *xact.Transaction, data interface{}) {
		done <- data.(types.PeerConfig)
	})
	require.NoError(t, err)

	for i := 0; i <= cfg.Timers.ResponseRetries; i++ {
		clock.Run(cfg.Timers.ResponseTimeout)
	}

	select {
	case got := <-done:
		assert.Equal(t, peer, got)
	default:
		t.Fatal("callback not invoked")
	}
	assert.Equal(t, 1+cfg.Timers.ResponseRetries, sender.sent)
	assert.Equal(t, 0, mgr.Len())
}
