package xact

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/stretchr/testify/require"

	"gtp-xact/internal/gtp"
)

type recordingSender struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (s *recordingSender) SendTo(node *Node, b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, append([]byte(nil), b...))
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) message(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[i]
}

func (s *recordingSender) last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[len(s.sent)-1]
}

func (s *recordingSender) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// recordingClock remembers every duration a timer was armed with.
type recordingClock struct {
	*mclock.Simulated

	mu        sync.Mutex
	durations []time.Duration
}

func (c *recordingClock) AfterFunc(d time.Duration, f func()) mclock.Timer {
	c.mu.Lock()
	c.durations = append(c.durations, d)
	c.mu.Unlock()
	return c.Simulated.AfterFunc(d, f)
}

func (c *recordingClock) lastDuration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durations[len(c.durations)-1]
}

func (c *recordingClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.durations)
}

const (
	testResponseTimeout = 3 * time.Second
	testHoldingTimeout  = 10 * time.Second
)

func testConfig() Config {
	return Config{
		PoolSize: 16,
		Timers: TimerConfig{
			ResponseTimeout: testResponseTimeout,
			ResponseRetries: 3,
			HoldingTimeout:  testHoldingTimeout,
		},
	}
}

type testEnv struct {
	m      *Manager
	sender *recordingSender
	clock  *recordingClock
	node   *Node
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	env := &testEnv{
		sender: &recordingSender{},
		clock:  &recordingClock{Simulated: new(mclock.Simulated)},
		node:   testNode("192.0.2.1"),
	}
	env.m = NewManager(cfg, env.sender, env.clock, nil)
	return env
}

func testNode(ip string) *Node {
	return NewNode(&net.UDPAddr{IP: net.ParseIP(ip), Port: gtp.ControlPort})
}

func incoming(version, msgType uint8, seq uint32) *gtp.Header {
	return &gtp.Header{
		Version:     version,
		Type:        msgType,
		TEIDPresent: gtp.HasTEID(version, msgType),
		Sequence:    seq,
	}
}

func v2Desc(msgType uint8) gtp.HeaderDesc {
	return gtp.HeaderDesc{Version: gtp.Version2, Type: msgType, TEIDPresent: gtp.HasTEID(gtp.Version2, msgType)}
}

func v1Desc(msgType uint8) gtp.HeaderDesc {
	return gtp.HeaderDesc{Version: gtp.Version1, Type: msgType}
}

func parseSent(t *testing.T, b []byte) *gtp.Header {
	t.Helper()
	h, err := gtp.Parse(b)
	require.NoError(t, err)
	return h
}
