// Mock GTP-C peer for end-to-end testing of gtp-xactd.
// Answers echo requests and accepts v2 session requests with a bare Cause IE.
//
// Usage:
//
//	go run ./test/mockpeer [--addr 127.0.0.1] [--port 2123]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	v2ie "github.com/wmnsk/go-gtp/gtpv2/ie"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/network"
	"gtp-xact/internal/xact"
)

const causeRequestAccepted uint8 = 16

// v2 request type -> response type
var v2Answers = map[uint8]uint8{
	gtp.V2CreateSessionRequest:        gtp.V2CreateSessionResponse,
	gtp.V2ModifyBearerRequest:         gtp.V2ModifyBearerResponse,
	gtp.V2DeleteSessionRequest:        gtp.V2DeleteSessionResponse,
	gtp.V2ReleaseAccessBearersRequest: gtp.V2ReleaseAccessBearersResponse,
}

func accept(d *network.Dispatcher, tx *xact.Transaction, h *gtp.Header) error {
	mgr := d.Manager()
	cause, err := v2ie.NewCause(causeRequestAccepted, 0, 0, 0, nil).Marshal()
	if err != nil {
		mgr.Delete(tx)
		return err
	}

	desc := gtp.HeaderDesc{Version: gtp.Version2, Type: v2Answers[h.Type], TEIDPresent: true, TEID: h.TEID}
	if err := mgr.UpdateTx(tx, desc, cause); err != nil {
		mgr.Delete(tx)
		return err
	}
	log.WithFields(log.Fields{
		"peer": tx.Node().String(),
		"xid":  tx.XID(),
		"type": gtp.MessageTypeName(gtp.Version2, desc.Type),
	}).Info("→ accepted")
	return mgr.Commit(tx)
}

func main() {
	addr := flag.String("addr", "127.0.0.1", "IP address to listen on")
	port := flag.Int("port", gtp.ControlPort, "UDP port to listen on")
	restarts := flag.Uint("restarts", 0, "Recovery restart counter")
	flag.Parse()

	conn, err := network.NewConn(*addr, *port)
	if err != nil {
		log.WithError(err).Fatal("Mock peer error")
	}
	defer conn.Close()

	mgr := xact.NewManager(xact.DefaultConfig(), conn, nil, nil)
	d := network.NewDispatcher(mgr, uint8(*restarts))
	for req := range v2Answers {
		d.AddHandler(gtp.Version2, req, accept)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("Shutting down...")
		cancel()
	}()

	receiver := network.NewReceiver(conn)
	receiver.Start(ctx)
	log.WithField("local_addr", conn.LocalAddr()).Info("Mock GTP-C peer listening")

	d.Run(ctx, receiver.Messages())
	log.WithFields(log.Fields{"peers": d.PeerCount(), "transactions": mgr.Len()}).Info("Stopped")
}
