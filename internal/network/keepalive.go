package network

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/xact"
	"gtp-xact/pkg/types"
)

func echoRequestType(version uint8) uint8 {
	if version == gtp.Version1 {
		return gtp.V1EchoRequest
	}
	return gtp.V2EchoRequest
}

// SendEcho starts an echo exchange with peer. cb runs if the peer never
// answers.
func (d *Dispatcher) SendEcho(peer types.PeerConfig, cb xact.Callback) (*xact.Transaction, error) {
	recovery, err := gtp.RecoveryIE(peer.Version, d.restarts)
	if err != nil {
		return nil, err
	}

	desc := gtp.HeaderDesc{Version: peer.Version, Type: echoRequestType(peer.Version)}
	tx, err := d.mgr.LocalCreate(d.Peer(peer.UDPAddr()), desc, recovery, cb, peer)
	if err != nil {
		return nil, err
	}
	return tx, d.mgr.Commit(tx)
}

// StartKeepalive sends an echo request to every peer each interval until
// ctx is done.
func (d *Dispatcher) StartKeepalive(ctx context.Context, peers []types.PeerConfig, interval time.Duration) {
	if interval <= 0 || len(peers) == 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		d.sendEchoes(peers)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sendEchoes(peers)
			}
		}
	}()
}

func (d *Dispatcher) sendEchoes(peers []types.PeerConfig) {
	for _, p := range peers {
		if _, err := d.SendEcho(p, peerNotResponding); err != nil {
			log.WithError(err).WithField("peer", p.UDPAddr()).Warn("Failed to send echo request")
		}
	}
}

func peerNotResponding(tx *xact.Transaction, data interface{}) {
	peer, _ := data.(types.PeerConfig)
	log.WithFields(log.Fields{
		"peer":    peer.UDPAddr().String(),
		"version": peer.Version,
		"xid":     tx.XID(),
	}).Error("Peer not responding to echo requests")
}
