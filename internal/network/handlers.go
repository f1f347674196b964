package network

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"gtp-xact/internal/gtp"
	"gtp-xact/internal/xact"
)

// HandlerFunc processes a message accepted by the transaction layer. The
// handler owns tx from then on: it answers it with UpdateTx and Commit, or
// commits it to finish a locally started exchange.
type HandlerFunc func(d *Dispatcher, tx *xact.Transaction, h *gtp.Header) error

type handlerKey struct {
	version uint8
	msgType uint8
}

type handlerMap struct {
	syncMap sync.Map
}

func (m *handlerMap) store(version, msgType uint8, fn HandlerFunc) {
	m.syncMap.Store(handlerKey{version, msgType}, fn)
}

func (m *handlerMap) load(version, msgType uint8) (HandlerFunc, bool) {
	fn, ok := m.syncMap.Load(handlerKey{version, msgType})
	if !ok {
		return nil, false
	}
	return fn.(HandlerFunc), true
}

func newDefaultHandlerMap() *handlerMap {
	m := &handlerMap{}
	m.store(gtp.Version1, gtp.V1EchoRequest, handleEchoRequest)
	m.store(gtp.Version1, gtp.V1EchoResponse, handleEchoResponse)
	m.store(gtp.Version2, gtp.V2EchoRequest, handleEchoRequest)
	m.store(gtp.Version2, gtp.V2EchoResponse, handleEchoResponse)
	return m
}

func echoResponseType(version uint8) uint8 {
	if version == gtp.Version1 {
		return gtp.V1EchoResponse
	}
	return gtp.V2EchoResponse
}

func handleEchoRequest(d *Dispatcher, tx *xact.Transaction, h *gtp.Header) error {
	recovery, err := gtp.RecoveryIE(h.Version, d.Restarts())
	if err != nil {
		d.mgr.Delete(tx)
		return err
	}

	desc := gtp.HeaderDesc{Version: h.Version, Type: echoResponseType(h.Version)}
	if err := d.mgr.UpdateTx(tx, desc, recovery); err != nil {
		d.mgr.Delete(tx)
		return err
	}
	return d.mgr.Commit(tx)
}

func handleEchoResponse(d *Dispatcher, tx *xact.Transaction, h *gtp.Header) error {
	log.WithFields(log.Fields{
		"peer": tx.Node().String(),
		"xid":  tx.XID(),
	}).Debug("Echo response received")
	return d.mgr.Commit(tx)
}
