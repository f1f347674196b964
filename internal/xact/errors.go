package xact

import (
	"errors"
	"fmt"

	"gtp-xact/internal/gtp"
)

var (
	// ErrPoolExhausted is returned when no transaction slot is free.
	ErrPoolExhausted = errors.New("transaction pool exhausted")
	// ErrSequenceExhausted is returned when every sequence id of a version
	// is taken by a local transaction with the same peer.
	ErrSequenceExhausted = errors.New("sequence ids exhausted")
	// ErrDuplicateRequest is returned by Receive when a peer retransmitted
	// a request the transaction has already seen. The last reply, if any,
	// has been resent and the message must not be processed again.
	ErrDuplicateRequest = errors.New("duplicated request")
	// ErrUnknownVersion is returned for GTP versions other than 1 and 2.
	ErrUnknownVersion = errors.New("unknown GTP version")
)

// StepError reports a message that is not legal for the transaction's
// origin and current step.
type StepError struct {
	Op     string
	XID    uint32
	Origin Origin
	Stage  gtp.Stage
	Step   int
	Type   uint8
}

func (e *StepError) Error() string {
	return fmt.Sprintf("invalid %s of %s message (type=%d) at step %d: xid=%d, origin=%s",
		e.Op, e.Stage, e.Type, e.Step, e.XID, e.Origin)
}

// UnknownMessageError reports a message type the stage classifier does not know.
type UnknownMessageError struct {
	Version uint8
	Type    uint8
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("unknown GTPv%d message type: %d", e.Version, e.Type)
}
