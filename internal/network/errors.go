package network

import "fmt"

// HandlerNotFoundError indicates that no handler is registered for a
// message type.
type HandlerNotFoundError struct {
	Version uint8
	MsgType string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler for GTPv%d %s", e.Version, e.MsgType)
}
