package gtp

import (
	"encoding/binary"
	"errors"
	"fmt"

	v1msg "github.com/wmnsk/go-gtp/gtpv1/message"
	v2msg "github.com/wmnsk/go-gtp/gtpv2/message"
)

const (
	v1SequenceMask uint32 = 0xffff
	v2SequenceMask uint32 = 0xffffff
)

var (
	ErrTooShort       = errors.New("too short to decode as GTP")
	ErrInvalidVersion = errors.New("unsupported GTP version")
	ErrMalformed      = errors.New("malformed GTP header")
)

// HeaderDesc describes the header to be put in front of an outgoing message
// body. Version is consulted only when a transaction is created; later legs
// always use the version of the transaction they belong to.
type HeaderDesc struct {
	Version     uint8
	Type        uint8
	TEIDPresent bool
	TEID        uint32
}

// Header is the decoded common header of an incoming GTP-C message.
type Header struct {
	Version     uint8
	Type        uint8
	TEIDPresent bool
	TEID        uint32
	Sequence    uint32
	Payload     []byte
}

// SequenceOf derives the wire sequence number from a transaction id.
func SequenceOf(version uint8, xid uint32) uint32 {
	if version == Version1 {
		return xid & v1SequenceMask
	}
	return xid & v2SequenceMask
}

// XIDOf is the inverse of SequenceOf.
func XIDOf(version uint8, seq uint32) uint32 {
	return SequenceOf(version, seq)
}

// Encode builds a complete GTP-C message: header for the given version,
// sequence derived from xid, followed by payload.
func Encode(version uint8, desc HeaderDesc, xid uint32, payload []byte) ([]byte, error) {
	switch version {
	case Version1:
		h := v1msg.NewHeader(
			v1msg.NewHeaderFlags(1, 1, 0, 1, 0),
			desc.Type, desc.TEID, uint16(SequenceOf(version, xid)), payload,
		)
		b, err := h.Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to encode GTPv1 header: %w", err)
		}
		return b, nil
	case Version2:
		teid := 0
		if desc.TEIDPresent {
			teid = 1
		}
		h := v2msg.NewHeader(
			v2msg.NewHeaderFlags(2, 0, teid),
			desc.Type, desc.TEID, SequenceOf(version, xid), payload,
		)
		b, err := h.Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to encode GTPv2 header: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
}

// Parse decodes the common header of a GTP-C message. The message body is
// returned untouched in Payload.
func Parse(b []byte) (*Header, error) {
	if len(b) < 8 {
		return nil, ErrTooShort
	}

	switch version := b[0] >> 5; version {
	case Version1:
		if err := checkV1(b); err != nil {
			return nil, err
		}
		var h *v1msg.Header
		err := safely(func() (err error) {
			h, err = v1msg.ParseHeader(b)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse GTPv1 header: %w", err)
		}
		return &Header{
			Version:     Version1,
			Type:        h.Type,
			TEIDPresent: true,
			TEID:        h.TEID,
			Sequence:    uint32(h.SequenceNumber),
			Payload:     h.Payload,
		}, nil
	case Version2:
		if err := checkV2(b); err != nil {
			return nil, err
		}
		var h *v2msg.Header
		err := safely(func() (err error) {
			h, err = v2msg.ParseHeader(b)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse GTPv2 header: %w", err)
		}
		return &Header{
			Version:     Version2,
			Type:        h.Type,
			TEIDPresent: h.Flags&0x08 != 0,
			TEID:        h.TEID,
			Sequence:    h.SequenceNumber,
			Payload:     h.Payload,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
}

// checkV1 verifies that the length field and the optional fields of a
// GTPv1 header, extension headers included, fit in b.
func checkV1(b []byte) error {
	end := 8 + int(binary.BigEndian.Uint16(b[2:4]))
	if len(b) < end {
		return fmt.Errorf("%w: length %d exceeds %d bytes", ErrMalformed, end, len(b))
	}
	if b[0]&0x07 == 0 {
		return nil
	}
	if end < 12 {
		return fmt.Errorf("%w: optional fields truncated", ErrMalformed)
	}
	if b[0]&0x04 == 0 {
		return nil
	}

	next, off := b[11], 12
	for next != 0 {
		if off >= end {
			return fmt.Errorf("%w: extension header truncated", ErrMalformed)
		}
		n := int(b[off]) * 4
		if n == 0 || off+n > end {
			return fmt.Errorf("%w: bad extension header length", ErrMalformed)
		}
		next = b[off+n-1]
		off += n
	}
	return nil
}

// checkV2 verifies that the length field of a GTPv2 header covers the
// header itself and fits in b.
func checkV2(b []byte) error {
	length := int(binary.BigEndian.Uint16(b[2:4]))
	min := 4
	if b[0]&0x08 != 0 {
		min = 8
	}
	if length < min || len(b) < 4+length {
		return fmt.Errorf("%w: length %d with %d bytes", ErrMalformed, length, len(b))
	}
	return nil
}

// safely turns a panic raised while decoding into ErrMalformed.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()
	return fn()
}
