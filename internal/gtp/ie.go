package gtp

import (
	"fmt"

	v1ie "github.com/wmnsk/go-gtp/gtpv1/ie"
	v2ie "github.com/wmnsk/go-gtp/gtpv2/ie"
)

// RecoveryIE encodes a Recovery IE carrying the local restart counter, the
// only mandatory content of an Echo Request / Echo Response.
func RecoveryIE(version, restarts uint8) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch version {
	case Version1:
		b, err = v1ie.NewRecovery(restarts).Marshal()
	case Version2:
		b, err = v2ie.NewRecovery(restarts).Marshal()
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode Recovery IE: %w", err)
	}
	return b, nil
}
