package notify

import (
	"errors"
	"fmt"

	"github.com/notifyrelay/gateway/pkg/crypto"
	"github.com/notifyrelay/gateway/pkg/envelope"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
)

// wrapCodecErr maps the envelope/crypto packages' local sentinel errors onto
// the shared notifyerr taxonomy the dispatcher logs against.
func wrapCodecErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, envelope.ErrWrongEnvelopeType):
		return fmt.Errorf("%w: %v", notifyerr.ErrWrongEnvelopeType, err)
	case errors.Is(err, envelope.ErrShortEnvelope):
		return fmt.Errorf("%w: %v", notifyerr.ErrShortEnvelope, err)
	case errors.Is(err, envelope.ErrDeserializationFailed):
		return fmt.Errorf("%w: %v", notifyerr.ErrDeserializationFailed, err)
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return fmt.Errorf("%w: %v", notifyerr.ErrDecryptionFailed, err)
	case errors.Is(err, crypto.ErrHexDecode):
		return fmt.Errorf("%w: %v", notifyerr.ErrHexDecode, err)
	default:
		return err
	}
}
