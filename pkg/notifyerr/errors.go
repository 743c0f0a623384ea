// Package notifyerr defines the error kinds shared by every component of
// the notify relay gateway (spec §7). Handlers classify failures against
// these sentinels so the dispatcher can log a single line per request and
// decide whether the client's retry is worth honoring.
package notifyerr

import "errors"

var (
	ErrNoProjectDataForTopic = errors.New("no project data for topic")
	ErrNoClientDataForTopic  = errors.New("no client data for topic")
	ErrInvalidAct            = errors.New("invalid act claim")
	ErrInvalidHeader         = errors.New("invalid jwt header")
	ErrInvalidIssuer         = errors.New("invalid jwt issuer")
	ErrBadSignature          = errors.New("bad jwt signature")
	ErrIdentityNotAuthorized = errors.New("identity not authorized")
	ErrWrongEnvelopeType     = errors.New("wrong envelope type")
	ErrShortEnvelope         = errors.New("envelope too short")
	ErrDecryptionFailed      = errors.New("decryption failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
	ErrBase64Decode          = errors.New("base64 decode failed")
	ErrHexDecode             = errors.New("hex decode failed")
	ErrStoreError            = errors.New("store error")
	ErrCarrierError          = errors.New("carrier error")
	ErrKeyServerError        = errors.New("key server error")
	ErrInvalidLogLevel       = errors.New("invalid log level")
)

// Retriable reports whether a client retry of the same request is worth
// attempting: StoreError and CarrierError reflect transient infrastructure
// trouble, while every authentication-class error is terminal.
func Retriable(err error) bool {
	return errors.Is(err, ErrStoreError) || errors.Is(err, ErrCarrierError)
}
