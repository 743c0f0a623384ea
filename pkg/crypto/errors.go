package crypto

import "errors"

var (
	// ErrHexDecode is returned when a hex-encoded key or digest is malformed.
	ErrHexDecode = errors.New("hex decode failed")
	// ErrDecryptionFailed is returned when an AEAD open fails authentication.
	ErrDecryptionFailed = errors.New("decryption failed")
)
