// Package didkey encodes and decodes the two DID methods the notify
// protocol uses: did:key for ephemeral Ed25519/X25519 identities, and
// did:pkh for user wallet accounts. Grounded on the teacher's use of
// mr-tron/base58 in pkg/agent/did/a2a.go for public-key encoding.
package didkey

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidIssuer is returned when a did:key string cannot be decoded.
var ErrInvalidIssuer = errors.New("invalid did:key issuer")

// ErrInvalidSubject is returned when a did:pkh string cannot be decoded.
var ErrInvalidSubject = errors.New("invalid did:pkh subject")

const (
	didKeyPrefix = "did:key:"
	didPkhPrefix = "did:pkh:"

	// multicodecByte0/multicodecByte1 are the multicodec varint prefix for an
	// Ed25519 public key (0xed01 as defined by the multicodec table).
	multicodecByte0 = 0xed
	multicodecByte1 = 0x01
)

// EncodeEd25519 encodes a raw 32-byte Ed25519 public key as a did:key
// string: "did:key:" + "z" + base58btc(0xed 0x01 || pub).
func EncodeEd25519(pub []byte) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("%w: ed25519 pubkey must be 32 bytes, got %d", ErrInvalidIssuer, len(pub))
	}
	prefixed := make([]byte, 0, 34)
	prefixed = append(prefixed, multicodecByte0, multicodecByte1)
	prefixed = append(prefixed, pub...)
	return didKeyPrefix + "z" + base58.Encode(prefixed), nil
}

// DecodeEd25519 reverses EncodeEd25519, returning the raw 32-byte public key.
func DecodeEd25519(did string) ([]byte, error) {
	if !strings.HasPrefix(did, didKeyPrefix) {
		return nil, fmt.Errorf("%w: missing did:key: prefix", ErrInvalidIssuer)
	}
	body := strings.TrimPrefix(did, didKeyPrefix)
	if !strings.HasPrefix(body, "z") {
		return nil, fmt.Errorf("%w: missing multibase base58btc prefix", ErrInvalidIssuer)
	}
	decoded, err := base58.Decode(body[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIssuer, err)
	}
	if len(decoded) != 34 || decoded[0] != multicodecByte0 || decoded[1] != multicodecByte1 {
		return nil, fmt.Errorf("%w: unexpected multicodec prefix", ErrInvalidIssuer)
	}
	return decoded[2:], nil
}

// DecodeEd25519Hex is DecodeEd25519 returning the hex encoding used as the
// issuer's public-key handle when calling the key-server.
func DecodeEd25519Hex(did string) (string, error) {
	raw, err := DecodeEd25519(did)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// StripPkhPrefix strips "did:pkh:" from a user account DID, returning the
// bare "<chain>:<addr>" account identifier stored as Subscription.ID.
func StripPkhPrefix(did string) (string, error) {
	if !strings.HasPrefix(did, didPkhPrefix) {
		return "", fmt.Errorf("%w: missing did:pkh: prefix", ErrInvalidSubject)
	}
	account := strings.TrimPrefix(did, didPkhPrefix)
	if account == "" {
		return "", fmt.Errorf("%w: empty account", ErrInvalidSubject)
	}
	return account, nil
}

// WithPkhPrefix is the inverse of StripPkhPrefix, used when an account
// needs to be presented back as a did:pkh subject.
func WithPkhPrefix(account string) string {
	if strings.HasPrefix(account, didPkhPrefix) {
		return account
	}
	return didPkhPrefix + account
}
