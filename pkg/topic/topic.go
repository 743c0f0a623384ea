// Package topic implements the protocol's deterministic topic-derivation
// rules (spec §4.5): every topic is a SHA-256 digest of some key material,
// computed independently by both sides and never transmitted.
package topic

import (
	gwcrypto "github.com/notifyrelay/gateway/pkg/crypto"
)

// Subscribe derives a project's subscribe-topic from its signing_keypair's
// raw public key bytes.
func Subscribe(signingPub []byte) string {
	return gwcrypto.SHA256Hex(signingPub)
}

// FromSymKeyHex derives a response- or notify-topic from a hex-encoded
// symmetric key. Both response-topic and notify-topic use this same rule.
func FromSymKeyHex(symKeyHex string) (string, error) {
	return gwcrypto.SHA256HexOfHex(symKeyHex)
}
