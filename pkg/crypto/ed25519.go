package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Ed25519KeyPair is a project's identity signing key.
type Ed25519KeyPair struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// GenerateEd25519KeyPair generates a new Ed25519 identity key pair.
func GenerateEd25519KeyPair() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return &Ed25519KeyPair{PrivateKey: priv, PublicKey: pub}, nil
}

// NewEd25519KeyPairFromSeedHex rebuilds a key pair from a hex-encoded 32-byte seed.
func NewEd25519KeyPairFromSeedHex(seedHex string) (*Ed25519KeyPair, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexDecode, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("bad ed25519 seed length: %d", len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519KeyPair{PrivateKey: priv, PublicKey: priv.Public().(ed25519.PublicKey)}, nil
}

// Sign signs a message with the identity private key.
func (kp *Ed25519KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.PrivateKey, message)
}
