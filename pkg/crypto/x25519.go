// Notify Relay Gateway
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package crypto provides the X25519 key agreement, Ed25519 signing, and
// ChaCha20-Poly1305 AEAD primitives the notify protocol is built on.
package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// X25519KeyPair holds an ephemeral X25519 key-agreement key pair.
type X25519KeyPair struct {
	privateKey *ecdh.PrivateKey
	publicKey  *ecdh.PublicKey
}

// GenerateX25519KeyPair generates a fresh X25519 key pair for one subscribe
// or notify key-agreement. The secret is never persisted.
func GenerateX25519KeyPair() (*X25519KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate x25519 key: %w", err)
	}
	return &X25519KeyPair{privateKey: priv, publicKey: priv.PublicKey()}, nil
}

// NewX25519KeyPairFromSecretHex rebuilds a key pair from a hex-encoded
// 32-byte static secret, used for a project's signing_keypair.
func NewX25519KeyPairFromSecretHex(secretHex string) (*X25519KeyPair, error) {
	raw, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHexDecode, err)
	}
	priv, err := ecdh.X25519().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid x25519 secret: %w", err)
	}
	return &X25519KeyPair{privateKey: priv, publicKey: priv.PublicKey()}, nil
}

// PublicKeyBytes returns the raw 32-byte public key.
func (kp *X25519KeyPair) PublicKeyBytes() []byte {
	return kp.publicKey.Bytes()
}

// PublicKeyHex returns the hex-encoded public key.
func (kp *X25519KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.PublicKeyBytes())
}

// PrivateKeyHex returns the hex-encoded static secret.
func (kp *X25519KeyPair) PrivateKeyHex() string {
	return hex.EncodeToString(kp.privateKey.Bytes())
}

// DeriveSharedSecret runs raw X25519 ECDH against a peer's public key bytes.
func (kp *X25519KeyPair) DeriveSharedSecret(peerPubBytes []byte) ([]byte, error) {
	peerPub, err := ecdh.X25519().NewPublicKey(peerPubBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid peer public key: %w", err)
	}
	shared, err := kp.privateKey.ECDH(peerPub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	return shared, nil
}

// DeriveKey computes the notify protocol's symmetric key: raw X25519 ECDH
// between peerPubHex and localSecretHex, fed through HKDF-SHA256 with an
// empty salt and empty info to 32 bytes, hex-encoded.
//
// DeriveKey is symmetric: DeriveKey(A.Pub, B.Sec) == DeriveKey(B.Pub, A.Sec).
func DeriveKey(peerPubHex, localSecretHex string) (string, error) {
	peerPub, err := hex.DecodeString(peerPubHex)
	if err != nil {
		return "", fmt.Errorf("%w: peer pubkey: %v", ErrHexDecode, err)
	}
	local, err := NewX25519KeyPairFromSecretHex(localSecretHex)
	if err != nil {
		return "", err
	}
	shared, err := local.DeriveSharedSecret(peerPub)
	if err != nil {
		return "", err
	}
	return hkdfKeyHex(shared)
}

// DeriveKeyFromSecret is DeriveKey for callers that already hold the local
// X25519KeyPair in memory (the common case inside a handler).
func DeriveKeyFromSecret(peerPubBytes []byte, local *X25519KeyPair) (string, error) {
	shared, err := local.DeriveSharedSecret(peerPubBytes)
	if err != nil {
		return "", err
	}
	return hkdfKeyHex(shared)
}

func hkdfKeyHex(shared []byte) (string, error) {
	h := hkdf.New(sha256.New, shared, nil, nil)
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return "", fmt.Errorf("hkdf: %w", err)
	}
	return hex.EncodeToString(key), nil
}
