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

// Package envelope frames and unframes the encrypted JSON payloads carried
// between dapps and wallets. Two wire types are supported: Type0, which
// assumes both sides already share a symmetric key, and Type1, which embeds
// the sender's X25519 public key so the receiver can derive one.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/notifyrelay/gateway/internal/metrics"
	gwcrypto "github.com/notifyrelay/gateway/pkg/crypto"
)

const aeadAlgorithm = "chacha20poly1305"

// Type identifies the envelope's wire layout.
type Type byte

const (
	// Type0 carries only nonce + ciphertext; the symmetric key is assumed known.
	Type0 Type = 0x00
	// Type1 additionally carries the sender's 32-byte X25519 public key.
	Type1 Type = 0x01
)

const pubKeyLen = 32

var (
	// ErrWrongEnvelopeType is returned when the leading type byte isn't 0 or 1.
	ErrWrongEnvelopeType = errors.New("wrong envelope type")
	// ErrShortEnvelope is returned when the frame is too short for its header.
	ErrShortEnvelope = errors.New("envelope too short")
	// ErrDeserializationFailed is returned when the decrypted payload isn't valid JSON.
	ErrDeserializationFailed = errors.New("deserialization failed")
)

// minLen returns the minimum valid frame length for a type (header + AEAD tag).
func minLen(t Type) int {
	switch t {
	case Type0:
		return 1 + gwcrypto.NonceSize + 16
	case Type1:
		return 1 + gwcrypto.NonceSize + pubKeyLen + 16
	default:
		return 0
	}
}

// SealType0 JSON-serializes v, encrypts it under symKeyHex, and frames it
// as [0x00 | nonce | ciphertext].
func SealType0(symKeyHex string, v any) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope payload: %w", err)
	}
	nonce, ct, err := seal(symKeyHex, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(nonce)+len(ct))
	out = append(out, byte(Type0))
	out = append(out, nonce...)
	out = append(out, ct...)
	return out, nil
}

// OpenType0 reverses SealType0 and deserializes the JSON payload into v.
func OpenType0(symKeyHex string, frame []byte, v any) error {
	raw, err := openRaw(symKeyHex, frame, Type0)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	return nil
}

// SealType1 JSON-serializes v, encrypts it under symKeyHex, and frames it
// as [0x01 | nonce | senderPub(32) | ciphertext]. senderPub travels
// unencrypted between the nonce and the ciphertext.
func SealType1(symKeyHex string, senderPub []byte, v any) ([]byte, error) {
	if len(senderPub) != pubKeyLen {
		return nil, fmt.Errorf("sender pubkey must be %d bytes, got %d", pubKeyLen, len(senderPub))
	}
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope payload: %w", err)
	}
	nonce, ct, err := seal(symKeyHex, plaintext)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(nonce)+pubKeyLen+len(ct))
	out = append(out, byte(Type1))
	out = append(out, nonce...)
	out = append(out, senderPub...)
	out = append(out, ct...)
	return out, nil
}

// OpenType1Envelope decodes a Type1 frame's sender pubkey without decrypting
// it yet. Handlers need the sender pubkey to derive the symmetric key before
// they can call OpenType1.
func OpenType1Envelope(frame []byte) (senderPub []byte, err error) {
	if len(frame) == 0 {
		return nil, ErrShortEnvelope
	}
	if Type(frame[0]) != Type1 {
		return nil, ErrWrongEnvelopeType
	}
	if len(frame) < minLen(Type1) {
		return nil, ErrShortEnvelope
	}
	senderPub = make([]byte, pubKeyLen)
	copy(senderPub, frame[1+gwcrypto.NonceSize:1+gwcrypto.NonceSize+pubKeyLen])
	return senderPub, nil
}

// OpenType1 decrypts a Type1 frame under the already-derived symKeyHex and
// deserializes the JSON payload into v.
func OpenType1(symKeyHex string, frame []byte, v any) error {
	raw, err := openRaw(symKeyHex, frame, Type1)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDeserializationFailed, err)
	}
	return nil
}

func openRaw(symKeyHex string, frame []byte, want Type) ([]byte, error) {
	if len(frame) == 0 {
		return nil, ErrShortEnvelope
	}
	if Type(frame[0]) != want {
		return nil, ErrWrongEnvelopeType
	}
	if len(frame) < minLen(want) {
		return nil, ErrShortEnvelope
	}

	nonce := frame[1 : 1+gwcrypto.NonceSize]
	var ct []byte
	switch want {
	case Type0:
		ct = frame[1+gwcrypto.NonceSize:]
	case Type1:
		ct = frame[1+gwcrypto.NonceSize+pubKeyLen:]
	}
	return open(symKeyHex, nonce, ct)
}

// seal and open wrap the raw AEAD calls with the crypto metrics every
// envelope operation reports, regardless of which wire type invoked them.
func seal(symKeyHex string, plaintext []byte) (nonce, ciphertext []byte, err error) {
	start := time.Now()
	nonce, ciphertext, err = gwcrypto.Seal(symKeyHex, plaintext, nil)
	metrics.CryptoOperationDuration.WithLabelValues("seal", aeadAlgorithm).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("seal").Inc()
		return nil, nil, err
	}
	metrics.CryptoOperations.WithLabelValues("seal", aeadAlgorithm).Inc()
	return nonce, ciphertext, nil
}

func open(symKeyHex string, nonce, ciphertext []byte) ([]byte, error) {
	start := time.Now()
	pt, err := gwcrypto.Open(symKeyHex, nonce, ciphertext, nil)
	metrics.CryptoOperationDuration.WithLabelValues("open", aeadAlgorithm).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, err
	}
	metrics.CryptoOperations.WithLabelValues("open", aeadAlgorithm).Inc()
	return pt, nil
}
