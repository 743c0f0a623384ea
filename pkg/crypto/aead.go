package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the ChaCha20-Poly1305 nonce length used by every envelope.
const NonceSize = chacha20poly1305.NonceSize

// Seal encrypts plaintext under symKeyHex with a freshly randomized nonce.
// It returns the nonce and the ciphertext (which includes the Poly1305 tag).
func Seal(symKeyHex string, plaintext, additionalData []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newAEAD(symKeyHex)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, additionalData)
	return nonce, ciphertext, nil
}

// Open decrypts ciphertext sealed by Seal. Any tampering with nonce,
// ciphertext, or additionalData yields ErrDecryptionFailed.
func Open(symKeyHex string, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	aead, err := newAEAD(symKeyHex)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return pt, nil
}

func newAEAD(symKeyHex string) (chacha20poly1305.AEAD, error) {
	key, err := hex.DecodeString(symKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: sym key: %v", ErrHexDecode, err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("new aead: %w", err)
	}
	return aead, nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of raw.
func SHA256Hex(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SHA256HexOfHex SHA-256-hashes the raw bytes a hex string decodes to, used
// to turn a hex symmetric key into its topic digest.
func SHA256HexOfHex(hexStr string) (string, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHexDecode, err)
	}
	return SHA256Hex(raw), nil
}
