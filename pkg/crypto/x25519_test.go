package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKeySymmetric(t *testing.T) {
	a, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	b, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	k1, err := DeriveKey(b.PublicKeyHex(), a.PrivateKeyHex())
	require.NoError(t, err)
	k2, err := DeriveKey(a.PublicKeyHex(), b.PrivateKeyHex())
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64) // 32 bytes hex-encoded
}

func TestDeriveKeyDifferentPairsDiffer(t *testing.T) {
	a, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	b, err := GenerateX25519KeyPair()
	require.NoError(t, err)
	c, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	k1, err := DeriveKey(b.PublicKeyHex(), a.PrivateKeyHex())
	require.NoError(t, err)
	k2, err := DeriveKey(c.PublicKeyHex(), a.PrivateKeyHex())
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
}

func TestNewX25519KeyPairFromSecretHexRoundTrip(t *testing.T) {
	orig, err := GenerateX25519KeyPair()
	require.NoError(t, err)

	rebuilt, err := NewX25519KeyPairFromSecretHex(orig.PrivateKeyHex())
	require.NoError(t, err)
	assert.Equal(t, orig.PublicKeyHex(), rebuilt.PublicKeyHex())
}

func TestDeriveKeyBadHex(t *testing.T) {
	_, err := DeriveKey("not-hex", "also-not-hex")
	require.Error(t, err)
}
