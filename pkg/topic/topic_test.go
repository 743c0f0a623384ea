package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcrypto "github.com/notifyrelay/gateway/pkg/crypto"
)

func TestSubscribeIsDeterministic(t *testing.T) {
	kp, err := gwcrypto.GenerateX25519KeyPair()
	require.NoError(t, err)

	t1 := Subscribe(kp.PublicKeyBytes())
	t2 := Subscribe(kp.PublicKeyBytes())
	assert.Equal(t, t1, t2)
	assert.Len(t, t1, 64)
}

func TestFromSymKeyHexMatchesDirectHash(t *testing.T) {
	kp, err := gwcrypto.GenerateX25519KeyPair()
	require.NoError(t, err)

	got, err := FromSymKeyHex(kp.PublicKeyHex())
	require.NoError(t, err)

	want, err := gwcrypto.SHA256HexOfHex(kp.PublicKeyHex())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromSymKeyHexRejectsBadHex(t *testing.T) {
	_, err := FromSymKeyHex("nothex")
	require.Error(t, err)
}
