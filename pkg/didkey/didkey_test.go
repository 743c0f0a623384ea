package didkey

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEd25519RoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	did, err := EncodeEd25519(pub)
	require.NoError(t, err)
	assert.Contains(t, did, "did:key:z")

	decoded, err := DecodeEd25519(did)
	require.NoError(t, err)
	assert.Equal(t, []byte(pub), decoded)
}

func TestDecodeEd25519RejectsBadPrefix(t *testing.T) {
	_, err := DecodeEd25519("did:web:example.com")
	require.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestStripAndWithPkhPrefix(t *testing.T) {
	account, err := StripPkhPrefix("did:pkh:eip155:1:0xabc")
	require.NoError(t, err)
	assert.Equal(t, "eip155:1:0xabc", account)

	assert.Equal(t, "did:pkh:eip155:1:0xabc", WithPkhPrefix(account))
	assert.Equal(t, "did:pkh:eip155:1:0xabc", WithPkhPrefix("did:pkh:eip155:1:0xabc"))
}

func TestStripPkhPrefixRejectsMissingPrefix(t *testing.T) {
	_, err := StripPkhPrefix("eip155:1:0xabc")
	require.ErrorIs(t, err, ErrInvalidSubject)
}
