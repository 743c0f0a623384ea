package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwcrypto "github.com/notifyrelay/gateway/pkg/crypto"
)

type payload struct {
	Foo string `json:"foo"`
	Num int    `json:"num"`
}

func symKey(t *testing.T) string {
	t.Helper()
	kp, err := gwcrypto.GenerateX25519KeyPair()
	require.NoError(t, err)
	return kp.PublicKeyHex()
}

func TestType0RoundTrip(t *testing.T) {
	key := symKey(t)
	in := payload{Foo: "bar", Num: 7}

	frame, err := SealType0(key, in)
	require.NoError(t, err)
	assert.Equal(t, byte(Type0), frame[0])

	var out payload
	require.NoError(t, OpenType0(key, frame, &out))
	assert.Equal(t, in, out)
}

func TestType0WrongKeyFails(t *testing.T) {
	key := symKey(t)
	other := symKey(t)
	frame, err := SealType0(key, payload{Foo: "x"})
	require.NoError(t, err)

	var out payload
	err = OpenType0(other, frame, &out)
	require.ErrorIs(t, err, gwcrypto.ErrDecryptionFailed)
}

func TestType1RoundTripPreservesPubkey(t *testing.T) {
	key := symKey(t)
	senderKP, err := gwcrypto.GenerateX25519KeyPair()
	require.NoError(t, err)
	in := payload{Foo: "baz", Num: 42}

	frame, err := SealType1(key, senderKP.PublicKeyBytes(), in)
	require.NoError(t, err)
	assert.Equal(t, byte(Type1), frame[0])

	pub, err := OpenType1Envelope(frame)
	require.NoError(t, err)
	assert.Equal(t, senderKP.PublicKeyBytes(), pub)

	var out payload
	require.NoError(t, OpenType1(key, frame, &out))
	assert.Equal(t, in, out)
}

func TestWrongEnvelopeType(t *testing.T) {
	key := symKey(t)
	frame, err := SealType0(key, payload{Foo: "x"})
	require.NoError(t, err)

	var out payload
	err = OpenType1(key, frame, &out)
	require.ErrorIs(t, err, ErrWrongEnvelopeType)

	_, err = OpenType1Envelope(frame)
	require.ErrorIs(t, err, ErrWrongEnvelopeType)
}

func TestShortEnvelope(t *testing.T) {
	var out payload
	err := OpenType0("00", []byte{0x00, 0x01, 0x02}, &out)
	require.ErrorIs(t, err, ErrShortEnvelope)

	err = OpenType1("00", []byte{0x01}, &out)
	require.ErrorIs(t, err, ErrShortEnvelope)

	_, err = OpenType1Envelope(nil)
	require.ErrorIs(t, err, ErrShortEnvelope)
}

func TestTamperedCiphertextFailsDecryption(t *testing.T) {
	key := symKey(t)
	frame, err := SealType0(key, payload{Foo: "tamper"})
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xFF

	var out payload
	err = OpenType0(key, frame, &out)
	require.ErrorIs(t, err, gwcrypto.ErrDecryptionFailed)
}
