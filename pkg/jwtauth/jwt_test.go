package jwtauth

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyrelay/gateway/pkg/didkey"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
)

func mustDID(t *testing.T, pub ed25519.PublicKey) string {
	t.Helper()
	did, err := didkey.EncodeEd25519(pub)
	require.NoError(t, err)
	return did
}

func TestSignParseRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	now := time.Now().Unix()
	claims := SubscriptionRequestAuth{
		SharedClaims: SharedClaims{Iss: mustDID(t, pub), Iat: now, Exp: now + 3600},
		Ksu:          "https://keys.example.com",
		Sub:          "did:pkh:eip155:1:0xabc",
		Aud:          "did:key:zSomeProjectKey",
		Act:          ActNotifySubscription,
		Scp:          "push notify",
		App:          "https://dapp.example.com",
	}

	token, err := SignJWT(claims, priv)
	require.NoError(t, err)

	parsed, err := ParseJWT[SubscriptionRequestAuth](token)
	require.NoError(t, err)
	assert.Equal(t, claims, parsed)
}

func TestParseJWTRejectsBitFlippedSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	now := time.Now().Unix()
	claims := SharedClaims{Iss: mustDID(t, pub), Iat: now, Exp: now + 3600}

	token, err := SignJWT(claims, priv)
	require.NoError(t, err)

	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 0x01

	_, err = ParseJWT[SharedClaims](string(tampered))
	require.ErrorIs(t, err, notifyerr.ErrBadSignature)
}

func TestParseJWTRejectsExpired(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	now := time.Now().Unix()
	claims := SharedClaims{Iss: mustDID(t, pub), Iat: now - 7200, Exp: now - 3600}

	token, err := SignJWT(claims, priv)
	require.NoError(t, err)

	_, err = ParseJWT[SharedClaims](token)
	require.ErrorIs(t, err, notifyerr.ErrBadSignature)
}

func TestParseJWTRejectsBadIssuer(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	claims := SharedClaims{Iss: "did:web:example.com", Iat: 0, Exp: time.Now().Unix() + 3600}

	token, err := SignJWT(claims, priv)
	require.NoError(t, err)

	_, err = ParseJWT[SharedClaims](token)
	require.ErrorIs(t, err, notifyerr.ErrInvalidIssuer)
}

func TestCheckBinding(t *testing.T) {
	require.NoError(t, CheckBinding("aud1", "aud1", "app1", "app1"))

	err := CheckBinding("aud1", "aud2", "app1", "app1")
	require.ErrorIs(t, err, notifyerr.ErrIdentityNotAuthorized)

	err = CheckBinding("aud1", "aud1", "app1", "app2")
	require.ErrorIs(t, err, notifyerr.ErrIdentityNotAuthorized)
}
