package jwtauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/notifyrelay/gateway/pkg/notifyerr"
)

func TestVerifyIdentitySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/identity", r.URL.Path)
		require.Equal(t, "deadbeef", r.URL.Query().Get("publicKey"))
		_ = json.NewEncoder(w).Encode(identityDocument{
			Cacaos: []cacao{{Payload: cacaoPayload{Sub: "did:pkh:eip155:1:0xabc"}}},
		})
	}))
	defer srv.Close()

	client := NewKeyServerClient(time.Second)
	err := client.VerifyIdentity(context.Background(), srv.URL, "deadbeef", "did:pkh:eip155:1:0xabc")
	require.NoError(t, err)
}

func TestVerifyIdentityNotAuthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(identityDocument{
			Cacaos: []cacao{{Payload: cacaoPayload{Sub: "did:pkh:eip155:1:0xdifferent"}}},
		})
	}))
	defer srv.Close()

	client := NewKeyServerClient(time.Second)
	err := client.VerifyIdentity(context.Background(), srv.URL, "deadbeef", "did:pkh:eip155:1:0xabc")
	require.ErrorIs(t, err, notifyerr.ErrIdentityNotAuthorized)
}

func TestVerifyIdentityServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewKeyServerClient(time.Second)
	err := client.VerifyIdentity(context.Background(), srv.URL, "deadbeef", "did:pkh:eip155:1:0xabc")
	require.ErrorIs(t, err, notifyerr.ErrKeyServerError)
}
