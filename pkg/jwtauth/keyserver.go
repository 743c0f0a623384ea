package jwtauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/notifyrelay/gateway/pkg/notifyerr"
)

// identityDocument is the shape returned by a key-server's /identity
// endpoint: a chain of off-chain capability objects ("cacaos"), each
// asserting that some issuer key is authorized to act for an account.
type identityDocument struct {
	Cacaos []cacao `json:"cacaos"`
}

type cacao struct {
	Payload cacaoPayload `json:"payload"`
}

type cacaoPayload struct {
	Domain string `json:"domain"`
	Aud    string `json:"aud"`
	Iss    string `json:"iss"`
	Sub    string `json:"sub"`
}

// KeyServerClient is the oracle the protocol trusts to bind an issuer key
// to a did:pkh account. The key-server URL (ksu) is user-declared, not
// pinned; it's reflected back in responses so clients observe the same
// binding the gateway verified against.
type KeyServerClient struct {
	httpClient *http.Client
}

// NewKeyServerClient builds a KeyServerClient with the given request timeout.
func NewKeyServerClient(timeout time.Duration) *KeyServerClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeyServerClient{httpClient: &http.Client{Timeout: timeout}}
}

// VerifyIdentity calls GET {ksu}/identity?publicKey={issPubKeyHex} and
// succeeds only if the returned binding chain includes an entry whose sub
// matches the expected did:pkh account.
func (c *KeyServerClient) VerifyIdentity(ctx context.Context, ksu, issPubKeyHex, sub string) error {
	endpoint, err := buildIdentityURL(ksu, issPubKeyHex)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrKeyServerError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrKeyServerError, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrKeyServerError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: key server returned status %d", notifyerr.ErrKeyServerError, resp.StatusCode)
	}

	var doc identityDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("%w: decode identity document: %v", notifyerr.ErrKeyServerError, err)
	}

	for _, c := range doc.Cacaos {
		if c.Payload.Sub == sub {
			return nil
		}
	}
	return notifyerr.ErrIdentityNotAuthorized
}

func buildIdentityURL(ksu, issPubKeyHex string) (string, error) {
	base, err := url.Parse(ksu)
	if err != nil {
		return "", fmt.Errorf("invalid ksu: %w", err)
	}
	base.Path = joinPath(base.Path, "identity")
	q := base.Query()
	q.Set("publicKey", issPubKeyHex)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

func joinPath(base, suffix string) string {
	if base == "" {
		return "/" + suffix
	}
	if base[len(base)-1] == '/' {
		return base + suffix
	}
	return base + "/" + suffix
}
