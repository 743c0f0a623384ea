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

// Package jwtauth parses, verifies, and signs the EdDSA JWTs that prove a
// wallet or a dapp controls the did:key identity it claims, and resolves
// the further step of proving that key is authorized to act for a did:pkh
// account via a key-server oracle.
package jwtauth

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/notifyrelay/gateway/internal/metrics"
	"github.com/notifyrelay/gateway/pkg/didkey"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
)

const ed25519Algorithm = "ed25519"

// SignJWT serializes claims, signs the header+claims with the caller's
// Ed25519 private key, and returns the compact JWT string.
func SignJWT(claims any, priv ed25519.PrivateKey) (string, error) {
	mapClaims, err := toMapClaims(claims)
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, mapClaims)
	signed, err := token.SignedString(priv)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("sign").Inc()
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("sign", ed25519Algorithm).Inc()
	return signed, nil
}

// ParseJWT parses and verifies an EdDSA JWT whose issuer is a did:key, then
// deserializes its claims into T.
//
// Steps, matching spec §4.3's from_jwt: verify header is {alg:EdDSA,
// typ:JWT}; decode iss as did:key:<multibase ed25519 pubkey>; verify the
// Ed25519 signature over header.claims using that key; deserialize claims
// into T. Expired tokens (exp < now) are rejected as BadSignature, per the
// design note that JWT expiry is enforced at parse time.
func ParseJWT[T any](tokenString string) (T, error) {
	var zero T

	var issPub ed25519.PublicKey
	var issDID string
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"EdDSA"}))
	token, err := parser.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if typ, _ := t.Header["typ"].(string); typ != "JWT" {
			return nil, fmt.Errorf("%w: typ=%v", notifyerr.ErrInvalidHeader, t.Header["typ"])
		}
		claims, ok := t.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected claims type", notifyerr.ErrInvalidHeader)
		}
		issDID, _ = claims["iss"].(string)
		issPub, err = decodeIssuer(issDID)
		if err != nil {
			return nil, err
		}
		return issPub, nil
	})
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
		return zero, classifyParseError(err)
	}
	if !token.Valid {
		metrics.CryptoErrors.WithLabelValues("verify").Inc()
		return zero, notifyerr.ErrBadSignature
	}
	metrics.CryptoOperations.WithLabelValues("verify", ed25519Algorithm).Inc()

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected claims type", notifyerr.ErrDeserializationFailed)
	}

	out, err := fromMapClaims[T](claims)
	if err != nil {
		return zero, err
	}
	return out, nil
}

func decodeIssuer(issDID string) (ed25519.PublicKey, error) {
	if issDID == "" {
		return nil, fmt.Errorf("%w: missing iss claim", notifyerr.ErrInvalidIssuer)
	}
	raw, err := didkey.DecodeEd25519(issDID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notifyerr.ErrInvalidIssuer, err)
	}
	return ed25519.PublicKey(raw), nil
}

func classifyParseError(err error) error {
	if errors.Is(err, notifyerr.ErrInvalidHeader) || errors.Is(err, notifyerr.ErrInvalidIssuer) {
		return err
	}
	// Malformed-signature, invalid-claims-type, and expiry all collapse to
	// BadSignature: the design note treats JWT lifetime enforcement as part
	// of signature verification, not a separate claims-validation step.
	return fmt.Errorf("%w: %v", notifyerr.ErrBadSignature, err)
}

func toMapClaims(claims any) (jwt.MapClaims, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}
	var m jwt.MapClaims
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("remarshal claims: %w", err)
	}
	return m, nil
}

func fromMapClaims[T any](claims jwt.MapClaims) (T, error) {
	var out T
	data, err := json.Marshal(claims)
	if err != nil {
		return out, fmt.Errorf("%w: %v", notifyerr.ErrDeserializationFailed, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %v", notifyerr.ErrDeserializationFailed, err)
	}
	return out, nil
}
