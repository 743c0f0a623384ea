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

package notify

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notifyrelay/gateway/internal/metrics"
	"github.com/notifyrelay/gateway/pkg/carrier"
	gwcrypto "github.com/notifyrelay/gateway/pkg/crypto"
	"github.com/notifyrelay/gateway/pkg/didkey"
	"github.com/notifyrelay/gateway/pkg/envelope"
	"github.com/notifyrelay/gateway/pkg/jwtauth"
	"github.com/notifyrelay/gateway/pkg/notifyerr"
	"github.com/notifyrelay/gateway/pkg/store"
	"github.com/notifyrelay/gateway/pkg/topic"
)

// IdentityVerifier is the subset of jwtauth.KeyServerClient the handlers
// call, narrowed so tests can swap in a fake oracle.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, ksu, issPubKeyHex, sub string) error
}

// Handler orchestrates C1-C5 and the carrier to implement the two protocol
// state transitions (spec §4.6, §4.7).
type Handler struct {
	Store     store.Store
	Carrier   carrier.Client
	KeyServer IdentityVerifier
	Watch     store.TopicWatcher

	// RelayURL is the carrier endpoint new subscriptions are recorded
	// against; the gateway is the only relay client they're registered on.
	RelayURL string

	// Now returns the current time as Unix seconds; overridable in tests.
	Now func() int64

	SubscribeResponseTTL time.Duration
	UpdateResponseTTL    time.Duration
}

// NewHandler builds a Handler with the protocol's default response TTLs.
func NewHandler(s store.Store, c carrier.Client, ks IdentityVerifier, watch store.TopicWatcher, relayURL string) *Handler {
	return &Handler{
		Store:                s,
		Carrier:              c,
		KeyServer:            ks,
		Watch:                watch,
		RelayURL:             relayURL,
		Now:                  func() int64 { return time.Now().Unix() },
		SubscribeResponseTTL: carrier.TTLSubscribeResponse,
		UpdateResponseTTL:    carrier.TTLUpdateResponse,
	}
}

func (h *Handler) now() int64 {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().Unix()
}

// HandleNotifySubscribe implements spec §4.6: a carrier message observed on
// a project's subscribe-topic, requesting a new subscription.
func (h *Handler) HandleNotifySubscribe(ctx context.Context, subscribeTopic string, frame []byte) (err error) {
	defer func() {
		if err != nil {
			metrics.SubscribeFlowCompleted.WithLabelValues("failure").Inc()
			metrics.SubscribeFlowFailed.WithLabelValues(flowFailureLabel(err)).Inc()
			return
		}
		metrics.SubscribeFlowCompleted.WithLabelValues("success").Inc()
	}()

	project, err := h.Store.GetProjectBySubscribeTopic(ctx, subscribeTopic)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notifyerr.ErrNoProjectDataForTopic
		}
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}

	metrics.SubscribeFlowStarted.WithLabelValues("decrypt").Inc()
	decryptStart := time.Now()

	clientPub, err := envelope.OpenType1Envelope(frame)
	if err != nil {
		return wrapCodecErr(err)
	}

	signingSecret, err := gwcrypto.NewX25519KeyPairFromSecretHex(hex.EncodeToString(project.SigningPrivateKey))
	if err != nil {
		return fmt.Errorf("%w: project signing key: %v", notifyerr.ErrStoreError, err)
	}
	responseSymKey, err := gwcrypto.DeriveKeyFromSecret(clientPub, signingSecret)
	if err != nil {
		return wrapCodecErr(err)
	}

	var req Message[SubscribeParams]
	if err := envelope.OpenType1(responseSymKey, frame, &req); err != nil {
		return wrapCodecErr(err)
	}
	metrics.SubscribeFlowStageDuration.WithLabelValues("decrypt").Observe(time.Since(decryptStart).Seconds())

	auth, err := jwtauth.ParseJWT[jwtauth.SubscriptionRequestAuth](req.Params.SubscriptionAuth)
	if err != nil {
		return err
	}
	if auth.Act != jwtauth.ActNotifySubscription {
		return fmt.Errorf("%w: got %q", notifyerr.ErrInvalidAct, auth.Act)
	}
	issPubHex, err := didkey.DecodeEd25519Hex(auth.Iss)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrInvalidIssuer, err)
	}

	metrics.SubscribeFlowStarted.WithLabelValues("verify_identity").Inc()
	verifyStart := time.Now()
	if err := h.KeyServer.VerifyIdentity(ctx, auth.Ksu, issPubHex, auth.Sub); err != nil {
		if errors.Is(err, notifyerr.ErrIdentityNotAuthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", notifyerr.ErrKeyServerError, err)
	}

	projectIdentityDID, err := didkey.EncodeEd25519(project.IdentityPublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	if err := jwtauth.CheckBinding(auth.Aud, projectIdentityDID, auth.App, project.DappURL); err != nil {
		return err
	}
	metrics.SubscribeFlowStageDuration.WithLabelValues("verify_identity").Observe(time.Since(verifyStart).Seconds())

	ephemeral, err := gwcrypto.GenerateX25519KeyPair()
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	notifySymKey, err := gwcrypto.DeriveKeyFromSecret(clientPub, ephemeral)
	if err != nil {
		return wrapCodecErr(err)
	}

	ephemeralDID, err := didkey.EncodeEd25519(ephemeral.PublicKeyBytes())
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}

	metrics.SubscribeFlowStarted.WithLabelValues("sign_response").Inc()
	signStart := time.Now()

	now := h.now()
	responseAuth := jwtauth.SubscriptionResponseAuth{
		SharedClaims: jwtauth.SharedClaims{
			Iss: projectIdentityDID,
			Iat: now,
			Exp: jwtauth.AddTTL(now, int64(h.SubscribeResponseTTL.Seconds())),
		},
		Ksu: auth.Ksu,
		Aud: auth.Iss,
		Act: jwtauth.ActNotifySubscriptionResponse,
		Sub: ephemeralDID,
		App: project.DappURL,
	}
	signedResponse, err := jwtauth.SignJWT(responseAuth, ed25519.PrivateKey(project.IdentityPrivateKey))
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	metrics.SubscribeFlowStageDuration.WithLabelValues("sign_response").Observe(time.Since(signStart).Seconds())

	respTopic, err := topic.FromSymKeyHex(responseSymKey)
	if err != nil {
		return wrapCodecErr(err)
	}
	respFrame, err := envelope.SealType0(responseSymKey, Response[SubscribeResult]{
		ID:      req.ID,
		JSONRPC: jsonrpcVersion,
		Result:  SubscribeResult{ResponseAuth: signedResponse},
	})
	if err != nil {
		return wrapCodecErr(err)
	}

	account, err := didkey.StripPkhPrefix(auth.Sub)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrIdentityNotAuthorized, err)
	}
	client := &store.ClientData{
		ID:          account,
		SymKey:      notifySymKey,
		Scope:       splitScope(auth.Scp),
		Expiry:      auth.Exp,
		SubAuthHash: gwcrypto.SHA256Hex([]byte(req.Params.SubscriptionAuth)),
		Ksu:         auth.Ksu,
	}

	registerStart := time.Now()
	notifyTopic, err := store.RegisterClient(ctx, h.Store, project.ProjectID, client, h.RelayURL, h.Watch)
	metrics.SubscriptionOperationDuration.WithLabelValues("register").Observe(time.Since(registerStart).Seconds())
	if err != nil {
		metrics.SubscriptionsCreated.WithLabelValues("failure").Inc()
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	metrics.SubscriptionsCreated.WithLabelValues("success").Inc()
	metrics.SubscriptionsActive.Inc()

	if err := h.Carrier.Publish(ctx, notifyTopic, nil, carrier.TagTTLExtensionPing, carrier.TTLExtensionPing, false); err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrCarrierError, err)
	}

	if err := h.Carrier.Publish(ctx, respTopic, respFrame, carrier.TagSubscribeResponse, h.SubscribeResponseTTL, true); err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrCarrierError, err)
	}
	return nil
}

// flowFailureLabel buckets a handler error into the low-cardinality
// error_type values subscribe_flow_failed_total reports.
func flowFailureLabel(err error) string {
	switch {
	case errors.Is(err, notifyerr.ErrIdentityNotAuthorized):
		return "identity_denied"
	case errors.Is(err, notifyerr.ErrNoProjectDataForTopic), errors.Is(err, notifyerr.ErrNoClientDataForTopic):
		return "unknown_project"
	case errors.Is(err, notifyerr.ErrDeserializationFailed), errors.Is(err, notifyerr.ErrWrongEnvelopeType), errors.Is(err, notifyerr.ErrShortEnvelope):
		return "invalid_envelope"
	default:
		return "other"
	}
}

// HandleNotifyUpdate implements spec §4.7: a carrier message observed on an
// existing subscription's notify-topic, requesting a scope/expiry change.
func (h *Handler) HandleNotifyUpdate(ctx context.Context, notifyTopic string, frame []byte) error {
	lookupStart := time.Now()
	lookup, err := h.Store.GetLookup(ctx, notifyTopic)
	metrics.SubscriptionOperationDuration.WithLabelValues("lookup").Observe(time.Since(lookupStart).Seconds())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notifyerr.ErrNoProjectDataForTopic
		}
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}

	project, err := h.Store.GetProjectByID(ctx, lookup.ProjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notifyerr.ErrNoProjectDataForTopic
		}
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	existing, err := h.Store.GetSubscription(ctx, lookup.ProjectID, lookup.Account)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notifyerr.ErrNoClientDataForTopic
		}
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}

	var req Message[UpdateParams]
	if err := envelope.OpenType0(existing.SymKey, frame, &req); err != nil {
		return wrapCodecErr(err)
	}

	auth, err := jwtauth.ParseJWT[jwtauth.SubscriptionUpdateRequestAuth](req.Params.UpdateAuth)
	if err != nil {
		return err
	}
	if auth.Act != jwtauth.ActNotifyUpdate {
		return fmt.Errorf("%w: got %q", notifyerr.ErrInvalidAct, auth.Act)
	}
	issPubHex, err := didkey.DecodeEd25519Hex(auth.Iss)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrInvalidIssuer, err)
	}
	if err := h.KeyServer.VerifyIdentity(ctx, auth.Ksu, issPubHex, auth.Sub); err != nil {
		if errors.Is(err, notifyerr.ErrIdentityNotAuthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", notifyerr.ErrKeyServerError, err)
	}

	projectIdentityDID, err := didkey.EncodeEd25519(project.IdentityPublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	if err := jwtauth.CheckBinding(auth.Aud, projectIdentityDID, auth.App, project.DappURL); err != nil {
		return err
	}

	account, err := didkey.StripPkhPrefix(auth.Sub)
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrIdentityNotAuthorized, err)
	}

	updateAuthHash := gwcrypto.SHA256Hex([]byte(req.Params.UpdateAuth))
	updated := &store.ClientData{
		ID:          account,
		SymKey:      existing.SymKey, // sym_key is never mutated by an update
		Scope:       splitScope(auth.Scp),
		Expiry:      auth.Exp,
		SubAuthHash: updateAuthHash,
		Ksu:         auth.Ksu,
	}
	// RegisterClient, not a raw upsert: the account the update is signed by
	// (auth.Sub) may differ from lookup.Account, and only RegisterClient
	// re-syncs the LookupEntry at this notify-topic to the account that now
	// owns it.
	registerStart := time.Now()
	_, err = store.RegisterClient(ctx, h.Store, lookup.ProjectID, updated, h.RelayURL, h.Watch)
	metrics.SubscriptionOperationDuration.WithLabelValues("update").Observe(time.Since(registerStart).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}
	metrics.SubscriptionsUpdated.Inc()

	now := h.now()
	respAuth := jwtauth.SubscriptionUpdateResponseAuth{
		SharedClaims: jwtauth.SharedClaims{
			Iss: projectIdentityDID,
			Iat: now,
			Exp: jwtauth.AddTTL(now, int64(h.UpdateResponseTTL.Seconds())),
		},
		Ksu: auth.Ksu,
		Aud: auth.Iss,
		Act: jwtauth.ActNotifyUpdateResponse,
		Sub: updateAuthHash,
		App: project.DappURL,
	}
	signedResponse, err := jwtauth.SignJWT(respAuth, ed25519.PrivateKey(project.IdentityPrivateKey))
	if err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrStoreError, err)
	}

	respTopic, err := topic.FromSymKeyHex(existing.SymKey)
	if err != nil {
		return wrapCodecErr(err)
	}
	respFrame, err := envelope.SealType0(existing.SymKey, Response[UpdateResult]{
		ID:      req.ID,
		JSONRPC: jsonrpcVersion,
		Result:  UpdateResult{ResponseAuth: signedResponse},
	})
	if err != nil {
		return wrapCodecErr(err)
	}
	if err := h.Carrier.Publish(ctx, respTopic, respFrame, carrier.TagUpdateResponse, h.UpdateResponseTTL, true); err != nil {
		return fmt.Errorf("%w: %v", notifyerr.ErrCarrierError, err)
	}
	return nil
}

func splitScope(scp string) []string {
	fields := strings.Fields(scp)
	if fields == nil {
		return []string{}
	}
	return fields
}
