package store

import (
	"context"
	"fmt"

	gwcrypto "github.com/notifyrelay/gateway/pkg/crypto"
)

// TopicWatcher is notified of newly registered notify-topics so the
// dispatcher can start routing carrier messages for them. It is
// best-effort: the persisted ClientData/LookupEntry pair is the source of
// truth on restart, not the watch registration.
type TopicWatcher func(notifyTopic string)

// RegisterClient implements spec §4.4's register_client: derive the
// notify-topic from the client's sym_key, upsert the ClientData under the
// project's collection, upsert the LookupEntry, then best-effort notify
// watch of the new notify-topic.
func RegisterClient(ctx context.Context, s Store, projectID string, client *ClientData, relayURL string, watch TopicWatcher) (notifyTopic string, err error) {
	notifyTopic, err = gwcrypto.SHA256HexOfHex(client.SymKey)
	if err != nil {
		return "", fmt.Errorf("derive notify topic: %w", err)
	}

	client.RelayURL = relayURL
	if err := s.UpsertSubscription(ctx, projectID, client); err != nil {
		return "", fmt.Errorf("upsert subscription: %w", err)
	}

	entry := &LookupEntry{NotifyTopic: notifyTopic, ProjectID: projectID, Account: client.ID}
	if err := s.UpsertLookup(ctx, entry); err != nil {
		return "", fmt.Errorf("upsert lookup: %w", err)
	}

	if watch != nil {
		watch(notifyTopic)
	}
	return notifyTopic, nil
}
