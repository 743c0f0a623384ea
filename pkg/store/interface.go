package store

import "context"

// ProjectStore reads the project_data collection, keyed by subscribe-topic
// or, for handlers already holding a LookupEntry, by project id directly.
type ProjectStore interface {
	GetProjectBySubscribeTopic(ctx context.Context, topic string) (*Project, error)
	GetProjectByID(ctx context.Context, projectID string) (*Project, error)
}

// SubscriptionStore reads and upserts per-project subscriptions, one
// collection per project id, keyed by account.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, projectID, account string) (*ClientData, error)
	UpsertSubscription(ctx context.Context, projectID string, client *ClientData) error
}

// LookupStore reads and upserts the lookup_table collection, keyed by
// notify-topic.
type LookupStore interface {
	GetLookup(ctx context.Context, notifyTopic string) (*LookupEntry, error)
	UpsertLookup(ctx context.Context, entry *LookupEntry) error
}

// Store combines every collection shape the protocol engine needs, plus
// lifecycle methods for the backing connection.
type Store interface {
	ProjectStore
	SubscriptionStore
	LookupStore

	Close() error
	Ping(ctx context.Context) error
}
