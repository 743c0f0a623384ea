package jwtauth

// SharedClaims are the fields present on every notify-protocol JWT.
type SharedClaims struct {
	Iss string `json:"iss"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

// SubscriptionRequestAuth is the subscription_auth claim set a client signs
// to request a new subscription.
type SubscriptionRequestAuth struct {
	SharedClaims
	Ksu string `json:"ksu"`
	Sub string `json:"sub"` // did:pkh account
	Aud string `json:"aud"` // did:key of the project identity
	Act string `json:"act"` // "notify_subscription"
	Scp string `json:"scp"` // space-separated scope
	App string `json:"app"` // dapp URL
}

// SubscriptionResponseAuth is the responseAuth the server signs back.
type SubscriptionResponseAuth struct {
	SharedClaims
	Ksu string `json:"ksu"`
	Aud string `json:"aud"` // echoes the request's iss
	Act string `json:"act"` // "notify_subscription_response"
	Sub string `json:"sub"` // did:key of the server-generated agreement pubkey
	App string `json:"app"`
}

// SubscriptionUpdateRequestAuth is the update_auth claim set a client signs
// to update an existing subscription's scope.
type SubscriptionUpdateRequestAuth struct {
	SharedClaims
	Ksu string `json:"ksu"`
	Sub string `json:"sub"`
	Aud string `json:"aud"`
	Act string `json:"act"` // "notify_update"
	Scp string `json:"scp"`
	App string `json:"app"`
}

// SubscriptionUpdateResponseAuth is the server's signed reply to an update.
type SubscriptionUpdateResponseAuth struct {
	SharedClaims
	Ksu string `json:"ksu"`
	Aud string `json:"aud"`
	Act string `json:"act"` // "notify_update_response"
	Sub string `json:"sub"` // SHA-256 hex of the request-auth JWT string
	App string `json:"app"`
}

const (
	ActNotifySubscription         = "notify_subscription"
	ActNotifySubscriptionResponse = "notify_subscription_response"
	ActNotifyUpdate               = "notify_update"
	ActNotifyUpdateResponse       = "notify_update_response"
)

// AddTTL returns now+ttlSeconds as Unix seconds since epoch.
func AddTTL(now int64, ttlSeconds int64) int64 {
	return now + ttlSeconds
}
