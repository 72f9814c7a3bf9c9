// internal/models/subscription.go
package models

import "time"

// SubscriptionKeys is the credential pair the push service requires to
// encrypt payloads for one endpoint.
type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// DeviceInfo is best-effort metadata captured at registration time.
type DeviceInfo struct {
	UserAgent string `json:"userAgent,omitempty"`
	Platform  string `json:"platform,omitempty"`
}

// Subscription is one registered push destination for a recipient. A
// recipient may hold many; (RecipientID, Endpoint) is unique.
type Subscription struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	Endpoint    string           `json:"endpoint"`
	Keys        SubscriptionKeys `json:"keys"`
	DeviceInfo  DeviceInfo       `json:"deviceInfo"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	LastSeenAt  time.Time        `json:"lastSeenAt"`
}
