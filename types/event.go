package types

import "time"

// AdEventType names a lifecycle transition.
type AdEventType string

const (
	AdEventCreated      AdEventType = "ad.created"
	AdEventApproved     AdEventType = "ad.approved"
	AdEventRejected     AdEventType = "ad.rejected"
	AdEventAutoApproved AdEventType = "ads.auto_approved"
	AdEventExpired      AdEventType = "ads.expired"
)

// AdEvent is published on the ad events topic after a transition commits.
// Bulk transitions carry Count instead of AdID.
type AdEvent struct {
	Type       AdEventType `json:"type"`
	AdID       int         `json:"ad_id,omitempty"`
	UserID     int         `json:"user_id,omitempty"`
	Status     AdStatus    `json:"status,omitempty"`
	Count      int64       `json:"count,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}
