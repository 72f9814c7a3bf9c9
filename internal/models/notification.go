// internal/models/notification.go
package models

import "time"

// Category identifies what kind of event a notification was raised for.
type Category string

const (
	CategoryMembershipExpiry    Category = "membership_expiry"
	CategoryAppointmentReminder Category = "appointment_reminder"
	CategoryWorkoutReminder     Category = "workout_reminder"
	CategoryPromotion           Category = "promotion"
	CategorySystem              Category = "system"
	CategoryPayment             Category = "payment"
)

// Status is the delivery lifecycle of a notification.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusRead    Status = "read"
)

// Priority ranks a notification for the recipient UI and maps to the push
// urgency hint. It does not change retry or dedup behaviour.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// RecipientAll is the sentinel recipient used by legacy broadcast rows when
// checking whether a notification was already sent system-wide.
const RecipientAll = "all"

// Notification is one persisted notification row. UniqueID is the dedup key
// for the trigger instance that produced it; together with RecipientID and
// Category it is unique across all scheduler runs.
type Notification struct {
	ID          string     `json:"id"`
	RecipientID string     `json:"recipientId"`
	Category    Category   `json:"category"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	UniqueID    string     `json:"uniqueId"`
	Data        Payload    `json:"data,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Candidate is what a trigger evaluator yields: one notification that should
// be raised for a recipient, unless the ledger has already seen its UniqueID.
type Candidate struct {
	RecipientID string
	Category    Category
	UniqueID    string
	Priority    Priority
	Payload     Payload
}
