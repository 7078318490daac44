package models

import "time"

// NotificationType classifies user notifications.
type NotificationType string

const (
	NotificationSwapRequest   NotificationType = "swap_request"
	NotificationSwapAccepted  NotificationType = "swap_accepted"
	NotificationSwapRejected  NotificationType = "swap_rejected"
	NotificationSwapCancelled NotificationType = "swap_cancelled"
	NotificationSwapCompleted NotificationType = "swap_completed"
	NotificationItemDelisted  NotificationType = "item_delisted"
	NotificationPointsEarned  NotificationType = "points_earned"
)

// Notification is a persisted per-user message.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	UserID    string           `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	Read      bool             `db:"read" json:"read"`
	ItemID    *string          `db:"item_id" json:"item_id,omitempty"`
	SwapID    *string          `db:"swap_id" json:"swap_id,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
