package models

import (
	"encoding/json"
	"time"
)

// NotificationType classifies a notification for the dashboard.
type NotificationType string

const (
	NotificationDonation NotificationType = "donation"
	NotificationCampaign NotificationType = "campaign"
	NotificationSystem   NotificationType = "system"
)

// Notification is a message addressed to a single user.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Data      json.RawMessage  `json:"data,omitempty" db:"data"`
	ReadAt    *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// IsRead reports whether the notification has been read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
