package domain

import "time"

// NotificationType classifies a notification for filtering on the client.
type NotificationType string

const (
	NotificationInfo   NotificationType = "INFO"
	NotificationAlert  NotificationType = "ALERT"
	NotificationSystem NotificationType = "SYSTEM"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInfo, NotificationAlert, NotificationSystem:
		return true
	}
	return false
}

type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	UserID         string           `json:"userId" dynamodbav:"user_id"`
	Title          string           `json:"title" dynamodbav:"title"`
	Message        string           `json:"message" dynamodbav:"message"`
	Type           NotificationType `json:"type" dynamodbav:"type"`
	IsRead         bool             `json:"isRead" dynamodbav:"is_read"`
	CreatedAt      time.Time        `json:"createdAt" dynamodbav:"created_at"`
	ReadAt         *time.Time       `json:"readAt,omitempty" dynamodbav:"read_at,omitempty"`
}
