package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/pkg/validate"
)

// EventNotification is the event name pushed to clients for a notification.
const EventNotification = "notification"

// EventConnected is pushed once right after a connection is admitted.
const EventConnected = "connected"

// NotificationEvent is the broker wire shape: an immutable snapshot of a
// persisted notification at publish time.
type NotificationEvent struct {
	ID        string                  `json:"id" validate:"required"`
	UserID    string                  `json:"userId" validate:"required"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Type      domain.NotificationType `json:"type"`
	IsRead    bool                    `json:"isRead"`
	CreatedAt time.Time               `json:"createdAt"`
}

func EventFromNotification(n domain.Notification) NotificationEvent {
	return NotificationEvent{
		ID:        n.NotificationID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func EncodeEvent(e NotificationEvent) ([]byte, error) {
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return json.Marshal(e)
}

// DecodeEvent parses a broker payload. Anything that is not a JSON object
// with an id and a userId is ErrMalformedEvent.
func DecodeEvent(data []byte) (NotificationEvent, error) {
	var e NotificationEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return NotificationEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := validate.Struct(e); err != nil {
		return NotificationEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return e, nil
}
