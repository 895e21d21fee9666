package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/infrastructure/dynamo"
	"github.com/go-notify-realtime/internal/pkg/id"
	"github.com/go-notify-realtime/internal/pkg/validate"
	"github.com/go-notify-realtime/internal/realtime"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence the service needs.
type Store interface {
	Put(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, q dynamo.ListQuery) ([]domain.Notification, string, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, notificationID, userID string, readAt time.Time) (*domain.Notification, error)
}

// Publisher hands a persisted notification to the real-time fan-out.
type Publisher interface {
	Publish(ctx context.Context, ev realtime.NotificationEvent) error
}

type SendInput struct {
	UserID  string                  `json:"userId" validate:"required,max=128"`
	Title   string                  `json:"title" validate:"required,max=200"`
	Message string                  `json:"message" validate:"required,max=2000"`
	Type    domain.NotificationType `json:"type" validate:"omitempty,notification_type"`
}

type SendResult struct {
	Notification *domain.Notification `json:"notification"`
	// Published is false when the notification was stored but the real-time
	// push could not be handed to the broker.
	Published bool `json:"published"`
}

type ListInput struct {
	Limit     int
	Cursor    string
	Type      domain.NotificationType
	IsRead    *bool
	Ascending bool
}

type ListResult struct {
	Items      []domain.Notification `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

type Service interface {
	Send(ctx context.Context, in SendInput) (*SendResult, error)
	List(ctx context.Context, userID string, in ListInput) (*ListResult, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type ServiceDeps struct {
	Store     Store
	Publisher Publisher
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

type service struct {
	store     Store
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &service{
		store:     deps.Store,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		logger:    deps.Logger.With("component", "notification_service"),
	}
}

// Send persists the notification first and then publishes it. A publish
// failure never undoes the write.
func (s *service) Send(ctx context.Context, in SendInput) (*SendResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}
	if in.Type == "" {
		in.Type = domain.NotificationInfo
	}

	now := s.clock.Now().UTC()
	n := &domain.Notification{
		NotificationID: id.NewAt(now),
		UserID:         in.UserID,
		Title:          in.Title,
		Message:        in.Message,
		Type:           in.Type,
		CreatedAt:      now,
	}
	if err := s.store.Put(ctx, n); err != nil {
		return nil, err
	}

	res := &SendResult{Notification: n, Published: true}
	if err := s.publisher.Publish(ctx, realtime.EventFromNotification(*n)); err != nil {
		res.Published = false
		s.logger.Warn("notification stored but not published",
			"notification_id", n.NotificationID,
			"user_id", n.UserID,
			"error", err)
	}
	return res, nil
}

func (s *service) List(ctx context.Context, userID string, in ListInput) (*ListResult, error) {
	if in.Type != "" && !in.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", domain.ErrBadRequest, in.Type)
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}

	items, next, err := s.store.ListByUser(ctx, userID, dynamo.ListQuery{
		Limit:     int32(limit),
		Cursor:    in.Cursor,
		Type:      in.Type,
		IsRead:    in.IsRead,
		Ascending: in.Ascending,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Notification{}
	}
	return &ListResult{Items: items, NextCursor: next}, nil
}

// MarkAsRead is owner-only; see dynamo.NotificationRepo.MarkAsRead for the errors.
func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	return s.store.MarkAsRead(ctx, notificationID, userID, s.clock.Now().UTC())
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
