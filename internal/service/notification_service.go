package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ridedesk/internal/ids"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
)

type NotificationService struct {
	store  NotificationStore
	events EventPublisher
	log    zerolog.Logger
}

func NewNotificationService(store NotificationStore, events EventPublisher, log zerolog.Logger) *NotificationService {
	return &NotificationService{store: store, events: events, log: log}
}

// Notify stores a notification and pushes it to the user's open connections.
// A failed push is logged; the stored notification is the source of truth.
func (s *NotificationService) Notify(ctx context.Context, userID, message, link string) (models.Notification, error) {
	n := newNotification(userID, message, link)
	if err := s.store.Create(ctx, n); err != nil {
		return models.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	s.push(ctx, n)
	return n, nil
}

func newNotification(userID, message, link string) models.Notification {
	return models.Notification{
		ID:      ids.New(),
		UserID:  userID,
		Message: message,
		Link:    link,
	}
}

// push announces an already stored notification.
func (s *NotificationService) push(ctx context.Context, n models.Notification) {
	publishEvent(ctx, s.events, s.log, realtime.EventNotificationCreated, n.UserID, map[string]any{
		"id":      n.ID,
		"message": n.Message,
		"link":    n.Link,
	})
}

type NotificationList struct {
	Items  []models.Notification
	Unread int
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) (NotificationList, error) {
	items, err := s.store.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return NotificationList{}, err
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return NotificationList{}, err
	}
	return NotificationList{Items: items, Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.store.MarkAllRead(ctx, userID)
}

func publishEvent(ctx context.Context, events EventPublisher, log zerolog.Logger, eventType, userID string, payload any) {
	if events == nil {
		return
	}
	ev, err := realtime.NewEvent(eventType, userID, payload)
	if err == nil {
		err = events.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("type", eventType).Str("user_id", userID).Msg("publish event failed")
	}
}
