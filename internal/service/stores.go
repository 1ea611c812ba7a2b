package service

import (
	"context"
	"time"

	"ridedesk/internal/models"
	"ridedesk/internal/queue"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
	"ridedesk/internal/wizard"
)

// The interfaces below are satisfied by the postgres repositories, the redis
// draft store and the minio object store.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByFirebaseUID(ctx context.Context, uid string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	UpdateStatus(ctx context.Context, id string, from, to models.UserStatus) error
	UpdateProfile(ctx context.Context, user models.User) error
	LinkFirebaseUID(ctx context.Context, id, uid string) error
	CountByRoleStatus(ctx context.Context) (map[models.UserRole]map[models.UserStatus]int, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	FindByRefreshHash(ctx context.Context, userID string, refreshHash []byte) (models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteByDevice(ctx context.Context, userID string, deviceID string) error
	DeleteByUser(ctx context.Context, userID string) error
}

type OrderStore interface {
	Create(ctx context.Context, order models.Order) error
	GetByID(ctx context.Context, id string) (models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	Stats(ctx context.Context, filter models.OrderFilter) (models.OrderStats, error)
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	Assign(ctx context.Context, id, driverID string, status models.OrderStatus) error
}

type MenuStore interface {
	ListByClient(ctx context.Context, clientID string) ([]models.MenuItem, error)
	Get(ctx context.Context, clientID, id string) (models.MenuItem, error)
	Create(ctx context.Context, item models.MenuItem) error
	Update(ctx context.Context, item models.MenuItem) error
	Delete(ctx context.Context, clientID, id string) error
}

type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type VerificationStore interface {
	// Create stores the decision record and the driver's notice atomically.
	Create(ctx context.Context, v models.Verification, notice models.Notification) error
	LatestByUser(ctx context.Context, userID string) (models.Verification, error)
	RecordReview(ctx context.Context, userID, reviewerID string, outcome models.ReviewOutcome) error
}

type UserPurger interface {
	PurgeUser(ctx context.Context, userID string) (repository.PurgeResult, error)
}

type DraftStore interface {
	Load(ctx context.Context, userID string) (wizard.Draft, error)
	Save(ctx context.Context, d wizard.Draft) error
	Delete(ctx context.Context, userID string) error
	Lock(ctx context.Context, userID string, ttl time.Duration) (bool, error)
	Locked(ctx context.Context, userID string) (bool, error)
	Unlock(ctx context.Context, userID string) error
}

type CaptureStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
	RemovePrefix(ctx context.Context, prefix string) (int, error)
}

type TaskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev realtime.Event) error
}
