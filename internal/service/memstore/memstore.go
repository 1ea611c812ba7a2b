// Package memstore provides in-memory stand-ins for the postgres, redis and
// object stores so services and handlers can be exercised without infrastructure.
package memstore

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ridedesk/internal/models"
	"ridedesk/internal/queue"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
	"ridedesk/internal/wizard"
)

type Store struct {
	mu            sync.Mutex
	users         map[string]models.User
	sessions      map[string]models.Session
	orders        map[string]models.Order
	menu          map[string]models.MenuItem
	notifications map[string]models.Notification
	notifyErr     error
	verifications []models.Verification
	drafts        map[string]wizard.Draft
	locks         map[string]bool
	objects       map[string][]byte
	tasks         []queue.Task
	events        []realtime.Event
	base          time.Time
	ticks         int
}

func New() *Store {
	return &Store{
		users:         make(map[string]models.User),
		sessions:      make(map[string]models.Session),
		orders:        make(map[string]models.Order),
		menu:          make(map[string]models.MenuItem),
		notifications: make(map[string]models.Notification),
		drafts:        make(map[string]wizard.Draft),
		locks:         make(map[string]bool),
		objects:       make(map[string][]byte),
		base:          time.Now().UTC(),
	}
}

// now hands out strictly increasing timestamps so ordering is deterministic.
func (s *Store) now() time.Time {
	s.ticks++
	return s.base.Add(time.Duration(s.ticks) * time.Millisecond)
}

func (s *Store) Users() *Users                 { return &Users{s} }
func (s *Store) Sessions() *Sessions           { return &Sessions{s} }
func (s *Store) Orders() *Orders               { return &Orders{s} }
func (s *Store) Menu() *Menu                   { return &Menu{s} }
func (s *Store) Notifications() *Notifications { return &Notifications{s} }
func (s *Store) Verifications() *Verifications { return &Verifications{s} }
func (s *Store) Drafts() *Drafts               { return &Drafts{s} }
func (s *Store) Objects() *Objects             { return &Objects{s} }
func (s *Store) Queue() *Queue                 { return &Queue{s} }
func (s *Store) Events() *Events               { return &Events{s} }

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// PurgeUser mirrors the postgres cascade.
func (s *Store) PurgeUser(_ context.Context, userID string) (repository.PurgeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := map[string]int64{}
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
			rows["sessions"]++
		}
	}
	for id, o := range s.orders {
		switch {
		case o.CustomerID == userID:
			delete(s.orders, id)
			rows["orders"]++
		case o.DriverID != nil && *o.DriverID == userID &&
			(o.Status == models.OrderStatusPending || o.Status == models.OrderStatusProcessing):
			o.DriverID = nil
			s.orders[id] = o
			rows["deliveries"]++
		}
	}
	kept := s.verifications[:0]
	for _, v := range s.verifications {
		if v.UserID == userID {
			rows["verifications"]++
			continue
		}
		kept = append(kept, v)
	}
	s.verifications = kept
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
			rows["notifications"]++
		}
	}
	for id, m := range s.menu {
		if m.ClientID == userID {
			delete(s.menu, id)
			rows["menu_items"]++
		}
	}
	if _, ok := s.users[userID]; ok {
		delete(s.users, userID)
		rows["users"] = 1
	}
	return repository.PurgeResult{UserExisted: rows["users"] > 0, Rows: rows}, nil
}

type Users struct{ s *Store }

func (u *Users) Create(_ context.Context, user models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	user.CreatedAt = u.s.now()
	user.UpdatedAt = user.CreatedAt
	u.s.users[user.ID] = user
	return nil
}

func (u *Users) find(match func(models.User) bool) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (u *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	return u.find(func(user models.User) bool { return user.Email == email })
}

func (u *Users) FindByFirebaseUID(_ context.Context, uid string) (models.User, error) {
	return u.find(func(user models.User) bool { return user.FirebaseUID != nil && *user.FirebaseUID == uid })
}

func (u *Users) GetByID(_ context.Context, id string) (models.User, error) {
	return u.find(func(user models.User) bool { return user.ID == id })
}

func (u *Users) List(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []models.User
	for _, user := range u.s.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.Status != "" && user.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(user.Email, search) &&
			!strings.Contains(strings.ToLower(user.FirstName+" "+user.LastName), search) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (u *Users) UpdateStatus(_ context.Context, id string, from, to models.UserStatus) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if from != "" && user.Status != from {
		return repository.ErrStatusConflict
	}
	user.Status = to
	user.UpdatedAt = u.s.now()
	u.s.users[id] = user
	return nil
}

func (u *Users) UpdateProfile(_ context.Context, user models.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	existing, ok := u.s.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.Phone = user.Phone
	existing.UpdatedAt = u.s.now()
	u.s.users[user.ID] = existing
	return nil
}

func (u *Users) LinkFirebaseUID(_ context.Context, id, uid string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.FirebaseUID = &uid
	u.s.users[id] = user
	return nil
}

func (u *Users) CountByRoleStatus(context.Context) (map[models.UserRole]map[models.UserStatus]int, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	counts := make(map[models.UserRole]map[models.UserStatus]int)
	for _, user := range u.s.users {
		if counts[user.Role] == nil {
			counts[user.Role] = make(map[models.UserStatus]int)
		}
		counts[user.Role][user.Status]++
	}
	return counts, nil
}

type Sessions struct{ s *Store }

func (r *Sessions) Create(_ context.Context, session models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, existing := range r.s.sessions {
		if existing.UserID == session.UserID && existing.DeviceID == session.DeviceID {
			session.CreatedAt = existing.CreatedAt
			delete(r.s.sessions, id)
		}
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.s.now()
	}
	session.LastSeenAt = r.s.now()
	r.s.sessions[session.ID] = session
	return nil
}

func (r *Sessions) byUser(userID string) []models.Session {
	var out []models.Session
	for _, sess := range r.s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeenAt.After(out[j].LastSeenAt) })
	return out
}

func (r *Sessions) CountByUser(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.byUser(userID)), nil
}

func (r *Sessions) DeleteOldestSessions(_ context.Context, userID string, keepLatest int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sessions := r.byUser(userID)
	for i := keepLatest; i < len(sessions); i++ {
		delete(r.s.sessions, sessions[i].ID)
	}
	return nil
}

func (r *Sessions) FindByRefreshHash(_ context.Context, userID string, refreshHash []byte) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && bytes.Equal(sess.RefreshTokenHash, refreshHash) {
			return sess, nil
		}
	}
	return models.Session{}, repository.ErrSessionNotFound
}

func (r *Sessions) ListByUser(_ context.Context, userID string) ([]models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.byUser(userID), nil
}

func (r *Sessions) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r *Sessions) DeleteByDevice(_ context.Context, userID string, deviceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID && sess.DeviceID == deviceID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r *Sessions) GetByID(_ context.Context, id string) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrSessionNotFound
	}
	return sess, nil
}

func (r *Sessions) Touch(_ context.Context, id string, ip string, userAgent string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	sess.IPAddress = ip
	sess.UserAgent = userAgent
	sess.LastSeenAt = r.s.now()
	r.s.sessions[id] = sess
	return nil
}

func (r *Sessions) DeleteByUser(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}
