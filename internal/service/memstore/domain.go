package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"ridedesk/internal/models"
	"ridedesk/internal/queue"
	"ridedesk/internal/realtime"
	"ridedesk/internal/repository"
	"ridedesk/internal/storage"
	"ridedesk/internal/wizard"
)

type Orders struct{ s *Store }

func (r *Orders) Create(_ context.Context, order models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order.CreatedAt = r.s.now()
	order.UpdatedAt = order.CreatedAt
	r.s.orders[order.ID] = order
	return nil
}

func (r *Orders) GetByID(_ context.Context, id string) (models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order, ok := r.s.orders[id]
	if !ok {
		return models.Order{}, repository.ErrOrderNotFound
	}
	return order, nil
}

func (r *Orders) matching(filter models.OrderFilter) []models.Order {
	var out []models.Order
	for _, o := range r.s.orders {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.DriverID != "" && (o.DriverID == nil || *o.DriverID != filter.DriverID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Unassigned && o.DriverID != nil {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *Orders) List(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.matching(filter), filter.Limit, filter.Offset), nil
}

func (r *Orders) Stats(_ context.Context, filter models.OrderFilter) (models.OrderStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := models.OrderStats{ByStatus: make(map[models.OrderStatus]int)}
	for _, o := range r.matching(filter) {
		stats.ByStatus[o.Status]++
		stats.Total++
		if o.Status != models.OrderStatusCancelled {
			stats.Amount += o.Amount
		}
	}
	return stats, nil
}

func (r *Orders) UpdateStatus(_ context.Context, id string, from, to models.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrOrderConflict
	}
	o.Status = to
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

func (r *Orders) Assign(_ context.Context, id, driverID string, status models.OrderStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.DriverID != nil || o.Status != status {
		return repository.ErrOrderConflict
	}
	o.DriverID = &driverID
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

type Menu struct{ s *Store }

func (r *Menu) ListByClient(_ context.Context, clientID string) ([]models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.MenuItem
	for _, item := range r.s.menu {
		if item.ClientID == clientID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Menu) Get(_ context.Context, clientID, id string) (models.MenuItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.menu[id]
	if !ok || item.ClientID != clientID {
		return models.MenuItem{}, repository.ErrMenuItemNotFound
	}
	return item, nil
}

func (r *Menu) Create(_ context.Context, item models.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item.CreatedAt = r.s.now()
	item.UpdatedAt = item.CreatedAt
	r.s.menu[item.ID] = item
	return nil
}

func (r *Menu) Update(_ context.Context, item models.MenuItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.menu[item.ID]
	if !ok || existing.ClientID != item.ClientID {
		return repository.ErrMenuItemNotFound
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = r.s.now()
	r.s.menu[item.ID] = item
	return nil
}

func (r *Menu) Delete(_ context.Context, clientID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.menu[id]
	if !ok || item.ClientID != clientID {
		return repository.ErrMenuItemNotFound
	}
	delete(r.s.menu, id)
	return nil
}

type Notifications struct{ s *Store }

func (r *Notifications) Create(_ context.Context, n models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertNotification(n)
}

// FailWith makes every later notification write return err. Nil restores writes.
func (r *Notifications) FailWith(err error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifyErr = err
}

func (s *Store) insertNotification(n models.Notification) error {
	if s.notifyErr != nil {
		return s.notifyErr
	}
	n.CreatedAt = s.now()
	s.notifications[n.ID] = n
	return nil
}

func (r *Notifications) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}

func (r *Notifications) CountUnread(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *Notifications) MarkRead(_ context.Context, userID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok || n.UserID != userID {
		return repository.ErrNotificationNotFound
	}
	n.IsRead = true
	r.s.notifications[id] = n
	return nil
}

func (r *Notifications) MarkAllRead(_ context.Context, userID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	changed := 0
	for id, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			r.s.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

type Verifications struct{ s *Store }

func (r *Verifications) Create(_ context.Context, v models.Verification, notice models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.insertNotification(notice); err != nil {
		return err
	}
	v.CreatedAt = r.s.now()
	r.s.verifications = append(r.s.verifications, v)
	return nil
}

func (r *Verifications) LatestByUser(_ context.Context, userID string) (models.Verification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.verifications) - 1; i >= 0; i-- {
		if r.s.verifications[i].UserID == userID {
			return r.s.verifications[i], nil
		}
	}
	return models.Verification{}, repository.ErrVerificationNotFound
}

func (r *Verifications) RecordReview(_ context.Context, userID, reviewerID string, outcome models.ReviewOutcome) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.verifications) - 1; i >= 0; i-- {
		v := &r.s.verifications[i]
		if v.UserID != userID {
			continue
		}
		at := r.s.now()
		v.ReviewedBy = &reviewerID
		v.ReviewedAt = &at
		v.ReviewOutcome = &outcome
		return nil
	}
	return repository.ErrVerificationNotFound
}

type Drafts struct{ s *Store }

func (r *Drafts) Load(_ context.Context, userID string) (wizard.Draft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[userID]
	if !ok {
		return wizard.Draft{}, wizard.ErrDraftNotFound
	}
	captures := make(map[models.CaptureType]string, len(d.Captures))
	for k, v := range d.Captures {
		captures[k] = v
	}
	d.Captures = captures
	return d, nil
}

func (r *Drafts) Save(_ context.Context, d wizard.Draft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	captures := make(map[models.CaptureType]string, len(d.Captures))
	for k, v := range d.Captures {
		captures[k] = v
	}
	d.Captures = captures
	r.s.drafts[d.UserID] = d
	return nil
}

func (r *Drafts) Delete(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.drafts, userID)
	return nil
}

func (r *Drafts) Lock(_ context.Context, userID string, _ time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.locks[userID] {
		return false, nil
	}
	r.s.locks[userID] = true
	return true, nil
}

func (r *Drafts) Locked(_ context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.locks[userID], nil
}

func (r *Drafts) Unlock(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.locks, userID)
	return nil
}

type Objects struct{ s *Store }

func (r *Objects) Put(_ context.Context, key string, data []byte, _ string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (r *Objects) Get(_ context.Context, key string) ([]byte, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	data, ok := r.s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (r *Objects) Remove(_ context.Context, key string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.objects, key)
	return nil
}

func (r *Objects) RemovePrefix(_ context.Context, prefix string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	removed := 0
	for key := range r.s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(r.s.objects, key)
			removed++
		}
	}
	return removed, nil
}

// Keys lists stored object keys in order.
func (r *Objects) Keys() []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keys := make([]string, 0, len(r.s.objects))
	for key := range r.s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type Queue struct{ s *Store }

func (r *Queue) Enqueue(_ context.Context, task queue.Task) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tasks = append(r.s.tasks, task)
	return time.Now().Format("20060102150405.000000000"), nil
}

func (r *Queue) Tasks() []queue.Task {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]queue.Task(nil), r.s.tasks...)
}

type Events struct{ s *Store }

func (r *Events) Publish(_ context.Context, ev realtime.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.events = append(r.s.events, ev)
	return nil
}

// Types returns the published event types for a user in order.
func (r *Events) Types(userID string) []string {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, ev := range r.s.events {
		if ev.UserID == userID {
			out = append(out, ev.Type)
		}
	}
	return out
}
