package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"foodshare/pkg/models"
	"foodshare/storage"
)

type notificationRow = models.Notification

type notificationRepo struct {
	s *Store
}

func cloneNotification(n *models.Notification) *models.Notification {
	c := *n
	c.DonationID = cloneInt64(n.DonationID)
	return &c
}

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row := cloneNotification(n)
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if _, ok := r.s.notifications[row.ID.String()]; ok {
		return nil, storage.ErrDuplicate
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	row.IsRead = false
	r.s.notifications[row.ID.String()] = row
	return cloneNotification(row), nil
}

func (r *notificationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.notifications[id.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneNotification(row), nil
}

func (r *notificationRepo) GetByRecipient(_ context.Context, recipientID int64) ([]*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Notification
	for _, row := range r.s.notifications {
		if row.RecipientID == recipientID {
			out = append(out, cloneNotification(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.notifications[id.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	row.IsRead = true
	return cloneNotification(row), nil
}
