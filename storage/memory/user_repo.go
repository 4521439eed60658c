package memory

import (
	"context"
	"sort"
	"time"

	"foodshare/pkg/models"
	"foodshare/storage"
)

type userRow = models.User

type userRepo struct {
	s *Store
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.TelegramID = cloneInt64(u.TelegramID)
	if u.Phone != nil {
		p := *u.Phone
		c.Phone = &p
	}
	if u.Location != nil {
		l := *u.Location
		c.Location = &l
	}
	return &c
}

func (r *userRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.phoneTaken(user.Phone, 0) {
		return nil, storage.ErrDuplicate
	}
	row := cloneUser(user)
	row.ID = r.s.nextUserID
	r.s.nextUserID++
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	row.Points = 0
	r.s.users[row.ID] = row
	return cloneUser(row), nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneUser(row), nil
}

func (r *userRepo) GetByPhone(_ context.Context, phone string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.users {
		if row.Phone != nil && *row.Phone == phone {
			return cloneUser(row), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *userRepo) UpdateProfile(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.users[user.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if r.phoneTaken(user.Phone, user.ID) {
		return nil, storage.ErrDuplicate
	}
	upd := cloneUser(user)
	row.Name = upd.Name
	row.Phone = upd.Phone
	row.Location = upd.Location
	row.UpdatedAt = time.Now().UTC()
	return cloneUser(row), nil
}

func (r *userRepo) SetTelegramID(_ context.Context, id int64, telegramID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	row.TelegramID = &telegramID
	return nil
}

func (r *userRepo) GetTopByRole(_ context.Context, role models.Role, limit int) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var users []*models.User
	for _, row := range r.s.users {
		if row.Role == role {
			users = append(users, cloneUser(row))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// phoneTaken must be called with the lock held.
func (r *userRepo) phoneTaken(phone *string, except int64) bool {
	if phone == nil {
		return false
	}
	for id, row := range r.s.users {
		if id != except && row.Phone != nil && *row.Phone == *phone {
			return true
		}
	}
	return false
}
