package memory

import (
	"context"
	"time"

	"foodshare/pkg/models"
	"foodshare/storage"
)

type awardKey struct {
	donationID int64
	reason     models.AwardReason
}

type awardRow = models.PointAward

type pointRepo struct {
	s *Store
}

func (r *pointRepo) Award(_ context.Context, award *models.PointAward) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[award.UserID]
	if !ok {
		return false, storage.ErrNotFound
	}
	key := awardKey{donationID: award.DonationID, reason: award.Reason}
	if _, exists := r.s.awards[key]; exists {
		return false, nil
	}

	row := *award
	row.CreatedAt = time.Now().UTC()
	r.s.awards[key] = &row
	r.s.awardOrder = append(r.s.awardOrder, key)
	user.Points += award.Amount
	return true, nil
}

func (r *pointRepo) GetByUser(_ context.Context, userID int64) ([]*models.PointAward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.PointAward
	for _, key := range r.s.awardOrder {
		row := r.s.awards[key]
		if row.UserID == userID {
			c := *row
			out = append(out, &c)
		}
	}
	return out, nil
}
