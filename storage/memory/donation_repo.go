package memory

import (
	"context"
	"sort"
	"time"

	"foodshare/pkg/models"
	"foodshare/storage"
)

type donationRow = models.Donation

type donationRepo struct {
	s *Store
}

func cloneDonation(d *models.Donation) *models.Donation {
	c := *d
	c.ReceiverID = cloneInt64(d.ReceiverID)
	c.VolunteerID = cloneInt64(d.VolunteerID)
	if d.DeliveredAt != nil {
		t := *d.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}

func (r *donationRepo) Create(_ context.Context, donation *models.Donation) (*models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row := cloneDonation(donation)
	row.ID = r.s.nextDonationID
	r.s.nextDonationID++
	now := time.Now().UTC()
	row.CreatedAt = now
	row.UpdatedAt = now
	r.s.donations[row.ID] = row
	return cloneDonation(row), nil
}

func (r *donationRepo) GetByID(_ context.Context, id int64) (*models.Donation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.donations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneDonation(row), nil
}

func (r *donationRepo) UpdateDetails(_ context.Context, donation *models.Donation) (*models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.donations[donation.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if row.Status != models.StatusAvailable {
		return nil, storage.ErrStale
	}
	row.FoodType = donation.FoodType
	row.Description = donation.Description
	row.Quantity = donation.Quantity
	row.Location = donation.Location
	row.ExpiryTime = donation.ExpiryTime
	row.UpdatedAt = time.Now().UTC()
	return cloneDonation(row), nil
}

func (r *donationRepo) Transition(_ context.Context, id int64, change models.StatusChange) (*models.Donation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.donations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if row.Status != change.From {
		return nil, storage.ErrStale
	}
	if change.RequireNoVolunteer && row.VolunteerID != nil {
		return nil, storage.ErrStale
	}
	if change.NotExpiredAt != nil && !change.NotExpiredAt.Before(row.ExpiryTime) {
		return nil, storage.ErrStale
	}

	now := time.Now().UTC()
	row.Status = change.To
	switch {
	case change.ClearReceiver:
		row.ReceiverID = nil
	case change.ReceiverID != nil:
		row.ReceiverID = cloneInt64(change.ReceiverID)
	}
	if change.DeliveryNeeded != nil {
		row.DeliveryNeeded = *change.DeliveryNeeded
	}
	if change.VolunteerID != nil {
		row.VolunteerID = cloneInt64(change.VolunteerID)
	}
	if change.To == models.StatusDelivered {
		row.DeliveredAt = &now
	}
	row.UpdatedAt = now
	return cloneDonation(row), nil
}

func (r *donationRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.donations[id]
	if !ok {
		return storage.ErrNotFound
	}
	if row.Status != models.StatusAvailable {
		return storage.ErrStale
	}
	delete(r.s.donations, id)
	return nil
}

func (r *donationRepo) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, row := range r.s.donations {
		if row.Expired(now) {
			row.Status = models.StatusCancelled
			row.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *donationRepo) GetAvailable(_ context.Context, now time.Time) ([]*models.Donation, error) {
	return r.filter(func(d *models.Donation) bool {
		return d.Status == models.StatusAvailable && now.Before(d.ExpiryTime)
	}, 0), nil
}

func (r *donationRepo) GetRecent(_ context.Context, limit int) ([]*models.Donation, error) {
	return r.filter(func(*models.Donation) bool { return true }, limit), nil
}

func (r *donationRepo) GetDonorDonations(_ context.Context, donorID int64) ([]*models.Donation, error) {
	return r.filter(func(d *models.Donation) bool { return d.DonorID == donorID }, 0), nil
}

func (r *donationRepo) GetReceiverDonations(_ context.Context, receiverID int64) ([]*models.Donation, error) {
	return r.filter(func(d *models.Donation) bool {
		return d.ReceiverID != nil && *d.ReceiverID == receiverID
	}, 0), nil
}

func (r *donationRepo) GetVolunteerTasks(_ context.Context, volunteerID int64) ([]*models.Donation, error) {
	return r.filter(func(d *models.Donation) bool {
		if d.VolunteerID != nil {
			return *d.VolunteerID == volunteerID
		}
		return d.Status == models.StatusClaimed && d.DeliveryNeeded
	}, 0), nil
}

func (r *donationRepo) GetDelivered(_ context.Context) ([]*models.Donation, error) {
	return r.filter(func(d *models.Donation) bool { return d.Status == models.StatusDelivered }, 0), nil
}

// filter returns matching donations newest first.
func (r *donationRepo) filter(match func(*models.Donation) bool, limit int) []*models.Donation {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.Donation
	for _, row := range r.s.donations {
		if match(row) {
			out = append(out, cloneDonation(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
