package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/config"
	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

// newTestStore connects to the database described by the POSTGRES_* env
// vars. It runs only when TEST_POSTGRES is set and truncates every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("TEST_POSTGRES") == "" {
		t.Skip("TEST_POSTGRES not set")
	}
	cfg := config.Load()
	cfg.MigrationsPath = "../../migrations"

	ctx := context.Background()
	s, err := New(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Reset(ctx))
	return s
}

func seed(t *testing.T, s *Store) (donor, receiver, volunteer *models.User, d *models.Donation) {
	t.Helper()
	ctx := context.Background()
	var err error
	donor, err = s.User().Create(ctx, &models.User{Name: "donor", Role: models.RoleDonor})
	require.NoError(t, err)
	receiver, err = s.User().Create(ctx, &models.User{Name: "receiver", Role: models.RoleReceiver})
	require.NoError(t, err)
	volunteer, err = s.User().Create(ctx, &models.User{Name: "volunteer", Role: models.RoleVolunteer})
	require.NoError(t, err)

	d, err = s.Donation().Create(ctx, &models.Donation{
		DonorID:    donor.ID,
		FoodType:   "rice",
		Quantity:   4,
		Location:   models.Location{Lat: 1, Lng: 2, Address: "market"},
		Status:     models.StatusAvailable,
		ExpiryTime: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return donor, receiver, volunteer, d
}

func TestDonationRepo_Transition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, receiver, volunteer, d := seed(t, s)

	now := time.Now()
	yes := true
	claimed, err := s.Donation().Transition(ctx, d.ID, models.StatusChange{
		From:           models.StatusAvailable,
		To:             models.StatusClaimed,
		ReceiverID:     &receiver.ID,
		DeliveryNeeded: &yes,
		NotExpiredAt:   &now,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusClaimed, claimed.Status)
	assert.Equal(t, receiver.ID, *claimed.ReceiverID)

	_, err = s.Donation().Transition(ctx, d.ID, models.StatusChange{From: models.StatusAvailable, To: models.StatusClaimed, ReceiverID: &receiver.ID})
	assert.ErrorIs(t, err, storage.ErrStale)

	_, err = s.Donation().Transition(ctx, 424242, models.StatusChange{From: models.StatusAvailable, To: models.StatusClaimed})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.Donation().Transition(ctx, d.ID, models.StatusChange{
				From:               models.StatusClaimed,
				To:                 models.StatusInTransit,
				VolunteerID:        &volunteer.ID,
				RequireNoVolunteer: true,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, storage.ErrStale)
		}
	}
	assert.Equal(t, 1, wins)

	delivered, err := s.Donation().Transition(ctx, d.ID, models.StatusChange{From: models.StatusInTransit, To: models.StatusDelivered})
	require.NoError(t, err)
	assert.NotNil(t, delivered.DeliveredAt)

	err = s.Donation().Delete(ctx, d.ID)
	assert.ErrorIs(t, err, storage.ErrStale)
}

func TestDonationRepo_ExpireStale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, _, d := seed(t, s)

	n, err := s.Donation().ExpireStale(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Donation().GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestPointRepo_AwardOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _, volunteer, d := seed(t, s)

	award := &models.PointAward{UserID: volunteer.ID, DonationID: d.ID, Reason: models.ReasonDelivery, Amount: 50}
	credited, err := s.Point().Award(ctx, award)
	require.NoError(t, err)
	assert.True(t, credited)

	credited, err = s.Point().Award(ctx, award)
	require.NoError(t, err)
	assert.False(t, credited)

	u, err := s.User().GetByID(ctx, volunteer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(50), u.Points)
}

func TestUserRepo_DuplicatePhone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	phone := "998901234567"

	_, err := s.User().Create(ctx, &models.User{Name: "a", Role: models.RoleDonor, Phone: &phone})
	require.NoError(t, err)
	_, err = s.User().Create(ctx, &models.User{Name: "b", Role: models.RoleDonor, Phone: &phone})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
}
