package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/pkg/errs"
	"foodshare/pkg/models"
)

func TestPoints_AwardIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := f.svc.Points()

	award := models.PointAward{UserID: f.volunteer.ID, DonationID: 42, Reason: models.ReasonDelivery, Amount: 50}
	credited, err := ps.Award(ctx, award)
	require.NoError(t, err)
	assert.True(t, credited)

	credited, err = ps.Award(ctx, award)
	require.NoError(t, err)
	assert.False(t, credited)
	assert.Equal(t, int64(50), f.points(t, f.volunteer))

	_, err = ps.Award(ctx, models.PointAward{UserID: f.volunteer.ID, DonationID: 43, Reason: models.ReasonDelivery})
	assert.True(t, errs.IsValidation(err))
}

func TestPoints_AwardDeliveryRequiresDelivered(t *testing.T) {
	f := newFixture(t)
	d := f.donate(t)
	err := f.svc.Points().AwardDelivery(context.Background(), d)
	assert.True(t, errs.IsInvalidState(err))
}

func TestPoints_Reconcile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ds := f.svc.Donation()

	d := f.donate(t)
	_, err := ds.Claim(ctx, f.receiver, d.ID, true)
	require.NoError(t, err)
	_, err = ds.Accept(ctx, f.volunteer, d.ID)
	require.NoError(t, err)
	_, err = ds.Deliver(ctx, f.volunteer, d.ID)
	require.NoError(t, err)

	n, err := f.svc.Points().Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, int64(20), f.points(t, f.donor))
	assert.Equal(t, int64(50), f.points(t, f.volunteer))

	history, err := f.svc.Points().History(ctx, f.volunteer.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, d.ID, history[0].DonationID)
}
