package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/pkg/errs"
	"foodshare/pkg/models"
)

func TestUser_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.User().Register(ctx, RegisterRequest{Name: "Asha", Phone: "+91 99000 11122", Role: models.RoleVolunteer})
	require.NoError(t, err)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "919900011122", *u.Phone)
	assert.Equal(t, int64(0), u.Points)

	_, err = f.svc.User().Register(ctx, RegisterRequest{Name: "Bad", Role: "admin"})
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.User().Register(ctx, RegisterRequest{Role: models.RoleDonor})
	assert.True(t, errs.IsValidation(err))
}

func TestUser_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.User().UpdateProfile(ctx, f.receiver, f.donor.ID, ProfileUpdate{Name: "X"})
	assert.True(t, errs.IsForbidden(err))

	u, err := f.svc.User().UpdateProfile(ctx, f.donor, f.donor.ID, ProfileUpdate{
		Name:     "Dana K",
		Location: &models.Location{Lat: 1, Lng: 2, Address: "Koramangala"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dana K", u.Name)
	require.NotNil(t, u.Location)
	assert.Equal(t, "Koramangala", u.Location.Address)
}

func TestUser_LinkTelegram(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.User().LinkTelegram(ctx, "", 1)
	assert.True(t, errs.IsValidation(err))

	_, err = f.svc.User().LinkTelegram(ctx, "5550000", 1)
	assert.True(t, errs.IsNotFound(err))
}

func TestUser_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.User().Register(ctx, RegisterRequest{Name: "A", Phone: "555-0101", Role: models.RoleDonor})
	require.NoError(t, err)

	_, err = f.svc.User().Register(ctx, RegisterRequest{Name: "B", Phone: "5550101", Role: models.RoleReceiver})
	var ve *errs.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "phone", ve.Field)
}
