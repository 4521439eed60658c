package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
	"foodshare/storage/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Now().UTC()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store storage.IStorage
	svc   IServiceManager
	clock *clock

	donor      models.Actor
	receiver   models.Actor
	receiver2  models.Actor
	volunteer  models.Actor
	volunteer2 models.Actor
}

func newFixture(t *testing.T, tweak ...func(*Options)) *fixture {
	t.Helper()
	return newFixtureOn(t, memory.New(), tweak...)
}

func newFixtureOn(t *testing.T, stg storage.IStorage, tweak ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{store: stg, clock: newClock()}
	opts := Options{Now: f.clock.Now}
	for _, fn := range tweak {
		fn(&opts)
	}
	f.svc = New(f.store, logger.NewNop(), opts)

	f.donor = f.register(t, "Dana", models.RoleDonor)
	f.receiver = f.register(t, "Ravi", models.RoleReceiver)
	f.receiver2 = f.register(t, "Rosa", models.RoleReceiver)
	f.volunteer = f.register(t, "Vik", models.RoleVolunteer)
	f.volunteer2 = f.register(t, "Vera", models.RoleVolunteer)
	return f
}

func (f *fixture) register(t *testing.T, name string, role models.Role) models.Actor {
	t.Helper()
	u, err := f.svc.User().Register(context.Background(), RegisterRequest{Name: name, Role: role})
	require.NoError(t, err)
	return models.Actor{ID: u.ID, Role: u.Role}
}

func (f *fixture) donate(t *testing.T) *models.Donation {
	t.Helper()
	d, err := f.svc.Donation().Create(context.Background(), f.donor, models.DonationPayload{
		FoodType: "biryani",
		Quantity: 10,
		Location: &models.Location{Lat: 12.9, Lng: 77.5, Address: "MG Road"},
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) points(t *testing.T, a models.Actor) int64 {
	t.Helper()
	u, err := f.svc.User().Get(context.Background(), a.ID)
	require.NoError(t, err)
	return u.Points
}
