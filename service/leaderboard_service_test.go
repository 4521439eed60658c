package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshare/pkg/models"
)

type mapCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[string][]models.LeaderboardEntry
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]models.LeaderboardEntry)}
}

func (c *mapCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *mapCache) Get(_ context.Context, key string) ([]models.LeaderboardEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return e, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, entries []models.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entries
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string][]models.LeaderboardEntry)
	return nil
}

func award(t *testing.T, f *fixture, user models.Actor, donationID, amount int64) {
	t.Helper()
	_, err := f.svc.Points().Award(context.Background(), models.PointAward{
		UserID:     user.ID,
		DonationID: donationID,
		Reason:     models.ReasonDelivery,
		Amount:     amount,
	})
	require.NoError(t, err)
}

func TestLeaderboard_Ordering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	third := f.register(t, "Vic", models.RoleVolunteer)

	award(t, f, f.volunteer2, 1, 100)
	award(t, f, f.volunteer, 2, 50)
	award(t, f, third, 3, 50)

	top, err := f.svc.Leaderboard().TopVolunteers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, f.volunteer2.ID, top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
	// Equal points keep registration order.
	assert.Equal(t, f.volunteer.ID, top[1].UserID)
	assert.Equal(t, third.ID, top[2].UserID)

	one, err := f.svc.Leaderboard().TopVolunteers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	board, err := f.svc.Leaderboard().Board(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, board.Volunteers, 3)
	require.Len(t, board.Donors, 1)
	assert.Equal(t, f.donor.ID, board.Donors[0].UserID)
}

func TestLeaderboard_CacheInvalidatedOnAward(t *testing.T) {
	cache := newMapCache()
	f := newFixture(t, func(o *Options) { o.LeaderboardCache = cache })
	ctx := context.Background()

	first, err := f.svc.Leaderboard().TopVolunteers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first[0].Points)

	_, err = f.svc.Leaderboard().TopVolunteers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	award(t, f, f.volunteer2, 7, 50)

	fresh, err := f.svc.Leaderboard().TopVolunteers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, f.volunteer2.ID, fresh[0].UserID)
	assert.Equal(t, int64(50), fresh[0].Points)
}

func TestLeaderboard_AwardDuringReadIsNotCached(t *testing.T) {
	cache := newMapCache()
	stg := newFlakyStore()
	f := newFixtureOn(t, stg, func(o *Options) { o.LeaderboardCache = cache })
	ctx := context.Background()

	// The award lands after the ranking was read but before it is cached.
	stg.onTopByRole = func() {
		stg.onTopByRole = nil
		award(t, f, f.volunteer2, 9, 40)
	}

	stale, err := f.svc.Leaderboard().TopVolunteers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stale[0].Points)

	fresh, err := f.svc.Leaderboard().TopVolunteers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, f.volunteer2.ID, fresh[0].UserID)
	assert.Equal(t, int64(40), fresh[0].Points)
}
