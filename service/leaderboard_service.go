package service

import (
	"context"
	"fmt"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// LeaderboardCache holds rendered rankings between point awards.
// Invalidate bumps Generation, so entries computed under an older
// generation are never read again.
type LeaderboardCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string) ([]models.LeaderboardEntry, bool, error)
	Set(ctx context.Context, key string, entries []models.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

type LeaderboardService interface {
	TopVolunteers(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
	TopDonors(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
	Board(ctx context.Context, n int) (*models.Leaderboard, error)
}

type leaderboardService struct {
	users storage.IUserStorage
	cache LeaderboardCache
	log   logger.ILogger
}

func NewLeaderboardService(stg storage.IStorage, log logger.ILogger, cache LeaderboardCache) LeaderboardService {
	return &leaderboardService{
		users: stg.User(),
		cache: cache,
		log:   log,
	}
}

func (s *leaderboardService) TopVolunteers(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	return s.top(ctx, models.RoleVolunteer, n)
}

func (s *leaderboardService) TopDonors(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	return s.top(ctx, models.RoleDonor, n)
}

func (s *leaderboardService) Board(ctx context.Context, n int) (*models.Leaderboard, error) {
	volunteers, err := s.TopVolunteers(ctx, n)
	if err != nil {
		return nil, err
	}
	donors, err := s.TopDonors(ctx, n)
	if err != nil {
		return nil, err
	}
	return &models.Leaderboard{Volunteers: volunteers, Donors: donors}, nil
}

func (s *leaderboardService) top(ctx context.Context, role models.Role, n int) ([]models.LeaderboardEntry, error) {
	if n <= 0 {
		n = defaultLeaderboardSize
	}
	if n > maxLeaderboardSize {
		n = maxLeaderboardSize
	}

	cache := s.cache
	var key string
	if cache != nil {
		gen, err := cache.Generation(ctx)
		if err != nil {
			s.log.Warning("leaderboard cache generation read failed", logger.Error(err))
			cache = nil
		}
		key = fmt.Sprintf("g%d:%s:%d", gen, role, n)
	}
	if cache != nil {
		entries, ok, err := cache.Get(ctx, key)
		if err != nil {
			s.log.Warning("leaderboard cache read failed", logger.String("key", key), logger.Error(err))
		} else if ok {
			return entries, nil
		}
	}

	users, err := s.users.GetTopByRole(ctx, role, n)
	if err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, models.LeaderboardEntry{
			Rank:   i + 1,
			UserID: u.ID,
			Name:   u.Name,
			Role:   u.Role,
			Points: u.Points,
		})
	}

	if cache != nil {
		if err := cache.Set(ctx, key, entries); err != nil {
			s.log.Warning("leaderboard cache write failed", logger.String("key", key), logger.Error(err))
		}
	}
	return entries, nil
}
