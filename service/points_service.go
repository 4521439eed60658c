package service

import (
	"context"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
	"foodshare/pkg/metrics"
	"foodshare/pkg/models"
	"foodshare/storage"
)

type PointsService interface {
	// Award credits the user once per (donation, reason); repeats are no-ops.
	Award(ctx context.Context, award models.PointAward) (bool, error)
	// AwardDelivery applies the fixed schedule for a delivered donation.
	AwardDelivery(ctx context.Context, donation *models.Donation) error
	// Reconcile replays AwardDelivery for every delivered donation.
	Reconcile(ctx context.Context) (int, error)
	History(ctx context.Context, userID int64) ([]*models.PointAward, error)
}

type pointsService struct {
	stg       storage.IPointStorage
	donations storage.IDonationStorage
	cache     LeaderboardCache
	log       logger.ILogger

	volunteerPoints int64
	donorPoints     int64
}

func NewPointsService(stg storage.IStorage, log logger.ILogger, opts Options) PointsService {
	opts = opts.withDefaults()
	return &pointsService{
		stg:             stg.Point(),
		donations:       stg.Donation(),
		cache:           opts.LeaderboardCache,
		log:             log,
		volunteerPoints: opts.VolunteerDeliveryPoints,
		donorPoints:     opts.DonorCompletionPoints,
	}
}

func (s *pointsService) Award(ctx context.Context, award models.PointAward) (bool, error) {
	if award.Amount <= 0 {
		return false, errs.NewValidationError("amount", "must be positive")
	}
	credited, err := s.stg.Award(ctx, &award)
	if err != nil {
		return false, err
	}
	if !credited {
		s.log.Debug("points already awarded",
			logger.Int64("donation_id", award.DonationID),
			logger.String("reason", string(award.Reason)),
		)
		return false, nil
	}

	metrics.RecordPoints(string(award.Reason), award.Amount)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warning("leaderboard cache invalidation failed", logger.Error(err))
		}
	}
	s.log.Info("points awarded",
		logger.Int64("user_id", award.UserID),
		logger.Int64("donation_id", award.DonationID),
		logger.String("reason", string(award.Reason)),
		logger.Int64("amount", award.Amount),
	)
	return true, nil
}

// AwardDelivery credits the donor for the completed donation and, when a
// third-party volunteer carried it, the volunteer for the delivery.
func (s *pointsService) AwardDelivery(ctx context.Context, d *models.Donation) error {
	if d.Status != models.StatusDelivered {
		return errs.NewInvalidStateError(string(d.Status), "award points for")
	}

	var firstErr error
	_, err := s.Award(ctx, models.PointAward{
		UserID:     d.DonorID,
		DonationID: d.ID,
		Reason:     models.ReasonDonation,
		Amount:     s.donorPoints,
	})
	if err != nil {
		firstErr = err
	}

	if d.VolunteerID != nil && !d.SelfDelivery() {
		_, err = s.Award(ctx, models.PointAward{
			UserID:     *d.VolunteerID,
			DonationID: d.ID,
			Reason:     models.ReasonDelivery,
			Amount:     s.volunteerPoints,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *pointsService) Reconcile(ctx context.Context) (int, error) {
	delivered, err := s.donations.GetDelivered(ctx)
	if err != nil {
		return 0, err
	}
	failed := 0
	for _, d := range delivered {
		if err := s.AwardDelivery(ctx, d); err != nil {
			failed++
			s.log.Error("reconcile award failed", logger.Int64("donation_id", d.ID), logger.Error(err))
		}
	}
	s.log.Info("points reconciled", logger.Int("donations", len(delivered)), logger.Int("failed", failed))
	return len(delivered), nil
}

func (s *pointsService) History(ctx context.Context, userID int64) ([]*models.PointAward, error) {
	awards, err := s.stg.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if awards == nil {
		awards = []*models.PointAward{}
	}
	return awards, nil
}
