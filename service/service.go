package service

import (
	"time"

	"foodshare/config"
	"foodshare/pkg/geocode"
	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

type IServiceManager interface {
	User() UserService
	Donation() DonationService
	Notification() NotificationService
	Points() PointsService
	Leaderboard() LeaderboardService
}

// Options carries policy and collaborators shared by the services.
// Zero values fall back to the documented defaults.
type Options struct {
	SelfDeliveryPolicy      string
	VolunteerDeliveryPoints int64
	DonorCompletionPoints   int64
	DefaultExpiry           time.Duration
	// FallbackLocation is used when neither the geocoder nor the donor's
	// profile can place a donation.
	FallbackLocation models.Location

	Geocoder         geocode.Geocoder
	Pusher           Pusher
	LeaderboardCache LeaderboardCache

	Now func() time.Time
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		SelfDeliveryPolicy:      cfg.SelfDeliveryPolicy,
		VolunteerDeliveryPoints: cfg.VolunteerDeliveryPoints,
		DonorCompletionPoints:   cfg.DonorCompletionPoints,
		DefaultExpiry:           time.Duration(cfg.DefaultExpiryHours) * time.Hour,
		FallbackLocation:        models.Location{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng},
	}
}

func (o Options) withDefaults() Options {
	if o.SelfDeliveryPolicy == "" {
		o.SelfDeliveryPolicy = config.SelfDeliveryDirect
	}
	if o.VolunteerDeliveryPoints <= 0 {
		o.VolunteerDeliveryPoints = 50
	}
	if o.DonorCompletionPoints <= 0 {
		o.DonorCompletionPoints = 20
	}
	if o.DefaultExpiry <= 0 {
		o.DefaultExpiry = 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type service struct {
	userService         UserService
	donationService     DonationService
	notificationService NotificationService
	pointsService       PointsService
	leaderboardService  LeaderboardService
}

func New(stg storage.IStorage, log logger.ILogger, opts Options) IServiceManager {
	opts = opts.withDefaults()

	notifications := NewNotificationService(stg, log, opts.Pusher)
	points := NewPointsService(stg, log, opts)
	users := NewUserService(stg, log)

	return &service{
		userService:         users,
		donationService:     NewDonationService(stg, log, notifications, points, opts),
		notificationService: notifications,
		pointsService:       points,
		leaderboardService:  NewLeaderboardService(stg, log, opts.LeaderboardCache),
	}
}

func (s *service) User() UserService {
	return s.userService
}

func (s *service) Donation() DonationService {
	return s.donationService
}

func (s *service) Notification() NotificationService {
	return s.notificationService
}

func (s *service) Points() PointsService {
	return s.pointsService
}

func (s *service) Leaderboard() LeaderboardService {
	return s.leaderboardService
}
