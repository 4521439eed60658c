package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"foodshare/pkg/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStale is returned when a conditional write finds the row no longer
	// in the expected state.
	ErrStale = errors.New("record changed concurrently")
	// ErrDuplicate is returned when a write would break a uniqueness rule.
	ErrDuplicate = errors.New("record already exists")
)

type IStorage interface {
	User() IUserStorage
	Donation() IDonationStorage
	Notification() INotificationStorage
	Point() IPointStorage
	Close()
}

type IUserStorage interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
	SetTelegramID(ctx context.Context, id int64, telegramID int64) error
	// GetTopByRole orders by points descending, then created_at ascending.
	GetTopByRole(ctx context.Context, role models.Role, limit int) ([]*models.User, error)
}

type IDonationStorage interface {
	Create(ctx context.Context, donation *models.Donation) (*models.Donation, error)
	GetByID(ctx context.Context, id int64) (*models.Donation, error)
	// UpdateDetails rewrites the informational payload and location while
	// the donation is still available; ErrStale otherwise.
	UpdateDetails(ctx context.Context, donation *models.Donation) (*models.Donation, error)
	// Transition applies change only if the row is still in change.From.
	Transition(ctx context.Context, id int64, change models.StatusChange) (*models.Donation, error)
	// Delete removes the row only while it is available; ErrStale otherwise.
	Delete(ctx context.Context, id int64) error
	// ExpireStale cancels every available donation whose expiry is at or before now.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	GetAvailable(ctx context.Context, now time.Time) ([]*models.Donation, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Donation, error)
	GetDonorDonations(ctx context.Context, donorID int64) ([]*models.Donation, error)
	GetReceiverDonations(ctx context.Context, receiverID int64) ([]*models.Donation, error)
	// GetVolunteerTasks returns donations assigned to volunteerID plus open
	// delivery tasks (claimed, delivery needed, nobody assigned).
	GetVolunteerTasks(ctx context.Context, volunteerID int64) ([]*models.Donation, error)
	GetDelivered(ctx context.Context) ([]*models.Donation, error)
}

type INotificationStorage interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	GetByRecipient(ctx context.Context, recipientID int64) ([]*models.Notification, error)
	// MarkRead flips is_read to true; marking an already read notification is a no-op.
	MarkRead(ctx context.Context, id uuid.UUID) (*models.Notification, error)
}

type IPointStorage interface {
	// Award records the award and credits the user at most once per
	// (donation_id, reason). It reports whether this call credited the user.
	Award(ctx context.Context, award *models.PointAward) (bool, error)
	GetByUser(ctx context.Context, userID int64) ([]*models.PointAward, error)
}
