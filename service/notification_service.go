package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"foodshare/pkg/errs"
	"foodshare/pkg/logger"
	"foodshare/pkg/metrics"
	"foodshare/pkg/models"
	"foodshare/storage"
)

const (
	notifyAttempts = 3
	pushTimeout    = 10 * time.Second
)

// Pusher mirrors a stored notification to an out-of-band channel.
type Pusher interface {
	Push(ctx context.Context, user *models.User, message string) error
}

type NotificationList struct {
	Notifications []*models.Notification `json:"notifications"`
	Unread        int                    `json:"unread"`
}

type NotificationService interface {
	Notify(ctx context.Context, recipientID int64, donationID *int64, message string) (*models.Notification, error)
	ListForUser(ctx context.Context, actor models.Actor, userID int64) (*NotificationList, error)
	MarkRead(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Notification, error)
}

type notificationService struct {
	stg    storage.INotificationStorage
	users  storage.IUserStorage
	pusher Pusher
	log    logger.ILogger
}

func NewNotificationService(stg storage.IStorage, log logger.ILogger, pusher Pusher) NotificationService {
	return &notificationService{
		stg:    stg.Notification(),
		users:  stg.User(),
		pusher: pusher,
		log:    log,
	}
}

// Notify stores the notification, retrying transient failures, then mirrors
// it to the pusher without waiting for the push.
func (s *notificationService) Notify(ctx context.Context, recipientID int64, donationID *int64, message string) (*models.Notification, error) {
	n := &models.Notification{
		ID:          uuid.New(),
		RecipientID: recipientID,
		DonationID:  donationID,
		Message:     message,
	}

	var (
		created *models.Notification
		err     error
	)
	for attempt := 1; ; attempt++ {
		created, err = s.stg.Create(ctx, n)
		if err == nil {
			break
		}
		if attempt > 1 && errors.Is(err, storage.ErrDuplicate) {
			// An earlier attempt committed before its reply was lost.
			created, err = s.stg.GetByID(ctx, n.ID)
			break
		}
		s.log.Warning("notification write failed",
			logger.Int64("recipient_id", recipientID),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if attempt == notifyAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	metrics.RecordNotification("store", err)
	if err != nil {
		return nil, err
	}

	if s.pusher != nil {
		go s.push(recipientID, message)
	}
	return created, nil
}

func (s *notificationService) push(recipientID int64, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	user, err := s.users.GetByID(ctx, recipientID)
	if err != nil || user.TelegramID == nil {
		return
	}
	err = s.pusher.Push(ctx, user, message)
	metrics.RecordNotification("telegram", err)
	if err != nil {
		s.log.Warning("notification push failed", logger.Int64("recipient_id", recipientID), logger.Error(err))
	}
}

func (s *notificationService) ListForUser(ctx context.Context, actor models.Actor, userID int64) (*NotificationList, error) {
	if actor.ID != userID {
		return nil, errs.Forbidden("notifications are private to their recipient")
	}
	list, err := s.stg.GetByRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Notification{}
	}

	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	return &NotificationList{Notifications: list, Unread: unread}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Notification, error) {
	n, err := s.stg.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "notification", id.String())
	}
	if n.RecipientID != actor.ID {
		return nil, errs.Forbidden("notifications are private to their recipient")
	}
	if n.IsRead {
		return n, nil
	}

	n, err = s.stg.MarkRead(ctx, id)
	if err != nil {
		return nil, notFound(err, "notification", id.String())
	}
	return n, nil
}
