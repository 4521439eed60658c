package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

const notificationColumns = `id, recipient_id, donation_id, message, is_read, created_at`

type notificationRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewNotificationRepo(db *pgxpool.Pool, log logger.ILogger) storage.INotificationStorage {
	return &notificationRepo{db: db, log: log}
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(&n.ID, &n.RecipientID, &n.DonationID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	id := n.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	query := `
		INSERT INTO notifications (id, recipient_id, donation_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + notificationColumns
	created, err := scanNotification(r.db.QueryRow(ctx, query, id, n.RecipientID, n.DonationID, n.Message))
	if isUniqueViolation(err) {
		return nil, storage.ErrDuplicate
	}
	if err != nil {
		r.log.Error("failed to create notification", logger.Int64("recipient_id", n.RecipientID), logger.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (r *notificationRepo) GetByRecipient(ctx context.Context, recipientID int64) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, recipientID)
	if err != nil {
		r.log.Error("failed to get notifications", logger.Int64("recipient_id", recipientID), logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 RETURNING ` + notificationColumns
	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to mark notification read", logger.String("id", id.String()), logger.Error(err))
		return nil, err
	}
	return n, nil
}
