package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

type pointRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewPointRepo(db *pgxpool.Pool, log logger.ILogger) storage.IPointStorage {
	return &pointRepo{db: db, log: log}
}

func (r *pointRepo) Award(ctx context.Context, award *models.PointAward) (credited bool, err error) {
	err = pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `
			INSERT INTO point_awards (user_id, donation_id, reason, amount)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (donation_id, reason) DO NOTHING`,
			award.UserID, award.DonationID, string(award.Reason), award.Amount,
		)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return nil
		}

		res, err = tx.Exec(ctx, "UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2", award.Amount, award.UserID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		credited = true
		return nil
	})
	if err != nil {
		r.log.Error("failed to award points",
			logger.Int64("user_id", award.UserID),
			logger.Int64("donation_id", award.DonationID),
			logger.String("reason", string(award.Reason)),
			logger.Error(err),
		)
		return false, err
	}
	return credited, nil
}

func (r *pointRepo) GetByUser(ctx context.Context, userID int64) ([]*models.PointAward, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, donation_id, reason, amount, created_at
		FROM point_awards
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []*models.PointAward
	for rows.Next() {
		var a models.PointAward
		if err := rows.Scan(&a.UserID, &a.DonationID, &a.Reason, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		awards = append(awards, &a)
	}
	return awards, rows.Err()
}
