package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

const userColumns = `id, name, phone, role, points, lat, lng, address, telegram_id, created_at, updated_at`

type userRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewUserRepo(db *pgxpool.Pool, log logger.ILogger) storage.IUserStorage {
	return &userRepo{db: db, log: log}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u        models.User
		lat, lng *float64
		address  *string
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Phone, &u.Role, &u.Points, &lat, &lng, &address, &u.TelegramID, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		u.Location = &models.Location{Lat: *lat, Lng: *lng}
		if address != nil {
			u.Location.Address = *address
		}
	}
	return &u, nil
}

func locationArgs(l *models.Location) (lat, lng *float64, address *string) {
	if l == nil {
		return nil, nil, nil
	}
	return &l.Lat, &l.Lng, &l.Address
}

func (r *userRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	lat, lng, address := locationArgs(user.Location)
	query := `
		INSERT INTO users (name, phone, role, lat, lng, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, query, user.Name, user.Phone, string(user.Role), lat, lng, address))
	if isUniqueViolation(err) {
		return nil, storage.ErrDuplicate
	}
	if err != nil {
		r.log.Error("failed to create user", logger.Error(err))
		return nil, err
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get user by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return u, nil
}

func (r *userRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get user by phone", logger.Error(err))
		return nil, err
	}
	return u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	lat, lng, address := locationArgs(user.Location)
	query := `
		UPDATE users
		SET name = $2, phone = $3, lat = $4, lng = $5, address = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRow(ctx, query, user.ID, user.Name, user.Phone, lat, lng, address))
	if isUniqueViolation(err) {
		return nil, storage.ErrDuplicate
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to update user", logger.Int64("id", user.ID), logger.Error(err))
		return nil, err
	}
	return u, nil
}

func (r *userRepo) SetTelegramID(ctx context.Context, id int64, telegramID int64) error {
	res, err := r.db.Exec(ctx, "UPDATE users SET telegram_id = $1, updated_at = NOW() WHERE id = $2", telegramID, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *userRepo) GetTopByRole(ctx context.Context, role models.Role, limit int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE role = $1
		ORDER BY points DESC, created_at ASC, id ASC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, string(role), limit)
	if err != nil {
		r.log.Error("failed to get leaderboard", logger.String("role", string(role)), logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
