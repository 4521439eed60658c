package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"foodshare/pkg/logger"
	"foodshare/pkg/models"
	"foodshare/storage"
)

const donationColumns = `id, donor_id, food_type, description, quantity, lat, lng, address, status,
	receiver_id, delivery_needed, volunteer_id, expiry_time, delivered_at, created_at, updated_at`

type donationRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewDonationRepo(db *pgxpool.Pool, log logger.ILogger) storage.IDonationStorage {
	return &donationRepo{db: db, log: log}
}

func scanDonation(row pgx.Row) (*models.Donation, error) {
	var d models.Donation
	err := row.Scan(
		&d.ID, &d.DonorID, &d.FoodType, &d.Description, &d.Quantity,
		&d.Location.Lat, &d.Location.Lng, &d.Location.Address, &d.Status,
		&d.ReceiverID, &d.DeliveryNeeded, &d.VolunteerID, &d.ExpiryTime, &d.DeliveredAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *donationRepo) Create(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	query := `
		INSERT INTO donations (donor_id, food_type, description, quantity, lat, lng, address, status, expiry_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + donationColumns
	d, err := scanDonation(r.db.QueryRow(ctx, query,
		donation.DonorID,
		donation.FoodType,
		donation.Description,
		donation.Quantity,
		donation.Location.Lat,
		donation.Location.Lng,
		donation.Location.Address,
		string(donation.Status),
		donation.ExpiryTime,
	))
	if err != nil {
		r.log.Error("failed to create donation", logger.Error(err))
		return nil, err
	}
	return d, nil
}

func (r *donationRepo) GetByID(ctx context.Context, id int64) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	d, err := scanDonation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get donation by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return d, nil
}

func (r *donationRepo) UpdateDetails(ctx context.Context, donation *models.Donation) (*models.Donation, error) {
	query := `
		UPDATE donations
		SET food_type = $2, description = $3, quantity = $4, lat = $5, lng = $6, address = $7,
		    expiry_time = $8, updated_at = NOW()
		WHERE id = $1 AND status = 'available'
		RETURNING ` + donationColumns
	d, err := scanDonation(r.db.QueryRow(ctx, query,
		donation.ID,
		donation.FoodType,
		donation.Description,
		donation.Quantity,
		donation.Location.Lat,
		donation.Location.Lng,
		donation.Location.Address,
		donation.ExpiryTime,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMiss(ctx, donation.ID)
		}
		r.log.Error("failed to update donation", logger.Int64("id", donation.ID), logger.Error(err))
		return nil, err
	}
	return d, nil
}

// Transition is the single compare-and-set write path for lifecycle changes.
func (r *donationRepo) Transition(ctx context.Context, id int64, change models.StatusChange) (*models.Donation, error) {
	query := `
		UPDATE donations
		SET status = $2,
		    receiver_id = CASE WHEN $3::boolean THEN NULL ELSE COALESCE($4, receiver_id) END,
		    delivery_needed = COALESCE($5, delivery_needed),
		    volunteer_id = COALESCE($6, volunteer_id),
		    delivered_at = CASE WHEN $2 = 'delivered' THEN NOW() ELSE delivered_at END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = $7
		  AND (NOT $8::boolean OR volunteer_id IS NULL)
		  AND ($9::timestamptz IS NULL OR expiry_time > $9)
		RETURNING ` + donationColumns
	d, err := scanDonation(r.db.QueryRow(ctx, query,
		id,
		string(change.To),
		change.ClearReceiver,
		change.ReceiverID,
		change.DeliveryNeeded,
		change.VolunteerID,
		string(change.From),
		change.RequireNoVolunteer,
		change.NotExpiredAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifyMiss(ctx, id)
		}
		r.log.Error("failed to transition donation",
			logger.Int64("id", id),
			logger.String("from", string(change.From)),
			logger.String("to", string(change.To)),
			logger.Error(err),
		)
		return nil, err
	}
	return d, nil
}

func (r *donationRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, "DELETE FROM donations WHERE id = $1 AND status = 'available'", id)
	if err != nil {
		r.log.Error("failed to delete donation", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id)
	}
	return nil
}

// classifyMiss tells a missing row apart from one whose state moved on.
func (r *donationRepo) classifyMiss(ctx context.Context, id int64) error {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM donations WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrStale
}

func (r *donationRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx,
		"UPDATE donations SET status = 'cancelled', updated_at = NOW() WHERE status = 'available' AND expiry_time <= $1",
		now,
	)
	if err != nil {
		r.log.Error("failed to expire stale donations", logger.Error(err))
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (r *donationRepo) GetAvailable(ctx context.Context, now time.Time) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE status = 'available' AND expiry_time > $1
		ORDER BY created_at DESC, id DESC`
	return r.scanDonations(ctx, query, now)
}

func (r *donationRepo) GetRecent(ctx context.Context, limit int) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations ORDER BY created_at DESC, id DESC LIMIT $1`
	return r.scanDonations(ctx, query, limit)
}

func (r *donationRepo) GetDonorDonations(ctx context.Context, donorID int64) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE donor_id = $1 ORDER BY created_at DESC, id DESC`
	return r.scanDonations(ctx, query, donorID)
}

func (r *donationRepo) GetReceiverDonations(ctx context.Context, receiverID int64) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE receiver_id = $1 ORDER BY created_at DESC, id DESC`
	return r.scanDonations(ctx, query, receiverID)
}

func (r *donationRepo) GetVolunteerTasks(ctx context.Context, volunteerID int64) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + `
		FROM donations
		WHERE volunteer_id = $1
		   OR (volunteer_id IS NULL AND status = 'claimed' AND delivery_needed)
		ORDER BY created_at DESC, id DESC`
	return r.scanDonations(ctx, query, volunteerID)
}

func (r *donationRepo) GetDelivered(ctx context.Context) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE status = 'delivered' ORDER BY id ASC`
	return r.scanDonations(ctx, query)
}

func (r *donationRepo) scanDonations(ctx context.Context, query string, args ...interface{}) ([]*models.Donation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to query donations", logger.Error(err))
		return nil, err
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}
