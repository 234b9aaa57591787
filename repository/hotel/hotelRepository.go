package hotel

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"bikerental/model"
)

const hotelColumns = `hotel_id, hotel_code, hotel_name, password_hash, is_admin, created_at`

type Repo interface {
	ByCode(ctx context.Context, code string) (*model.Hotel, error)
	ByID(ctx context.Context, hotelID int64) (*model.Hotel, error)
	List(ctx context.Context) ([]model.Hotel, error)
	Insert(ctx context.Context, tx *sqlx.Tx, h *model.Hotel) (int64, error)
	UpdatePassword(ctx context.Context, hotelID int64, passwordHash string) (bool, error)
	EnsureAdmin(ctx context.Context, code, name, passwordHash string) error
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db: db} }

func (r *repo) ByCode(ctx context.Context, code string) (*model.Hotel, error) {
	const q = `
		SELECT ` + hotelColumns + `
		FROM hotels
		WHERE hotel_code = $1`
	return scanOne(r.db.QueryRowxContext(ctx, q, code))
}

func (r *repo) ByID(ctx context.Context, hotelID int64) (*model.Hotel, error) {
	const q = `
		SELECT ` + hotelColumns + `
		FROM hotels
		WHERE hotel_id = $1`
	return scanOne(r.db.QueryRowxContext(ctx, q, hotelID))
}

func (r *repo) List(ctx context.Context) ([]model.Hotel, error) {
	const q = `
		SELECT ` + hotelColumns + `
		FROM hotels
		WHERE is_admin = FALSE
		ORDER BY hotel_id`
	var out []model.Hotel
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, h *model.Hotel) (int64, error) {
	const q = `
		INSERT INTO hotels (hotel_code, hotel_name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING hotel_id, created_at`
	if err := tx.QueryRowxContext(ctx, q, h.Code, h.Name, h.PasswordHash).Scan(&h.ID, &h.CreatedAt); err != nil {
		return 0, err
	}
	return h.ID, nil
}

func (r *repo) UpdatePassword(ctx context.Context, hotelID int64, passwordHash string) (bool, error) {
	const q = `
		UPDATE hotels
		SET password_hash = $2
		WHERE hotel_id = $1`
	res, err := r.db.ExecContext(ctx, q, hotelID, passwordHash)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

// EnsureAdmin seeds the admin account once; an existing code wins.
func (r *repo) EnsureAdmin(ctx context.Context, code, name, passwordHash string) error {
	const q = `
		INSERT INTO hotels (hotel_code, hotel_name, password_hash, is_admin)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (hotel_code) DO NOTHING`
	_, err := r.db.ExecContext(ctx, q, code, name, passwordHash)
	return err
}

func scanOne(row *sqlx.Row) (*model.Hotel, error) {
	var h model.Hotel
	if err := row.StructScan(&h); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}
