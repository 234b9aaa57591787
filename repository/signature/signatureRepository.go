package signature

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"bikerental/model"
)

type Repo interface {
	// Insert runs inside the rental-creation transaction so a failed rental
	// never leaves an orphaned signature.
	Insert(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error)
	ByIDAndHotel(ctx context.Context, signatureID, hotelID int64) (*model.Signature, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error) {
	const q = `
		INSERT INTO signatures (hotel_id, signature_data)
		VALUES ($1, $2)
		RETURNING signature_id`
	var id int64
	if err := tx.QueryRowxContext(ctx, q, s.HotelID, s.Data).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ByIDAndHotel(ctx context.Context, signatureID, hotelID int64) (*model.Signature, error) {
	const q = `
		SELECT signature_id, hotel_id, signature_data, created_at
		FROM signatures
		WHERE signature_id = $1 AND hotel_id = $2`
	var s model.Signature
	if err := r.db.QueryRowxContext(ctx, q, signatureID, hotelID).StructScan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
