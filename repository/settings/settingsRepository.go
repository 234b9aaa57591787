package settings

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"bikerental/model"
)

type Repo interface {
	ByHotelID(ctx context.Context, hotelID int64) (*model.HotelSettings, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db: db} }

func (r *repo) ByHotelID(ctx context.Context, hotelID int64) (*model.HotelSettings, error) {
	const q = `
		SELECT settings_id, hotel_id, grace_minutes, rental_duration_options, tnc_text, tnc_version
		FROM hotel_settings
		WHERE hotel_id = $1`
	var s model.HotelSettings
	if err := r.db.QueryRowxContext(ctx, q, hotelID).StructScan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}
