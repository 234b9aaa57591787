package rental

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"bikerental/model"
)

const rentalColumns = `rental_id, hotel_id, status, start_at, due_at, return_at,
	room_number, bed_number, tnc_version, signature_id, created_at`

const itemColumns = `rental_item_id, rental_id, bike_id, status, returned_at, lost_reason`

// Repo persists rentals and their items. Lookups return (nil, nil) when no
// row matches the hotel-scoped filter. Tx-taking methods run inside the
// caller's transaction; the service owns commit/rollback.
type Repo interface {
	Insert(ctx context.Context, tx *sqlx.Tx, r *model.Rental) (int64, error)
	InsertItem(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error)

	ByID(ctx context.Context, hotelID, rentalID int64) (*model.Rental, error)
	ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error)
	Items(ctx context.Context, rentalID int64) ([]model.RentalItem, error)
	ItemsTx(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error)
	ItemsByRentalIDs(ctx context.Context, rentalIDs []int64) ([]model.RentalItem, error)

	UpdateItem(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) error
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error

	ListInFlight(ctx context.Context, hotelID int64) ([]model.Rental, error)
	MarkOverdueDue(ctx context.Context, now time.Time) (int64, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db: db} }

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, m *model.Rental) (int64, error) {
	const q = `
		INSERT INTO rentals (hotel_id, status, start_at, due_at, room_number, bed_number, tnc_version, signature_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING rental_id`
	var id int64
	err := tx.QueryRowxContext(ctx, q,
		m.HotelID, m.Status, m.StartAt, m.DueAt, m.RoomNumber, m.BedNumber, m.TncVersion, m.SignatureID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) InsertItem(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
	const q = `
		INSERT INTO rental_items (rental_id, bike_id, status)
		VALUES ($1, $2, $3)
		RETURNING rental_item_id`
	var id int64
	if err := tx.QueryRowxContext(ctx, q, item.RentalID, item.BikeID, item.Status).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ByID(ctx context.Context, hotelID, rentalID int64) (*model.Rental, error) {
	const q = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE hotel_id = $1 AND rental_id = $2`
	return scanRental(r.db.QueryRowxContext(ctx, q, hotelID, rentalID))
}

// ByIDForUpdate locks the rental row so concurrent mutations of the same
// contract serialize.
func (r *repo) ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
	const q = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE hotel_id = $1 AND rental_id = $2
		FOR UPDATE`
	return scanRental(tx.QueryRowxContext(ctx, q, hotelID, rentalID))
}

func (r *repo) Items(ctx context.Context, rentalID int64) ([]model.RentalItem, error) {
	const q = `
		SELECT ` + itemColumns + `
		FROM rental_items
		WHERE rental_id = $1
		ORDER BY rental_item_id`
	var out []model.RentalItem
	if err := r.db.SelectContext(ctx, &out, q, rentalID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) ItemsTx(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
	const q = `
		SELECT ` + itemColumns + `
		FROM rental_items
		WHERE rental_id = $1
		ORDER BY rental_item_id`
	var out []model.RentalItem
	if err := tx.SelectContext(ctx, &out, q, rentalID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) ItemsByRentalIDs(ctx context.Context, rentalIDs []int64) ([]model.RentalItem, error) {
	if len(rentalIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+itemColumns+`
		FROM rental_items
		WHERE rental_id IN (?)
		ORDER BY rental_item_id`, rentalIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var out []model.RentalItem
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) UpdateItem(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) error {
	const q = `
		UPDATE rental_items
		SET status = $2,
		    returned_at = $3,
		    lost_reason = $4
		WHERE rental_item_id = $1`
	_, err := tx.ExecContext(ctx, q, item.ID, item.Status, item.ReturnedAt, item.LostReason)
	return err
}

func (r *repo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
	const q = `
		UPDATE rentals
		SET status = $2,
		    return_at = $3
		WHERE rental_id = $1`
	_, err := tx.ExecContext(ctx, q, rentalID, status, returnAt)
	return err
}

// ListInFlight returns ACTIVE and OVERDUE rentals; urgency ordering is
// applied by the overview service after live-status computation.
func (r *repo) ListInFlight(ctx context.Context, hotelID int64) ([]model.Rental, error) {
	const q = `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE hotel_id = $1 AND status IN ('ACTIVE', 'OVERDUE')
		ORDER BY due_at ASC, rental_id ASC`
	var out []model.Rental
	if err := r.db.SelectContext(ctx, &out, q, hotelID); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkOverdueDue flips ACTIVE rentals whose grace-adjusted deadline has
// passed. Runs in its own statement; used by the background sweeper.
func (r *repo) MarkOverdueDue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE rentals r
		SET status = 'OVERDUE'
		FROM (
			SELECT r2.rental_id
			FROM rentals r2
			LEFT JOIN hotel_settings s ON s.hotel_id = r2.hotel_id
			WHERE r2.status = 'ACTIVE'
			  AND r2.due_at + make_interval(mins => COALESCE(s.grace_minutes, 0)) < $1
		) due
		WHERE r.rental_id = due.rental_id`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRental(row *sqlx.Row) (*model.Rental, error) {
	var m model.Rental
	if err := row.StructScan(&m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
