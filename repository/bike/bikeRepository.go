package bike

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"

	"bikerental/model"
)

const bikeColumns = `bike_id, hotel_id, bike_number, bike_type, status, ooo_note, ooo_since`

// Repo is the bike store. Lookups return (nil, nil) when no row matches the
// hotel-scoped filter; a bike of another hotel is indistinguishable from a
// missing one. Methods taking *sqlx.Tx run inside the caller's transaction.
type Repo interface {
	List(ctx context.Context, hotelID int64, status *model.BikeStatus, search string) ([]model.Bike, error)
	ByNumber(ctx context.Context, hotelID int64, number string) (*model.Bike, error)
	ByIDs(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error)
	CountByStatus(ctx context.Context, hotelID int64, status model.BikeStatus) (int64, error)

	ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error)
	ByNumberForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error)
	SetStatus(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error
	SetOutOfOrder(ctx context.Context, tx *sqlx.Tx, bikeID int64, note string, since time.Time) error
	SetAvailable(ctx context.Context, tx *sqlx.Tx, bikeID int64) error
	Insert(ctx context.Context, tx *sqlx.Tx, b *model.Bike) (int64, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db: db} }

// List builds the filter dynamically; ordering happens in the service layer
// because bike numbers sort numerically, not lexicographically.
func (r *repo) List(ctx context.Context, hotelID int64, status *model.BikeStatus, search string) ([]model.Bike, error) {
	ds := goqu.Dialect("postgres").
		From("bikes").
		Select("bike_id", "hotel_id", "bike_number", "bike_type", "status", "ooo_note", "ooo_since").
		Where(goqu.C("hotel_id").Eq(hotelID))
	if status != nil {
		ds = ds.Where(goqu.C("status").Eq(string(*status)))
	}
	if search != "" {
		ds = ds.Where(goqu.C("bike_number").ILike("%" + search + "%"))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}

	var out []model.Bike
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) ByNumber(ctx context.Context, hotelID int64, number string) (*model.Bike, error) {
	const q = `
		SELECT ` + bikeColumns + `
		FROM bikes
		WHERE hotel_id = $1 AND bike_number = $2`
	return scanOne(r.db.QueryRowxContext(ctx, q, hotelID, number))
}

func (r *repo) ByIDs(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT `+bikeColumns+`
		FROM bikes
		WHERE hotel_id = ? AND bike_id IN (?)`, hotelID, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var out []model.Bike
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) CountByStatus(ctx context.Context, hotelID int64, status model.BikeStatus) (int64, error) {
	const q = `
		SELECT COUNT(*)
		FROM bikes
		WHERE hotel_id = $1 AND status = $2`
	var n int64
	err := r.db.QueryRowxContext(ctx, q, hotelID, status).Scan(&n)
	return n, err
}

// ByIDForUpdate locks the bike row for the rest of the transaction.
func (r *repo) ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
	const q = `
		SELECT ` + bikeColumns + `
		FROM bikes
		WHERE hotel_id = $1 AND bike_id = $2
		FOR UPDATE`
	return scanOne(tx.QueryRowxContext(ctx, q, hotelID, bikeID))
}

// ByNumberForUpdate locks the bike row before the availability check so two
// racing reservations serialize on it.
func (r *repo) ByNumberForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
	const q = `
		SELECT ` + bikeColumns + `
		FROM bikes
		WHERE hotel_id = $1 AND bike_number = $2
		FOR UPDATE`
	return scanOne(tx.QueryRowxContext(ctx, q, hotelID, number))
}

func (r *repo) SetStatus(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
	const q = `
		UPDATE bikes
		SET status = $2
		WHERE bike_id = $1`
	_, err := tx.ExecContext(ctx, q, bikeID, status)
	return err
}

func (r *repo) SetOutOfOrder(ctx context.Context, tx *sqlx.Tx, bikeID int64, note string, since time.Time) error {
	const q = `
		UPDATE bikes
		SET status = 'OUT_OF_ORDER',
		    ooo_note = $2,
		    ooo_since = $3
		WHERE bike_id = $1`
	_, err := tx.ExecContext(ctx, q, bikeID, note, since)
	return err
}

func (r *repo) SetAvailable(ctx context.Context, tx *sqlx.Tx, bikeID int64) error {
	const q = `
		UPDATE bikes
		SET status = 'AVAILABLE',
		    ooo_note = NULL,
		    ooo_since = NULL
		WHERE bike_id = $1`
	_, err := tx.ExecContext(ctx, q, bikeID)
	return err
}

func (r *repo) Insert(ctx context.Context, tx *sqlx.Tx, b *model.Bike) (int64, error) {
	const q = `
		INSERT INTO bikes (hotel_id, bike_number, bike_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING bike_id`
	var id int64
	if err := tx.QueryRowxContext(ctx, q, b.HotelID, b.Number, b.Type, b.Status).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func scanOne(row *sqlx.Row) (*model.Bike, error) {
	var b model.Bike
	if err := row.StructScan(&b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
