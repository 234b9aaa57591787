// Package bikesvc manages the bike inventory: status transitions and
// hotel-scoped listing with the fleet's numeric ordering rules.
package bikesvc

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"bikerental/model"
	bikerepo "bikerental/repository/bike"
	"bikerental/util/apperr"
)

type Repo interface {
	List(ctx context.Context, hotelID int64, status *model.BikeStatus, search string) ([]model.Bike, error)
	ByNumber(ctx context.Context, hotelID int64, number string) (*model.Bike, error)
	ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error)
	SetOutOfOrder(ctx context.Context, tx *sqlx.Tx, bikeID int64, note string, since time.Time) error
	SetAvailable(ctx context.Context, tx *sqlx.Tx, bikeID int64) error
}

var _ Repo = (bikerepo.Repo)(nil)

type Service interface {
	List(ctx context.Context, hotelID int64, status *model.BikeStatus, search string) ([]model.Bike, error)
	FindByNumber(ctx context.Context, hotelID int64, number string) (*model.Bike, error)
	MarkOutOfOrder(ctx context.Context, hotelID, bikeID int64, note string) (*model.Bike, error)
	MarkAvailable(ctx context.Context, hotelID, bikeID int64) (*model.Bike, error)
}

type service struct {
	db *sqlx.DB
	r  Repo
}

func New(db *sqlx.DB, r Repo) Service { return &service{db: db, r: r} }

// List returns the hotel's bikes. Out-of-order listings sort oldest
// ooo_since first (nulls last) to prioritize maintenance; everything else
// sorts by bike number as a numeric value.
func (s *service) List(ctx context.Context, hotelID int64, status *model.BikeStatus, search string) ([]model.Bike, error) {
	bikes, err := s.r.List(ctx, hotelID, status, search)
	if err != nil {
		return nil, err
	}

	if status != nil && *status == model.BikeOutOfOrder {
		SortOutOfOrder(bikes)
	} else {
		SortByNumber(bikes)
	}
	return bikes, nil
}

func (s *service) FindByNumber(ctx context.Context, hotelID int64, number string) (*model.Bike, error) {
	b, err := s.r.ByNumber(ctx, hotelID, number)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperr.NotFound("bike not found: %s", number)
	}
	return b, nil
}

// MarkOutOfOrder always succeeds regardless of the bike's current status;
// marking a checked-out bike broken pre-empts its next rental but leaves any
// in-flight rental item untouched.
func (s *service) MarkOutOfOrder(ctx context.Context, hotelID, bikeID int64, note string) (b *model.Bike, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err = s.r.ByIDForUpdate(ctx, tx, hotelID, bikeID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		err = apperr.NotFound("bike not found: %d", bikeID)
		return nil, err
	}

	now := time.Now()
	if err = s.r.SetOutOfOrder(ctx, tx, b.ID, note, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	b.Status = model.BikeOutOfOrder
	b.OOONote = &note
	b.OOOSince = &now
	return b, nil
}

// MarkAvailable fails on a RENTED bike (the return/loss flow owns that
// transition) and is a no-op success when already AVAILABLE.
func (s *service) MarkAvailable(ctx context.Context, hotelID, bikeID int64) (b *model.Bike, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	b, err = s.r.ByIDForUpdate(ctx, tx, hotelID, bikeID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		err = apperr.NotFound("bike not found: %d", bikeID)
		return nil, err
	}
	if b.Status == model.BikeRented {
		err = apperr.Conflict("cannot mark bike as available: bike is currently rented")
		return nil, err
	}

	if err = s.r.SetAvailable(ctx, tx, b.ID); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	b.Status = model.BikeAvailable
	b.OOONote = nil
	b.OOOSince = nil
	return b, nil
}

// SortByNumber orders bikes by bike number compared as integers, so "9"
// comes before "10". Non-numeric numbers sort after numeric ones,
// lexicographically among themselves.
func SortByNumber(bikes []model.Bike) {
	sort.SliceStable(bikes, func(i, j int) bool {
		return numberLess(bikes[i].Number, bikes[j].Number)
	})
}

// SortOutOfOrder orders by ooo_since ascending with nulls last, then by
// numeric bike number.
func SortOutOfOrder(bikes []model.Bike) {
	sort.SliceStable(bikes, func(i, j int) bool {
		a, b := bikes[i].OOOSince, bikes[j].OOOSince
		switch {
		case a == nil && b == nil:
			return numberLess(bikes[i].Number, bikes[j].Number)
		case a == nil:
			return false
		case b == nil:
			return true
		case a.Equal(*b):
			return numberLess(bikes[i].Number, bikes[j].Number)
		default:
			return a.Before(*b)
		}
	})
}

func numberLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}
