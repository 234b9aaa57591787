// Package admin handles the operator-only surface: hotel onboarding and
// password resets.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"bikerental/model"
	bikerepo "bikerental/repository/bike"
	hotelrepo "bikerental/repository/hotel"
	"bikerental/util/apperr"
	"bikerental/util/hash"
)

// CreateHotelParams optionally seeds a numbered fleet so a new hotel is
// usable right after onboarding.
type CreateHotelParams struct {
	Code      string
	Name      string
	Password  string
	FleetSize int
	BikeType  string
}

type Service interface {
	CreateHotel(ctx context.Context, p CreateHotelParams) (*model.Hotel, error)
	ResetPassword(ctx context.Context, hotelID int64, newPassword string) error
	ListHotels(ctx context.Context) ([]model.Hotel, error)
}

type service struct {
	db *sqlx.DB
	hr hotelrepo.Repo
	br bikerepo.Repo
}

func New(db *sqlx.DB, hr hotelrepo.Repo, br bikerepo.Repo) Service {
	return &service{db: db, hr: hr, br: br}
}

func (s *service) CreateHotel(ctx context.Context, p CreateHotelParams) (h *model.Hotel, err error) {
	pwHash, err := hash.HashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	h = &model.Hotel{Code: p.Code, Name: p.Name, PasswordHash: pwHash}
	if _, err = s.hr.Insert(ctx, tx, h); err != nil {
		if isUniqueViolation(err) {
			err = apperr.Conflict("hotel code '%s' already exists", p.Code)
		}
		return nil, err
	}

	for i := 1; i <= p.FleetSize; i++ {
		b := &model.Bike{
			HotelID: h.ID,
			Number:  fmt.Sprintf("%d", i),
			Type:    p.BikeType,
			Status:  model.BikeAvailable,
		}
		if _, err = s.br.Insert(ctx, tx, b); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *service) ResetPassword(ctx context.Context, hotelID int64, newPassword string) error {
	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.hr.UpdatePassword(ctx, hotelID, pwHash)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("hotel not found: %d", hotelID)
	}
	return nil
}

func (s *service) ListHotels(ctx context.Context) ([]model.Hotel, error) {
	return s.hr.List(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
