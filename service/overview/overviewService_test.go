package overview

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bikerental/model"
	bikerepo "bikerental/repository/bike"
	rrepo "bikerental/repository/rental"
	settingssvc "bikerental/service/settings"
)

type bikeRepoMock struct {
	bikerepo.Repo
	counts  map[model.BikeStatus]int64
	byIDsFn func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error)
}

func (m *bikeRepoMock) CountByStatus(ctx context.Context, hotelID int64, status model.BikeStatus) (int64, error) {
	return m.counts[status], nil
}

func (m *bikeRepoMock) ByIDs(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
	return m.byIDsFn(ctx, hotelID, ids)
}

type rentalRepoMock struct {
	rrepo.Repo
	listFn  func(ctx context.Context, hotelID int64) ([]model.Rental, error)
	itemsFn func(ctx context.Context, rentalIDs []int64) ([]model.RentalItem, error)
}

func (m *rentalRepoMock) ListInFlight(ctx context.Context, hotelID int64) ([]model.Rental, error) {
	return m.listFn(ctx, hotelID)
}

func (m *rentalRepoMock) ItemsByRentalIDs(ctx context.Context, rentalIDs []int64) ([]model.RentalItem, error) {
	return m.itemsFn(ctx, rentalIDs)
}

type settingsMock struct {
	settingssvc.Service
	grace int
}

func (m *settingsMock) GraceMinutes(context.Context, int64) (int, error) { return m.grace, nil }

func TestGet_LiveOverdueAndOrdering(t *testing.T) {
	now := time.Now()

	br := &bikeRepoMock{
		counts: map[model.BikeStatus]int64{
			model.BikeAvailable:  5,
			model.BikeRented:     2,
			model.BikeOutOfOrder: 1,
		},
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{
				{ID: 10, Number: "10"},
				{ID: 11, Number: "11"},
				{ID: 12, Number: "12"},
			}, nil
		},
	}
	rr := &rentalRepoMock{
		listFn: func(ctx context.Context, hotelID int64) ([]model.Rental, error) {
			return []model.Rental{
				// Due tomorrow; stays ACTIVE.
				{ID: 1, Status: model.RentalActive, DueAt: now.Add(24 * time.Hour), RoomNumber: "101"},
				// Persisted ACTIVE but past due; must surface as OVERDUE.
				{ID: 2, Status: model.RentalActive, DueAt: now.Add(-2 * time.Hour), RoomNumber: "202"},
			}, nil
		},
		itemsFn: func(ctx context.Context, rentalIDs []int64) ([]model.RentalItem, error) {
			return []model.RentalItem{
				{ID: 100, RentalID: 1, BikeID: 10, Status: model.ItemRented},
				{ID: 101, RentalID: 2, BikeID: 11, Status: model.ItemRented},
				{ID: 102, RentalID: 2, BikeID: 12, Status: model.ItemReturned},
			}, nil
		},
	}

	svc := New(br, rr, &settingsMock{grace: 0})

	out, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	require.Equal(t, int64(5), out.BikesAvailable)
	require.Equal(t, int64(2), out.BikesRented)
	require.Equal(t, int64(1), out.BikesOutOfOrder)
	require.Equal(t, 1, out.RentalsActive)
	require.Equal(t, 1, out.RentalsOverdue)

	require.Len(t, out.ActiveRentals, 2)
	// Overdue sorts ahead of the later-due active rental.
	require.Equal(t, int64(2), out.ActiveRentals[0].RentalID)
	require.Equal(t, model.RentalOverdue, out.ActiveRentals[0].Status)
	require.Equal(t, []string{"11"}, out.ActiveRentals[0].BikeNumbers)
	require.Equal(t, 1, out.ActiveRentals[0].OpenItems)
	require.Equal(t, 2, out.ActiveRentals[0].TotalItems)

	require.Equal(t, int64(1), out.ActiveRentals[1].RentalID)
	require.Equal(t, model.RentalActive, out.ActiveRentals[1].Status)
}

func TestGet_GraceKeepsRentalActive(t *testing.T) {
	now := time.Now()

	br := &bikeRepoMock{
		counts: map[model.BikeStatus]int64{},
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{{ID: 10, Number: "10"}}, nil
		},
	}
	rr := &rentalRepoMock{
		listFn: func(ctx context.Context, hotelID int64) ([]model.Rental, error) {
			// 10 minutes past due, inside a 30 minute grace window.
			return []model.Rental{
				{ID: 1, Status: model.RentalActive, DueAt: now.Add(-10 * time.Minute)},
			}, nil
		},
		itemsFn: func(ctx context.Context, rentalIDs []int64) ([]model.RentalItem, error) {
			return []model.RentalItem{
				{ID: 100, RentalID: 1, BikeID: 10, Status: model.ItemRented},
			}, nil
		},
	}

	svc := New(br, rr, &settingsMock{grace: 30})

	out, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, out.RentalsActive)
	require.Equal(t, 0, out.RentalsOverdue)
	require.Equal(t, model.RentalActive, out.ActiveRentals[0].Status)
}

func TestGet_NoInFlightRentals(t *testing.T) {
	br := &bikeRepoMock{counts: map[model.BikeStatus]int64{model.BikeAvailable: 3}}
	rr := &rentalRepoMock{
		listFn: func(ctx context.Context, hotelID int64) ([]model.Rental, error) { return nil, nil },
	}

	svc := New(br, rr, &settingsMock{})

	out, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), out.BikesAvailable)
	require.Empty(t, out.ActiveRentals)
}
