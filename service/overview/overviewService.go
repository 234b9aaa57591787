// Package overview assembles the front-desk dashboard: fleet counts plus
// every in-flight rental with live overdue detection.
package overview

import (
	"context"
	"sort"
	"time"

	"bikerental/model"
	bikerepo "bikerental/repository/bike"
	rrepo "bikerental/repository/rental"
	settingssvc "bikerental/service/settings"
)

// RentalSummary is one dashboard row. Status here is computed against the
// clock at request time, so a rental can show OVERDUE before the sweeper has
// persisted it.
type RentalSummary struct {
	RentalID    int64              `json:"id"`
	Status      model.RentalStatus `json:"status"`
	RoomNumber  string             `json:"room_number"`
	BedNumber   *string            `json:"bed_number,omitempty"`
	StartAt     time.Time          `json:"start_at"`
	DueAt       time.Time          `json:"due_at"`
	BikeNumbers []string           `json:"bike_numbers"`
	OpenItems   int                `json:"open_items"`
	TotalItems  int                `json:"total_items"`
}

type Overview struct {
	BikesAvailable  int64           `json:"bikes_available"`
	BikesRented     int64           `json:"bikes_rented"`
	BikesOutOfOrder int64           `json:"bikes_out_of_order"`
	RentalsActive   int             `json:"rentals_active"`
	RentalsOverdue  int             `json:"rentals_overdue"`
	ActiveRentals   []RentalSummary `json:"active_rentals"`
}

type Service interface {
	Get(ctx context.Context, hotelID int64) (*Overview, error)
}

type service struct {
	br  bikerepo.Repo
	rr  rrepo.Repo
	set settingssvc.Service
}

func New(br bikerepo.Repo, rr rrepo.Repo, set settingssvc.Service) Service {
	return &service{br: br, rr: rr, set: set}
}

func (s *service) Get(ctx context.Context, hotelID int64) (*Overview, error) {
	out := &Overview{ActiveRentals: []RentalSummary{}}

	var err error
	if out.BikesAvailable, err = s.br.CountByStatus(ctx, hotelID, model.BikeAvailable); err != nil {
		return nil, err
	}
	if out.BikesRented, err = s.br.CountByStatus(ctx, hotelID, model.BikeRented); err != nil {
		return nil, err
	}
	if out.BikesOutOfOrder, err = s.br.CountByStatus(ctx, hotelID, model.BikeOutOfOrder); err != nil {
		return nil, err
	}

	rentals, err := s.rr.ListInFlight(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	if len(rentals) == 0 {
		return out, nil
	}

	rentalIDs := make([]int64, 0, len(rentals))
	for _, r := range rentals {
		rentalIDs = append(rentalIDs, r.ID)
	}
	items, err := s.rr.ItemsByRentalIDs(ctx, rentalIDs)
	if err != nil {
		return nil, err
	}
	itemsByRental := make(map[int64][]model.RentalItem, len(rentals))
	bikeIDs := make([]int64, 0, len(items))
	for _, it := range items {
		itemsByRental[it.RentalID] = append(itemsByRental[it.RentalID], it)
		bikeIDs = append(bikeIDs, it.BikeID)
	}

	bikes, err := s.br.ByIDs(ctx, hotelID, bikeIDs)
	if err != nil {
		return nil, err
	}
	numberByBikeID := make(map[int64]string, len(bikes))
	for _, b := range bikes {
		numberByBikeID[b.ID] = b.Number
	}

	grace, err := s.set.GraceMinutes(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	now := time.Now()

	for _, r := range rentals {
		sum := RentalSummary{
			RentalID:    r.ID,
			Status:      liveStatus(r, itemsByRental[r.ID], grace, now),
			RoomNumber:  r.RoomNumber,
			BedNumber:   r.BedNumber,
			StartAt:     r.StartAt,
			DueAt:       r.DueAt,
			BikeNumbers: []string{},
			TotalItems:  len(itemsByRental[r.ID]),
		}
		for _, it := range itemsByRental[r.ID] {
			if it.Status != model.ItemRented {
				continue
			}
			sum.OpenItems++
			if n, ok := numberByBikeID[it.BikeID]; ok {
				sum.BikeNumbers = append(sum.BikeNumbers, n)
			}
		}

		switch sum.Status {
		case model.RentalOverdue:
			out.RentalsOverdue++
		case model.RentalActive:
			out.RentalsActive++
		case model.RentalClosed:
			// Converged between the list query and the item query. Skip it.
			continue
		}
		out.ActiveRentals = append(out.ActiveRentals, sum)
	}

	// Overdue first, then soonest due.
	sort.SliceStable(out.ActiveRentals, func(i, j int) bool {
		a, b := out.ActiveRentals[i], out.ActiveRentals[j]
		if (a.Status == model.RentalOverdue) != (b.Status == model.RentalOverdue) {
			return a.Status == model.RentalOverdue
		}
		return a.DueAt.Before(b.DueAt)
	})
	return out, nil
}

func liveStatus(r model.Rental, items []model.RentalItem, graceMinutes int, now time.Time) model.RentalStatus {
	hasRented := false
	for _, it := range items {
		if it.Status == model.ItemRented {
			hasRented = true
			break
		}
	}
	if !hasRented && len(items) > 0 {
		return model.RentalClosed
	}
	if now.After(r.DueAt.Add(time.Duration(graceMinutes) * time.Minute)) {
		return model.RentalOverdue
	}
	return model.RentalActive
}
