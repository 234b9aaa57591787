// Package rental implements the rental lifecycle engine: atomic contract
// creation, per-bike returns and losses, and rental status recomputation.
package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"bikerental/model"
	bikerepo "bikerental/repository/bike"
	rrepo "bikerental/repository/rental"
	sigrepo "bikerental/repository/signature"
	settingssvc "bikerental/service/settings"
	sigsvc "bikerental/service/signature"
	"bikerental/util/apperr"
)

// CreateParams is the contract-creation request after transport decoding.
type CreateParams struct {
	BikeNumbers     []string
	RoomNumber      string
	BedNumber       *string
	DueAt           time.Time
	TncVersion      string
	SignatureBase64 string
}

// ItemDetail is one bike line of a rental, joined with its bike.
type ItemDetail struct {
	ItemID     int64                  `json:"id"`
	BikeID     int64                  `json:"bike_id"`
	BikeNumber string                 `json:"bike_number"`
	BikeType   string                 `json:"bike_type"`
	Status     model.RentalItemStatus `json:"status"`
	ReturnedAt *time.Time             `json:"returned_at,omitempty"`
	LostReason *string                `json:"lost_reason,omitempty"`
}

// Detail is the full contract view.
type Detail struct {
	Rental model.Rental `json:"rental"`
	Items  []ItemDetail `json:"items"`
}

// ReturnResult reports one item transition and the rental status after it.
type ReturnResult struct {
	ItemID       int64                  `json:"item_id"`
	BikeID       int64                  `json:"bike_id"`
	BikeNumber   string                 `json:"bike_number"`
	ItemStatus   model.RentalItemStatus `json:"item_status"`
	ReturnedAt   *time.Time             `json:"returned_at,omitempty"`
	LostReason   *string                `json:"lost_reason,omitempty"`
	RentalStatus model.RentalStatus     `json:"rental_status"`
	RentalClosed bool                   `json:"rental_closed"`
}

// BatchResult reports a selected/all return pass.
type BatchResult struct {
	RentalID      int64              `json:"rental_id"`
	RentalStatus  model.RentalStatus `json:"rental_status"`
	ReturnAt      *time.Time         `json:"return_at,omitempty"`
	ReturnedCount int                `json:"returned_count"`
	Items         []ReturnResult     `json:"items"`
}

type Service interface {
	Create(ctx context.Context, hotelID int64, p CreateParams) (*Detail, error)
	GetDetail(ctx context.Context, hotelID, rentalID int64) (*Detail, error)
	ReturnItem(ctx context.Context, hotelID, rentalID, itemID int64) (*ReturnResult, error)
	ReturnSelected(ctx context.Context, hotelID, rentalID int64, itemIDs []int64) (*BatchResult, error)
	ReturnAll(ctx context.Context, hotelID, rentalID int64) (*BatchResult, error)
	MarkLost(ctx context.Context, hotelID, rentalID, itemID int64, reason *string) (*ReturnResult, error)
	UndoReturn(ctx context.Context, hotelID, rentalID, itemID int64) (*ReturnResult, error)
	AddBike(ctx context.Context, hotelID, rentalID int64, bikeNumber string) (*ItemDetail, error)
}

type service struct {
	db  *sqlx.DB
	rr  rrepo.Repo
	br  bikerepo.Repo
	sr  sigrepo.Repo
	set settingssvc.Service
}

func New(db *sqlx.DB, rr rrepo.Repo, br bikerepo.Repo, sr sigrepo.Repo, set settingssvc.Service) Service {
	return &service{db: db, rr: rr, br: br, sr: sr, set: set}
}

// Create reserves every requested bike or none of them. All availability
// failures are collected before aborting so the caller sees the complete
// list, and nothing is written unless every bike resolves to AVAILABLE.
func (s *service) Create(ctx context.Context, hotelID int64, p CreateParams) (res *Detail, err error) {
	if len(p.BikeNumbers) == 0 {
		return nil, apperr.BadInput("at least one bike is required")
	}
	if !p.DueAt.After(time.Now()) {
		return nil, apperr.BadInput("return date/time must be in the future")
	}
	seen := make(map[string]struct{}, len(p.BikeNumbers))
	for _, n := range p.BikeNumbers {
		if _, dup := seen[n]; dup {
			return nil, apperr.BadInput("duplicate bike number: %s", n)
		}
		seen[n] = struct{}{}
	}

	// Decode before opening the transaction; malformed signatures must not
	// cost a tx.
	sigData, err := sigsvc.Decode(p.SignatureBase64)
	if err != nil {
		return nil, err
	}

	tncVersion := p.TncVersion
	if tncVersion == "" {
		if tncVersion, err = s.set.TncVersion(ctx, hotelID); err != nil {
			return nil, err
		}
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

	bikes, err := s.resolveBikes(ctx, tx, hotelID, p.BikeNumbers)
	if err != nil {
		return nil, err
	}

	sigID, err := s.sr.Insert(ctx, tx, &model.Signature{HotelID: hotelID, Data: sigData})
	if err != nil {
		return nil, err
	}

	rental := &model.Rental{
		HotelID:     hotelID,
		Status:      model.RentalActive,
		StartAt:     time.Now(),
		DueAt:       p.DueAt,
		RoomNumber:  p.RoomNumber,
		BedNumber:   p.BedNumber,
		TncVersion:  tncVersion,
		SignatureID: sigID,
	}
	if rental.ID, err = s.rr.Insert(ctx, tx, rental); err != nil {
		return nil, err
	}

	items := make([]ItemDetail, 0, len(bikes))
	for i := range bikes {
		item := model.RentalItem{RentalID: rental.ID, BikeID: bikes[i].ID, Status: model.ItemRented}
		if item.ID, err = s.rr.InsertItem(ctx, tx, &item); err != nil {
			err = mapRentedBackstop(err, bikes[i].Number)
			return nil, err
		}
		if err = s.br.SetStatus(ctx, tx, bikes[i].ID, model.BikeRented); err != nil {
			return nil, err
		}
		items = append(items, ItemDetail{
			ItemID:     item.ID,
			BikeID:     bikes[i].ID,
			BikeNumber: bikes[i].Number,
			BikeType:   bikes[i].Type,
			Status:     model.ItemRented,
		})
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return &Detail{Rental: *rental, Items: items}, nil
}

// resolveBikes locks every requested bike row and classifies failures,
// collecting all of them before raising a single unavailability error.
func (s *service) resolveBikes(ctx context.Context, tx *sqlx.Tx, hotelID int64, numbers []string) ([]model.Bike, error) {
	bikes := make([]model.Bike, 0, len(numbers))
	var unavailable []apperr.UnavailableBike

	for _, number := range numbers {
		b, err := s.br.ByNumberForUpdate(ctx, tx, hotelID, number)
		if err != nil {
			return nil, err
		}
		switch {
		case b == nil:
			unavailable = append(unavailable, apperr.UnavailableBike{BikeNumber: number, Reason: apperr.ReasonNotFound})
		case b.Status == model.BikeRented:
			unavailable = append(unavailable, apperr.UnavailableBike{BikeNumber: number, Reason: apperr.ReasonAlreadyRented})
		case b.Status == model.BikeOutOfOrder:
			unavailable = append(unavailable, apperr.UnavailableBike{BikeNumber: number, Reason: apperr.ReasonOutOfOrder})
		default:
			bikes = append(bikes, *b)
		}
	}

	if len(unavailable) > 0 {
		return nil, apperr.Unavailable(unavailable)
	}
	return bikes, nil
}

func (s *service) GetDetail(ctx context.Context, hotelID, rentalID int64) (*Detail, error) {
	rental, err := s.rr.ByID(ctx, hotelID, rentalID)
	if err != nil {
		return nil, err
	}
	if rental == nil {
		return nil, apperr.NotFound("rental not found: %d", rentalID)
	}

	items, err := s.rr.Items(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	bikeByID, err := s.bikeMap(ctx, hotelID, items)
	if err != nil {
		return nil, err
	}

	details := make([]ItemDetail, 0, len(items))
	for _, it := range items {
		details = append(details, toItemDetail(it, bikeByID))
	}
	return &Detail{Rental: *rental, Items: details}, nil
}

// ReturnItem marks one RENTED item RETURNED and frees its bike, unless the
// bike was marked out of order mid-rental.
func (s *service) ReturnItem(ctx context.Context, hotelID, rentalID, itemID int64) (res *ReturnResult, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rental, items, item, err := s.lockRentalItem(ctx, tx, hotelID, rentalID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ItemRented {
		err = apperr.Conflict("item is not currently rented")
		return nil, err
	}

	bike, err := s.br.ByIDForUpdate(ctx, tx, hotelID, item.BikeID)
	if err != nil {
		return nil, err
	}
	if bike == nil {
		err = apperr.NotFound("bike not found: %d", item.BikeID)
		return nil, err
	}

	now := time.Now()
	item.Status = model.ItemReturned
	item.ReturnedAt = &now
	if err = s.rr.UpdateItem(ctx, tx, item); err != nil {
		return nil, err
	}

	// A bike flagged OUT_OF_ORDER mid-rental stays out of order on return.
	if bike.Status == model.BikeRented {
		if err = s.br.SetStatus(ctx, tx, bike.ID, model.BikeAvailable); err != nil {
			return nil, err
		}
	}

	closed, err := s.recalcStatus(ctx, tx, rental, items)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &ReturnResult{
		ItemID:       item.ID,
		BikeID:       bike.ID,
		BikeNumber:   bike.Number,
		ItemStatus:   item.Status,
		ReturnedAt:   item.ReturnedAt,
		RentalStatus: rental.Status,
		RentalClosed: closed,
	}, nil
}

func (s *service) ReturnSelected(ctx context.Context, hotelID, rentalID int64, itemIDs []int64) (*BatchResult, error) {
	selected := make(map[int64]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		selected[id] = struct{}{}
	}
	return s.returnBatch(ctx, hotelID, rentalID, func(it model.RentalItem) bool {
		_, ok := selected[it.ID]
		return ok
	})
}

func (s *service) ReturnAll(ctx context.Context, hotelID, rentalID int64) (*BatchResult, error) {
	return s.returnBatch(ctx, hotelID, rentalID, func(model.RentalItem) bool { return true })
}

// returnBatch applies the single-return logic to every matching item that is
// currently RENTED; everything else is silently skipped. Status is
// recomputed once after the whole pass.
func (s *service) returnBatch(ctx context.Context, hotelID, rentalID int64, match func(model.RentalItem) bool) (res *BatchResult, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rental, err := s.rr.ByIDForUpdate(ctx, tx, hotelID, rentalID)
	if err != nil {
		return nil, err
	}
	if rental == nil {
		err = apperr.NotFound("rental not found: %d", rentalID)
		return nil, err
	}

	items, err := s.rr.ItemsTx(ctx, tx, rentalID)
	if err != nil {
		return nil, err
	}

	bikeByID, err := s.bikeMap(ctx, hotelID, items)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var returned []ReturnResult
	for i := range items {
		it := &items[i]
		if !match(*it) || it.Status != model.ItemRented {
			continue
		}

		it.Status = model.ItemReturned
		it.ReturnedAt = &now
		if err = s.rr.UpdateItem(ctx, tx, it); err != nil {
			return nil, err
		}

		bike, ok := bikeByID[it.BikeID]
		if ok && bike.Status == model.BikeRented {
			if err = s.br.SetStatus(ctx, tx, bike.ID, model.BikeAvailable); err != nil {
				return nil, err
			}
		}

		rr := ReturnResult{
			ItemID:     it.ID,
			BikeID:     it.BikeID,
			ItemStatus: it.Status,
			ReturnedAt: it.ReturnedAt,
		}
		if ok {
			rr.BikeNumber = bike.Number
		}
		returned = append(returned, rr)
	}

	closed, err := s.recalcStatus(ctx, tx, rental, items)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	for i := range returned {
		returned[i].RentalStatus = rental.Status
		returned[i].RentalClosed = closed
	}
	return &BatchResult{
		RentalID:      rental.ID,
		RentalStatus:  rental.Status,
		ReturnAt:      rental.ReturnAt,
		ReturnedCount: len(returned),
		Items:         returned,
	}, nil
}

// MarkLost marks a RENTED item LOST and sidelines the bike out of order with
// a note pointing back at the contract. LOST is terminal; there is no undo.
func (s *service) MarkLost(ctx context.Context, hotelID, rentalID, itemID int64, reason *string) (res *ReturnResult, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rental, items, item, err := s.lockRentalItem(ctx, tx, hotelID, rentalID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ItemRented {
		err = apperr.Conflict("item is not currently rented")
		return nil, err
	}

	bike, err := s.br.ByIDForUpdate(ctx, tx, hotelID, item.BikeID)
	if err != nil {
		return nil, err
	}
	if bike == nil {
		err = apperr.NotFound("bike not found: %d", item.BikeID)
		return nil, err
	}

	item.Status = model.ItemLost
	item.LostReason = reason
	if err = s.rr.UpdateItem(ctx, tx, item); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("Marked lost from rental #%d", rentalID)
	if reason != nil && *reason != "" {
		note += ": " + *reason
	}
	if err = s.br.SetOutOfOrder(ctx, tx, bike.ID, note, time.Now()); err != nil {
		return nil, err
	}

	closed, err := s.recalcStatus(ctx, tx, rental, items)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &ReturnResult{
		ItemID:       item.ID,
		BikeID:       bike.ID,
		BikeNumber:   bike.Number,
		ItemStatus:   item.Status,
		LostReason:   item.LostReason,
		RentalStatus: rental.Status,
		RentalClosed: closed,
	}, nil
}

// UndoReturn reverts a RETURNED item to RENTED and reopens a CLOSED rental.
// Any undo-window policy belongs to the caller, not here.
func (s *service) UndoReturn(ctx context.Context, hotelID, rentalID, itemID int64) (res *ReturnResult, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rental, _, item, err := s.lockRentalItem(ctx, tx, hotelID, rentalID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != model.ItemReturned {
		err = apperr.Conflict("item is not in RETURNED status")
		return nil, err
	}

	bike, err := s.br.ByIDForUpdate(ctx, tx, hotelID, item.BikeID)
	if err != nil {
		return nil, err
	}
	if bike == nil {
		err = apperr.NotFound("bike not found: %d", item.BikeID)
		return nil, err
	}

	item.Status = model.ItemRented
	item.ReturnedAt = nil
	if err = s.rr.UpdateItem(ctx, tx, item); err != nil {
		// The rented-bike unique index fires if the bike was re-rented on
		// another contract in the meantime.
		if mapped := rentedBackstop(err); mapped {
			err = apperr.Conflict("bike %s is rented on another contract", bike.Number)
		}
		return nil, err
	}

	// Do not override an out-of-order bike.
	if bike.Status == model.BikeAvailable {
		if err = s.br.SetStatus(ctx, tx, bike.ID, model.BikeRented); err != nil {
			return nil, err
		}
	}

	if rental.Status == model.RentalClosed {
		rental.Status = model.RentalActive
		rental.ReturnAt = nil
		if err = s.rr.UpdateStatus(ctx, tx, rental.ID, rental.Status, nil); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &ReturnResult{
		ItemID:       item.ID,
		BikeID:       bike.ID,
		BikeNumber:   bike.Number,
		ItemStatus:   item.Status,
		RentalStatus: rental.Status,
	}, nil
}

// AddBike appends one more bike to an open rental through the same
// availability check as creation. The rental's status is left alone: adding
// a bike cannot close a contract.
func (s *service) AddBike(ctx context.Context, hotelID, rentalID int64, bikeNumber string) (res *ItemDetail, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rental, err := s.rr.ByIDForUpdate(ctx, tx, hotelID, rentalID)
	if err != nil {
		return nil, err
	}
	if rental == nil {
		err = apperr.NotFound("rental not found: %d", rentalID)
		return nil, err
	}
	if rental.Status == model.RentalClosed {
		err = apperr.Conflict("cannot add bikes to a closed rental")
		return nil, err
	}

	items, err := s.rr.ItemsTx(ctx, tx, rentalID)
	if err != nil {
		return nil, err
	}
	bikeByID, err := s.bikeMap(ctx, hotelID, items)
	if err != nil {
		return nil, err
	}
	for _, b := range bikeByID {
		if b.Number == bikeNumber {
			err = apperr.BadInput("bike %s is already in this rental", bikeNumber)
			return nil, err
		}
	}

	bikes, err := s.resolveBikes(ctx, tx, hotelID, []string{bikeNumber})
	if err != nil {
		return nil, err
	}
	bike := bikes[0]

	item := model.RentalItem{RentalID: rental.ID, BikeID: bike.ID, Status: model.ItemRented}
	if item.ID, err = s.rr.InsertItem(ctx, tx, &item); err != nil {
		err = mapRentedBackstop(err, bike.Number)
		return nil, err
	}
	if err = s.br.SetStatus(ctx, tx, bike.ID, model.BikeRented); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &ItemDetail{
		ItemID:     item.ID,
		BikeID:     bike.ID,
		BikeNumber: bike.Number,
		BikeType:   bike.Type,
		Status:     model.ItemRented,
	}, nil
}

// recalcStatus re-derives the rental status from its items and persists it
// when it changed. Returns whether this call closed the rental; closeAt is
// only stamped on the transition into CLOSED.
func (s *service) recalcStatus(ctx context.Context, tx *sqlx.Tx, rental *model.Rental, items []model.RentalItem) (bool, error) {
	allDone := len(items) > 0
	hasRented := false
	for _, it := range items {
		if it.Status == model.ItemRented {
			hasRented = true
			allDone = false
		}
	}

	if allDone {
		if rental.Status == model.RentalClosed {
			return false, nil
		}
		now := time.Now()
		rental.Status = model.RentalClosed
		rental.ReturnAt = &now
		if err := s.rr.UpdateStatus(ctx, tx, rental.ID, rental.Status, rental.ReturnAt); err != nil {
			return false, err
		}
		return true, nil
	}

	if hasRented {
		grace, err := s.set.GraceMinutes(ctx, rental.HotelID)
		if err != nil {
			return false, err
		}
		status := model.RentalActive
		if time.Now().After(rental.DueAt.Add(time.Duration(grace) * time.Minute)) {
			status = model.RentalOverdue
		}
		if rental.Status != status {
			rental.Status = status
			if err := s.rr.UpdateStatus(ctx, tx, rental.ID, status, rental.ReturnAt); err != nil {
				return false, err
			}
		}
	}
	return false, nil
}

// lockRentalItem locks the rental row, loads its items and picks one.
func (s *service) lockRentalItem(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID, itemID int64) (*model.Rental, []model.RentalItem, *model.RentalItem, error) {
	rental, err := s.rr.ByIDForUpdate(ctx, tx, hotelID, rentalID)
	if err != nil {
		return nil, nil, nil, err
	}
	if rental == nil {
		return nil, nil, nil, apperr.NotFound("rental not found: %d", rentalID)
	}

	items, err := s.rr.ItemsTx(ctx, tx, rentalID)
	if err != nil {
		return nil, nil, nil, err
	}
	for i := range items {
		if items[i].ID == itemID {
			return rental, items, &items[i], nil
		}
	}
	return nil, nil, nil, apperr.NotFound("rental item not found: %d", itemID)
}

func (s *service) bikeMap(ctx context.Context, hotelID int64, items []model.RentalItem) (map[int64]model.Bike, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.BikeID)
	}
	bikes, err := s.br.ByIDs(ctx, hotelID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]model.Bike, len(bikes))
	for _, b := range bikes {
		out[b.ID] = b
	}
	return out, nil
}

func toItemDetail(it model.RentalItem, bikeByID map[int64]model.Bike) ItemDetail {
	d := ItemDetail{
		ItemID:     it.ID,
		BikeID:     it.BikeID,
		BikeNumber: "Unknown",
		Status:     it.Status,
		ReturnedAt: it.ReturnedAt,
		LostReason: it.LostReason,
	}
	if b, ok := bikeByID[it.BikeID]; ok {
		d.BikeNumber = b.Number
		d.BikeType = b.Type
	}
	return d
}

// rentedBackstop reports whether err is the partial unique index on RENTED
// items firing.
func rentedBackstop(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		strings.Contains(strings.ToLower(pgErr.ConstraintName), "rented_bike")
}

// mapRentedBackstop converts the index violation into the unavailability
// error the pre-check would have produced, for races the row locks missed.
func mapRentedBackstop(err error, bikeNumber string) error {
	if rentedBackstop(err) {
		return apperr.Unavailable([]apperr.UnavailableBike{
			{BikeNumber: bikeNumber, Reason: apperr.ReasonAlreadyRented},
		})
	}
	return err
}
