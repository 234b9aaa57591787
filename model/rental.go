package model

import "time"

type RentalStatus string

const (
	RentalActive  RentalStatus = "ACTIVE"
	RentalOverdue RentalStatus = "OVERDUE"
	RentalClosed  RentalStatus = "CLOSED"
)

type RentalItemStatus string

const (
	ItemRented   RentalItemStatus = "RENTED"
	ItemReturned RentalItemStatus = "RETURNED"
	ItemLost     RentalItemStatus = "LOST"
)

// Rental is one contract per guest stay. Status is recomputed and persisted
// after every mutation; the overview computes it live instead.
type Rental struct {
	ID          int64        `db:"rental_id" json:"id"`
	HotelID     int64        `db:"hotel_id" json:"-"`
	Status      RentalStatus `db:"status" json:"status"`
	StartAt     time.Time    `db:"start_at" json:"start_at"`
	DueAt       time.Time    `db:"due_at" json:"due_at"`
	ReturnAt    *time.Time   `db:"return_at" json:"return_at,omitempty"`
	RoomNumber  string       `db:"room_number" json:"room_number"`
	BedNumber   *string      `db:"bed_number" json:"bed_number,omitempty"`
	TncVersion  string       `db:"tnc_version" json:"tnc_version"`
	SignatureID int64        `db:"signature_id" json:"signature_id"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// RentalItem tracks one bike inside one rental. The rental/bike association
// never changes; only status and the two optional fields do.
type RentalItem struct {
	ID         int64            `db:"rental_item_id" json:"id"`
	RentalID   int64            `db:"rental_id" json:"-"`
	BikeID     int64            `db:"bike_id" json:"bike_id"`
	Status     RentalItemStatus `db:"status" json:"status"`
	ReturnedAt *time.Time       `db:"returned_at" json:"returned_at,omitempty"`
	LostReason *string          `db:"lost_reason" json:"lost_reason,omitempty"`
}
