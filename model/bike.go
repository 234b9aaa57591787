package model

import "time"

type BikeStatus string

const (
	BikeAvailable  BikeStatus = "AVAILABLE"
	BikeRented     BikeStatus = "RENTED"
	BikeOutOfOrder BikeStatus = "OUT_OF_ORDER"
)

// Bike belongs to exactly one hotel; bike numbers are unique per hotel only.
type Bike struct {
	ID       int64      `db:"bike_id" json:"id"`
	HotelID  int64      `db:"hotel_id" json:"-"`
	Number   string     `db:"bike_number" json:"bike_number"`
	Type     string     `db:"bike_type" json:"bike_type"`
	Status   BikeStatus `db:"status" json:"status"`
	OOONote  *string    `db:"ooo_note" json:"ooo_note,omitempty"`
	OOOSince *time.Time `db:"ooo_since" json:"ooo_since,omitempty"`
}
