package model

import "time"

// Signature is an immutable PNG blob tied to one rental contract.
type Signature struct {
	ID        int64     `db:"signature_id" json:"id"`
	HotelID   int64     `db:"hotel_id" json:"-"`
	Data      []byte    `db:"signature_data" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
