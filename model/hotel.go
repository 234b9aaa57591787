package model

import "time"

type Hotel struct {
	ID           int64     `db:"hotel_id" json:"id"`
	Code         string    `db:"hotel_code" json:"hotel_code"`
	Name         string    `db:"hotel_name" json:"hotel_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// LoginReq is the hotel login payload.
type LoginReq struct {
	HotelCode string `json:"hotel_code" validate:"required"`
	Password  string `json:"password" validate:"required"`
}
