package model

// HotelSettings is one optional row per hotel; the settings service fills in
// defaults when the row or a field is missing.
type HotelSettings struct {
	ID                    int64   `db:"settings_id" json:"-"`
	HotelID               int64   `db:"hotel_id" json:"-"`
	GraceMinutes          int     `db:"grace_minutes" json:"grace_minutes"`
	RentalDurationOptions *string `db:"rental_duration_options" json:"-"`
	TncText               *string `db:"tnc_text" json:"-"`
	TncVersion            *string `db:"tnc_version" json:"-"`
}
