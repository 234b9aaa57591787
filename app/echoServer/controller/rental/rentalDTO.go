package rental

import "time"

type createRentalReq struct {
	BikeNumbers []string  `json:"bike_numbers" validate:"required,min=1,dive,required"`
	RoomNumber  string    `json:"room_number" validate:"required"`
	BedNumber   *string   `json:"bed_number"`
	DueAt       time.Time `json:"due_at" validate:"required"`
	TncVersion  string    `json:"tnc_version"`
	Signature   string    `json:"signature" validate:"required"`
}

type returnSelectedReq struct {
	ItemIDs []int64 `json:"item_ids" validate:"required,min=1"`
}

type markLostReq struct {
	Reason *string `json:"reason"`
}

type addBikeReq struct {
	BikeNumber string `json:"bike_number" validate:"required"`
}
