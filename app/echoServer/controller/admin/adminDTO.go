package admin

type createHotelReq struct {
	Code      string `json:"hotel_code" validate:"required,min=2,max=50"`
	Name      string `json:"hotel_name" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
	FleetSize int    `json:"fleet_size" validate:"gte=0,lte=500"`
	BikeType  string `json:"bike_type"`
}

type resetPasswordReq struct {
	Password string `json:"password" validate:"required,min=8"`
}
