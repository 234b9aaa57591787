package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleHotel = "ROLE_HOTEL"
	RoleAdmin = "ROLE_ADMIN"
)

// Issue signs an HS256 token. The subject is the hotel id; admins carry
// subject "0" and RoleAdmin.
func Issue(secret string, hotelID int64, hotelCode, role string, ttlHours int) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       strconv.FormatInt(hotelID, 10),
		"hotelCode": hotelCode,
		"role":      role,
		"iat":       now.Unix(),
		"exp":       now.Add(time.Duration(ttlHours) * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Identity is what the auth middleware extracts from validated claims.
type Identity struct {
	HotelID   int64
	HotelCode string
	Role      string
}

// IdentityFromClaims pulls the hotel identity out of already-verified claims.
func IdentityFromClaims(mc jwt.MapClaims) (Identity, error) {
	sub, ok := mc["sub"].(string)
	if !ok {
		return Identity{}, errors.New("sub missing in claims")
	}
	hotelID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Identity{}, errors.New("sub is not a hotel id")
	}

	id := Identity{HotelID: hotelID, Role: RoleHotel}
	if code, ok := mc["hotelCode"].(string); ok {
		id.HotelCode = code
	}
	if role, ok := mc["role"].(string); ok && role != "" {
		id.Role = role
	}
	return id, nil
}
