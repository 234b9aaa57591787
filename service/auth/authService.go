// Package auth authenticates hotel accounts and issues access tokens.
package auth

import (
	"context"
	"errors"

	"bikerental/model"
	hotelrepo "bikerental/repository/hotel"
	"bikerental/util/hash"
	"bikerental/util/jwt"
)

// ErrInvalidCredentials covers both unknown codes and wrong passwords so the
// response never reveals which one it was.
var ErrInvalidCredentials = errors.New("invalid hotel code or password")

type LoginResult struct {
	Token     string `json:"token"`
	HotelName string `json:"hotel_name"`
	Role      string `json:"role"`
}

type Service interface {
	Login(ctx context.Context, req model.LoginReq) (*LoginResult, error)
}

type service struct {
	r        hotelrepo.Repo
	secret   string
	ttlHours int
}

func New(r hotelrepo.Repo, secret string, ttlHours int) Service {
	return &service{r: r, secret: secret, ttlHours: ttlHours}
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*LoginResult, error) {
	h, err := s.r.ByCode(ctx, req.HotelCode)
	if err != nil {
		return nil, err
	}
	if h == nil || !hash.Check(h.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	role := jwt.RoleHotel
	if h.IsAdmin {
		role = jwt.RoleAdmin
	}
	token, err := jwt.Issue(s.secret, h.ID, h.Code, role, s.ttlHours)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, HotelName: h.Name, Role: role}, nil
}
