// Package settings reads per-hotel configuration with hardcoded fallbacks
// when no row (or field) exists.
package settings

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	setrepo "bikerental/repository/settings"
)

const (
	defaultGraceMinutes = 0
	defaultTncVersion   = "1.0"
	defaultTncText      = "By signing below, I acknowledge that I have received the bicycle(s) " +
		"listed above in good condition. I agree to return them by the specified due date and time. " +
		"I accept responsibility for any damage to or loss of the bicycle(s) during the rental period. " +
		"I understand that late returns may incur additional charges."
)

var defaultDurationOptions = []int{24, 48, 72}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Effective is the resolved view handed to callers: every field is filled,
// either from the hotel's row or from the defaults.
type Effective struct {
	GraceMinutes    int    `json:"grace_minutes"`
	TncText         string `json:"tnc_text"`
	TncVersion      string `json:"tnc_version"`
	DurationOptions []int  `json:"rental_duration_options"`
}

type Service interface {
	Get(ctx context.Context, hotelID int64) (*Effective, error)
	GraceMinutes(ctx context.Context, hotelID int64) (int, error)
	TncText(ctx context.Context, hotelID int64) (string, error)
	TncVersion(ctx context.Context, hotelID int64) (string, error)
}

type service struct{ r setrepo.Repo }

func New(r setrepo.Repo) Service { return &service{r: r} }

func (s *service) Get(ctx context.Context, hotelID int64) (*Effective, error) {
	row, err := s.r.ByHotelID(ctx, hotelID)
	if err != nil {
		return nil, err
	}

	eff := &Effective{
		GraceMinutes:    defaultGraceMinutes,
		TncText:         defaultTncText,
		TncVersion:      defaultTncVersion,
		DurationOptions: defaultDurationOptions,
	}
	if row == nil {
		return eff, nil
	}

	eff.GraceMinutes = row.GraceMinutes
	if row.TncText != nil && *row.TncText != "" {
		eff.TncText = *row.TncText
	}
	if row.TncVersion != nil && *row.TncVersion != "" {
		eff.TncVersion = *row.TncVersion
	}
	if row.RentalDurationOptions != nil && *row.RentalDurationOptions != "" {
		eff.DurationOptions = parseDurationOptions(*row.RentalDurationOptions)
	}
	return eff, nil
}

func (s *service) GraceMinutes(ctx context.Context, hotelID int64) (int, error) {
	eff, err := s.Get(ctx, hotelID)
	if err != nil {
		return 0, err
	}
	return eff.GraceMinutes, nil
}

func (s *service) TncText(ctx context.Context, hotelID int64) (string, error) {
	eff, err := s.Get(ctx, hotelID)
	if err != nil {
		return "", err
	}
	return eff.TncText, nil
}

func (s *service) TncVersion(ctx context.Context, hotelID int64) (string, error) {
	eff, err := s.Get(ctx, hotelID)
	if err != nil {
		return "", err
	}
	return eff.TncVersion, nil
}

// parseDurationOptions expects a JSON int array like "[24, 48, 72]"; anything
// unparsable falls back to the defaults.
func parseDurationOptions(raw string) []int {
	var opts []int
	if err := json.UnmarshalFromString(raw, &opts); err != nil || len(opts) == 0 {
		return defaultDurationOptions
	}
	return opts
}
