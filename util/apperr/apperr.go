// Package apperr carries the error taxonomy shared by all services.
// Controllers translate kinds to HTTP statuses; services never return raw
// storage errors for expected outcomes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindBadInput    Kind = "BAD_REQUEST"
	KindUnavailable Kind = "BIKES_UNAVAILABLE"
)

// Reasons for a single unavailable bike.
const (
	ReasonNotFound      = "NOT_FOUND"
	ReasonAlreadyRented = "ALREADY_RENTED"
	ReasonOutOfOrder    = "OUT_OF_ORDER"
)

type UnavailableBike struct {
	BikeNumber string `json:"bike_number"`
	Reason     string `json:"reason"`
}

type Error struct {
	Kind  Kind
	Msg   string
	Bikes []UnavailableBike
}

func (e *Error) Error() string { return e.Msg }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func BadInput(format string, args ...any) error {
	return &Error{Kind: KindBadInput, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable reports every failing bike from one request, never just the first.
func Unavailable(bikes []UnavailableBike) error {
	return &Error{Kind: KindUnavailable, Msg: "one or more bikes are unavailable", Bikes: bikes}
}

// KindOf extracts the kind, or "" for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// BikesOf returns the per-bike details of an unavailability error.
func BikesOf(err error) []UnavailableBike {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Bikes
	}
	return nil
}
