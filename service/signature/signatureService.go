// Package signature stores and retrieves guest signatures. Signatures are
// immutable once created and tied to a single rental contract.
package signature

import (
	"context"
	"encoding/base64"
	"strings"

	"bikerental/model"
	sigrepo "bikerental/repository/signature"
	"bikerental/util/apperr"
)

const dataURLPrefix = "data:image/png;base64,"

// Decode strips an optional data-URL prefix and decodes the base64 PNG
// payload. Malformed input is a caller error, never a server error.
func Decode(base64PNG string) ([]byte, error) {
	trimmed := strings.TrimSpace(base64PNG)
	if trimmed == "" {
		return nil, apperr.BadInput("signature data cannot be empty")
	}
	trimmed = strings.TrimPrefix(trimmed, dataURLPrefix)

	data, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, apperr.BadInput("invalid base64 signature data")
	}
	if len(data) == 0 {
		return nil, apperr.BadInput("signature data cannot be empty")
	}
	return data, nil
}

// Service reads stored signatures. Writes happen inside the rental creation
// transaction, through the repository directly.
type Service interface {
	// Fetch returns the signature scoped to the hotel.
	Fetch(ctx context.Context, signatureID, hotelID int64) (*model.Signature, error)
}

type service struct{ r sigrepo.Repo }

func New(r sigrepo.Repo) Service { return &service{r: r} }

func (s *service) Fetch(ctx context.Context, signatureID, hotelID int64) (*model.Signature, error) {
	sig, err := s.r.ByIDAndHotel(ctx, signatureID, hotelID)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, apperr.NotFound("signature not found: %d", signatureID)
	}
	return sig, nil
}
