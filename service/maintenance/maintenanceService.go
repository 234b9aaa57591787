// Package maintenance produces the out-of-order export handed to bike
// repair vendors.
package maintenance

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"bikerental/model"
	bikesvc "bikerental/service/bike"
)

type Service interface {
	// ExportOutOfOrderCSV returns the file body and a dated filename.
	ExportOutOfOrderCSV(ctx context.Context, hotelID int64) ([]byte, string, error)
}

type service struct {
	bikes bikesvc.Service
}

func New(bikes bikesvc.Service) Service { return &service{bikes: bikes} }

func (s *service) ExportOutOfOrderCSV(ctx context.Context, hotelID int64) ([]byte, string, error) {
	status := model.BikeOutOfOrder
	bikes, err := s.bikes.List(ctx, hotelID, &status, "")
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	// Excel delimiter hint; vendors open these directly.
	buf.WriteString("sep=,\n")

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"bike_number", "bike_type", "ooo_note", "ooo_since_date"}); err != nil {
		return nil, "", err
	}
	for _, b := range bikes {
		note := ""
		if b.OOONote != nil {
			note = flattenNewlines(*b.OOONote)
		}
		since := ""
		if b.OOOSince != nil {
			since = b.OOOSince.Format("2006-01-02")
		}
		if err := w.Write([]string{b.Number, b.Type, note, since}); err != nil {
			return nil, "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("ooo-bikes-%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// flattenNewlines keeps multi-line repair notes on one CSV row.
func flattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", " | ")
}
