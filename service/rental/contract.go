package rental

import (
	"bytes"
	"context"
	"encoding/base64"
	"html/template"
	"time"

	settingssvc "bikerental/service/settings"
	sigsvc "bikerental/service/signature"
	"bikerental/util/apperr"
)

// contractTmpl is a self-contained printable page; hotels print it straight
// from the browser, so no external assets.
var contractTmpl = template.Must(template.New("contract").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Bike Rental Contract #{{.RentalID}}</title>
<style>
body { font-family: sans-serif; max-width: 680px; margin: 2em auto; color: #222; }
table { width: 100%; border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #999; padding: 6px 10px; text-align: left; }
.tnc { white-space: pre-wrap; font-size: 0.9em; border: 1px solid #ccc; padding: 1em; }
.signature img { max-width: 320px; border-bottom: 1px solid #222; }
.meta td { border: none; padding: 2px 0; }
</style>
</head>
<body>
<h1>Bike Rental Contract #{{.RentalID}}</h1>
<table class="meta">
<tr><td>Room</td><td>{{.RoomNumber}}{{if .BedNumber}} / Bed {{.BedNumber}}{{end}}</td></tr>
<tr><td>Rented at</td><td>{{.StartAt}}</td></tr>
<tr><td>Due back</td><td>{{.DueAt}}</td></tr>
</table>
<table>
<tr><th>Bike #</th><th>Type</th><th>Status</th></tr>
{{range .Items}}<tr><td>{{.BikeNumber}}</td><td>{{.BikeType}}</td><td>{{.Status}}</td></tr>
{{end}}</table>
<h2>Terms &amp; Conditions (v{{.TncVersion}})</h2>
<div class="tnc">{{.TncText}}</div>
<h2>Guest Signature</h2>
<div class="signature">
{{if .SignatureSrc}}<img src="{{.SignatureSrc}}" alt="signature">{{else}}<p><em>signature unavailable</em></p>{{end}}
</div>
</body>
</html>
`))

type contractData struct {
	RentalID     int64
	RoomNumber   string
	BedNumber    string
	StartAt      string
	DueAt        string
	Items        []ItemDetail
	TncVersion   string
	TncText      string
	SignatureSrc template.URL
}

// ContractRenderer rebuilds the printable contract for an existing rental.
type ContractRenderer interface {
	ContractHTML(ctx context.Context, hotelID, rentalID int64) ([]byte, error)
	SignaturePNG(ctx context.Context, hotelID, rentalID int64) ([]byte, error)
}

type contractRenderer struct {
	rentals Service
	sigs    sigsvc.Service
	set     settingssvc.Service
}

func NewContractRenderer(rentals Service, sigs sigsvc.Service, set settingssvc.Service) ContractRenderer {
	return &contractRenderer{rentals: rentals, sigs: sigs, set: set}
}

func (c *contractRenderer) ContractHTML(ctx context.Context, hotelID, rentalID int64) ([]byte, error) {
	detail, err := c.rentals.GetDetail(ctx, hotelID, rentalID)
	if err != nil {
		return nil, err
	}
	tncText, err := c.set.TncText(ctx, hotelID)
	if err != nil {
		return nil, err
	}

	data := contractData{
		RentalID:   detail.Rental.ID,
		RoomNumber: detail.Rental.RoomNumber,
		StartAt:    detail.Rental.StartAt.Format(time.RFC1123),
		DueAt:      detail.Rental.DueAt.Format(time.RFC1123),
		Items:      detail.Items,
		TncVersion: detail.Rental.TncVersion,
		TncText:    tncText,
	}
	if detail.Rental.BedNumber != nil {
		data.BedNumber = *detail.Rental.BedNumber
	}

	// A missing signature degrades the page, it does not fail it.
	sig, err := c.sigs.Fetch(ctx, detail.Rental.SignatureID, hotelID)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	if sig != nil {
		data.SignatureSrc = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(sig.Data))
	}

	var buf bytes.Buffer
	if err := contractTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *contractRenderer) SignaturePNG(ctx context.Context, hotelID, rentalID int64) ([]byte, error) {
	detail, err := c.rentals.GetDetail(ctx, hotelID, rentalID)
	if err != nil {
		return nil, err
	}
	sig, err := c.sigs.Fetch(ctx, detail.Rental.SignatureID, hotelID)
	if err != nil {
		return nil, err
	}
	return sig.Data, nil
}
