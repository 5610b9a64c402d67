package carrier

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// Wire types of the carrier gateway API. Amounts travel as decimal strings.

type wireMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type wireAddress struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type wireParcel struct {
	WeightKg      string    `json:"weight_kg"`
	LengthCm      string    `json:"length_cm,omitempty"`
	WidthCm       string    `json:"width_cm,omitempty"`
	HeightCm      string    `json:"height_cm,omitempty"`
	Quantity      int       `json:"quantity"`
	HSCode        string    `json:"hs_code,omitempty"`
	Description   string    `json:"description,omitempty"`
	DeclaredValue wireMoney `json:"declared_value"`
}

type rateRequest struct {
	Origin        wireAddress  `json:"origin"`
	Destination   wireAddress  `json:"destination"`
	Parcels       []wireParcel `json:"parcels"`
	DeclaredValue wireMoney    `json:"declared_value"`
	Incoterm      string       `json:"incoterm,omitempty"`
	Services      []string     `json:"services,omitempty"`
	Currency      string       `json:"currency,omitempty"`
}

type wireSurcharge struct {
	Name   string    `json:"name"`
	Amount wireMoney `json:"amount"`
}

type wireRate struct {
	RateID       string          `json:"rate_id"`
	ServiceCode  string          `json:"service_code"`
	ServiceName  string          `json:"service_name"`
	ServiceClass string          `json:"service_class"`
	Incoterm     string          `json:"incoterm"`
	Base         wireMoney       `json:"base"`
	Surcharges   []wireSurcharge `json:"surcharges,omitempty"`
	Duties       wireMoney       `json:"duties"`
	Total        wireMoney       `json:"total"`
	TransitDays  int             `json:"transit_days"`
	MinDays      int             `json:"min_days"`
	MaxDays      int             `json:"max_days"`
	Guaranteed   bool            `json:"guaranteed"`
	Features     []string        `json:"features,omitempty"`
	Restrictions []string        `json:"restrictions,omitempty"`
	Tracking     bool            `json:"tracking"`
	Signature    bool            `json:"signature"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

type rateResponse struct {
	Rates []wireRate `json:"rates"`
}

type shipmentRequest struct {
	rateRequest
	RateID      string `json:"rate_id,omitempty"`
	ServiceCode string `json:"service_code"`
}

type shipmentResponse struct {
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	LabelURL       string    `json:"label_url,omitempty"`
	Cost           wireMoney `json:"cost"`
	TransitDays    int       `json:"transit_days"`
	CreatedAt      time.Time `json:"created_at"`
}

type wireEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description"`
}

type trackingResponse struct {
	TrackingNumber string      `json:"tracking_number"`
	Status         string      `json:"status"`
	Events         []wireEvent `json:"events"`
}

type documentResponse struct {
	URL string `json:"url"`
}

type manifestRequest struct {
	ShipmentIDs []string `json:"shipment_ids"`
}

type addressResponse struct {
	Valid bool `json:"valid"`
}

type servicesResponse struct {
	Services []string `json:"services"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

func toWireMoney(m valueobject.Money) wireMoney {
	return wireMoney{Amount: m.Amount().StringFixed(2), Currency: m.Currency().String()}
}

func toWireAddress(a valueobject.Address) wireAddress {
	return wireAddress{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.CountryCode,
		Phone:      a.Phone,
	}
}

func toRateRequest(req logistics.Request) rateRequest {
	out := rateRequest{
		Origin:        toWireAddress(req.Origin),
		Destination:   toWireAddress(req.Destination),
		DeclaredValue: toWireMoney(req.ShipmentValue),
		Incoterm:      req.DeliveryMode.String(),
		Services:      req.RequiredServices,
		Currency:      req.QuoteCurrency().String(),
	}
	for _, p := range req.Packages {
		wp := wireParcel{
			WeightKg:      p.WeightKg.String(),
			Quantity:      max(p.Quantity, 1),
			HSCode:        p.HSCode,
			Description:   p.Description,
			DeclaredValue: toWireMoney(p.DeclaredValue),
		}
		if d := p.Dimensions; d != nil {
			wp.LengthCm, wp.WidthCm, wp.HeightCm = d.Length.String(), d.Width.String(), d.Height.String()
		}
		out.Parcels = append(out.Parcels, wp)
	}
	return out
}

func fromWireMoney(m wireMoney) (valueobject.Money, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return valueobject.Money{}, fmt.Errorf("amount %q: %w", m.Amount, err)
	}
	cur, err := valueobject.ParseCurrency(m.Currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.FromDecimal(amount, cur), nil
}

// optionalMoney treats an empty amount as zero in the currency of fallback
func optionalMoney(m wireMoney, fallback valueobject.Currency) (valueobject.Money, error) {
	if m.Amount == "" {
		return valueobject.Zero(fallback), nil
	}
	return fromWireMoney(m)
}

func (c *HTTPCarrier) fromWireRate(r wireRate) (logistics.Quote, error) {
	total, err := fromWireMoney(r.Total)
	if err != nil {
		return logistics.Quote{}, fmt.Errorf("rate %s total: %w", r.ServiceCode, err)
	}
	cur := total.Currency()
	base, err := optionalMoney(r.Base, cur)
	if err != nil {
		return logistics.Quote{}, fmt.Errorf("rate %s base: %w", r.ServiceCode, err)
	}
	duties, err := optionalMoney(r.Duties, cur)
	if err != nil {
		return logistics.Quote{}, fmt.Errorf("rate %s duties: %w", r.ServiceCode, err)
	}
	if base.Currency() != cur || duties.Currency() != cur {
		return logistics.Quote{}, fmt.Errorf("rate %s: mixed currencies", r.ServiceCode)
	}
	var surcharges []logistics.Surcharge
	for _, s := range r.Surcharges {
		amount, err := fromWireMoney(s.Amount)
		if err != nil || amount.Currency() != cur {
			return logistics.Quote{}, fmt.Errorf("rate %s surcharge %s: invalid amount", r.ServiceCode, s.Name)
		}
		surcharges = append(surcharges, logistics.Surcharge{Name: s.Name, Amount: amount})
	}

	var mode shared.DeliveryMode
	if r.Incoterm != "" {
		m, ok := shared.ParseDeliveryMode(r.Incoterm)
		if !ok {
			return logistics.Quote{}, fmt.Errorf("rate %s: unknown incoterm %q", r.ServiceCode, r.Incoterm)
		}
		mode = m
	}
	class := logistics.ServiceClass(strings.ToUpper(r.ServiceClass))
	if !class.IsValid() {
		class = logistics.ServiceClassStandard
	}

	q := logistics.Quote{
		ID:           r.RateID,
		ProviderID:   c.id,
		ProviderName: c.name,
		ServiceCode:  r.ServiceCode,
		ServiceName:  r.ServiceName,
		ServiceClass: class,
		DeliveryMode: mode,
		Pricing: logistics.Pricing{
			BaseCost:       base,
			Surcharges:     surcharges,
			DutiesAndTaxes: duties,
			Total:          total,
			NetCost:        total,
		},
		Delivery: logistics.DeliveryEstimate{
			Days:       r.TransitDays,
			MinDays:    r.MinDays,
			MaxDays:    r.MaxDays,
			Guaranteed: r.Guaranteed,
		},
		Features:     r.Features,
		Restrictions: r.Restrictions,
		Tracking: logistics.TrackingCapabilities{
			Available:         r.Tracking,
			ProofOfDelivery:   r.Signature,
			SignatureRequired: r.Signature,
		},
	}
	if r.ExpiresAt != nil {
		q.ValidUntil = *r.ExpiresAt
	}
	return q, nil
}

func parseStatus(s string) (logistics.ShipmentStatus, error) {
	status := logistics.ShipmentStatus(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", logistics.ErrProviderInvalidResponse, s)
	}
	return status, nil
}
