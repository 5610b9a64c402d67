// Package tax holds the order model and the calculation request/result
// types for import tax and relief decisioning.
package tax

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/ratepolicy"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// CustomerType distinguishes consumer and business imports
type CustomerType string

const (
	CustomerIndividual CustomerType = "INDIVIDUAL"
	CustomerBusiness   CustomerType = "BUSINESS"
)

// IsValid checks if the customer type is valid
func (t CustomerType) IsValid() bool {
	return t == CustomerIndividual || t == CustomerBusiness
}

// Dimensions are package or item dimensions in centimetres
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

// OrderItem is one order line
type OrderItem struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	HSCode        string          `json:"hsCode,omitempty"`
	Category      string          `json:"category,omitempty"`
	WeightKg      decimal.Decimal `json:"weightKg"`
	Dimensions    *Dimensions     `json:"dimensions,omitempty"`
	OriginCountry string          `json:"originCountry,omitempty"`
	Digital       bool            `json:"digital,omitempty"`
	Dangerous     bool            `json:"dangerous,omitempty"`
	Restricted    bool            `json:"restricted,omitempty"`
}

// TotalValue is unit price times quantity
func (i OrderItem) TotalValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Profile projects the item onto what relief rules need
func (i OrderItem) Profile() relief.ItemProfile {
	return relief.ItemProfile{
		Name:       i.Name,
		HSCode:     i.HSCode,
		Category:   i.Category,
		Restricted: i.Restricted,
		Dangerous:  i.Dangerous,
	}
}

// Destination is where the order is imported
type Destination struct {
	CountryCode string `json:"countryCode"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	IsEU        bool   `json:"isEu"`
}

// Normalize upper-cases codes and derives the EU flag from the country
func (d Destination) Normalize() Destination {
	d.CountryCode = strings.ToUpper(strings.TrimSpace(d.CountryCode))
	d.State = strings.ToUpper(strings.TrimSpace(d.State))
	d.PostalCode = strings.TrimSpace(d.PostalCode)
	d.IsEU = shared.IsEUMember(d.CountryCode)
	return d
}

// Customer is the importer of record
type Customer struct {
	ID         string       `json:"id,omitempty"`
	Type       CustomerType `json:"type"`
	VATNumber  string       `json:"vatNumber,omitempty"`
	EORINumber string       `json:"eoriNumber,omitempty"`
}

// Options tune a calculation
type Options struct {
	UseCache         bool `json:"useCache"`
	IncludeBreakdown bool `json:"includeBreakdown"`
}

// DefaultOptions enables caching and per-item breakdown
func DefaultOptions() Options {
	return Options{UseCache: true, IncludeBreakdown: true}
}

// CalculationRequest is the input to a tax calculation
type CalculationRequest struct {
	Items        []OrderItem          `json:"items"`
	Destination  Destination          `json:"destination"`
	Customer     Customer             `json:"customer"`
	SellerID     string               `json:"sellerId,omitempty"`
	Currency     valueobject.Currency `json:"currency"`
	DeliveryMode shared.DeliveryMode  `json:"deliveryMode"`
	Options      Options              `json:"options"`
}

// TotalValue sums every item's total value
func (r CalculationRequest) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.TotalValue())
	}
	return total
}

// OrderValue is the total value in the request currency
func (r CalculationRequest) OrderValue() valueobject.Money {
	return valueobject.FromDecimal(r.TotalValue(), r.currency())
}

func (r CalculationRequest) currency() valueobject.Currency {
	if r.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return r.Currency
}

// ReliefInput projects the request onto the relief rules input
func (r CalculationRequest) ReliefInput() relief.Input {
	profiles := make([]relief.ItemProfile, 0, len(r.Items))
	for _, item := range r.Items {
		profiles = append(profiles, item.Profile())
	}
	return relief.Input{
		CountryCode: r.Destination.CountryCode,
		OrderValue:  r.OrderValue(),
		Items:       profiles,
		RecipientID: r.RecipientID(),
		SellerID:    r.SellerID,
	}
}

// RecipientID identifies the consignee for per-recipient accumulation.
// Falls back to the destination when no customer id is known.
func (r CalculationRequest) RecipientID() string {
	if r.Customer.ID != "" {
		return r.Customer.ID
	}
	d := r.Destination
	if d.PostalCode == "" {
		return ""
	}
	return strings.Join([]string{d.CountryCode, d.State, d.PostalCode}, "/")
}

// Validate checks structural invariants and returns one error per violation
func (r CalculationRequest) Validate() []shared.CalculationError {
	var errs []shared.CalculationError
	if len(r.Items) == 0 {
		errs = append(errs, shared.NewValidationError(shared.CodeEmptyItems, "items", "at least one item is required"))
	}
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(item.Name) == "" {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".name", "item name is required"))
		}
		if !item.UnitPrice.IsPositive() {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".unitPrice", "unit price must be positive"))
		}
		if item.Quantity <= 0 {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".quantity", "quantity must be positive"))
		}
		if item.UnitPrice.IsPositive() && item.Quantity > 0 && !item.TotalValue().IsPositive() {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".totalValue", "total value must be positive"))
		}
		if item.WeightKg.IsNegative() {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".weightKg", "weight cannot be negative"))
		}
	}
	if !valueobject.IsCountryCode(strings.ToUpper(strings.TrimSpace(r.Destination.CountryCode))) {
		errs = append(errs, shared.NewValidationError(shared.CodeInvalidDestination, "destination.countryCode", "destination country must be a two-letter ISO code"))
	}
	if r.Currency != "" && !r.Currency.IsValid() {
		errs = append(errs, shared.NewValidationError(shared.CodeValidationError, "currency", "currency must be an ISO 4217 code"))
	}
	if r.DeliveryMode != "" && !r.DeliveryMode.IsValid() {
		errs = append(errs, shared.NewValidationError(shared.CodeInvalidDeliveryMode, "deliveryMode", "delivery mode must be DDP or DAP"))
	}
	if r.Customer.Type != "" && !r.Customer.Type.IsValid() {
		errs = append(errs, shared.NewValidationError(shared.CodeValidationError, "customer.type", "customer type must be INDIVIDUAL or BUSINESS"))
	}
	return errs
}

// Normalize fills defaults and canonical casing
func (r CalculationRequest) Normalize() CalculationRequest {
	r.Destination = r.Destination.Normalize()
	r.Currency = r.currency()
	if r.DeliveryMode == "" {
		r.DeliveryMode = shared.DeliveryModeDAP
	}
	if r.Customer.Type == "" {
		r.Customer.Type = CustomerIndividual
	}
	items := make([]OrderItem, len(r.Items))
	copy(items, r.Items)
	r.Items = items
	for i := range r.Items {
		r.Items[i].HSCode = ratepolicy.NormalizeHSCode(r.Items[i].HSCode)
		r.Items[i].Category = strings.ToLower(strings.TrimSpace(r.Items[i].Category))
	}
	return r
}

// fingerprintPayload lists the structural fields a calculation depends on.
// Cache switches and clocks are deliberately absent.
type fingerprintPayload struct {
	Items            []OrderItem          `json:"items"`
	Destination      Destination          `json:"destination"`
	Customer         Customer             `json:"customer"`
	SellerID         string               `json:"sellerId"`
	Currency         valueobject.Currency `json:"currency"`
	DeliveryMode     shared.DeliveryMode  `json:"deliveryMode"`
	IncludeBreakdown bool                 `json:"includeBreakdown"`
}

// Fingerprint derives a calculation identifier from the request content only.
// Two requests with equal content always share an identifier.
func (r CalculationRequest) Fingerprint() string {
	n := r.Normalize()
	payload, err := json.Marshal(fingerprintPayload{
		Items:            n.Items,
		Destination:      n.Destination,
		Customer:         n.Customer,
		SellerID:         n.SellerID,
		Currency:         n.Currency,
		DeliveryMode:     n.DeliveryMode,
		IncludeBreakdown: n.Options.IncludeBreakdown,
	})
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v", n))
	}
	sum := sha256.Sum256(payload)
	return "tax_" + hex.EncodeToString(sum[:16])
}
