package dto

import (
	"strings"

	"github.com/xborder/backend/internal/domain/integration"
	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
)

// AddressRequest is a postal address in a request body
type AddressRequest struct {
	Name        string `json:"name,omitempty" binding:"omitempty,max=100"`
	Company     string `json:"company,omitempty" binding:"omitempty,max=100"`
	Line1       string `json:"line1" binding:"max=200"`
	Line2       string `json:"line2,omitempty" binding:"omitempty,max=200"`
	City        string `json:"city" binding:"required,max=100"`
	State       string `json:"state,omitempty" binding:"omitempty,max=64"`
	PostalCode  string `json:"postalCode,omitempty" binding:"omitempty,max=12"`
	CountryCode string `json:"countryCode" binding:"required,iso3166_1_alpha2"`
	Phone       string `json:"phone,omitempty" binding:"omitempty,max=32"`
	Email       string `json:"email,omitempty" binding:"omitempty,email"`
}

// ToDomain converts to a normalized address
func (a AddressRequest) ToDomain() valueobject.Address {
	return valueobject.Address{
		Name:        strings.TrimSpace(a.Name),
		Company:     strings.TrimSpace(a.Company),
		Line1:       strings.TrimSpace(a.Line1),
		Line2:       strings.TrimSpace(a.Line2),
		City:        strings.TrimSpace(a.City),
		State:       strings.ToUpper(strings.TrimSpace(a.State)),
		PostalCode:  strings.TrimSpace(a.PostalCode),
		CountryCode: strings.ToUpper(strings.TrimSpace(a.CountryCode)),
		Phone:       strings.TrimSpace(a.Phone),
		Email:       strings.TrimSpace(a.Email),
	}
}

// DestinationRequest is the import destination of a tax calculation
type DestinationRequest struct {
	CountryCode string `json:"countryCode" binding:"required,iso3166_1_alpha2"`
	State       string `json:"state,omitempty" binding:"omitempty,max=64"`
	PostalCode  string `json:"postalCode,omitempty" binding:"omitempty,max=12"`
}

// TaxCalculationRequest is the body of POST /tax/calculate and /compliance/validate
type TaxCalculationRequest struct {
	Items        []tax.OrderItem    `json:"items" binding:"required,min=1,max=500"`
	Destination  DestinationRequest `json:"destination"`
	Customer     tax.Customer       `json:"customer"`
	SellerID     string             `json:"sellerId,omitempty" binding:"omitempty,max=128"`
	Currency     string             `json:"currency,omitempty" binding:"omitempty,iso4217"`
	DeliveryMode string             `json:"deliveryMode,omitempty" binding:"omitempty,dmode"`
	Options      *tax.Options       `json:"options,omitempty"`
}

// ToDomain converts to a calculation request. Missing options default to
// cached calculations with a breakdown.
func (r TaxCalculationRequest) ToDomain() tax.CalculationRequest {
	opts := tax.DefaultOptions()
	if r.Options != nil {
		opts = *r.Options
	}
	return tax.CalculationRequest{
		Items: r.Items,
		Destination: tax.Destination{
			CountryCode: r.Destination.CountryCode,
			State:       r.Destination.State,
			PostalCode:  r.Destination.PostalCode,
		},
		Customer:     r.Customer,
		SellerID:     r.SellerID,
		Currency:     valueobject.Currency(strings.ToUpper(r.Currency)),
		DeliveryMode: deliveryMode(r.DeliveryMode),
		Options:      opts,
	}
}

// QuoteRequest is the body of the /quotes routes
type QuoteRequest struct {
	Origin           AddressRequest      `json:"origin"`
	Destination      AddressRequest      `json:"destination"`
	Packages         []logistics.Package `json:"packages" binding:"required,min=1,max=50"`
	ShipmentValue    valueobject.Money   `json:"shipmentValue"`
	DeliveryMode     string              `json:"deliveryMode,omitempty" binding:"omitempty,dmode"`
	RequiredServices []string            `json:"requiredServices,omitempty" binding:"omitempty,max=10,dive,max=32"`
	Currency         string              `json:"currency,omitempty" binding:"omitempty,iso4217"`
	Options          logistics.Options   `json:"options"`
}

// ToDomain converts to a logistics request and its options. A delivery mode
// given on the request also pins the options.
func (r QuoteRequest) ToDomain() (logistics.Request, logistics.Options) {
	mode := deliveryMode(r.DeliveryMode)
	opts := r.Options
	if mode != "" && opts.DeliveryMode == "" {
		opts.DeliveryMode = mode
	}
	opts.DeliveryMode = shared.DeliveryMode(strings.ToUpper(string(opts.DeliveryMode)))
	opts.SortBy = logistics.SortBy(strings.ToUpper(string(opts.SortBy)))
	return logistics.Request{
		Origin:           r.Origin.ToDomain(),
		Destination:      r.Destination.ToDomain(),
		Packages:         r.Packages,
		ShipmentValue:    r.ShipmentValue,
		DeliveryMode:     mode,
		RequiredServices: r.RequiredServices,
		Currency:         valueobject.Currency(strings.ToUpper(r.Currency)),
	}, opts
}

// IntegratedQuoteRequest is the body of the /integrated-quotes routes
type IntegratedQuoteRequest struct {
	Items       []tax.OrderItem     `json:"items" binding:"required,min=1,max=500"`
	Customer    tax.Customer        `json:"customer"`
	SellerID    string              `json:"sellerId,omitempty" binding:"omitempty,max=128"`
	Currency    string              `json:"currency,omitempty" binding:"omitempty,iso4217"`
	Origin      AddressRequest      `json:"origin"`
	Destination AddressRequest      `json:"destination"`
	Packages    []logistics.Package `json:"packages,omitempty" binding:"omitempty,max=50"`
	Options     integration.Options `json:"options"`
}

// ToDomain converts to an integrated quote request
func (r IntegratedQuoteRequest) ToDomain() integration.Request {
	opts := r.Options
	opts.DeliveryMode = shared.DeliveryMode(strings.ToUpper(string(opts.DeliveryMode)))
	return integration.Request{
		Items:       r.Items,
		Customer:    r.Customer,
		SellerID:    r.SellerID,
		Currency:    valueobject.Currency(strings.ToUpper(r.Currency)),
		Origin:      r.Origin.ToDomain(),
		Destination: r.Destination.ToDomain(),
		Packages:    r.Packages,
		Options:     opts,
	}
}

// AddressValidationRequest is the body of POST /addresses/validate
type AddressValidationRequest struct {
	Address AddressRequest `json:"address"`
}

// BookShipmentRequest books a quote for an order. The order is the same
// body that produced the quote; it drives the parcel data and the relief
// usage recorded once the carrier accepts the booking.
type BookShipmentRequest struct {
	Order IntegratedQuoteRequest `json:"order"`
	Quote logistics.Quote        `json:"quote"`
}

// ManifestRequest lists the shipments to hand over in one manifest
type ManifestRequest struct {
	OrderIDs []string `json:"orderIds" binding:"required,min=1,max=500,dive,required"`
}

func deliveryMode(s string) shared.DeliveryMode {
	return shared.DeliveryMode(strings.ToUpper(strings.TrimSpace(s)))
}
