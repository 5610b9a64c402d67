package integration

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
)

// DefaultItemWeightKg is assumed per unit when an item carries no weight
var DefaultItemWeightKg = decimal.RequireFromString("0.5")

// Options tune an integrated quote request
type Options struct {
	// DeliveryMode pins a single mode; empty quotes both.
	DeliveryMode     shared.DeliveryMode `json:"deliveryMode,omitempty"`
	IncludeInsurance bool                `json:"includeInsurance"`
	MaxResults       int                 `json:"maxResults,omitempty"`
	UseCache         *bool               `json:"useCache,omitempty"`
	IncludeProviders []string            `json:"includeProviders,omitempty"`
	ExcludeProviders []string            `json:"excludeProviders,omitempty"`
	MaxDeliveryDays  int                 `json:"maxDeliveryDays,omitempty"`
	RequiredServices []string            `json:"requiredServices,omitempty"`
}

// Modes returns the candidate delivery modes in evaluation order
func (o Options) Modes() []shared.DeliveryMode {
	if o.DeliveryMode.IsValid() {
		return []shared.DeliveryMode{o.DeliveryMode}
	}
	return shared.AllDeliveryModes()
}

// Request is one order to price end to end
type Request struct {
	Items       []tax.OrderItem      `json:"items"`
	Customer    tax.Customer         `json:"customer"`
	SellerID    string               `json:"sellerId,omitempty"`
	Currency    valueobject.Currency `json:"currency"`
	Origin      valueobject.Address  `json:"origin"`
	Destination valueobject.Address  `json:"destination"`
	// Packages default to a single parcel derived from the items.
	Packages []logistics.Package `json:"packages,omitempty"`
	Options  Options             `json:"options"`
}

// WithDeliveryMode returns a copy pinned to mode
func (r Request) WithDeliveryMode(mode shared.DeliveryMode) Request {
	r.Options.DeliveryMode = mode
	return r
}

func (r Request) currency() valueobject.Currency {
	if r.Currency == "" {
		return valueobject.DefaultCurrency
	}
	return r.Currency
}

// TaxRequest builds the tax calculation request for one delivery mode
func (r Request) TaxRequest(mode shared.DeliveryMode) tax.CalculationRequest {
	opts := tax.DefaultOptions()
	if r.Options.UseCache != nil {
		opts.UseCache = *r.Options.UseCache
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
		Currency:     r.currency(),
		DeliveryMode: mode,
		Options:      opts,
	}
}

// ShipmentRequest builds the logistics request
func (r Request) ShipmentRequest() logistics.Request {
	cur := r.currency()
	value := decimal.Zero
	for _, item := range r.Items {
		value = value.Add(item.TotalValue())
	}
	packages := r.Packages
	if len(packages) == 0 {
		packages = []logistics.Package{r.derivePackage(value, cur)}
	}
	return logistics.Request{
		Origin:           r.Origin,
		Destination:      r.Destination,
		Packages:         packages,
		ShipmentValue:    valueobject.FromDecimal(value, cur),
		DeliveryMode:     r.Options.DeliveryMode,
		RequiredServices: r.Options.RequiredServices,
		Currency:         cur,
	}
}

// QuoteOptions builds the aggregator options. Ranking happens after the
// join, so truncation is left to the orchestrator.
func (r Request) QuoteOptions() logistics.Options {
	return logistics.Options{
		IncludeProviders: r.Options.IncludeProviders,
		ExcludeProviders: r.Options.ExcludeProviders,
		MaxDeliveryDays:  r.Options.MaxDeliveryDays,
		DeliveryMode:     r.Options.DeliveryMode,
		UseCache:         r.Options.UseCache,
		SortBy:           logistics.SortByCost,
	}
}

func (r Request) derivePackage(value decimal.Decimal, cur valueobject.Currency) logistics.Package {
	weight := decimal.Zero
	hsCode := ""
	for _, item := range r.Items {
		w := item.WeightKg
		if !w.IsPositive() {
			w = DefaultItemWeightKg
		}
		weight = weight.Add(w.Mul(decimal.NewFromInt(int64(max(item.Quantity, 1)))))
		if hsCode == "" {
			hsCode = item.HSCode
		}
	}
	return logistics.Package{
		WeightKg:      weight,
		DeclaredValue: valueobject.FromDecimal(value, cur),
		HSCode:        hsCode,
		Quantity:      1,
		Description:   fmt.Sprintf("%d item(s)", len(r.Items)),
	}
}

// Validate checks both halves of the request and returns one error per violation
func (r Request) Validate() []shared.CalculationError {
	errs := r.TaxRequest(shared.DeliveryModeDDP).Validate()
	seen := make(map[string]bool, len(errs))
	for _, e := range errs {
		seen[e.Field] = true
	}
	derived := len(r.Packages) == 0
	for _, e := range r.ShipmentRequest().Validate() {
		switch {
		case seen[e.Field]:
		case e.Field == "destination" && seen["destination.countryCode"]:
		case derived && strings.HasPrefix(e.Field, "packages"):
			// a derived parcel only repeats item violations
		default:
			errs = append(errs, e)
		}
	}
	return errs
}
