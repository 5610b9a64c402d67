// Package logistics models carrier quoting: requests, quotes, shipments,
// provider performance and the carrier provider port.
package logistics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// Dimensions are package dimensions in centimetres
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

// volumetricDivisor converts cm³ to volumetric kg
var volumetricDivisor = decimal.NewFromInt(5000)

// VolumetricWeight is L×W×H/5000 in kg
func (d Dimensions) VolumetricWeight() decimal.Decimal {
	return d.Length.Mul(d.Width).Mul(d.Height).Div(volumetricDivisor)
}

// Package is one parcel of a shipment
type Package struct {
	WeightKg      decimal.Decimal   `json:"weightKg"`
	Dimensions    *Dimensions       `json:"dimensions,omitempty"`
	DeclaredValue valueobject.Money `json:"declaredValue"`
	HSCode        string            `json:"hsCode,omitempty"`
	Quantity      int               `json:"quantity"`
	Description   string            `json:"description,omitempty"`
}

// ChargeableWeight is the greater of actual and volumetric weight, times quantity
func (p Package) ChargeableWeight() decimal.Decimal {
	w := p.WeightKg
	if p.Dimensions != nil {
		w = decimal.Max(w, p.Dimensions.VolumetricWeight())
	}
	return w.Mul(decimal.NewFromInt(int64(max(p.Quantity, 1))))
}

// Request is a quoting request for one shipment
type Request struct {
	Origin           valueobject.Address  `json:"origin"`
	Destination      valueobject.Address  `json:"destination"`
	Packages         []Package            `json:"packages"`
	ShipmentValue    valueobject.Money    `json:"shipmentValue"`
	DeliveryMode     shared.DeliveryMode  `json:"deliveryMode,omitempty"`
	RequiredServices []string             `json:"requiredServices,omitempty"`
	Currency         valueobject.Currency `json:"currency,omitempty"`
}

// QuoteCurrency is the currency quotes are normalized into
func (r Request) QuoteCurrency() valueobject.Currency {
	if r.Currency != "" {
		return r.Currency
	}
	if c := r.ShipmentValue.Currency(); c != "" {
		return c
	}
	return valueobject.DefaultCurrency
}

// TotalChargeableWeight sums every package's chargeable weight
func (r Request) TotalChargeableWeight() decimal.Decimal {
	total := decimal.Zero
	for _, p := range r.Packages {
		total = total.Add(p.ChargeableWeight())
	}
	return total
}

// PackageCount counts parcels including quantities
func (r Request) PackageCount() int {
	n := 0
	for _, p := range r.Packages {
		n += max(p.Quantity, 1)
	}
	return n
}

// HasService reports whether a service tag is required
func (r Request) HasService(tag string) bool {
	return slices.ContainsFunc(r.RequiredServices, func(s string) bool {
		return strings.EqualFold(s, tag)
	})
}

// WithDeliveryMode returns a copy forcing mode
func (r Request) WithDeliveryMode(mode shared.DeliveryMode) Request {
	r.DeliveryMode = mode
	return r
}

// Validate checks structural invariants and returns one error per violation
func (r Request) Validate() []shared.CalculationError {
	var errs []shared.CalculationError
	if err := r.Origin.Validate(); err != nil {
		errs = append(errs, shared.NewValidationError(shared.CodeValidationError, "origin", err.Error()))
	}
	if err := r.Destination.Validate(); err != nil {
		errs = append(errs, shared.NewValidationError(shared.CodeInvalidDestination, "destination", err.Error()))
	}
	if len(r.Packages) == 0 {
		errs = append(errs, shared.NewValidationError(shared.CodeEmptyItems, "packages", "at least one package is required"))
	}
	for i, p := range r.Packages {
		field := fmt.Sprintf("packages[%d]", i)
		if !p.WeightKg.IsPositive() {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".weightKg", "weight must be positive"))
		}
		if p.Quantity < 0 {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".quantity", "quantity cannot be negative"))
		}
		if p.DeclaredValue.Amount().IsNegative() {
			errs = append(errs, shared.NewValidationError(shared.CodeInvalidItem, field+".declaredValue", "declared value cannot be negative"))
		}
	}
	if r.ShipmentValue.Amount().IsNegative() {
		errs = append(errs, shared.NewValidationError(shared.CodeValidationError, "shipmentValue", "shipment value cannot be negative"))
	}
	if r.Currency != "" && !r.Currency.IsValid() {
		errs = append(errs, shared.NewValidationError(shared.CodeValidationError, "currency", "currency must be an ISO 4217 code"))
	}
	if r.DeliveryMode != "" && !r.DeliveryMode.IsValid() {
		errs = append(errs, shared.NewValidationError(shared.CodeInvalidDeliveryMode, "deliveryMode", "delivery mode must be DDP or DAP"))
	}
	return errs
}

// ---------------------------------------------------------------------------
// Quote options
// ---------------------------------------------------------------------------

// SortBy is the ordering criterion for merged quotes
type SortBy string

const (
	SortByCost        SortBy = "COST"
	SortByTime        SortBy = "TIME"
	SortByReliability SortBy = "RELIABILITY"
	// SortByScore orders by the composite lower-is-better score.
	SortByScore SortBy = "SCORE"
)

// IsValid checks if the sort criterion is valid
func (s SortBy) IsValid() bool {
	switch s {
	case SortByCost, SortByTime, SortByReliability, SortByScore:
		return true
	}
	return false
}

// Options tune provider selection, filtering and ordering
type Options struct {
	IncludeProviders []string            `json:"includeProviders,omitempty"`
	ExcludeProviders []string            `json:"excludeProviders,omitempty"`
	MaxCost          *decimal.Decimal    `json:"maxCost,omitempty"`
	MinDeliveryDays  int                 `json:"minDeliveryDays,omitempty"`
	MaxDeliveryDays  int                 `json:"maxDeliveryDays,omitempty"`
	DeliveryMode     shared.DeliveryMode `json:"deliveryMode,omitempty"`
	SortBy           SortBy              `json:"sortBy,omitempty"`
	MaxResults       int                 `json:"maxResults,omitempty"`
	UseCache         *bool               `json:"useCache,omitempty"`
}

// CacheEnabled defaults to true
func (o Options) CacheEnabled() bool {
	return o.UseCache == nil || *o.UseCache
}

// Eligible applies the include and exclude provider filters
func (o Options) Eligible(providerID string) bool {
	if len(o.IncludeProviders) > 0 && !slices.Contains(o.IncludeProviders, providerID) {
		return false
	}
	return !slices.Contains(o.ExcludeProviders, providerID)
}

type fingerprintPayload struct {
	Request Request  `json:"request"`
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// Fingerprint derives the cache key of a fan-out from the request and the
// provider selection. Post-filters and ordering are applied after the cache
// and do not take part.
func Fingerprint(req Request, opts Options) string {
	include := slices.Clone(opts.IncludeProviders)
	exclude := slices.Clone(opts.ExcludeProviders)
	slices.Sort(include)
	slices.Sort(exclude)

	req.Origin.CountryCode = strings.ToUpper(req.Origin.CountryCode)
	req.Destination.CountryCode = strings.ToUpper(req.Destination.CountryCode)
	req.Currency = req.QuoteCurrency()

	payload, err := json.Marshal(fingerprintPayload{Request: req, Include: include, Exclude: exclude})
	if err != nil {
		payload = []byte(fmt.Sprintf("%+v|%v|%v", req, include, exclude))
	}
	sum := sha256.Sum256(payload)
	return "quotes_" + hex.EncodeToString(sum[:16])
}
