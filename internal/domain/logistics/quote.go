package logistics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// ServiceClass is the speed tier of a carrier service
type ServiceClass string

const (
	ServiceClassEconomy  ServiceClass = "ECONOMY"
	ServiceClassStandard ServiceClass = "STANDARD"
	ServiceClassExpress  ServiceClass = "EXPRESS"
	ServiceClassPacket   ServiceClass = "PACKET"
)

// IsValid checks if the service class is valid
func (c ServiceClass) IsValid() bool {
	switch c {
	case ServiceClassEconomy, ServiceClassStandard, ServiceClassExpress, ServiceClassPacket:
		return true
	}
	return false
}

// Surcharge is a named extra charge
type Surcharge struct {
	Name   string            `json:"name"`
	Amount valueobject.Money `json:"amount"`
}

// Pricing is the cost breakdown of a quote. Every amount is in the same currency.
type Pricing struct {
	BaseCost       valueobject.Money `json:"baseCost"`
	Surcharges     []Surcharge       `json:"surcharges,omitempty"`
	DutiesAndTaxes valueobject.Money `json:"dutiesAndTaxes"`
	Total          valueobject.Money `json:"total"`
	// NetCost is what the merchant pays the carrier.
	NetCost valueobject.Money `json:"netCost"`
}

// Currency of the pricing
func (p Pricing) Currency() valueobject.Currency {
	return p.NetCost.Currency()
}

// Scale converts every amount by rate into cur
func (p Pricing) Scale(rate decimal.Decimal, cur valueobject.Currency) Pricing {
	conv := func(m valueobject.Money) valueobject.Money {
		return valueobject.FromDecimal(m.Amount().Mul(rate).Round(2), cur)
	}
	out := Pricing{
		BaseCost:       conv(p.BaseCost),
		DutiesAndTaxes: conv(p.DutiesAndTaxes),
		Total:          conv(p.Total),
		NetCost:        conv(p.NetCost),
	}
	for _, s := range p.Surcharges {
		out.Surcharges = append(out.Surcharges, Surcharge{Name: s.Name, Amount: conv(s.Amount)})
	}
	return out
}

// DeliveryEstimate is the transit time of a service
type DeliveryEstimate struct {
	Days             int  `json:"days"`
	MinDays          int  `json:"minDays"`
	MaxDays          int  `json:"maxDays"`
	BusinessDaysOnly bool `json:"businessDaysOnly"`
	Guaranteed       bool `json:"guaranteed"`
}

// TrackingCapabilities describe what tracking a service offers
type TrackingCapabilities struct {
	Available         bool `json:"available"`
	RealTime          bool `json:"realTime"`
	ProofOfDelivery   bool `json:"proofOfDelivery"`
	SignatureRequired bool `json:"signatureRequired"`
}

// Quote is one priced carrier service offer
type Quote struct {
	ID           string               `json:"id"`
	ProviderID   string               `json:"providerId"`
	ProviderName string               `json:"providerName"`
	ServiceCode  string               `json:"serviceCode"`
	ServiceName  string               `json:"serviceName"`
	ServiceClass ServiceClass         `json:"serviceClass"`
	DeliveryMode shared.DeliveryMode  `json:"deliveryMode"`
	Pricing      Pricing              `json:"pricing"`
	Delivery     DeliveryEstimate     `json:"delivery"`
	Features     []string             `json:"features,omitempty"`
	Restrictions []string             `json:"restrictions,omitempty"`
	Tracking     TrackingCapabilities `json:"tracking"`
	ValidUntil   time.Time            `json:"validUntil"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// IsExpired reports whether the quote can no longer be booked at now
func (q Quote) IsExpired(now time.Time) bool {
	return !q.ValidUntil.IsZero() && !now.Before(q.ValidUntil)
}

// NetCost is a shorthand for the net cost amount
func (q Quote) NetCost() decimal.Decimal {
	return q.Pricing.NetCost.Amount()
}

// ---------------------------------------------------------------------------
// Shipments
// ---------------------------------------------------------------------------

// ShipmentStatus is the carrier-reported state of a shipment
type ShipmentStatus string

const (
	ShipmentCreated        ShipmentStatus = "CREATED"
	ShipmentInTransit      ShipmentStatus = "IN_TRANSIT"
	ShipmentCustoms        ShipmentStatus = "IN_CUSTOMS"
	ShipmentOutForDelivery ShipmentStatus = "OUT_FOR_DELIVERY"
	ShipmentDelivered      ShipmentStatus = "DELIVERED"
	ShipmentException      ShipmentStatus = "EXCEPTION"
	ShipmentCancelled      ShipmentStatus = "CANCELLED"
	ShipmentReturned       ShipmentStatus = "RETURNED"
)

// IsValid checks if the status is valid
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentCreated, ShipmentInTransit, ShipmentCustoms, ShipmentOutForDelivery,
		ShipmentDelivered, ShipmentException, ShipmentCancelled, ShipmentReturned:
		return true
	}
	return false
}

// IsFinal returns true for terminal states
func (s ShipmentStatus) IsFinal() bool {
	return s == ShipmentDelivered || s == ShipmentCancelled || s == ShipmentReturned
}

// ShipmentOrder is a booked shipment
type ShipmentOrder struct {
	ID             string              `json:"id"`
	ProviderID     string              `json:"providerId"`
	QuoteID        string              `json:"quoteId"`
	ServiceCode    string              `json:"serviceCode"`
	TrackingNumber string              `json:"trackingNumber"`
	Status         ShipmentStatus      `json:"status"`
	DeliveryMode   shared.DeliveryMode `json:"deliveryMode"`
	Cost           valueobject.Money   `json:"cost"`
	LabelURL       string              `json:"labelUrl,omitempty"`
	EstimatedDays  int                 `json:"estimatedDays"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// TrackingEvent is one checkpoint of a shipment
type TrackingEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	Status      ShipmentStatus `json:"status"`
	Location    string         `json:"location,omitempty"`
	Description string         `json:"description"`
}

// AddressVerdict is the outcome of a multi-provider address check
type AddressVerdict struct {
	Valid      bool            `json:"valid"`
	Responded  int             `json:"responded"`
	ValidVotes int             `json:"validVotes"`
	Votes      map[string]bool `json:"votes"`
}
