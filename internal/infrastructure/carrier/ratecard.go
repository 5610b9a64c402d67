package carrier

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/infrastructure/storage"
)

// ZoneEU matches every EU member state, ZoneDefault matches any other country.
const (
	ZoneEU      = "EU"
	ZoneDefault = "*"
)

var hundred = decimal.NewFromInt(100)

// ServiceLevel is one priced service of a rate card
type ServiceLevel struct {
	Code       string
	Name       string
	Class      logistics.ServiceClass
	Multiplier decimal.Decimal
	Days       int
	MinDays    int
	MaxDays    int
	Guaranteed bool
	Features   []string
}

// HasFeature reports whether the service offers tag
func (s ServiceLevel) HasFeature(tag string) bool {
	return slices.ContainsFunc(s.Features, func(f string) bool { return strings.EqualFold(f, tag) })
}

// RateCard is the static tariff of an offline carrier.
// Price = (BaseFee + PerKg × chargeable kg) × zone × service multiplier.
type RateCard struct {
	Currency         valueobject.Currency
	BaseFee          decimal.Decimal
	PerKg            decimal.Decimal
	FuelSurchargePct decimal.Decimal
	// DDPFee is the clearance fee added to DDP quotes.
	DDPFee decimal.Decimal
	// DutyEstimatePct is the share of the shipment value the carrier
	// prepays as duties and taxes on DDP quotes.
	DutyEstimatePct decimal.Decimal
	// Zones maps a country code, ZoneEU or ZoneDefault to a price multiplier.
	Zones      map[string]decimal.Decimal
	Prohibited []string
	Services   []ServiceLevel
}

// Zone returns the multiplier for countryCode
func (c RateCard) Zone(countryCode string) (decimal.Decimal, bool) {
	cc := strings.ToUpper(countryCode)
	if slices.Contains(c.Prohibited, cc) {
		return decimal.Zero, false
	}
	if m, ok := c.Zones[cc]; ok {
		return m, true
	}
	if shared.IsEUMember(cc) {
		if m, ok := c.Zones[ZoneEU]; ok {
			return m, true
		}
	}
	m, ok := c.Zones[ZoneDefault]
	return m, ok
}

// Validate checks the card is usable
func (c RateCard) Validate() error {
	if !c.Currency.IsValid() {
		return fmt.Errorf("%w: invalid currency %q", logistics.ErrProviderNotConfigured, c.Currency)
	}
	if c.PerKg.IsNegative() || c.BaseFee.IsNegative() {
		return fmt.Errorf("%w: negative tariff", logistics.ErrProviderNotConfigured)
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("%w: no service levels", logistics.ErrProviderNotConfigured)
	}
	if len(c.Zones) == 0 {
		return fmt.Errorf("%w: no zones", logistics.ErrProviderNotConfigured)
	}
	for _, s := range c.Services {
		if s.Code == "" || !s.Multiplier.IsPositive() || s.Days <= 0 {
			return fmt.Errorf("%w: service %q needs a code, a positive multiplier and days", logistics.ErrProviderNotConfigured, s.Code)
		}
	}
	return nil
}

// shipment is a booking held by the rate-card carrier
type shipment struct {
	order  logistics.ShipmentOrder
	req    logistics.Request
	weight decimal.Decimal
}

// RateCardOption configures a RateCardCarrier
type RateCardOption func(*RateCardCarrier)

// WithDocumentStorage enables labels and manifests
func WithDocumentStorage(docs storage.DocumentStorage) RateCardOption {
	return func(c *RateCardCarrier) {
		c.docs = docs
	}
}

// WithRateCardClock overrides the time source
func WithRateCardClock(now func() time.Time) RateCardOption {
	return func(c *RateCardCarrier) {
		c.now = now
	}
}

// WithRateCardLogger sets the logger
func WithRateCardLogger(l *zap.Logger) RateCardOption {
	return func(c *RateCardCarrier) {
		if l != nil {
			c.logger = l
		}
	}
}

// RateCardCarrier prices from a static tariff and keeps bookings in memory.
// Shipment progress is simulated from the booking time and the service transit days.
type RateCardCarrier struct {
	id     string
	name   string
	card   RateCard
	docs   storage.DocumentStorage
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	shipments  map[string]*shipment
	byTracking map[string]string
	seq        atomic.Int64
}

var _ logistics.CarrierProvider = (*RateCardCarrier)(nil)

// NewRateCardCarrier creates a rate-card carrier
func NewRateCardCarrier(id, name string, card RateCard, opts ...RateCardOption) (*RateCardCarrier, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", logistics.ErrProviderNotConfigured)
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if name == "" {
		name = id
	}
	c := &RateCardCarrier{
		id:         id,
		name:       name,
		card:       card,
		logger:     zap.NewNop(),
		now:        time.Now,
		shipments:  make(map[string]*shipment),
		byTracking: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the provider id
func (c *RateCardCarrier) ID() string { return c.id }

// Name returns the display name
func (c *RateCardCarrier) Name() string { return c.name }

// Initialize applies the adapter-independent configuration
func (c *RateCardCarrier) Initialize(_ context.Context, cfg logistics.ProviderConfig) error {
	if cfg.ID != "" && cfg.ID != c.id {
		return fmt.Errorf("%w: config for %q applied to %q", logistics.ErrProviderNotConfigured, cfg.ID, c.id)
	}
	if cfg.Name != "" {
		c.name = cfg.Name
	}
	return c.ValidateConfig()
}

// ValidateConfig validates the rate card
func (c *RateCardCarrier) ValidateConfig() error {
	return c.card.Validate()
}

// TestConnection always succeeds: the carrier is offline
func (c *RateCardCarrier) TestConnection(context.Context) error {
	return nil
}

// ---------------------------------------------------------------------------
// Quoting and booking
// ---------------------------------------------------------------------------

// GetQuotes prices every service that offers the required features. An
// unpinned request is priced under both delivery modes.
func (c *RateCardCarrier) GetQuotes(ctx context.Context, req logistics.Request) ([]logistics.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zone, ok := c.card.Zone(req.Destination.CountryCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", logistics.ErrUnsupportedDestination, req.Destination.CountryCode)
	}

	modes := shared.AllDeliveryModes()
	if req.DeliveryMode.IsValid() {
		modes = []shared.DeliveryMode{req.DeliveryMode}
	}

	weight := req.TotalChargeableWeight()
	var quotes []logistics.Quote
	for _, svc := range c.card.Services {
		if !c.offers(svc, req.RequiredServices) {
			continue
		}
		for _, mode := range modes {
			quotes = append(quotes, c.price(svc, req, mode, zone, weight))
		}
	}
	return quotes, nil
}

func (c *RateCardCarrier) offers(svc ServiceLevel, required []string) bool {
	for _, tag := range required {
		if !svc.HasFeature(tag) {
			return false
		}
	}
	return true
}

func (c *RateCardCarrier) price(svc ServiceLevel, req logistics.Request, mode shared.DeliveryMode, zone, weight decimal.Decimal) logistics.Quote {
	cur := c.card.Currency
	money := func(d decimal.Decimal) valueobject.Money { return valueobject.FromDecimal(d.Round(2), cur) }

	base := c.card.BaseFee.Add(c.card.PerKg.Mul(weight)).Mul(zone).Mul(svc.Multiplier).Round(2)
	charges := base
	var surcharges []logistics.Surcharge
	if c.card.FuelSurchargePct.IsPositive() {
		fuel := base.Mul(c.card.FuelSurchargePct).Div(hundred).Round(2)
		surcharges = append(surcharges, logistics.Surcharge{Name: "FUEL", Amount: money(fuel)})
		charges = charges.Add(fuel)
	}

	duties := decimal.Zero
	if mode == shared.DeliveryModeDDP {
		if c.card.DDPFee.IsPositive() {
			surcharges = append(surcharges, logistics.Surcharge{Name: "DDP_CLEARANCE", Amount: money(c.card.DDPFee)})
			charges = charges.Add(c.card.DDPFee)
		}
		// The carrier's duty estimate is in the card currency only when the
		// declared value is; otherwise it is left to the tax calculator.
		if req.ShipmentValue.Currency() == cur {
			duties = req.ShipmentValue.Amount().Mul(c.card.DutyEstimatePct).Div(hundred).Round(2)
		}
	}
	total := charges.Add(duties)

	var restrictions []string
	if mode == shared.DeliveryModeDAP {
		restrictions = append(restrictions, "recipient pays import charges on delivery")
	}

	return logistics.Quote{
		ProviderID:   c.id,
		ProviderName: c.name,
		ServiceCode:  svc.Code,
		ServiceName:  svc.Name,
		ServiceClass: svc.Class,
		DeliveryMode: mode,
		Pricing: logistics.Pricing{
			BaseCost:       money(base),
			Surcharges:     surcharges,
			DutiesAndTaxes: money(duties),
			Total:          money(total),
			NetCost:        money(total),
		},
		Delivery: logistics.DeliveryEstimate{
			Days:             svc.Days,
			MinDays:          max(svc.MinDays, 1),
			MaxDays:          max(svc.MaxDays, svc.Days),
			BusinessDaysOnly: true,
			Guaranteed:       svc.Guaranteed,
		},
		Features:     slices.Clone(svc.Features),
		Restrictions: restrictions,
		Tracking: logistics.TrackingCapabilities{
			Available:         svc.HasFeature("tracking"),
			RealTime:          svc.Class == logistics.ServiceClassExpress,
			ProofOfDelivery:   svc.HasFeature("signature"),
			SignatureRequired: svc.HasFeature("signature"),
		},
	}
}

func (c *RateCardCarrier) service(code string) (ServiceLevel, bool) {
	for _, s := range c.card.Services {
		if s.Code == code {
			return s, true
		}
	}
	return ServiceLevel{}, false
}

// CreateShipment books quote
func (c *RateCardCarrier) CreateShipment(ctx context.Context, quote logistics.Quote, req logistics.Request) (*logistics.ShipmentOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if quote.ProviderID != "" && quote.ProviderID != c.id {
		return nil, fmt.Errorf("%w: quote belongs to %s", logistics.ErrProviderRequestFailed, quote.ProviderID)
	}
	svc, ok := c.service(quote.ServiceCode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", logistics.ErrServiceNotAvailable, quote.ServiceCode)
	}
	if _, ok := c.card.Zone(req.Destination.CountryCode); !ok {
		return nil, fmt.Errorf("%w: %s", logistics.ErrUnsupportedDestination, req.Destination.CountryCode)
	}

	n := c.seq.Add(1)
	order := logistics.ShipmentOrder{
		ID:             uuid.NewString(),
		ProviderID:     c.id,
		QuoteID:        quote.ID,
		ServiceCode:    svc.Code,
		TrackingNumber: fmt.Sprintf("%s%010d", strings.ToUpper(c.id[:min(3, len(c.id))]), n),
		Status:         logistics.ShipmentCreated,
		DeliveryMode:   quote.DeliveryMode,
		Cost:           quote.Pricing.NetCost,
		EstimatedDays:  svc.Days,
		CreatedAt:      c.now(),
	}

	c.mu.Lock()
	c.shipments[order.ID] = &shipment{order: order, req: req, weight: req.TotalChargeableWeight()}
	c.byTracking[order.TrackingNumber] = order.ID
	c.mu.Unlock()

	c.logger.Info("Shipment booked",
		zap.String("provider_id", c.id),
		zap.String("order_id", order.ID),
		zap.String("tracking_number", order.TrackingNumber),
	)
	return &order, nil
}

// CancelShipment cancels a booking that has not been picked up yet
func (c *RateCardCarrier) CancelShipment(_ context.Context, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.shipments[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", logistics.ErrShipmentNotFound, orderID)
	}
	if s.order.Status == logistics.ShipmentCancelled {
		return nil
	}
	if status := c.progress(s.order); status != logistics.ShipmentCreated {
		return fmt.Errorf("%w: shipment is %s", logistics.ErrShipmentNotCancellable, status)
	}
	s.order.Status = logistics.ShipmentCancelled
	return nil
}

// ---------------------------------------------------------------------------
// Tracking
// ---------------------------------------------------------------------------

// progress derives the simulated status from elapsed transit time
func (c *RateCardCarrier) progress(order logistics.ShipmentOrder) logistics.ShipmentStatus {
	if order.Status.IsFinal() {
		return order.Status
	}
	transit := time.Duration(max(order.EstimatedDays, 1)) * 24 * time.Hour
	elapsed := c.now().Sub(order.CreatedAt)
	switch {
	case elapsed < transit/10:
		return logistics.ShipmentCreated
	case elapsed < transit*6/10:
		return logistics.ShipmentInTransit
	case elapsed < transit*8/10:
		return logistics.ShipmentCustoms
	case elapsed < transit:
		return logistics.ShipmentOutForDelivery
	default:
		return logistics.ShipmentDelivered
	}
}

var milestones = []struct {
	status   logistics.ShipmentStatus
	fraction int // tenths of transit time
	text     string
}{
	{logistics.ShipmentCreated, 0, "Shipment information received"},
	{logistics.ShipmentInTransit, 1, "Departed origin facility"},
	{logistics.ShipmentCustoms, 6, "Arrived at destination customs"},
	{logistics.ShipmentOutForDelivery, 8, "Out for delivery"},
	{logistics.ShipmentDelivered, 10, "Delivered"},
}

func (c *RateCardCarrier) lookup(trackingNumber string) (*shipment, error) {
	id, ok := c.byTracking[trackingNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", logistics.ErrTrackingNumberNotFound, trackingNumber)
	}
	return c.shipments[id], nil
}

// TrackShipment returns every checkpoint reached so far, oldest first
func (c *RateCardCarrier) TrackShipment(_ context.Context, trackingNumber string) ([]logistics.TrackingEvent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, err := c.lookup(trackingNumber)
	if err != nil {
		return nil, err
	}
	transit := time.Duration(max(s.order.EstimatedDays, 1)) * 24 * time.Hour
	now := c.now()
	origin := s.req.Origin.CountryCode
	dest := s.req.Destination.CountryCode

	var events []logistics.TrackingEvent
	for _, m := range milestones {
		at := s.order.CreatedAt.Add(transit * time.Duration(m.fraction) / 10)
		if at.After(now) {
			break
		}
		if s.order.Status == logistics.ShipmentCancelled && m.status != logistics.ShipmentCreated {
			break
		}
		loc := dest
		if m.status == logistics.ShipmentCreated || m.status == logistics.ShipmentInTransit {
			loc = origin
		}
		events = append(events, logistics.TrackingEvent{Timestamp: at, Status: m.status, Location: loc, Description: m.text})
	}
	if s.order.Status == logistics.ShipmentCancelled {
		events = append(events, logistics.TrackingEvent{Timestamp: now, Status: logistics.ShipmentCancelled, Location: origin, Description: "Shipment cancelled"})
	}
	return events, nil
}

// GetShipmentStatus returns the latest status
func (c *RateCardCarrier) GetShipmentStatus(_ context.Context, trackingNumber string) (logistics.ShipmentStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, err := c.lookup(trackingNumber)
	if err != nil {
		return "", err
	}
	return c.progress(s.order), nil
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// GenerateLabel renders a text label, stores it and returns its download URL
func (c *RateCardCarrier) GenerateLabel(ctx context.Context, orderID string) (string, error) {
	if c.docs == nil {
		return "", logistics.ErrDocumentStorageRequired
	}
	c.mu.RLock()
	s, ok := c.shipments[orderID]
	var order logistics.ShipmentOrder
	var req logistics.Request
	var weight decimal.Decimal
	if ok {
		order, req, weight = s.order, s.req, s.weight
	}
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", logistics.ErrShipmentNotFound, orderID)
	}
	if order.Status == logistics.ShipmentCancelled {
		return "", fmt.Errorf("%w: shipment %s is cancelled", logistics.ErrProviderRequestFailed, orderID)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", strings.ToUpper(c.name))
	fmt.Fprintf(&buf, "SERVICE: %s   MODE: %s\n", order.ServiceCode, order.DeliveryMode)
	fmt.Fprintf(&buf, "TRACKING: %s\n", order.TrackingNumber)
	fmt.Fprintf(&buf, "FROM: %s\n", req.Origin.OneLine())
	fmt.Fprintf(&buf, "TO:   %s %s\n", req.Destination.Name, req.Destination.OneLine())
	fmt.Fprintf(&buf, "WEIGHT: %s kg   PIECES: %d\n", weight.StringFixed(2), req.PackageCount())
	fmt.Fprintf(&buf, "DECLARED: %s\n", req.ShipmentValue)

	key := fmt.Sprintf("labels/%s/%s.txt", c.id, order.ID)
	if err := c.docs.Upload(ctx, key, buf.Bytes(), "text/plain"); err != nil {
		return "", fmt.Errorf("%w: %v", logistics.ErrProviderRequestFailed, err)
	}
	url, _, err := c.docs.GenerateDownloadURL(ctx, key, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", logistics.ErrProviderRequestFailed, err)
	}

	c.mu.Lock()
	if s, ok := c.shipments[orderID]; ok {
		s.order.LabelURL = url
	}
	c.mu.Unlock()
	return url, nil
}

// GenerateManifest renders a CSV hand-over manifest for orderIDs
func (c *RateCardCarrier) GenerateManifest(ctx context.Context, orderIDs []string) (string, error) {
	if c.docs == nil {
		return "", logistics.ErrDocumentStorageRequired
	}
	if len(orderIDs) == 0 {
		return "", errors.New("carrier: manifest needs at least one order")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"order_id", "tracking_number", "service", "delivery_mode", "destination", "pieces", "weight_kg", "declared_value", "currency"})

	c.mu.RLock()
	for _, id := range orderIDs {
		s, ok := c.shipments[id]
		if !ok {
			c.mu.RUnlock()
			return "", fmt.Errorf("%w: %s", logistics.ErrShipmentNotFound, id)
		}
		_ = w.Write([]string{
			s.order.ID,
			s.order.TrackingNumber,
			s.order.ServiceCode,
			s.order.DeliveryMode.String(),
			s.req.Destination.CountryCode,
			fmt.Sprint(s.req.PackageCount()),
			s.weight.StringFixed(2),
			s.req.ShipmentValue.Amount().StringFixed(2),
			s.req.ShipmentValue.Currency().String(),
		})
	}
	c.mu.RUnlock()
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("manifests/%s/%s.csv", c.id, uuid.NewString())
	if err := c.docs.Upload(ctx, key, buf.Bytes(), "text/csv"); err != nil {
		return "", fmt.Errorf("%w: %v", logistics.ErrProviderRequestFailed, err)
	}
	url, _, err := c.docs.GenerateDownloadURL(ctx, key, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", logistics.ErrProviderRequestFailed, err)
	}
	return url, nil
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// ValidateAddress accepts well-formed addresses in a served zone
func (c *RateCardCarrier) ValidateAddress(_ context.Context, addr valueobject.Address) (bool, error) {
	if err := addr.Validate(); err != nil {
		return false, nil
	}
	_, ok := c.card.Zone(addr.CountryCode)
	return ok, nil
}

// GetAvailableServices lists service codes offered to countryCode
func (c *RateCardCarrier) GetAvailableServices(_ context.Context, countryCode string) ([]string, error) {
	if _, ok := c.card.Zone(countryCode); !ok {
		return []string{}, nil
	}
	codes := make([]string, 0, len(c.card.Services))
	for _, s := range c.card.Services {
		codes = append(codes, s.Code)
	}
	return codes, nil
}
