package logistics

import (
	"context"
	"time"

	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// ProviderConfig is the adapter-independent part of a carrier configuration
type ProviderConfig struct {
	ID       string            `json:"id" mapstructure:"id"`
	Name     string            `json:"name" mapstructure:"name"`
	Enabled  bool              `json:"enabled" mapstructure:"enabled"`
	Timeout  time.Duration     `json:"timeout" mapstructure:"timeout"`
	Settings map[string]string `json:"settings,omitempty" mapstructure:"settings"`
}

// ---------------------------------------------------------------------------
// CarrierProvider Port Interface
// ---------------------------------------------------------------------------

// CarrierProvider defines the port interface for physical carriers.
// It is defined in the domain layer; concrete adapters live in the
// infrastructure layer and keep their wire formats to themselves.
type CarrierProvider interface {
	// ID returns the stable registry key of the carrier
	ID() string

	// Name returns the display name of the carrier
	Name() string

	// Initialize applies cfg and prepares the adapter for use
	Initialize(ctx context.Context, cfg ProviderConfig) error

	// ValidateConfig checks that the adapter has everything it needs
	ValidateConfig() error

	// TestConnection checks that the carrier can be reached
	TestConnection(ctx context.Context) error

	// ---------------------------------------------------------------------------
	// Quoting and booking
	// ---------------------------------------------------------------------------

	// GetQuotes prices every service available for req
	GetQuotes(ctx context.Context, req Request) ([]Quote, error)

	// CreateShipment books quote for req
	CreateShipment(ctx context.Context, quote Quote, req Request) (*ShipmentOrder, error)

	// CancelShipment cancels a booked shipment
	CancelShipment(ctx context.Context, orderID string) error

	// ---------------------------------------------------------------------------
	// Tracking
	// ---------------------------------------------------------------------------

	// TrackShipment returns the checkpoints of a shipment, oldest first
	TrackShipment(ctx context.Context, trackingNumber string) ([]TrackingEvent, error)

	// GetShipmentStatus returns the latest status of a shipment
	GetShipmentStatus(ctx context.Context, trackingNumber string) (ShipmentStatus, error)

	// ---------------------------------------------------------------------------
	// Documents
	// ---------------------------------------------------------------------------

	// GenerateLabel renders the shipping label and returns its download URL
	GenerateLabel(ctx context.Context, orderID string) (string, error)

	// GenerateManifest renders the hand-over manifest for orderIDs and returns its download URL
	GenerateManifest(ctx context.Context, orderIDs []string) (string, error)

	// ---------------------------------------------------------------------------
	// Reference data
	// ---------------------------------------------------------------------------

	// ValidateAddress reports whether the carrier can deliver to addr
	ValidateAddress(ctx context.Context, addr valueobject.Address) (bool, error)

	// GetAvailableServices lists service codes offered to countryCode
	GetAvailableServices(ctx context.Context, countryCode string) ([]string, error)
}

// ProviderRegistry resolves carriers by id
type ProviderRegistry interface {
	// Get returns the carrier registered under id
	Get(id string) (CarrierProvider, error)

	// List returns every registered carrier in registration order
	List() []CarrierProvider
}
