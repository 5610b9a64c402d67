package carrier

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/infrastructure/telemetry"
)

// RetryPolicy bounds retries of idempotent carrier calls
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns three attempts with 200ms..2s backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// ResilientCarrier decorates a provider with per-call timeouts and retries.
// Only idempotent calls are retried; bookings, cancellations and manifests
// run once.
type ResilientCarrier struct {
	logistics.CarrierProvider
	policy  RetryPolicy
	timeout time.Duration
	metrics *telemetry.DecisionMetrics
	logger  *zap.Logger
}

var _ logistics.CarrierProvider = (*ResilientCarrier)(nil)

// ResilientOption configures a ResilientCarrier
type ResilientOption func(*ResilientCarrier)

// WithRetryPolicy sets the retry policy
func WithRetryPolicy(p RetryPolicy) ResilientOption {
	return func(r *ResilientCarrier) { r.policy = p }
}

// WithCallTimeout bounds every single attempt
func WithCallTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientCarrier) { r.timeout = d }
}

// WithRetryMetrics records retries
func WithRetryMetrics(m *telemetry.DecisionMetrics) ResilientOption {
	return func(r *ResilientCarrier) { r.metrics = m }
}

// WithResilientLogger sets the logger
func WithResilientLogger(l *zap.Logger) ResilientOption {
	return func(r *ResilientCarrier) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResilientCarrier wraps next
func NewResilientCarrier(next logistics.CarrierProvider, opts ...ResilientOption) *ResilientCarrier {
	r := &ResilientCarrier{
		CarrierProvider: next,
		policy:          DefaultRetryPolicy(),
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.policy.MaxAttempts < 1 {
		r.policy.MaxAttempts = 1
	}
	return r
}

// Unwrap returns the decorated provider
func (r *ResilientCarrier) Unwrap() logistics.CarrierProvider {
	return r.CarrierProvider
}

func (r *ResilientCarrier) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialDelay > 0 {
		b.InitialInterval = r.policy.InitialDelay
	}
	if r.policy.MaxDelay > 0 {
		b.MaxInterval = r.policy.MaxDelay
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.policy.MaxAttempts-1)), ctx)
}

func (r *ResilientCarrier) attempt(ctx context.Context, fn func(context.Context) error) error {
	if r.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(ctx)
}

// retry runs fn until it succeeds, fails permanently or the policy is spent
func (r *ResilientCarrier) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	id := r.ID()
	operation := func() error {
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !logistics.IsRetryable(logistics.AsProviderError(id, err)) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.metrics.RecordProviderRetry(ctx, id)
		r.logger.Warn("Retrying carrier call",
			zap.String("provider_id", id),
			zap.String("operation", op),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	return backoff.RetryNotify(operation, r.backOff(ctx), notify)
}

// once runs fn a single time under the call timeout
func (r *ResilientCarrier) once(ctx context.Context, fn func(context.Context) error) error {
	return r.attempt(ctx, fn)
}

// TestConnection checks that the carrier is reachable
func (r *ResilientCarrier) TestConnection(ctx context.Context) error {
	return r.retry(ctx, "test_connection", r.CarrierProvider.TestConnection)
}

// GetQuotes retrieves quotes with retries
func (r *ResilientCarrier) GetQuotes(ctx context.Context, req logistics.Request) ([]logistics.Quote, error) {
	var quotes []logistics.Quote
	err := r.retry(ctx, "get_quotes", func(ctx context.Context) error {
		var err error
		quotes, err = r.CarrierProvider.GetQuotes(ctx, req)
		return err
	})
	return quotes, err
}

// CreateShipment books once
func (r *ResilientCarrier) CreateShipment(ctx context.Context, quote logistics.Quote, req logistics.Request) (*logistics.ShipmentOrder, error) {
	var order *logistics.ShipmentOrder
	err := r.once(ctx, func(ctx context.Context) error {
		var err error
		order, err = r.CarrierProvider.CreateShipment(ctx, quote, req)
		return err
	})
	return order, err
}

// CancelShipment cancels once
func (r *ResilientCarrier) CancelShipment(ctx context.Context, orderID string) error {
	return r.once(ctx, func(ctx context.Context) error {
		return r.CarrierProvider.CancelShipment(ctx, orderID)
	})
}

// TrackShipment retrieves checkpoints with retries
func (r *ResilientCarrier) TrackShipment(ctx context.Context, trackingNumber string) ([]logistics.TrackingEvent, error) {
	var events []logistics.TrackingEvent
	err := r.retry(ctx, "track_shipment", func(ctx context.Context) error {
		var err error
		events, err = r.CarrierProvider.TrackShipment(ctx, trackingNumber)
		return err
	})
	return events, err
}

// GetShipmentStatus retrieves the status with retries
func (r *ResilientCarrier) GetShipmentStatus(ctx context.Context, trackingNumber string) (logistics.ShipmentStatus, error) {
	var status logistics.ShipmentStatus
	err := r.retry(ctx, "shipment_status", func(ctx context.Context) error {
		var err error
		status, err = r.CarrierProvider.GetShipmentStatus(ctx, trackingNumber)
		return err
	})
	return status, err
}

// GenerateLabel renders the label with retries
func (r *ResilientCarrier) GenerateLabel(ctx context.Context, orderID string) (string, error) {
	var link string
	err := r.retry(ctx, "generate_label", func(ctx context.Context) error {
		var err error
		link, err = r.CarrierProvider.GenerateLabel(ctx, orderID)
		return err
	})
	return link, err
}

// GenerateManifest renders once
func (r *ResilientCarrier) GenerateManifest(ctx context.Context, orderIDs []string) (string, error) {
	var link string
	err := r.once(ctx, func(ctx context.Context) error {
		var err error
		link, err = r.CarrierProvider.GenerateManifest(ctx, orderIDs)
		return err
	})
	return link, err
}

// ValidateAddress validates with retries
func (r *ResilientCarrier) ValidateAddress(ctx context.Context, addr valueobject.Address) (bool, error) {
	var ok bool
	err := r.retry(ctx, "validate_address", func(ctx context.Context) error {
		var err error
		ok, err = r.CarrierProvider.ValidateAddress(ctx, addr)
		return err
	})
	return ok, err
}

// GetAvailableServices lists services with retries
func (r *ResilientCarrier) GetAvailableServices(ctx context.Context, countryCode string) ([]string, error) {
	var services []string
	err := r.retry(ctx, "available_services", func(ctx context.Context) error {
		var err error
		services, err = r.CarrierProvider.GetAvailableServices(ctx, countryCode)
		return err
	})
	return services, err
}
