package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

// maxResponseSize is the maximum accepted gateway response size (4MB)
const maxResponseSize = 4 * 1024 * 1024

// APIKeyHeader carries the gateway credential
const APIKeyHeader = "X-API-Key"

// HTTPConfig configures an HTTPCarrier
type HTTPConfig struct {
	ID      string
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Validate validates the configuration and applies defaults
func (c *HTTPConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", logistics.ErrProviderNotConfigured)
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", logistics.ErrProviderNotConfigured)
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("%w: invalid base URL: %v", logistics.ErrProviderNotConfigured, err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return nil
}

// HTTPCarrier talks JSON to a carrier gateway
type HTTPCarrier struct {
	id         string
	name       string
	config     HTTPConfig
	httpClient *http.Client
	logger     *zap.Logger
}

var _ logistics.CarrierProvider = (*HTTPCarrier)(nil)

// NewHTTPCarrier creates a gateway adapter
func NewHTTPCarrier(cfg HTTPConfig, logger *zap.Logger) (*HTTPCarrier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPCarrier{
		id:     cfg.ID,
		name:   cfg.Name,
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// ID returns the provider id
func (c *HTTPCarrier) ID() string { return c.id }

// Name returns the display name
func (c *HTTPCarrier) Name() string { return c.name }

// Initialize applies the adapter-independent configuration. Settings may
// carry base_url and api_key overrides.
func (c *HTTPCarrier) Initialize(_ context.Context, cfg logistics.ProviderConfig) error {
	next := c.config
	if cfg.Name != "" {
		next.Name = cfg.Name
	}
	if cfg.Timeout > 0 {
		next.Timeout = cfg.Timeout
	}
	if v := cfg.Settings["base_url"]; v != "" {
		next.BaseURL = v
	}
	if v := cfg.Settings["api_key"]; v != "" {
		next.APIKey = v
	}
	if err := next.Validate(); err != nil {
		return err
	}
	c.config = next
	c.name = next.Name
	c.httpClient.Timeout = next.Timeout
	return nil
}

// ValidateConfig validates the current configuration
func (c *HTTPCarrier) ValidateConfig() error {
	cfg := c.config
	return cfg.Validate()
}

// TestConnection calls the gateway health endpoint
func (c *HTTPCarrier) TestConnection(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ---------------------------------------------------------------------------
// Quoting and booking
// ---------------------------------------------------------------------------

// GetQuotes asks the gateway for rates
func (c *HTTPCarrier) GetQuotes(ctx context.Context, req logistics.Request) ([]logistics.Quote, error) {
	var resp rateResponse
	if err := c.do(ctx, http.MethodPost, "/rates", toRateRequest(req), &resp); err != nil {
		return nil, err
	}
	quotes := make([]logistics.Quote, 0, len(resp.Rates))
	for _, r := range resp.Rates {
		q, err := c.fromWireRate(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", logistics.ErrProviderInvalidResponse, err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// CreateShipment books a rate
func (c *HTTPCarrier) CreateShipment(ctx context.Context, quote logistics.Quote, req logistics.Request) (*logistics.ShipmentOrder, error) {
	body := shipmentRequest{
		rateRequest: toRateRequest(req.WithDeliveryMode(quote.DeliveryMode)),
		RateID:      quote.ID,
		ServiceCode: quote.ServiceCode,
	}
	var resp shipmentResponse
	if err := c.do(ctx, http.MethodPost, "/shipments", body, &resp); err != nil {
		return nil, err
	}
	if resp.ShipmentID == "" || resp.TrackingNumber == "" {
		return nil, fmt.Errorf("%w: shipment id and tracking number are required", logistics.ErrProviderInvalidResponse)
	}
	status := logistics.ShipmentCreated
	if resp.Status != "" {
		s, err := parseStatus(resp.Status)
		if err != nil {
			return nil, err
		}
		status = s
	}
	cost := quote.Pricing.NetCost
	if resp.Cost.Amount != "" {
		m, err := fromWireMoney(resp.Cost)
		if err != nil {
			return nil, fmt.Errorf("%w: cost: %v", logistics.ErrProviderInvalidResponse, err)
		}
		cost = m
	}
	days := resp.TransitDays
	if days == 0 {
		days = quote.Delivery.Days
	}
	return &logistics.ShipmentOrder{
		ID:             resp.ShipmentID,
		ProviderID:     c.id,
		QuoteID:        quote.ID,
		ServiceCode:    quote.ServiceCode,
		TrackingNumber: resp.TrackingNumber,
		Status:         status,
		DeliveryMode:   quote.DeliveryMode,
		Cost:           cost,
		LabelURL:       resp.LabelURL,
		EstimatedDays:  days,
		CreatedAt:      resp.CreatedAt,
	}, nil
}

// CancelShipment cancels a booking
func (c *HTTPCarrier) CancelShipment(ctx context.Context, orderID string) error {
	err := c.do(ctx, http.MethodPost, "/shipments/"+url.PathEscape(orderID)+"/cancel", nil, nil)
	return notFoundAs(err, logistics.ErrShipmentNotFound, orderID)
}

// ---------------------------------------------------------------------------
// Tracking
// ---------------------------------------------------------------------------

func (c *HTTPCarrier) tracking(ctx context.Context, trackingNumber string) (*trackingResponse, error) {
	var resp trackingResponse
	err := c.do(ctx, http.MethodGet, "/tracking/"+url.PathEscape(trackingNumber), nil, &resp)
	if err != nil {
		return nil, notFoundAs(err, logistics.ErrTrackingNumberNotFound, trackingNumber)
	}
	return &resp, nil
}

// TrackShipment returns the gateway checkpoints
func (c *HTTPCarrier) TrackShipment(ctx context.Context, trackingNumber string) ([]logistics.TrackingEvent, error) {
	resp, err := c.tracking(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	events := make([]logistics.TrackingEvent, 0, len(resp.Events))
	for _, e := range resp.Events {
		status, err := parseStatus(e.Status)
		if err != nil {
			return nil, err
		}
		events = append(events, logistics.TrackingEvent{
			Timestamp:   e.Timestamp,
			Status:      status,
			Location:    e.Location,
			Description: e.Description,
		})
	}
	return events, nil
}

// GetShipmentStatus returns the gateway status
func (c *HTTPCarrier) GetShipmentStatus(ctx context.Context, trackingNumber string) (logistics.ShipmentStatus, error) {
	resp, err := c.tracking(ctx, trackingNumber)
	if err != nil {
		return "", err
	}
	if resp.Status == "" && len(resp.Events) > 0 {
		return parseStatus(resp.Events[len(resp.Events)-1].Status)
	}
	return parseStatus(resp.Status)
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// GenerateLabel asks the gateway to render the label
func (c *HTTPCarrier) GenerateLabel(ctx context.Context, orderID string) (string, error) {
	var resp documentResponse
	if err := c.do(ctx, http.MethodGet, "/shipments/"+url.PathEscape(orderID)+"/label", nil, &resp); err != nil {
		return "", notFoundAs(err, logistics.ErrShipmentNotFound, orderID)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: empty label url", logistics.ErrProviderInvalidResponse)
	}
	return resp.URL, nil
}

// GenerateManifest asks the gateway to render a manifest
func (c *HTTPCarrier) GenerateManifest(ctx context.Context, orderIDs []string) (string, error) {
	var resp documentResponse
	if err := c.do(ctx, http.MethodPost, "/manifests", manifestRequest{ShipmentIDs: orderIDs}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("%w: empty manifest url", logistics.ErrProviderInvalidResponse)
	}
	return resp.URL, nil
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

// ValidateAddress asks the gateway whether addr is deliverable
func (c *HTTPCarrier) ValidateAddress(ctx context.Context, addr valueobject.Address) (bool, error) {
	var resp addressResponse
	if err := c.do(ctx, http.MethodPost, "/addresses/validate", toWireAddress(addr), &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// GetAvailableServices lists gateway services for countryCode
func (c *HTTPCarrier) GetAvailableServices(ctx context.Context, countryCode string) ([]string, error) {
	var resp servicesResponse
	path := "/services?country=" + url.QueryEscape(strings.ToUpper(countryCode))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Services == nil {
		return []string{}, nil
	}
	return resp.Services, nil
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// statusError is a non-2xx gateway reply
type statusError struct {
	status  int
	code    string
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.status, e.message)
	}
	return fmt.Sprintf("HTTP %d", e.status)
}

// notFoundAs turns a 404 into sentinel
func notFoundAs(err error, sentinel error, id string) error {
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", sentinel, id)
	}
	return err
}

// classify maps an HTTP status onto the provider sentinels
func classify(status int, detail *statusError) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", logistics.ErrProviderRateLimited, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", logistics.ErrProviderAuthFailed, detail)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %w", logistics.ErrShipmentNotCancellable, detail)
	case status == http.StatusUnprocessableEntity && detail.code == "UNSUPPORTED_DESTINATION":
		return fmt.Errorf("%w: %w", logistics.ErrUnsupportedDestination, detail)
	case status >= 500:
		return fmt.Errorf("%w: %w", logistics.ErrProviderUnavailable, detail)
	default:
		return fmt.Errorf("%w: %w", logistics.ErrProviderRequestFailed, detail)
	}
}

// do sends a JSON request and decodes a JSON reply into out (when non-nil)
func (c *HTTPCarrier) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("carrier %s: failed to encode request: %w", c.id, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("carrier %s: failed to create request: %w", c.id, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set(APIKeyHeader, c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", logistics.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", logistics.ErrProviderUnavailable, err)
	}
	c.logger.Debug("Carrier gateway call",
		zap.String("provider_id", c.id),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		detail := &statusError{status: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil {
			detail.code, detail.message = er.Code, er.Message
		}
		return classify(resp.StatusCode, detail)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: empty body", logistics.ErrProviderInvalidResponse)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", logistics.ErrProviderInvalidResponse, err)
	}
	return nil
}
