package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	applogistics "github.com/xborder/backend/internal/application/logistics"
	"github.com/xborder/backend/internal/domain/compliance"
	"github.com/xborder/backend/internal/domain/integration"
	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/interfaces/http/dto"
	"github.com/xborder/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// MockTaxService implements TaxService for testing
type MockTaxService struct {
	mock.Mock
}

func (m *MockTaxService) CalculateTax(ctx context.Context, req tax.CalculationRequest) *tax.CalculationResult {
	args := m.Called(ctx, req)
	return args.Get(0).(*tax.CalculationResult)
}

func (m *MockTaxService) RecordShipment(ctx context.Context, req tax.CalculationRequest) ([]relief.Usage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]relief.Usage), args.Error(1)
}

// MockComplianceService implements ComplianceService for testing
type MockComplianceService struct {
	mock.Mock
}

func (m *MockComplianceService) ValidateCompliance(ctx context.Context, req tax.CalculationRequest) *compliance.Validation {
	args := m.Called(ctx, req)
	return args.Get(0).(*compliance.Validation)
}

// MockQuoteService implements QuoteService and ShipmentService for testing
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) GetAllQuotes(ctx context.Context, req logistics.Request, opts logistics.Options) ([]logistics.Quote, error) {
	args := m.Called(ctx, req, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]logistics.Quote), args.Error(1)
}

func (m *MockQuoteService) GetBestQuotes(ctx context.Context, req logistics.Request, opts logistics.Options) *logistics.BestQuotes {
	args := m.Called(ctx, req, opts)
	return args.Get(0).(*logistics.BestQuotes)
}

func (m *MockQuoteService) CompareDeliveryModes(ctx context.Context, req logistics.Request, opts logistics.Options) *logistics.ModeComparison {
	args := m.Called(ctx, req, opts)
	return args.Get(0).(*logistics.ModeComparison)
}

func (m *MockQuoteService) ValidateAddress(ctx context.Context, addr valueobject.Address) (logistics.AddressVerdict, error) {
	args := m.Called(ctx, addr)
	return args.Get(0).(logistics.AddressVerdict), args.Error(1)
}

func (m *MockQuoteService) ListProviders() []applogistics.ProviderSummary {
	args := m.Called()
	return args.Get(0).([]applogistics.ProviderSummary)
}

func (m *MockQuoteService) AvailableServices(ctx context.Context, countryCode string) map[string][]string {
	args := m.Called(ctx, countryCode)
	return args.Get(0).(map[string][]string)
}

func (m *MockQuoteService) CreateShipment(ctx context.Context, quote logistics.Quote, req logistics.Request) (*logistics.ShipmentOrder, error) {
	args := m.Called(ctx, quote, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*logistics.ShipmentOrder), args.Error(1)
}

func (m *MockQuoteService) CancelShipment(ctx context.Context, providerID, orderID string) error {
	return m.Called(ctx, providerID, orderID).Error(0)
}

func (m *MockQuoteService) TrackShipment(ctx context.Context, providerID, trackingNumber string) ([]logistics.TrackingEvent, error) {
	args := m.Called(ctx, providerID, trackingNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]logistics.TrackingEvent), args.Error(1)
}

func (m *MockQuoteService) GetShipmentStatus(ctx context.Context, providerID, trackingNumber string) (logistics.ShipmentStatus, error) {
	args := m.Called(ctx, providerID, trackingNumber)
	return args.Get(0).(logistics.ShipmentStatus), args.Error(1)
}

func (m *MockQuoteService) GenerateLabel(ctx context.Context, providerID, orderID string) (string, error) {
	args := m.Called(ctx, providerID, orderID)
	return args.String(0), args.Error(1)
}

func (m *MockQuoteService) GenerateManifest(ctx context.Context, providerID string, orderIDs []string) (string, error) {
	args := m.Called(ctx, providerID, orderIDs)
	return args.String(0), args.Error(1)
}

// MockIntegrationService implements IntegrationService for testing
type MockIntegrationService struct {
	mock.Mock
}

func (m *MockIntegrationService) GetIntegratedQuotes(ctx context.Context, req integration.Request) *integration.Response {
	args := m.Called(ctx, req)
	return args.Get(0).(*integration.Response)
}

func (m *MockIntegrationService) CompareDeliveryModes(ctx context.Context, req integration.Request) *integration.ModeComparison {
	args := m.Called(ctx, req)
	return args.Get(0).(*integration.ModeComparison)
}

// MockIdempotencyStore implements shared.IdempotencyStore for testing
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestRouter(register func(r *gin.Engine)) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	register(r)
	return r
}

func performJSON(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// envelope decodes the response with data kept raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

const orderJSON = `{
	"items": [{"name": "Leather boots", "unitPrice": "45.00", "quantity": 2, "hsCode": "640399", "weightKg": "1.2"}],
	"customer": {"type": "INDIVIDUAL"},
	"sellerId": "seller-1",
	"currency": "EUR",
	"origin": {"city": "Shenzhen", "countryCode": "CN", "postalCode": "518000"},
	"destination": {"city": "Berlin", "countryCode": "DE", "postalCode": "10115"}
}`

const quoteRequestJSON = `{
	"origin": {"city": "Shenzhen", "countryCode": "CN", "postalCode": "518000"},
	"destination": {"city": "Berlin", "countryCode": "DE", "postalCode": "10115"},
	"packages": [{"weightKg": "2.4", "declaredValue": {"amount": "90.00", "currency": "EUR"}, "quantity": 1}],
	"shipmentValue": {"amount": "90.00", "currency": "EUR"},
	"deliveryMode": "ddp",
	"options": {"sortBy": "cost", "maxResults": 3}
}`
