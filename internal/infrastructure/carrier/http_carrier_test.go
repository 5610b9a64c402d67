package carrier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newGateway(t *testing.T, handler http.Handler) *HTTPCarrier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewHTTPCarrier(HTTPConfig{ID: "gw", Name: "Gateway", BaseURL: srv.URL + "/", APIKey: "k-123", Timeout: 2 * time.Second}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestHTTPConfig_Validate(t *testing.T) {
	cfg := HTTPConfig{ID: "gw", BaseURL: "https://carrier.example.com/api/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://carrier.example.com/api", cfg.BaseURL)
	assert.Equal(t, "gw", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)

	assert.ErrorIs(t, (&HTTPConfig{BaseURL: "https://x"}).Validate(), logistics.ErrProviderNotConfigured)
	assert.ErrorIs(t, (&HTTPConfig{ID: "gw"}).Validate(), logistics.ErrProviderNotConfigured)
	assert.ErrorIs(t, (&HTTPConfig{ID: "gw", BaseURL: "not a url"}).Validate(), logistics.ErrProviderNotConfigured)
}

func TestHTTPCarrier_GetQuotes(t *testing.T) {
	var got rateRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k-123", r.Header.Get(APIKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"rates": []map[string]any{{
				"rate_id":       "r-1",
				"service_code":  "EXP",
				"service_name":  "Express",
				"service_class": "express",
				"incoterm":      "DDP",
				"base":          map[string]string{"amount": "30.00", "currency": "USD"},
				"surcharges":    []map[string]any{{"name": "FUEL", "amount": map[string]string{"amount": "3.00", "currency": "USD"}}},
				"duties":        map[string]string{"amount": "10.00", "currency": "USD"},
				"total":         map[string]string{"amount": "43.00", "currency": "USD"},
				"transit_days":  4,
				"tracking":      true,
				"expires_at":    "2026-03-02T10:00:00Z",
			}},
		})
	})
	c := newGateway(t, mux)

	quotes, err := c.GetQuotes(context.Background(), testRequest("US", shared.DeliveryModeDDP))
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "gw", q.ProviderID)
	assert.Equal(t, "Gateway", q.ProviderName)
	assert.Equal(t, logistics.ServiceClassExpress, q.ServiceClass)
	assert.Equal(t, shared.DeliveryModeDDP, q.DeliveryMode)
	assert.Equal(t, "43.00", q.Pricing.NetCost.Amount().StringFixed(2))
	assert.Equal(t, "10.00", q.Pricing.DutiesAndTaxes.Amount().StringFixed(2))
	require.Len(t, q.Pricing.Surcharges, 1)
	assert.Equal(t, 4, q.Delivery.Days)
	assert.True(t, q.Tracking.Available)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), q.ValidUntil.UTC())

	assert.Equal(t, "US", got.Destination.Country)
	assert.Equal(t, "DDP", got.Incoterm)
	assert.Equal(t, "100.00", got.DeclaredValue.Amount)
	require.Len(t, got.Parcels, 1)
	assert.Equal(t, "2", got.Parcels[0].WeightKg)
}

func TestHTTPCarrier_InvalidRates(t *testing.T) {
	tests := []struct {
		name string
		rate map[string]any
	}{
		{"bad amount", map[string]any{"service_code": "X", "total": map[string]string{"amount": "abc", "currency": "USD"}}},
		{"unknown currency", map[string]any{"service_code": "X", "total": map[string]string{"amount": "1", "currency": "QQQ"}}},
		{"mixed currencies", map[string]any{"service_code": "X", "total": map[string]string{"amount": "1", "currency": "USD"}, "base": map[string]string{"amount": "1", "currency": "EUR"}}},
		{"unknown incoterm", map[string]any{"service_code": "X", "incoterm": "FOB", "total": map[string]string{"amount": "1", "currency": "USD"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"rates": []map[string]any{tt.rate}})
			}))
			_, err := c.GetQuotes(context.Background(), testRequest("US", ""))
			assert.ErrorIs(t, err, logistics.ErrProviderInvalidResponse)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		c := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		_, err := c.GetQuotes(context.Background(), testRequest("US", ""))
		assert.ErrorIs(t, err, logistics.ErrProviderInvalidResponse)
	})
}

func TestHTTPCarrier_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		want      error
		retryable bool
	}{
		{http.StatusUnauthorized, "", logistics.ErrProviderAuthFailed, false},
		{http.StatusForbidden, "", logistics.ErrProviderAuthFailed, false},
		{http.StatusTooManyRequests, "", logistics.ErrProviderRateLimited, true},
		{http.StatusBadGateway, "", logistics.ErrProviderUnavailable, true},
		{http.StatusServiceUnavailable, "", logistics.ErrProviderUnavailable, true},
		{http.StatusBadRequest, "BAD_INPUT", logistics.ErrProviderRequestFailed, false},
		{http.StatusUnprocessableEntity, "UNSUPPORTED_DESTINATION", logistics.ErrUnsupportedDestination, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"code": tt.code, "message": "nope"})
			}))
			_, err := c.GetQuotes(context.Background(), testRequest("US", ""))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.retryable, logistics.IsRetryable(logistics.AsProviderError("gw", err)))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestHTTPCarrier_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	c, err := NewHTTPCarrier(HTTPConfig{ID: "gw", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.GetQuotes(ctx, testRequest("US", ""))
	require.Error(t, err)
	pe := logistics.AsProviderError("gw", err)
	assert.Equal(t, logistics.CodeTimeout, pe.Code)
	assert.True(t, pe.Retryable)
}

func TestHTTPCarrier_Shipments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /shipments", func(w http.ResponseWriter, r *http.Request) {
		var body shipmentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r-1", body.RateID)
		assert.Equal(t, "EXP", body.ServiceCode)
		assert.Equal(t, "DAP", body.Incoterm)
		writeJSON(w, http.StatusCreated, map[string]any{
			"shipment_id":     "s-1",
			"tracking_number": "GW0001",
			"status":          "created",
			"cost":            map[string]string{"amount": "21.50", "currency": "USD"},
			"created_at":      "2026-03-02T09:00:00Z",
		})
	})
	mux.HandleFunc("POST /shipments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "s-1":
			w.WriteHeader(http.StatusNoContent)
		case "s-2":
			writeJSON(w, http.StatusConflict, map[string]string{"message": "already picked up"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /tracking/{tn}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("tn") != "GW0001" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"tracking_number": "GW0001",
			"events": []map[string]any{
				{"timestamp": "2026-03-02T09:00:00Z", "status": "created", "description": "Label created"},
				{"timestamp": "2026-03-03T09:00:00Z", "status": "in-transit", "location": "HKG", "description": "Departed"},
			},
		})
	})
	mux.HandleFunc("GET /shipments/{id}/label", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://labels.example.com/" + r.PathValue("id")})
	})
	mux.HandleFunc("POST /manifests", func(w http.ResponseWriter, r *http.Request) {
		var body manifestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"s-1"}, body.ShipmentIDs)
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://labels.example.com/m-1"})
	})
	c := newGateway(t, mux)
	ctx := context.Background()

	quote := logistics.Quote{
		ID:           "r-1",
		ServiceCode:  "EXP",
		DeliveryMode: shared.DeliveryModeDAP,
		Delivery:     logistics.DeliveryEstimate{Days: 5},
	}
	order, err := c.CreateShipment(ctx, quote, testRequest("US", ""))
	require.NoError(t, err)
	assert.Equal(t, "s-1", order.ID)
	assert.Equal(t, "gw", order.ProviderID)
	assert.Equal(t, logistics.ShipmentCreated, order.Status)
	assert.Equal(t, "21.50", order.Cost.Amount().StringFixed(2))
	assert.Equal(t, 5, order.EstimatedDays)

	require.NoError(t, c.CancelShipment(ctx, "s-1"))
	assert.ErrorIs(t, c.CancelShipment(ctx, "s-2"), logistics.ErrShipmentNotCancellable)
	assert.ErrorIs(t, c.CancelShipment(ctx, "s-9"), logistics.ErrShipmentNotFound)

	events, err := c.TrackShipment(ctx, "GW0001")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, logistics.ShipmentInTransit, events[1].Status)

	status, err := c.GetShipmentStatus(ctx, "GW0001")
	require.NoError(t, err)
	assert.Equal(t, logistics.ShipmentInTransit, status)

	_, err = c.TrackShipment(ctx, "NOPE")
	assert.ErrorIs(t, err, logistics.ErrTrackingNumberNotFound)

	link, err := c.GenerateLabel(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "https://labels.example.com/s-1", link)

	link, err = c.GenerateManifest(ctx, []string{"s-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://labels.example.com/m-1", link)
}

func TestHTTPCarrier_ReferenceData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /addresses/validate", func(w http.ResponseWriter, r *http.Request) {
		var addr wireAddress
		require.NoError(t, json.NewDecoder(r.Body).Decode(&addr))
		writeJSON(w, http.StatusOK, map[string]bool{"valid": addr.Country == "US"})
	})
	mux.HandleFunc("GET /services", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("country") == "US" {
			writeJSON(w, http.StatusOK, map[string][]string{"services": {"EXP", "STD"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	c := newGateway(t, mux)
	ctx := context.Background()

	ok, err := c.ValidateAddress(ctx, testRequest("US", "").Destination)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.ValidateAddress(ctx, valueobject.Address{City: "Paris", CountryCode: "FR"})
	require.NoError(t, err)
	assert.False(t, ok)

	services, err := c.GetAvailableServices(ctx, "us")
	require.NoError(t, err)
	assert.Equal(t, []string{"EXP", "STD"}, services)
	services, err = c.GetAvailableServices(ctx, "JP")
	require.NoError(t, err)
	assert.Empty(t, services)

	require.NoError(t, c.TestConnection(ctx))
}

func TestHTTPCarrier_Initialize(t *testing.T) {
	c := newGateway(t, http.NotFoundHandler())
	err := c.Initialize(context.Background(), logistics.ProviderConfig{
		Name:     "Renamed",
		Timeout:  time.Second,
		Settings: map[string]string{"base_url": "https://other.example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", c.Name())
	assert.Equal(t, "https://other.example.com", c.config.BaseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)

	err = c.Initialize(context.Background(), logistics.ProviderConfig{Settings: map[string]string{"base_url": "::"}})
	assert.ErrorIs(t, err, logistics.ErrProviderNotConfigured)
	assert.Equal(t, "https://other.example.com", c.config.BaseURL, "failed initialize keeps the old config")
}
