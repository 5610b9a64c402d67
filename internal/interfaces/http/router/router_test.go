package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	_ "github.com/xborder/backend/docs"
	"github.com/xborder/backend/internal/domain/compliance"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/config"
	"github.com/xborder/backend/internal/interfaces/http/handler"
	"github.com/xborder/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTax struct{}

func (stubTax) CalculateTax(_ context.Context, req tax.CalculationRequest) *tax.CalculationResult {
	return &tax.CalculationResult{Success: true, DeliveryMode: req.DeliveryMode}
}

func (stubTax) RecordShipment(context.Context, tax.CalculationRequest) ([]relief.Usage, error) {
	return nil, nil
}

type stubCompliance struct{}

func (stubCompliance) ValidateCompliance(context.Context, tax.CalculationRequest) *compliance.Validation {
	return &compliance.Validation{Success: true}
}

func testConfig() config.HTTPConfig {
	return config.HTTPConfig{
		MaxBodySize:       1 << 20,
		RateLimitEnabled:  true,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
	}
}

func testEngine(t *testing.T, cfg config.HTTPConfig, opts ...Option) *gin.Engine {
	log := zaptest.NewLogger(t)
	return New(cfg, false, log, Handlers{
		Tax:    handler.NewTaxHandler(stubTax{}, stubCompliance{}, log),
		Health: handler.NewHealthHandler("test", log),
	}, opts...)
}

const taxBody = `{"items":[{"name":"Mug","unitPrice":"12.00","quantity":1}],"destination":{"countryCode":"DE"},"deliveryMode":"DDP"}`

func TestNew_Routes(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = false
	engine := testEngine(t, cfg)

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	})

	t.Run("versioned api", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculate", strings.NewReader(taxBody))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"deliveryMode":"DDP"`)
	})

	t.Run("handlers left out have no routes", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/providers", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"NOT_FOUND"`)
	})
}

func TestNew_Registered(t *testing.T) {
	log := zaptest.NewLogger(t)
	cfg := testConfig()
	cfg.RateLimitEnabled = false
	engine := New(cfg, false, log, Handlers{
		Tax:         handler.NewTaxHandler(stubTax{}, stubCompliance{}, log),
		Quotes:      handler.NewQuoteHandler(nil, log),
		Integration: handler.NewIntegrationHandler(nil, log),
		Shipments:   handler.NewShipmentHandler(nil, stubTax{}, nil, time.Hour, log),
		Health:      handler.NewHealthHandler("test", log),
	})

	want := map[string]bool{
		"POST /api/v1/tax/calculate":                   true,
		"POST /api/v1/compliance/validate":             true,
		"POST /api/v1/quotes":                          true,
		"POST /api/v1/quotes/best":                     true,
		"POST /api/v1/quotes/compare-modes":            true,
		"POST /api/v1/integrated-quotes":               true,
		"POST /api/v1/integrated-quotes/compare-modes": true,
		"POST /api/v1/addresses/validate":              true,
		"GET /api/v1/providers":                        true,
		"GET /api/v1/services":                         true,
		"POST /api/v1/shipments":                       true,
		"POST /api/v1/shipments/:provider/:id/cancel":  true,
		"GET /api/v1/shipments/:provider/:id/label":    true,
		"GET /api/v1/tracking/:provider/:number":       true,
		"POST /api/v1/manifests/:provider":             true,
		"GET /health":                                  true,
	}
	got := make(map[string]bool)
	for _, r := range engine.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	assert.Equal(t, want, got)
}

func TestNew_Limits(t *testing.T) {
	t.Run("rate limit", func(t *testing.T) {
		engine := testEngine(t, testConfig())
		codes := make([]int, 0, 3)
		for range 3 {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			codes = append(codes, w.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("body limit", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimitEnabled = false
		cfg.MaxBodySize = 16
		engine := testEngine(t, cfg)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tax/calculate", strings.NewReader(taxBody))
		req.Header.Set("Content-Type", "application/json")
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestNew_ExtraRegistrar(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = false
	group := NewDomainGroup("debug", "/debug").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	engine := testEngine(t, cfg, WithAPIVersion("v2"), WithRegistrar(group))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/debug/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "debug", group.Name())
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test").
		Use(func(c *gin.Context) {
			c.Header("X-Group", "test")
			c.Next()
		}).
		POST("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	group.RegisterRoutes(engine.Group("/api"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/test/echo", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "test", w.Header().Get("X-Group"))
}

func TestServer(t *testing.T) {
	cfg := config.HTTPConfig{ReadTimeout: 30 * time.Second, WriteTimeout: time.Minute, MaxHeaderBytes: 1 << 20}
	srv := Server("8080", cfg, gin.New())
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 10*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, time.Minute, srv.WriteTimeout)
}

func TestSwaggerDocs(t *testing.T) {
	t.Run("serves the API document when enabled", func(t *testing.T) {
		engine := testEngine(t, testConfig(), WithSwagger(true))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"basePath": "/api/v1"`)
		assert.Contains(t, w.Body.String(), "/tax/calculate")
		assert.Contains(t, w.Body.String(), "/shipments/{provider}/{id}/cancel")
	})

	t.Run("is not mounted by default", func(t *testing.T) {
		engine := testEngine(t, testConfig())

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
