// Package handler implements the HTTP handlers of the decisioning API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	applogistics "github.com/xborder/backend/internal/application/logistics"
	"github.com/xborder/backend/internal/domain/compliance"
	"github.com/xborder/backend/internal/domain/integration"
	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/domain/shared/valueobject"
	"github.com/xborder/backend/internal/domain/tax"
	"github.com/xborder/backend/internal/infrastructure/logger"
	"github.com/xborder/backend/internal/interfaces/http/dto"
	"github.com/xborder/backend/internal/interfaces/http/middleware"
)

// ---------------------------------------------------------------------------
// Service ports
// ---------------------------------------------------------------------------

// TaxService calculates landed taxes and records relief usage of bookings
type TaxService interface {
	CalculateTax(ctx context.Context, req tax.CalculationRequest) *tax.CalculationResult
	RecordShipment(ctx context.Context, req tax.CalculationRequest) ([]relief.Usage, error)
}

// ComplianceService checks an order against the relief regimes
type ComplianceService interface {
	ValidateCompliance(ctx context.Context, req tax.CalculationRequest) *compliance.Validation
}

// QuoteService quotes and books shipments across carriers
type QuoteService interface {
	GetAllQuotes(ctx context.Context, req logistics.Request, opts logistics.Options) ([]logistics.Quote, error)
	GetBestQuotes(ctx context.Context, req logistics.Request, opts logistics.Options) *logistics.BestQuotes
	CompareDeliveryModes(ctx context.Context, req logistics.Request, opts logistics.Options) *logistics.ModeComparison
	ValidateAddress(ctx context.Context, addr valueobject.Address) (logistics.AddressVerdict, error)
	ListProviders() []applogistics.ProviderSummary
	AvailableServices(ctx context.Context, countryCode string) map[string][]string
}

// ShipmentService manages booked shipments
type ShipmentService interface {
	CreateShipment(ctx context.Context, quote logistics.Quote, req logistics.Request) (*logistics.ShipmentOrder, error)
	CancelShipment(ctx context.Context, providerID, orderID string) error
	TrackShipment(ctx context.Context, providerID, trackingNumber string) ([]logistics.TrackingEvent, error)
	GetShipmentStatus(ctx context.Context, providerID, trackingNumber string) (logistics.ShipmentStatus, error)
	GenerateLabel(ctx context.Context, providerID, orderID string) (string, error)
	GenerateManifest(ctx context.Context, providerID string, orderIDs []string) (string, error)
}

// IntegrationService combines tax and quotes into landed-cost offers
type IntegrationService interface {
	GetIntegratedQuotes(ctx context.Context, req integration.Request) *integration.Response
	CompareDeliveryModes(ctx context.Context, req integration.Request) *integration.ModeComparison
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

func newBaseHandler(l *zap.Logger) BaseHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return BaseHandler{logger: l}
}

// log returns the request-scoped logger
func (h *BaseHandler) log(c *gin.Context) *zap.Logger {
	return logger.Enrich(c.Request.Context(), h.logger)
}

// bind decodes the JSON body into req and answers 400 when it is invalid
func (h *BaseHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		code, msg, details := middleware.FormatBindingError(err)
		if len(details) > 0 {
			c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(msg, middleware.GetRequestID(c), details))
		} else {
			h.Error(c, code, msg)
		}
		return false
	}
	return true
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, middleware.GetRequestID(c)))
}

// Result sends a decision result. Failed results keep their payload and
// take the status of their most significant error.
func (h *BaseHandler) Result(c *gin.Context, success bool, errs []shared.CalculationError, data any) {
	if success {
		h.Success(c, data)
		return
	}
	code, status := dto.StatusForCalculationErrors(errs)
	msg := "decision failed"
	if len(errs) > 0 {
		msg = errs[0].Message
	}
	c.JSON(status, dto.NewFailedResultResponse(code, msg, middleware.GetRequestID(c), data))
}

// HandleError maps service errors to responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := classify(err)
	if dto.GetHTTPStatus(code) >= http.StatusInternalServerError {
		h.log(c).Error("request failed", zap.String("error_code", code), zap.Error(err))
	}
	h.Error(c, code, message)
}

func classify(err error) (string, string) {
	var pe *logistics.ProviderError
	switch {
	case errors.Is(err, logistics.ErrInvalidRequest):
		return dto.ErrCodeValidation, err.Error()
	case errors.Is(err, logistics.ErrProviderNotFound),
		errors.Is(err, logistics.ErrShipmentNotFound),
		errors.Is(err, logistics.ErrTrackingNumberNotFound):
		return dto.ErrCodeNotFound, err.Error()
	case errors.Is(err, logistics.ErrQuoteExpired):
		return dto.ErrCodeQuoteExpired, err.Error()
	case errors.Is(err, logistics.ErrShipmentNotCancellable):
		return dto.ErrCodeNotCancellable, err.Error()
	case errors.Is(err, logistics.ErrDocumentStorageRequired):
		return dto.ErrCodeStorageRequired, err.Error()
	case errors.Is(err, relief.ErrAccumulationUnavailable):
		return dto.ErrCodeAccumulationStore, "relief accumulation store unavailable"
	case errors.As(err, &pe):
		return dto.ErrCodeProvider, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeUnavailable, "request timed out"
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
}
