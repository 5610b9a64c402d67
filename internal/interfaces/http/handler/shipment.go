package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/domain/relief"
	"github.com/xborder/backend/internal/domain/shared"
	"github.com/xborder/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader identifies a booking across client retries
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	maxIdempotencyKeyLength = 255
	defaultBookingKeyTTL    = 24 * time.Hour
	bookingKeyPrefix        = "booking:"
)

// ShipmentHandler books and manages shipments
type ShipmentHandler struct {
	BaseHandler
	shipments ShipmentService
	tax       TaxService
	keys      shared.IdempotencyStore
	keyTTL    time.Duration
}

// NewShipmentHandler creates a ShipmentHandler. Booking keys are held for
// keyTTL after a successful booking.
func NewShipmentHandler(shipments ShipmentService, tax TaxService, keys shared.IdempotencyStore, keyTTL time.Duration, logger *zap.Logger) *ShipmentHandler {
	if keyTTL <= 0 {
		keyTTL = defaultBookingKeyTTL
	}
	return &ShipmentHandler{
		BaseHandler: newBaseHandler(logger),
		shipments:   shipments,
		tax:         tax,
		keys:        keys,
		keyTTL:      keyTTL,
	}
}

// BookingResponse is a booked shipment and the relief usage it consumed
type BookingResponse struct {
	Shipment    *logistics.ShipmentOrder `json:"shipment"`
	ReliefUsage []relief.Usage           `json:"reliefUsage"`
	Warnings    []shared.Warning         `json:"warnings,omitempty"`
}

// Book godoc
// @Summary      Book a shipment
// @Description  Books an accepted quote with its carrier and records the relief usage of the order
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string true "Client key identifying the booking across retries"
// @Param        request body dto.BookShipmentRequest true "Order and accepted quote"
// @Success      201 {object} dto.Response{data=BookingResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      410 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /shipments [post]
func (h *ShipmentHandler) Book(c *gin.Context) {
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if key == "" || len(key) > maxIdempotencyKeyLength {
		h.Error(c, dto.ErrCodeMissingIdemKey, "Idempotency-Key header is required (max 255 characters)")
		return
	}

	var req dto.BookShipmentRequest
	if !h.bind(c, &req) {
		return
	}
	order := req.Order.ToDomain()
	if errs := order.Validate(); len(errs) > 0 {
		h.Result(c, false, errs, nil)
		return
	}
	mode := req.Quote.DeliveryMode
	if !mode.IsValid() {
		mode = shared.DeliveryModeDDP
	}

	ctx := c.Request.Context()
	log := h.log(c).With(zap.String("idempotency_key", key), zap.String("provider_id", req.Quote.ProviderID))

	claimed, err := h.keys.Claim(ctx, bookingKeyPrefix+key, h.keyTTL)
	if err != nil {
		log.Error("idempotency store unavailable", zap.Error(err))
		h.Error(c, dto.ErrCodeUnavailable, "booking is temporarily unavailable")
		return
	}
	if !claimed {
		h.Error(c, dto.ErrCodeDuplicateRequest, "a booking with this Idempotency-Key already exists")
		return
	}

	shipment, err := h.shipments.CreateShipment(ctx, req.Quote, order.WithDeliveryMode(mode).ShipmentRequest())
	if err != nil {
		// a failed booking may be retried with the same key
		if rerr := h.keys.Release(context.WithoutCancel(ctx), bookingKeyPrefix+key); rerr != nil {
			log.Warn("failed to release idempotency key", zap.Error(rerr))
		}
		h.HandleError(c, err)
		return
	}

	resp := BookingResponse{Shipment: shipment, ReliefUsage: []relief.Usage{}}
	usage, err := h.tax.RecordShipment(ctx, order.TaxRequest(mode))
	if err != nil {
		// the carrier has accepted the booking, so it is reported as made
		log.Error("relief usage not recorded for booked shipment",
			zap.String("order_id", shipment.ID), zap.Error(err))
		resp.Warnings = append(resp.Warnings, shared.Warning{
			Code:    dto.ErrCodeAccumulationStore,
			Message: "relief usage for this shipment could not be recorded",
		})
	} else if usage != nil {
		resp.ReliefUsage = usage
	}

	log.Info("shipment booked",
		zap.String("order_id", shipment.ID),
		zap.String("tracking_number", shipment.TrackingNumber),
		zap.String("delivery_mode", string(mode)))
	h.Created(c, resp)
}

// CancelResponse acknowledges a cancellation
type CancelResponse struct {
	ProviderID string `json:"providerId"`
	OrderID    string `json:"orderId"`
	Cancelled  bool   `json:"cancelled"`
}

// Cancel godoc
// @Summary      Cancel a shipment
// @Tags         shipments
// @Produce      json
// @Param        provider path string true "Carrier ID"
// @Param        id path string true "Shipment order ID"
// @Success      200 {object} dto.Response{data=CancelResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /shipments/{provider}/{id}/cancel [post]
func (h *ShipmentHandler) Cancel(c *gin.Context) {
	providerID, orderID := c.Param("provider"), c.Param("id")
	if err := h.shipments.CancelShipment(c.Request.Context(), providerID, orderID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CancelResponse{ProviderID: providerID, OrderID: orderID, Cancelled: true})
}

// TrackingResponse is the checkpoint history of a shipment
type TrackingResponse struct {
	ProviderID     string                    `json:"providerId"`
	TrackingNumber string                    `json:"trackingNumber"`
	Status         logistics.ShipmentStatus  `json:"status"`
	Events         []logistics.TrackingEvent `json:"events"`
}

// Track godoc
// @Summary      Track a shipment
// @Description  Returns the current status and checkpoint history of a tracking number
// @Tags         tracking
// @Produce      json
// @Param        provider path string true "Carrier ID"
// @Param        number path string true "Tracking number"
// @Success      200 {object} dto.Response{data=TrackingResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tracking/{provider}/{number} [get]
func (h *ShipmentHandler) Track(c *gin.Context) {
	providerID, number := c.Param("provider"), c.Param("number")
	ctx := c.Request.Context()

	events, err := h.shipments.TrackShipment(ctx, providerID, number)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	status, err := h.shipments.GetShipmentStatus(ctx, providerID, number)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if events == nil {
		events = []logistics.TrackingEvent{}
	}
	h.Success(c, TrackingResponse{
		ProviderID:     providerID,
		TrackingNumber: number,
		Status:         status,
		Events:         events,
	})
}

// DocumentResponse points at a generated carrier document
type DocumentResponse struct {
	ProviderID string `json:"providerId"`
	URL        string `json:"url"`
	OrderCount int    `json:"orderCount"`
}

// Label godoc
// @Summary      Get a shipping label
// @Tags         shipments
// @Produce      json
// @Param        provider path string true "Carrier ID"
// @Param        id path string true "Shipment order ID"
// @Success      200 {object} dto.Response{data=DocumentResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      501 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /shipments/{provider}/{id}/label [get]
func (h *ShipmentHandler) Label(c *gin.Context) {
	providerID := c.Param("provider")
	url, err := h.shipments.GenerateLabel(c.Request.Context(), providerID, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DocumentResponse{ProviderID: providerID, URL: url, OrderCount: 1})
}

// Manifest godoc
// @Summary      Generate a manifest
// @Description  Generates the carrier manifest for a batch of booked orders
// @Tags         manifests
// @Accept       json
// @Produce      json
// @Param        provider path string true "Carrier ID"
// @Param        request body dto.ManifestRequest true "Orders to include"
// @Success      200 {object} dto.Response{data=DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      501 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /manifests/{provider} [post]
func (h *ShipmentHandler) Manifest(c *gin.Context) {
	var req dto.ManifestRequest
	if !h.bind(c, &req) {
		return
	}
	providerID := c.Param("provider")
	url, err := h.shipments.GenerateManifest(c.Request.Context(), providerID, req.OrderIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DocumentResponse{ProviderID: providerID, URL: url, OrderCount: len(req.OrderIDs)})
}
