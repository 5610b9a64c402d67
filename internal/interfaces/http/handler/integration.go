package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/interfaces/http/dto"
)

// IntegrationHandler serves landed-cost quotes
type IntegrationHandler struct {
	BaseHandler
	orchestrator IntegrationService
}

// NewIntegrationHandler creates an IntegrationHandler
func NewIntegrationHandler(orchestrator IntegrationService, logger *zap.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		BaseHandler:  newBaseHandler(logger),
		orchestrator: orchestrator,
	}
}

// GetIntegratedQuotes godoc
// @Summary      Get landed-cost quotes
// @Description  Quotes every eligible carrier and adds the import taxes of the order to each offer
// @Tags         integrated-quotes
// @Accept       json
// @Produce      json
// @Param        request body dto.IntegratedQuoteRequest true "Order and shipment"
// @Success      200 {object} dto.Response{data=integration.Response}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrated-quotes [post]
func (h *IntegrationHandler) GetIntegratedQuotes(c *gin.Context) {
	var req dto.IntegratedQuoteRequest
	if !h.bind(c, &req) {
		return
	}
	resp := h.orchestrator.GetIntegratedQuotes(c.Request.Context(), req.ToDomain())
	h.Result(c, resp.Success, resp.Errors, resp)
}

// CompareModes godoc
// @Summary      Compare DDP and DAP landed costs
// @Description  Prices the order under both delivery modes and recommends one
// @Tags         integrated-quotes
// @Accept       json
// @Produce      json
// @Param        request body dto.IntegratedQuoteRequest true "Order and shipment"
// @Success      200 {object} dto.Response{data=integration.ModeComparison}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /integrated-quotes/compare-modes [post]
func (h *IntegrationHandler) CompareModes(c *gin.Context) {
	var req dto.IntegratedQuoteRequest
	if !h.bind(c, &req) {
		return
	}
	cmp := h.orchestrator.CompareDeliveryModes(c.Request.Context(), req.ToDomain())
	h.Result(c, cmp.Success, cmp.Errors, cmp)
}
