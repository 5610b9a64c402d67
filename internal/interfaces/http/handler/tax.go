package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/interfaces/http/dto"
)

// TaxHandler serves tax calculation and compliance validation
type TaxHandler struct {
	BaseHandler
	tax        TaxService
	compliance ComplianceService
}

// NewTaxHandler creates a TaxHandler
func NewTaxHandler(tax TaxService, compliance ComplianceService, logger *zap.Logger) *TaxHandler {
	return &TaxHandler{
		BaseHandler: newBaseHandler(logger),
		tax:         tax,
		compliance:  compliance,
	}
}

// Calculate godoc
// @Summary      Calculate landed taxes
// @Description  Calculates duty, VAT and fees for an order, applying the relief regime that covers the destination
// @Tags         tax
// @Accept       json
// @Produce      json
// @Param        request body dto.TaxCalculationRequest true "Order to calculate"
// @Success      200 {object} dto.Response{data=tax.CalculationResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /tax/calculate [post]
func (h *TaxHandler) Calculate(c *gin.Context) {
	var req dto.TaxCalculationRequest
	if !h.bind(c, &req) {
		return
	}
	result := h.tax.CalculateTax(c.Request.Context(), req.ToDomain())
	h.Result(c, result.Success, result.Errors, result)
}

// ValidateCompliance godoc
// @Summary      Validate relief compliance
// @Description  Checks an order against every relief regime without computing taxes
// @Tags         compliance
// @Accept       json
// @Produce      json
// @Param        request body dto.TaxCalculationRequest true "Order to validate"
// @Success      200 {object} dto.Response{data=compliance.Validation}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /compliance/validate [post]
func (h *TaxHandler) ValidateCompliance(c *gin.Context) {
	var req dto.TaxCalculationRequest
	if !h.bind(c, &req) {
		return
	}
	v := h.compliance.ValidateCompliance(c.Request.Context(), req.ToDomain())
	h.Result(c, v.Success, v.Errors, v)
}
