package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xborder/backend/internal/domain/logistics"
	"github.com/xborder/backend/internal/interfaces/http/dto"
)

// QuoteHandler serves carrier quotes and carrier reference data
type QuoteHandler struct {
	BaseHandler
	quotes QuoteService
}

// NewQuoteHandler creates a QuoteHandler
func NewQuoteHandler(quotes QuoteService, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		BaseHandler: newBaseHandler(logger),
		quotes:      quotes,
	}
}

// QuoteListResponse is the unranked quote set of every eligible carrier
type QuoteListResponse struct {
	Quotes []logistics.Quote `json:"quotes"`
	Count  int               `json:"count"`
}

// GetAll godoc
// @Summary      List carrier quotes
// @Description  Returns the quotes of every eligible carrier, filtered by the request options
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body dto.QuoteRequest true "Shipment to quote"
// @Success      200 {object} dto.Response{data=QuoteListResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /quotes [post]
func (h *QuoteHandler) GetAll(c *gin.Context) {
	var req dto.QuoteRequest
	if !h.bind(c, &req) {
		return
	}
	lreq, opts := req.ToDomain()
	quotes, err := h.quotes.GetAllQuotes(c.Request.Context(), lreq, opts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if quotes == nil {
		quotes = []logistics.Quote{}
	}
	h.Success(c, QuoteListResponse{Quotes: quotes, Count: len(quotes)})
}

// GetBest godoc
// @Summary      Get the best quotes
// @Description  Ranks carrier quotes and picks the cheapest, fastest and best-value offers
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body dto.QuoteRequest true "Shipment to quote"
// @Success      200 {object} dto.Response{data=logistics.BestQuotes}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /quotes/best [post]
func (h *QuoteHandler) GetBest(c *gin.Context) {
	var req dto.QuoteRequest
	if !h.bind(c, &req) {
		return
	}
	lreq, opts := req.ToDomain()
	result := h.quotes.GetBestQuotes(c.Request.Context(), lreq, opts)
	h.Result(c, result.Success, result.Errors, result)
}

// CompareModes godoc
// @Summary      Compare DDP and DAP quotes
// @Description  Quotes the shipment under both delivery modes
// @Tags         quotes
// @Accept       json
// @Produce      json
// @Param        request body dto.QuoteRequest true "Shipment to quote"
// @Success      200 {object} dto.Response{data=logistics.ModeComparison}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /quotes/compare-modes [post]
func (h *QuoteHandler) CompareModes(c *gin.Context) {
	var req dto.QuoteRequest
	if !h.bind(c, &req) {
		return
	}
	lreq, opts := req.ToDomain()
	cmp := h.quotes.CompareDeliveryModes(c.Request.Context(), lreq, opts)
	h.Result(c, cmp.Success, cmp.Errors, cmp)
}

// ValidateAddress godoc
// @Summary      Validate an address
// @Description  Asks every carrier to validate the address and merges their verdicts
// @Tags         addresses
// @Accept       json
// @Produce      json
// @Param        request body dto.AddressValidationRequest true "Address to validate"
// @Success      200 {object} dto.Response{data=logistics.AddressVerdict}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /addresses/validate [post]
func (h *QuoteHandler) ValidateAddress(c *gin.Context) {
	var req dto.AddressValidationRequest
	if !h.bind(c, &req) {
		return
	}
	verdict, err := h.quotes.ValidateAddress(c.Request.Context(), req.Address.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, verdict)
}

// ListProviders godoc
// @Summary      List carriers
// @Description  Lists the registered carriers with their availability
// @Tags         providers
// @Produce      json
// @Success      200 {object} dto.Response{data=[]object}
// @Router       /providers [get]
func (h *QuoteHandler) ListProviders(c *gin.Context) {
	h.Success(c, h.quotes.ListProviders())
}

// ServicesQuery selects the destination of a services lookup
type ServicesQuery struct {
	Country string `form:"country" binding:"required,iso3166_1_alpha2"`
}

// ServicesResponse lists service codes per provider
type ServicesResponse struct {
	Country  string              `json:"country"`
	Services map[string][]string `json:"services"`
}

// ListServices godoc
// @Summary      List carrier services
// @Description  Lists the service codes each carrier offers to a destination country
// @Tags         services
// @Produce      json
// @Param        country query string true "ISO 3166-1 alpha-2 destination country"
// @Success      200 {object} dto.Response{data=ServicesResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /services [get]
func (h *QuoteHandler) ListServices(c *gin.Context) {
	var q ServicesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.Error(c, dto.ErrCodeValidation, "country must be an ISO 3166-1 alpha-2 code")
		return
	}
	h.Success(c, ServicesResponse{
		Country:  q.Country,
		Services: h.quotes.AvailableServices(c.Request.Context(), q.Country),
	})
}
