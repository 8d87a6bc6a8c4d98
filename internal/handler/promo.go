package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/service"
)

// PromoHandler handles HTTP requests for promo codes.
type PromoHandler struct {
	promoLedger *service.PromoLedger
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(promoLedger *service.PromoLedger) *PromoHandler {
	return &PromoHandler{promoLedger: promoLedger}
}

// PromoResponse is the HTTP representation of a promo code.
type PromoResponse struct {
	Code            string   `json:"code"`
	Description     string   `json:"description,omitempty"`
	DiscountPercent float64  `json:"discount_percent"`
	MaxDiscount     *float64 `json:"max_discount,omitempty"`
	ValidUntil      string   `json:"valid_until,omitempty"`
}

// ValidatePromo handles GET /v1/promos/:code
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	promo, err := h.promoLedger.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := PromoResponse{
		Code:            promo.Code,
		Description:     promo.Description,
		DiscountPercent: promo.DiscountPercent,
		MaxDiscount:     promo.MaxDiscount,
	}
	if promo.ValidUntil != nil {
		resp.ValidUntil = formatTime(*promo.ValidUntil)
	}
	respondJSON(c, http.StatusOK, resp)
}

// ApplyPromoQuoteRequest is the HTTP request body for a standalone promo
// application against a quoted fare.
type ApplyPromoQuoteRequest struct {
	Code string  `json:"code" binding:"required"`
	Fare float64 `json:"fare" binding:"required"`
}

// ApplyPromoQuoteResponse is the result of a promo application.
type ApplyPromoQuoteResponse struct {
	Code         string  `json:"code"`
	OriginalFare float64 `json:"original_fare"`
	FinalFare    float64 `json:"final_fare"`
	Discount     float64 `json:"discount"`
}

// ApplyPromo handles POST /v1/promos/apply
func (h *PromoHandler) ApplyPromo(c *gin.Context) {
	var req ApplyPromoQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	applied, err := h.promoLedger.Apply(c.Request.Context(), req.Code, req.Fare)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ApplyPromoQuoteResponse{
		Code:         applied.Code,
		OriginalFare: applied.OriginalFare,
		FinalFare:    applied.FinalFare,
		Discount:     applied.Discount,
	})
}
