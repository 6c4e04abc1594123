package handler

import (
	"github.com/gin-gonic/gin"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// ShippingHandler prices deliveries without calling the commerce backend
type ShippingHandler struct {
	BaseHandler
	service *checkoutapp.Service
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(service *checkoutapp.Service) *ShippingHandler {
	return &ShippingHandler{service: service}
}

// Quote returns the shipping rate for a cart
// POST /shipping/quote
func (h *ShippingHandler) Quote(c *gin.Context) {
	var req dto.ShippingQuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	quote := h.service.QuoteShipping(shipping.DeliveryMethod(req.DeliveryMethod), req.State, req.ShippingItems())
	h.Success(c, quote)
}
