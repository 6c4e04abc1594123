package handler

import (
	"github.com/gin-gonic/gin"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// CheckoutHandler handles the cart-to-order checkout endpoints
type CheckoutHandler struct {
	BaseHandler
	service *checkoutapp.Service
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(service *checkoutapp.Service) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// CreateFromCart starts a checkout for the cart in the path
// POST /checkout/from-cart/:cartId
func (h *CheckoutHandler) CreateFromCart(c *gin.Context) {
	sc, ok := h.requireCart(c)
	if !ok {
		return
	}
	var req dto.CreateCheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), sc, param(c, "cartId"), req.ToOptions())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Refresh rechecks pricing and stock and returns the effective checkout id
// POST /checkout/:id/refresh
func (h *CheckoutHandler) Refresh(c *gin.Context) {
	result, err := h.service.Refresh(c.Request.Context(), sessionContext(c), param(c, "id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Lock freezes the checkout before payment
// PATCH /checkout/:id/lock
func (h *CheckoutHandler) Lock(c *gin.Context) {
	if err := h.service.Lock(c.Request.Context(), sessionContext(c), param(c, "id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Ack(c)
}

// Complete turns a locked checkout into an order
// POST /checkout/:id/complete
func (h *CheckoutHandler) Complete(c *gin.Context) {
	sc, ok := h.requireCart(c)
	if !ok {
		return
	}
	var req dto.CompleteCheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.service.Complete(c.Request.Context(), sc, param(c, "id"), req.ToCompleteRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// PlaceOrder runs refresh, lock and complete as one request
// POST /checkout/:id/place-order
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	sc, ok := h.requireCart(c)
	if !ok {
		return
	}
	var req dto.CompleteCheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.PlaceOrder(c.Request.Context(), sc, param(c, "id"), req.ToCompleteRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// SetShipping stores the delivery address
// PATCH /checkout/:id/shipping
func (h *CheckoutHandler) SetShipping(c *gin.Context) {
	sc, ok := h.requireCart(c)
	if !ok {
		return
	}
	var req dto.SetShippingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.SetShipping(c.Request.Context(), sc, param(c, "id"), req.ToShippingDetails())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SetPickup selects a pickup location
// PATCH /checkout/:id/pickup
func (h *CheckoutHandler) SetPickup(c *gin.Context) {
	sc, ok := h.requireCart(c)
	if !ok {
		return
	}
	var req dto.SetPickupRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.service.SetPickup(c.Request.Context(), sc, param(c, "id"), req.ToSelection())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PickupLocations lists pickup locations, optionally filtered by ?state=
// GET /checkout/pickup-locations
func (h *CheckoutHandler) PickupLocations(c *gin.Context) {
	locations, err := h.service.PickupLocations(c.Request.Context(), c.Query("state"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, locations)
}
