package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/session"
)

// CartHandler handles cart session endpoints
type CartHandler struct {
	BaseHandler
	sessions *session.Manager
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(sessions *session.Manager) *CartHandler {
	return &CartHandler{sessions: sessions}
}

// Claim merges the anonymous cart into the signed-in customer's account.
// Skips are reported in the body with 200, not as errors.
// POST /cart/claim
func (h *CartHandler) Claim(c *gin.Context) {
	result, err := h.sessions.Claim(c.Request.Context(), sessionContext(c), session.BearerToken(c.GetHeader("Authorization")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
