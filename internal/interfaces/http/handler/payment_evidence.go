package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// PaymentEvidenceHandler handles proof-of-payment uploads for manual
// payment methods
type PaymentEvidenceHandler struct {
	BaseHandler
	service *payment.EvidenceService
}

// NewPaymentEvidenceHandler creates a new PaymentEvidenceHandler
func NewPaymentEvidenceHandler(service *payment.EvidenceService) *PaymentEvidenceHandler {
	return &PaymentEvidenceHandler{service: service}
}

// Presign issues an upload target for the evidence file
// POST /payments/:id/evidence/presign
func (h *PaymentEvidenceHandler) Presign(c *gin.Context) {
	var req dto.PresignEvidenceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	evidence, err := h.service.Presign(c.Request.Context(), sessionContext(c), param(c, "id"), req.FileName, req.MimeType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, evidence)
}

// Finalize attaches the uploaded file to the payment
// POST /payments/:id/evidence/finalize
func (h *PaymentEvidenceHandler) Finalize(c *gin.Context) {
	var req dto.FinalizeEvidenceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	evidence, err := h.service.Finalize(c.Request.Context(), sessionContext(c), param(c, "id"), req.Key, req.ToFinalizeDetails())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, evidence)
}
