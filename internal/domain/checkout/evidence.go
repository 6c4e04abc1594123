package checkout

import (
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// PresignResult is the upload target issued by the backend
type PresignResult struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

// FinalizeDetails are the optional fields sent with a finalize call
type FinalizeDetails struct {
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Note     string `json:"note,omitempty"`
}

// PaymentEvidence is an uploaded proof of payment for a manual payment method
type PaymentEvidence struct {
	PaymentID string `json:"paymentId"`
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	MimeType  string `json:"mimeType,omitempty"`
	Note      string `json:"note,omitempty"`
	Finalized bool   `json:"finalized"`
}

// NewPaymentEvidence builds pending evidence from a presign result
func NewPaymentEvidence(paymentID, fileName, mimeType string, presigned PresignResult) *PaymentEvidence {
	return &PaymentEvidence{
		PaymentID: paymentID,
		Key:       presigned.Key,
		UploadURL: presigned.UploadURL,
		FileName:  fileName,
		MimeType:  mimeType,
	}
}

// MarkFinalized flags the evidence as accepted by the backend. The key must
// be the one issued for this evidence.
func (e *PaymentEvidence) MarkFinalized(key string) error {
	if strings.TrimSpace(key) == "" {
		return shared.NewMissingFieldError("key")
	}
	if e.Key != "" && e.Key != key {
		return shared.NewValidationError("Evidence key does not match the presigned upload")
	}
	e.Key = key
	e.Finalized = true
	return nil
}
