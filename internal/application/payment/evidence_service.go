// Package payment runs the two-phase payment evidence upload used by manual
// payment methods: presign issues an upload target, finalize attaches the
// uploaded file to the payment.
package payment

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Evidence phases for metrics
const (
	PhasePresign  = "presign"
	PhaseFinalize = "finalize"
)

// DefaultAllowedMimeTypes are accepted when no allow-list is configured
var DefaultAllowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

// UploadVerifier checks that an uploaded object exists in storage
type UploadVerifier interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Recorder receives evidence pipeline outcomes
type Recorder interface {
	RecordEvidence(ctx context.Context, phase string, success bool)
}

// EvidenceServiceConfig configures an EvidenceService
type EvidenceServiceConfig struct {
	AllowedMimeTypes []string
	// Verifier is optional; when set, finalize checks the upload exists first
	Verifier UploadVerifier
	Recorder Recorder
	Logger   *zap.Logger
}

// EvidenceService handles payment evidence uploads
type EvidenceService struct {
	api      checkout.EvidenceAPI
	verifier UploadVerifier
	recorder Recorder
	allowed  map[string]struct{}
	logger   *zap.Logger
}

// NewEvidenceService creates a new EvidenceService
func NewEvidenceService(api checkout.EvidenceAPI, cfg EvidenceServiceConfig) *EvidenceService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	types := cfg.AllowedMimeTypes
	if len(types) == 0 {
		types = DefaultAllowedMimeTypes
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[normalizeMimeType(t)] = struct{}{}
	}
	return &EvidenceService{
		api:      api,
		verifier: cfg.Verifier,
		recorder: cfg.Recorder,
		allowed:  allowed,
		logger:   logger,
	}
}

// Presign requests an upload target for a proof of payment. All three
// inputs are required and validated before any network call.
func (s *EvidenceService) Presign(ctx context.Context, sc session.SessionContext, paymentID, fileName, mimeType string) (*checkout.PaymentEvidence, error) {
	paymentID = strings.TrimSpace(paymentID)
	fileName = strings.TrimSpace(fileName)
	mimeType = normalizeMimeType(mimeType)

	switch {
	case paymentID == "":
		return nil, shared.NewMissingFieldError("paymentId")
	case fileName == "":
		return nil, shared.NewMissingFieldError("fileName")
	case mimeType == "":
		return nil, shared.NewMissingFieldError("mimeType")
	}
	if _, ok := s.allowed[mimeType]; !ok {
		return nil, shared.NewValidationError("Unsupported mimeType " + mimeType)
	}

	presigned, err := s.api.PresignEvidence(ctx, sc.CartSession(), paymentID, fileName, mimeType)
	s.record(ctx, PhasePresign, err == nil)
	if err != nil {
		s.logger.Warn("Evidence presign failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, err
	}
	if presigned.Key == "" || presigned.UploadURL == "" {
		return nil, shared.NewUpstreamError(http.StatusBadGateway, "Presign response is missing uploadUrl or key")
	}

	return checkout.NewPaymentEvidence(paymentID, fileName, mimeType, *presigned), nil
}

// Finalize attaches a previously presigned upload to the payment. The backend
// decides whether key belongs to paymentID.
func (s *EvidenceService) Finalize(ctx context.Context, sc session.SessionContext, paymentID, key string, details checkout.FinalizeDetails) (*checkout.PaymentEvidence, error) {
	paymentID = strings.TrimSpace(paymentID)
	key = strings.TrimSpace(key)

	if paymentID == "" {
		return nil, shared.NewMissingFieldError("paymentId")
	}
	if key == "" {
		return nil, shared.NewMissingFieldError("key")
	}
	if details.MimeType != "" {
		details.MimeType = normalizeMimeType(details.MimeType)
	}

	if s.verifier != nil {
		exists, err := s.verifier.Exists(ctx, key)
		if err != nil {
			s.record(ctx, PhaseFinalize, false)
			return nil, err
		}
		if !exists {
			s.record(ctx, PhaseFinalize, false)
			return nil, shared.NewValidationError("Evidence file not uploaded")
		}
	}

	err := s.api.FinalizeEvidence(ctx, sc.CartSession(), paymentID, key, details)
	s.record(ctx, PhaseFinalize, err == nil)
	if err != nil {
		s.logger.Warn("Evidence finalize failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, err
	}

	evidence := &checkout.PaymentEvidence{
		PaymentID: paymentID,
		UploadURL: details.URL,
		FileName:  details.FileName,
		MimeType:  details.MimeType,
		Note:      details.Note,
	}
	if err := evidence.MarkFinalized(key); err != nil {
		return nil, err
	}
	s.logger.Info("Payment evidence finalized", zap.String("payment_id", paymentID))
	return evidence, nil
}

func (s *EvidenceService) record(ctx context.Context, phase string, success bool) {
	if s.recorder != nil {
		s.recorder.RecordEvidence(ctx, phase, success)
	}
}

// normalizeMimeType lower-cases a media type and drops its parameters
func normalizeMimeType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	return strings.ToLower(v)
}
