package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// CheckoutMetrics counts checkout protocol steps, placed orders and payment
// evidence uploads. It satisfies the recorder interfaces of the checkout and
// payment application services.
type CheckoutMetrics struct {
	logger *zap.Logger

	stepTotal     *Counter
	orderTotal    *Counter
	evidenceTotal *Counter
	httpDuration  *Histogram
}

// NewCheckoutMetrics creates the checkout instruments on the given meter.
func NewCheckoutMetrics(meter metric.Meter, logger *zap.Logger) (*CheckoutMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CheckoutMetrics{logger: logger}

	var err error
	cm.stepTotal, err = NewCounter(meter,
		"storefront_checkout_step_total",
		"Checkout protocol calls by step and outcome",
		"{calls}",
	)
	if err != nil {
		return nil, err
	}

	cm.orderTotal, err = NewCounter(meter,
		"storefront_order_placed_total",
		"Orders created from locked checkouts",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	cm.evidenceTotal, err = NewCounter(meter,
		"storefront_payment_evidence_total",
		"Payment evidence presign and finalize calls by outcome",
		"{calls}",
	)
	if err != nil {
		return nil, err
	}

	cm.httpDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storefront_http_request_duration_seconds",
		Description: "Inbound HTTP request duration",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordStep counts one checkout step call
func (cm *CheckoutMetrics) RecordStep(ctx context.Context, step string, success bool) {
	cm.stepTotal.Inc(ctx, AttrCheckoutStep.String(step), outcome(success))
}

// RecordOrderPlaced counts a created order
func (cm *CheckoutMetrics) RecordOrderPlaced(ctx context.Context, paymentMethodType string) {
	method := strings.ToLower(strings.TrimSpace(paymentMethodType))
	if method == "" {
		method = "unknown"
	}
	cm.orderTotal.Inc(ctx, AttrPaymentMethodType.String(method))
}

// RecordEvidence counts one evidence pipeline call
func (cm *CheckoutMetrics) RecordEvidence(ctx context.Context, phase string, success bool) {
	cm.evidenceTotal.Inc(ctx, AttrEvidencePhase.String(phase), outcome(success))
}

// RecordHTTPRequest records the duration of an inbound request
func (cm *CheckoutMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	cm.httpDuration.RecordDuration(ctx, d,
		AttrHTTPMethod.String(method),
		AttrHTTPRoute.String(route),
		AttrHTTPStatusCode.Int(status),
	)
}
