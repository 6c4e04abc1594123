// Package checkout drives the cart-to-order checkout protocol against the
// commerce backend.
package checkout

import (
	"context"
	"net/http"
	"strings"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shipping"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PickupLocationCache stores pickup location listings keyed by state
type PickupLocationCache interface {
	Get(ctx context.Context, state string) ([]checkout.PickupLocation, bool)
	Set(ctx context.Context, state string, locations []checkout.PickupLocation)
}

// Recorder receives checkout step outcomes
type Recorder interface {
	RecordStep(ctx context.Context, step string, success bool)
	RecordOrderPlaced(ctx context.Context, paymentMethodType string)
}

// ServiceConfig holds the optional collaborators of a Service
type ServiceConfig struct {
	Cache    PickupLocationCache
	Recorder Recorder
	Logger   *zap.Logger
}

// Service orchestrates checkout operations. It keeps no state between calls;
// concurrent attempts on one checkout are serialized by the backend.
type Service struct {
	api      checkout.CommerceAPI
	sessions *session.Manager
	cache    PickupLocationCache
	recorder Recorder
	logger   *zap.Logger
}

// NewService creates a new checkout Service
func NewService(api checkout.CommerceAPI, sessions *session.Manager, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:      api,
		sessions: sessions,
		cache:    cfg.Cache,
		recorder: cfg.Recorder,
		logger:   logger,
	}
}

// PlaceOrderResult is the outcome of a successful PlaceOrder
type PlaceOrderResult struct {
	Order              *checkout.Order `json:"order"`
	CheckoutID         string          `json:"checkoutId"`
	PreviousCheckoutID string          `json:"previousCheckoutId,omitempty"`
	Status             checkout.Status `json:"status"`
}

// requireSession returns the cart session or an Unauthenticated error
func (s *Service) requireSession(sc session.SessionContext) (checkout.CartSession, error) {
	cs, ok := s.sessions.Resolve(sc)
	if !ok {
		return checkout.CartSession{}, shared.NewUnauthenticatedError("Missing cart token")
	}
	return cs, nil
}

func requireID(id, field string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", shared.NewMissingFieldError(field)
	}
	return id, nil
}

// Create starts (or continues) a checkout for the cart
func (s *Service) Create(ctx context.Context, sc session.SessionContext, cartID string, opts checkout.CreateOptions) (*checkout.Checkout, error) {
	cs, err := s.requireSession(sc)
	if err != nil {
		return nil, err
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, shared.NewUnauthenticatedError("Missing cart id")
	}

	c, err := s.api.CreateCheckout(ctx, cs, cartID, opts)
	s.record(ctx, StepCreate, err == nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Checkout created", zap.String("cart_id", cartID), zap.String("checkout_id", c.ID))
	return c, nil
}

// Refresh rechecks pricing and stock. The returned CheckoutID is the
// effective id for every following step.
func (s *Service) Refresh(ctx context.Context, sc session.SessionContext, checkoutID string) (*checkout.RefreshResult, error) {
	cs, err := s.requireSession(sc)
	if err != nil {
		return nil, err
	}
	checkoutID, err = requireID(checkoutID, "checkoutId")
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, cs, checkoutID)
}

func (s *Service) refresh(ctx context.Context, cs checkout.CartSession, checkoutID string) (*checkout.RefreshResult, error) {
	result, err := s.api.RefreshCheckout(ctx, cs, checkoutID)
	s.record(ctx, StepRefresh, err == nil)
	if err != nil {
		return nil, err
	}
	if result.CheckoutID == "" {
		result.CheckoutID = checkoutID
	}
	if result.CheckoutID != checkoutID && result.PreviousCheckoutID == "" {
		result.PreviousCheckoutID = checkoutID
	}
	if result.Refreshed {
		s.logger.Info("Checkout refreshed",
			zap.String("checkout_id", result.CheckoutID),
			zap.String("previous_checkout_id", result.PreviousCheckoutID),
		)
	}
	return result, nil
}

// Lock freezes the checkout while payment is in flight
func (s *Service) Lock(ctx context.Context, sc session.SessionContext, checkoutID string) error {
	cs, err := s.requireSession(sc)
	if err != nil {
		return err
	}
	checkoutID, err = requireID(checkoutID, "checkoutId")
	if err != nil {
		return err
	}
	err = s.api.LockCheckout(ctx, cs, checkoutID)
	s.record(ctx, StepLock, err == nil)
	return err
}

// Complete turns a locked checkout into an order and clears the cart
// session. The session check runs before any input validation.
func (s *Service) Complete(ctx context.Context, sc session.SessionContext, checkoutID string, req checkout.CompleteRequest) (*checkout.Order, error) {
	cs, err := s.requireSession(sc)
	if err != nil {
		return nil, err
	}
	checkoutID, err = requireID(checkoutID, "checkoutId")
	if err != nil {
		return nil, err
	}
	req, err = normalizeCompleteRequest(req)
	if err != nil {
		return nil, err
	}

	order, err := s.complete(ctx, cs, checkoutID, req)
	if err != nil {
		return nil, err
	}
	s.sessions.Reset(sc.Writer)
	return order, nil
}

func normalizeCompleteRequest(req checkout.CompleteRequest) (checkout.CompleteRequest, error) {
	req.PaymentMethodType = strings.TrimSpace(req.PaymentMethodType)
	req.PaymentProvider = strings.TrimSpace(req.PaymentProvider)
	if req.PaymentMethodType == "" {
		return req, shared.NewMissingFieldError("paymentMethodType")
	}
	return req, nil
}

func (s *Service) complete(ctx context.Context, cs checkout.CartSession, checkoutID string, req checkout.CompleteRequest) (*checkout.Order, error) {
	order, err := s.api.CompleteCheckout(ctx, cs, checkoutID, req)
	if err == nil && (order == nil || order.ID == "") {
		err = shared.NewUpstreamError(http.StatusBadGateway, "Complete returned no order")
	}
	s.record(ctx, StepComplete, err == nil)
	if err != nil {
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.RecordOrderPlaced(ctx, req.PaymentMethodType)
	}
	s.logger.Info("Order created",
		zap.String("checkout_id", checkoutID),
		zap.String("order_id", order.ID),
		zap.String("payment_method_type", req.PaymentMethodType),
	)
	return order, nil
}

// PlaceOrder runs refresh, lock and complete in order, threading the
// effective id from refresh into the later steps, and resets the session
// once an order exists. Each step is an independent call; nothing is
// retried or rolled back. A failure after lock leaves the checkout locked
// with no order and the session untouched.
func (s *Service) PlaceOrder(ctx context.Context, sc session.SessionContext, checkoutID string, req checkout.CompleteRequest) (*PlaceOrderResult, error) {
	cs, err := s.requireSession(sc)
	if err != nil {
		return nil, err
	}
	req, err = normalizeCompleteRequest(req)
	if err != nil {
		return nil, err
	}
	flow, err := checkout.NewFlow(checkoutID)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place_order",
		telemetry.WithAttribute(telemetry.SpanAttrCheckoutID, flow.EffectiveID()),
		telemetry.WithAttribute(telemetry.SpanAttrPaymentMethodType, req.PaymentMethodType),
	)
	defer span.End()

	fail := func(step Step, err error) (*PlaceOrderResult, error) {
		telemetry.SetAttributes(span,
			telemetry.SpanAttrStep, string(step),
			telemetry.SpanAttrCheckoutStatus, flow.Status().String(),
		)
		telemetry.RecordError(span, err)
		if flow.Status() == checkout.StatusLocked {
			s.logger.Warn("Checkout left locked without an order",
				zap.String("checkout_id", flow.EffectiveID()),
				zap.String("step", string(step)),
				zap.Error(err),
			)
		}
		return nil, &StepError{Step: step, CheckoutID: flow.EffectiveID(), Status: flow.Status(), Err: err}
	}

	refreshed, err := s.refresh(ctx, cs, flow.EffectiveID())
	if err != nil {
		return fail(StepRefresh, err)
	}
	if err := flow.ApplyRefresh(*refreshed); err != nil {
		return fail(StepRefresh, err)
	}
	if flow.PreviousID() != "" {
		telemetry.SetAttribute(span, telemetry.SpanAttrPreviousCheckoutID, flow.PreviousID())
	}

	err = s.api.LockCheckout(ctx, cs, flow.EffectiveID())
	s.record(ctx, StepLock, err == nil)
	if err != nil {
		return fail(StepLock, err)
	}
	if err := flow.MarkLocked(); err != nil {
		return fail(StepLock, err)
	}
	telemetry.AddEvent(span, "checkout.locked", telemetry.SpanAttrCheckoutID, flow.EffectiveID())

	order, err := s.complete(ctx, cs, flow.EffectiveID(), req)
	if err != nil {
		return fail(StepComplete, err)
	}
	if err := flow.MarkCompleted(); err != nil {
		return fail(StepComplete, err)
	}

	s.sessions.Reset(sc.Writer)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCheckoutID, flow.EffectiveID(),
		telemetry.SpanAttrOrderID, order.ID,
	)
	telemetry.SetOK(span)

	return &PlaceOrderResult{
		Order:              order,
		CheckoutID:         flow.EffectiveID(),
		PreviousCheckoutID: flow.PreviousID(),
		Status:             flow.Status(),
	}, nil
}

// SetShipping stores the delivery address on the checkout. When the request
// carries cart items the rate is computed here and sent along.
func (s *Service) SetShipping(ctx context.Context, sc session.SessionContext, checkoutID string, details checkout.ShippingDetails) (*checkout.Checkout, error) {
	cs, err := s.requireSession(sc)
	if err != nil {
		return nil, err
	}
	checkoutID, err = requireID(checkoutID, "checkoutId")
	if err != nil {
		return nil, err
	}
	if details.DeliveryMethod == "" {
		details.DeliveryMethod = shipping.DeliveryMethodShipping
	}
	if details.DeliveryMethod.IsPickup() {
		return nil, shared.NewValidationError("Use the pickup endpoint for pickup orders")
	}
	if strings.TrimSpace(details.State) == "" {
		return nil, shared.NewMissingFieldError("state")
	}
	if len(details.Items) > 0 {
		rate := shipping.Rate(details.DeliveryMethod, details.State, details.Items)
		details.ShippingRateMinor = &rate
	}
	return s.api.SetShipping(ctx, cs, checkoutID, details)
}

// SetPickup selects an in-store pickup location for the checkout
func (s *Service) SetPickup(ctx context.Context, sc session.SessionContext, checkoutID string, selection checkout.PickupSelection) (*checkout.Checkout, error) {
	cs, err := s.requireSession(sc)
	if err != nil {
		return nil, err
	}
	checkoutID, err = requireID(checkoutID, "checkoutId")
	if err != nil {
		return nil, err
	}
	selection.PickupLocationID, err = requireID(selection.PickupLocationID, "pickupLocationId")
	if err != nil {
		return nil, err
	}
	return s.api.SetPickup(ctx, cs, checkoutID, selection)
}

// PickupLocations lists pickup locations, optionally filtered by state.
// It is the only read-only call and the only one served from cache.
func (s *Service) PickupLocations(ctx context.Context, state string) ([]checkout.PickupLocation, error) {
	key := shipping.NormalizeState(state)
	if s.cache != nil {
		if locations, ok := s.cache.Get(ctx, key); ok {
			return locations, nil
		}
	}

	locations, err := s.api.ListPickupLocations(ctx, strings.TrimSpace(state))
	if err != nil {
		return nil, err
	}
	if locations == nil {
		locations = []checkout.PickupLocation{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, locations)
	}
	return locations, nil
}

// QuoteShipping prices a delivery without touching the backend
func (s *Service) QuoteShipping(method shipping.DeliveryMethod, state string, items []shipping.Item) shipping.Quote {
	if method == "" {
		method = shipping.DeliveryMethodShipping
	}
	return shipping.Calculate(method, state, items)
}

func (s *Service) record(ctx context.Context, step Step, success bool) {
	if s.recorder != nil {
		s.recorder.RecordStep(ctx, string(step), success)
	}
}
