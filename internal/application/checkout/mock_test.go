package checkout

import (
	"context"
	"net/http"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/stretchr/testify/mock"
)

// MockCommerceAPI is a mock implementation of checkout.CommerceAPI
type MockCommerceAPI struct {
	mock.Mock
}

func (m *MockCommerceAPI) CreateCheckout(ctx context.Context, s checkout.CartSession, cartID string, opts checkout.CreateOptions) (*checkout.Checkout, error) {
	args := m.Called(ctx, s, cartID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Checkout), args.Error(1)
}

func (m *MockCommerceAPI) RefreshCheckout(ctx context.Context, s checkout.CartSession, checkoutID string) (*checkout.RefreshResult, error) {
	args := m.Called(ctx, s, checkoutID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.RefreshResult), args.Error(1)
}

func (m *MockCommerceAPI) LockCheckout(ctx context.Context, s checkout.CartSession, checkoutID string) error {
	args := m.Called(ctx, s, checkoutID)
	return args.Error(0)
}

func (m *MockCommerceAPI) CompleteCheckout(ctx context.Context, s checkout.CartSession, checkoutID string, req checkout.CompleteRequest) (*checkout.Order, error) {
	args := m.Called(ctx, s, checkoutID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Order), args.Error(1)
}

func (m *MockCommerceAPI) SetShipping(ctx context.Context, s checkout.CartSession, checkoutID string, details checkout.ShippingDetails) (*checkout.Checkout, error) {
	args := m.Called(ctx, s, checkoutID, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Checkout), args.Error(1)
}

func (m *MockCommerceAPI) SetPickup(ctx context.Context, s checkout.CartSession, checkoutID string, selection checkout.PickupSelection) (*checkout.Checkout, error) {
	args := m.Called(ctx, s, checkoutID, selection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkout.Checkout), args.Error(1)
}

func (m *MockCommerceAPI) ListPickupLocations(ctx context.Context, state string) ([]checkout.PickupLocation, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]checkout.PickupLocation), args.Error(1)
}

// cookieRecorder collects cookies written by session resets
type cookieRecorder struct {
	cookies []*http.Cookie
}

func (r *cookieRecorder) SetCookie(c *http.Cookie) {
	r.cookies = append(r.cookies, c)
}

// mapCache is an unsynchronized PickupLocationCache for tests
type mapCache map[string][]checkout.PickupLocation

func (c mapCache) Get(_ context.Context, state string) ([]checkout.PickupLocation, bool) {
	v, ok := c[state]
	return v, ok
}

func (c mapCache) Set(_ context.Context, state string, locations []checkout.PickupLocation) {
	c[state] = locations
}

type stepRecorder struct {
	steps  []string
	orders []string
}

func (r *stepRecorder) RecordStep(_ context.Context, step string, success bool) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	r.steps = append(r.steps, step+":"+outcome)
}

func (r *stepRecorder) RecordOrderPlaced(_ context.Context, paymentMethodType string) {
	r.orders = append(r.orders, paymentMethodType)
}
