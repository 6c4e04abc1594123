package commerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

var testSession = checkout.CartSession{CartID: "cart_1", CartToken: "tok_1"}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.CommerceConfig{
		BaseURL:         srv.URL + "/store",
		Timeout:         5 * time.Second,
		MaxResponseSize: 1 << 20,
		UserAgent:       "storefront-test",
	}, opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient(config.CommerceConfig{BaseURL: "/store"})
	assert.Error(t, err)
}

func TestCreateCheckout_SendsHeadersAndBody(t *testing.T) {
	var got struct {
		method, path, token, cacheControl, requestID, userAgent string
		body                                                    map[string]string
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.token = r.Header.Get(HeaderCartToken)
		got.cacheControl = r.Header.Get(HeaderCacheControl)
		got.requestID = r.Header.Get(HeaderRequestID)
		got.userAgent = r.Header.Get("User-Agent")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		writeJSON(w, http.StatusCreated, map[string]any{"id": "chk_1", "status": "CREATED", "total": 4200})
	})

	ctx := logger.WithRequestID(context.Background(), "req-123")
	co, err := c.CreateCheckout(ctx, testSession, "cart_1", checkout.CreateOptions{Email: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/store/checkouts", got.path)
	assert.Equal(t, "tok_1", got.token)
	assert.Equal(t, "no-store", got.cacheControl)
	assert.Equal(t, "req-123", got.requestID)
	assert.Equal(t, "storefront-test", got.userAgent)
	assert.Equal(t, map[string]string{"cartId": "cart_1", "email": "a@example.com"}, got.body)

	assert.Equal(t, "chk_1", co.ID)
	assert.Equal(t, checkout.StatusCreated, co.Status)
	assert.Contains(t, string(co.Payload), `"total":4200`)
}

func TestCreateCheckout_UnwrapsDataEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"checkoutId": "chk_2"}})
	})

	co, err := c.CreateCheckout(context.Background(), testSession, "cart_1", checkout.CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "chk_2", co.ID)
}

func TestCreateCheckout_EmptyIDIsBadGateway(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	_, err := c.CreateCheckout(context.Background(), testSession, "cart_1", checkout.CreateOptions{})
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusBadGateway, de.Status)
}

func TestUpstreamErrorsForwardStatusAndMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusConflict, `{"message":"Checkout is locked"}`, "Checkout is locked"},
		{"error string", http.StatusBadRequest, `{"error":"Cart is empty"}`, "Cart is empty"},
		{"nested error", http.StatusUnprocessableEntity, `{"error":{"message":"Invalid address"}}`, "Invalid address"},
		{"detail field", http.StatusNotFound, `{"detail":"Checkout not found"}`, "Checkout not found"},
		{"non json body", http.StatusServiceUnavailable, `upstream down`, "Service Unavailable"},
		{"empty body", http.StatusInternalServerError, ``, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := c.LockCheckout(context.Background(), testSession, "chk_1")
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, shared.KindUpstream, de.Kind)
			assert.Equal(t, tt.status, de.Status)
			assert.Equal(t, tt.message, de.Message)
		})
	}
}

func TestTransportFailureIsBadGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c, err := NewClient(config.CommerceConfig{BaseURL: baseURL, Timeout: time.Second})
	require.NoError(t, err)

	err = c.LockCheckout(context.Background(), testSession, "chk_1")
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusBadGateway, de.Status)
	assert.Equal(t, msgUnreachable, de.Message)
}

func TestRefreshCheckout(t *testing.T) {
	t.Run("new id records previous", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/store/checkouts/chk_old/refresh", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{"checkoutId": "chk_new"})
		})

		res, err := c.RefreshCheckout(context.Background(), testSession, "chk_old")
		require.NoError(t, err)
		assert.Equal(t, "chk_new", res.CheckoutID)
		assert.True(t, res.Refreshed)
		assert.Equal(t, "chk_old", res.PreviousCheckoutID)
	})

	t.Run("same id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "chk_1", "refreshed": false})
		})

		res, err := c.RefreshCheckout(context.Background(), testSession, "chk_1")
		require.NoError(t, err)
		assert.Equal(t, "chk_1", res.CheckoutID)
		assert.False(t, res.Refreshed)
		assert.Empty(t, res.PreviousCheckoutID)
	})
}

func TestCompleteCheckout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store/checkouts/chk_1/complete", r.URL.Path)
		var body checkout.CompleteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bank_transfer", body.PaymentMethodType)
		writeJSON(w, http.StatusOK, map[string]any{"orderId": "ord_1", "status": "pending"})
	})

	order, err := c.CompleteCheckout(context.Background(), testSession, "chk_1", checkout.CompleteRequest{PaymentMethodType: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, "ord_1", order.ID)
}

func TestCheckoutMutations_BackendRoutes(t *testing.T) {
	tests := []struct {
		name       string
		call       func(*Client) error
		wantMethod string
		wantPath   string
	}{
		{
			name: "lock",
			call: func(c *Client) error {
				return c.LockCheckout(context.Background(), testSession, "chk_1")
			},
			wantMethod: http.MethodPost,
			wantPath:   "/store/checkouts/chk_1/lock",
		},
		{
			name: "complete",
			call: func(c *Client) error {
				_, err := c.CompleteCheckout(context.Background(), testSession, "chk_1", checkout.CompleteRequest{PaymentMethodType: "card"})
				return err
			},
			wantMethod: http.MethodPost,
			wantPath:   "/store/checkouts/chk_1/complete",
		},
		{
			name: "shipping",
			call: func(c *Client) error {
				_, err := c.SetShipping(context.Background(), testSession, "chk_1", checkout.ShippingDetails{})
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/store/checkouts/chk_1/shipping",
		},
		{
			name: "pickup",
			call: func(c *Client) error {
				_, err := c.SetPickup(context.Background(), testSession, "chk_1", checkout.PickupSelection{})
				return err
			},
			wantMethod: http.MethodPut,
			wantPath:   "/store/checkouts/chk_1/pickup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var method, path string
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				method, path = r.Method, r.URL.Path
				writeJSON(w, http.StatusOK, map[string]any{"id": "chk_1", "orderId": "ord_1", "status": "LOCKED"})
			})

			require.NoError(t, tt.call(c))
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestListPickupLocations(t *testing.T) {
	t.Run("passes state and skips session headers", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Lagos", r.URL.Query().Get("state"))
			assert.Empty(t, r.Header.Get(HeaderCartToken))
			assert.Empty(t, r.Header.Get(HeaderCacheControl))
			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]string{{"id": "loc_1", "name": "Ikeja", "state": "Lagos"}}})
		})

		locs, err := c.ListPickupLocations(context.Background(), " Lagos ")
		require.NoError(t, err)
		require.Len(t, locs, 1)
		assert.Equal(t, "loc_1", locs[0].ID)
	})

	t.Run("null becomes empty list", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			_, _ = io.WriteString(w, "null")
		})

		locs, err := c.ListPickupLocations(context.Background(), "")
		require.NoError(t, err)
		assert.NotNil(t, locs)
		assert.Empty(t, locs)
	})
}

func TestEvidenceCalls(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/store/payments/pay_1/evidence/presign":
			writeJSON(w, http.StatusOK, map[string]string{"uploadUrl": "https://bucket/put", "key": "evidence/pay_1.png"})
		case "/store/payments/pay_1/evidence/finalize":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "evidence/pay_1.png", body["key"])
			assert.Equal(t, "paid at noon", body["note"])
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	presigned, err := c.PresignEvidence(context.Background(), testSession, "pay_1", "receipt.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "evidence/pay_1.png", presigned.Key)
	assert.Equal(t, "https://bucket/put", presigned.UploadURL)

	err = c.FinalizeEvidence(context.Background(), testSession, "pay_1", presigned.Key, checkout.FinalizeDetails{Note: "paid at noon"})
	assert.NoError(t, err)
}

func TestClaimCart(t *testing.T) {
	t.Run("sends bearer token and returns fresh session", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			assert.Equal(t, "tok_1", r.Header.Get(HeaderCartToken))
			writeJSON(w, http.StatusOK, map[string]any{"claimed": true, "cartToken": "tok_2", "cartRefreshToken": "ref_2"})
		})

		out, err := c.ClaimCart(context.Background(), testSession, "access-1")
		require.NoError(t, err)
		assert.True(t, out.Claimed)
		require.NotNil(t, out.Session)
		assert.Equal(t, "cart_1", out.Session.CartID)
		assert.Equal(t, "tok_2", out.Session.CartToken)
		assert.Equal(t, "ref_2", out.Session.CartRefreshToken)
	})

	t.Run("no session in response", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"claimed": false})
		})

		out, err := c.ClaimCart(context.Background(), testSession, "access-1")
		require.NoError(t, err)
		assert.False(t, out.Claimed)
		assert.Nil(t, out.Session)
	})
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	var calls, status atomic.Int32
	status.Store(http.StatusBadRequest)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}, WithBreaker(config.BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}))

	// Client errors never trip the breaker
	for i := 0; i < 3; i++ {
		err := c.LockCheckout(context.Background(), testSession, "chk_1")
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, http.StatusBadRequest, de.Status)
	}

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		_ = c.LockCheckout(context.Background(), testSession, "chk_1")
	}
	before := calls.Load()

	err := c.LockCheckout(context.Background(), testSession, "chk_1")
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusServiceUnavailable, de.Status)
	assert.Equal(t, before, calls.Load(), "open breaker must not reach the backend")
}

func TestUnwrapData(t *testing.T) {
	assert.JSONEq(t, `{"id":"x"}`, string(unwrapData([]byte(`{"data":{"id":"x"}}`))))
	assert.JSONEq(t, `[1,2]`, string(unwrapData([]byte(`{"data":[1,2]}`))))
	assert.JSONEq(t, `{"data":"scalar"}`, string(unwrapData([]byte(`{"data":"scalar"}`))))
	assert.JSONEq(t, `{"id":"x"}`, string(unwrapData([]byte(`{"id":"x"}`))))
}
