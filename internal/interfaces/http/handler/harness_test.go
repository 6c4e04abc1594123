package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/infrastructure/commerce"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// backendCall is one request seen by the fake commerce backend
type backendCall struct {
	Method    string
	Path      string
	Query     string
	CartToken string
	Auth      string
	Body      map[string]any
}

type backendReply struct {
	status int
	body   string
}

// fakeBackend stands in for the commerce backend and records every call
type fakeBackend struct {
	mu      sync.Mutex
	calls   []backendCall
	replies map[string]backendReply
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: make(map[string]backendReply)}
}

func (b *fakeBackend) on(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[method+" "+path] = backendReply{status: status, body: body}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call := backendCall{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		CartToken: r.Header.Get(commerce.HeaderCartToken),
		Auth:      r.Header.Get("Authorization"),
	}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &call.Body)
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	reply, ok := b.replies[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if !ok {
		reply = backendReply{status: http.StatusNotFound, body: `{"message":"Route not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_, _ = w.Write([]byte(reply.body))
}

func (b *fakeBackend) Calls() []backendCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendCall(nil), b.calls...)
}

func (b *fakeBackend) Paths() []string {
	var paths []string
	for _, call := range b.Calls() {
		paths = append(paths, call.Method+" "+call.Path)
	}
	return paths
}

// testAPI is the checkout API wired to a fake commerce backend
type testAPI struct {
	engine  *gin.Engine
	backend *fakeBackend
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := commerce.NewClient(config.CommerceConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	logger := zap.NewNop()
	sessions := session.NewManager(client, nil, session.DefaultCookiePolicy(), logger)
	checkoutService := checkoutapp.NewService(client, sessions, checkoutapp.ServiceConfig{Logger: logger})
	evidenceService := payment.NewEvidenceService(client, payment.EvidenceServiceConfig{Logger: logger})

	checkoutHandler := NewCheckoutHandler(checkoutService)
	shippingHandler := NewShippingHandler(checkoutService)
	evidenceHandler := NewPaymentEvidenceHandler(evidenceService)
	cartHandler := NewCartHandler(sessions)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	api := engine.Group("/api/v1")
	api.POST("/checkout/from-cart/:cartId", checkoutHandler.CreateFromCart)
	api.GET("/checkout/pickup-locations", checkoutHandler.PickupLocations)
	api.POST("/checkout/:id/refresh", checkoutHandler.Refresh)
	api.PATCH("/checkout/:id/lock", checkoutHandler.Lock)
	api.POST("/checkout/:id/complete", checkoutHandler.Complete)
	api.POST("/checkout/:id/place-order", checkoutHandler.PlaceOrder)
	api.PATCH("/checkout/:id/shipping", checkoutHandler.SetShipping)
	api.PATCH("/checkout/:id/pickup", checkoutHandler.SetPickup)
	api.POST("/shipping/quote", shippingHandler.Quote)
	api.POST("/payments/:id/evidence/presign", evidenceHandler.Presign)
	api.POST("/payments/:id/evidence/finalize", evidenceHandler.Finalize)
	api.POST("/cart/claim", cartHandler.Claim)

	return &testAPI{engine: engine, backend: backend}
}

type requestOption func(*http.Request)

func withCart(cartID, token string) requestOption {
	return func(r *http.Request) {
		if cartID != "" {
			r.AddCookie(&http.Cookie{Name: session.CookieCartID, Value: cartID})
		}
		if token != "" {
			r.AddCookie(&http.Cookie{Name: session.CookieCartToken, Value: token})
		}
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func (a *testAPI) do(method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// responseCookies indexes the Set-Cookie headers of a response by name
func responseCookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := make(map[string]*http.Cookie)
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}
