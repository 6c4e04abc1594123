package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the endpoint handlers mounted by NewEngine
type Handlers struct {
	Checkout *handler.CheckoutHandler
	Shipping *handler.ShippingHandler
	Evidence *handler.PaymentEvidenceHandler
	Cart     *handler.CartHandler
	System   *handler.SystemHandler
}

// EngineConfig configures the global middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	Tracing        middleware.TracingConfig
	// Metrics may be nil to disable HTTP request metrics
	Metrics     middleware.HTTPRecorder
	MaxBodySize int64
	// RateLimiter, when set, limits the checkout, payment and cart routes
	// per cart session
	RateLimiter *middleware.RateLimiter
}

// NewEngine builds the gin engine serving the storefront API.
//
// Middleware order:
//  1. RequestID - generate or propagate the request id
//  2. Recovery - catch panics
//  3. Logger - log requests
//  4. Tracing - server span, request attributes, error status
//  5. Metrics - request count and latency per route
//  6. CORS, security headers and no-store
//  7. BodyLimit - limit request body size
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, fmt.Errorf("set trusted proxies: %w", err)
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(cfg.Metrics))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.SecureWithConfig(cfg.Security))
	engine.Use(middleware.NoStore())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	// Liveness stays outside API versioning
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	for _, group := range domainGroups(h, cfg.RateLimiter) {
		r.Register(group)
	}
	r.Setup()

	log.Debug("Routes registered", zap.Strings("routes", r.Routes()))
	return engine, nil
}

func domainGroups(h Handlers, limiter *middleware.RateLimiter) []*DomainGroup {
	limited := func(g *DomainGroup) *DomainGroup {
		if limiter != nil {
			g.Use(middleware.RateLimit(limiter))
		}
		return g
	}

	checkoutRoutes := limited(NewDomainGroup("checkout", "/checkout"))
	checkoutRoutes.POST("/from-cart/:cartId", h.Checkout.CreateFromCart)
	checkoutRoutes.GET("/pickup-locations", h.Checkout.PickupLocations)
	checkoutRoutes.POST("/:id/refresh", h.Checkout.Refresh)
	checkoutRoutes.PATCH("/:id/lock", h.Checkout.Lock)
	checkoutRoutes.POST("/:id/complete", h.Checkout.Complete)
	checkoutRoutes.POST("/:id/place-order", h.Checkout.PlaceOrder)
	checkoutRoutes.PATCH("/:id/shipping", h.Checkout.SetShipping)
	checkoutRoutes.PATCH("/:id/pickup", h.Checkout.SetPickup)

	shippingRoutes := NewDomainGroup("shipping", "/shipping")
	shippingRoutes.POST("/quote", h.Shipping.Quote)

	paymentRoutes := limited(NewDomainGroup("payments", "/payments"))
	evidenceRoutes := paymentRoutes.Group("evidence", "/:id/evidence")
	evidenceRoutes.POST("/presign", h.Evidence.Presign)
	evidenceRoutes.POST("/finalize", h.Evidence.Finalize)

	cartRoutes := limited(NewDomainGroup("cart", "/cart"))
	cartRoutes.POST("/claim", h.Cart.Claim)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/ping", h.System.Ping)

	return []*DomainGroup{checkoutRoutes, shippingRoutes, paymentRoutes, cartRoutes, systemRoutes}
}
