package session

import (
	"context"
	"strings"

	"github.com/storefront/backend/internal/domain/checkout"
	"go.uber.org/zap"
)

// AccessTokenVerifier checks a customer access token locally
type AccessTokenVerifier interface {
	Verify(token string) error
}

// Manager resolves, claims and clears cart sessions
type Manager struct {
	carts    checkout.CartAPI
	verifier AccessTokenVerifier
	policy   CookiePolicy
	logger   *zap.Logger
}

// NewManager creates a session manager. verifier may be nil, in which case
// access tokens are forwarded to the backend unchecked.
func NewManager(carts checkout.CartAPI, verifier AccessTokenVerifier, policy CookiePolicy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		carts:    carts,
		verifier: verifier,
		policy:   policy,
		logger:   logger,
	}
}

// Resolve returns the cart session of the request. The boolean is false when
// no cart token is present; that is a normal state, not an error.
func (m *Manager) Resolve(sc SessionContext) (checkout.CartSession, bool) {
	cs := sc.CartSession()
	if !cs.HasToken() {
		return checkout.CartSession{}, false
	}
	return cs, true
}

// Claim merges the anonymous cart into the account behind accessToken.
// A missing cart token or an unauthenticated caller is reported through the
// result, not as an error.
func (m *Manager) Claim(ctx context.Context, sc SessionContext, accessToken string) (*checkout.ClaimResult, error) {
	cs, ok := m.Resolve(sc)
	if !ok {
		return &checkout.ClaimResult{Claimed: false, Reason: checkout.ClaimReasonNoCartToken}, nil
	}

	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return &checkout.ClaimResult{Claimed: false, Reason: checkout.ClaimReasonNotAuthenticated}, nil
	}
	if m.verifier != nil {
		if err := m.verifier.Verify(accessToken); err != nil {
			m.logger.Info("Rejected access token on cart claim",
				zap.String("cart_token", Fingerprint(cs.CartToken)),
				zap.Error(err),
			)
			return &checkout.ClaimResult{Claimed: false, Reason: checkout.ClaimReasonNotAuthenticated}, nil
		}
	}

	outcome, err := m.carts.ClaimCart(ctx, cs, accessToken)
	if err != nil {
		return nil, err
	}

	if outcome.Session != nil && outcome.Session.HasToken() {
		m.Establish(sc.Writer, *outcome.Session)
	}

	m.logger.Info("Cart claimed",
		zap.String("cart_id", cs.CartID),
		zap.Bool("claimed", outcome.Claimed),
	)
	return &checkout.ClaimResult{Claimed: outcome.Claimed}, nil
}

// Reset clears cart_id and cart_token. The refresh token cookie is kept.
// It must only be called once an order has been created.
func (m *Manager) Reset(w CookieWriter) {
	if w == nil {
		return
	}
	w.SetCookie(m.policy.expired(CookieCartID))
	w.SetCookie(m.policy.expired(CookieCartToken))
}

// Establish writes a cart session into the cookie jar
func (m *Manager) Establish(w CookieWriter, cs checkout.CartSession) {
	if w == nil {
		return
	}
	if cs.CartID != "" {
		w.SetCookie(m.policy.cookie(CookieCartID, cs.CartID))
	}
	w.SetCookie(m.policy.cookie(CookieCartToken, cs.CartToken))
	if cs.CartRefreshToken != "" {
		w.SetCookie(m.policy.cookie(CookieCartRefreshToken, cs.CartRefreshToken))
	}
}
