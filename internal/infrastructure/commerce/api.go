package commerce

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shared"
)

var (
	_ checkout.CommerceAPI = (*Client)(nil)
	_ checkout.EvidenceAPI = (*Client)(nil)
	_ checkout.CartAPI     = (*Client)(nil)
)

type createCheckoutRequest struct {
	CartID  string `json:"cartId"`
	Email   string `json:"email,omitempty"`
	Channel string `json:"channel,omitempty"`
}

type refreshResponse struct {
	CheckoutID         string `json:"checkoutId"`
	ID                 string `json:"id"`
	Refreshed          *bool  `json:"refreshed"`
	PreviousCheckoutID string `json:"previousCheckoutId"`
}

type presignRequest struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

type finalizeRequest struct {
	Key string `json:"key"`
	checkout.FinalizeDetails
}

type claimRequest struct {
	CartID string `json:"cartId,omitempty"`
}

type claimResponse struct {
	Claimed          bool   `json:"claimed"`
	CartID           string `json:"cartId"`
	CartToken        string `json:"cartToken"`
	CartRefreshToken string `json:"cartRefreshToken"`
}

func checkoutPath(id string, suffix ...string) string {
	parts := append([]string{"/checkouts", url.PathEscape(id)}, suffix...)
	return strings.Join(parts, "/")
}

// CreateCheckout creates a checkout from the session's cart
func (c *Client) CreateCheckout(ctx context.Context, session checkout.CartSession, cartID string, opts checkout.CreateOptions) (*checkout.Checkout, error) {
	var out checkout.Checkout
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/checkouts",
		session:  &session,
		body:     createCheckoutRequest{CartID: cartID, Email: opts.Email, Channel: opts.Channel},
		mutating: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, shared.NewUpstreamError(http.StatusBadGateway, msgBadResponse)
	}
	return &out, nil
}

// RefreshCheckout re-prices a checkout. The backend may answer with a new id,
// in which case the old one becomes PreviousCheckoutID.
func (c *Client) RefreshCheckout(ctx context.Context, session checkout.CartSession, checkoutID string) (*checkout.RefreshResult, error) {
	var out refreshResponse
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     checkoutPath(checkoutID, "refresh"),
		session:  &session,
		mutating: true,
	}, &out)
	if err != nil {
		return nil, err
	}

	result := &checkout.RefreshResult{
		CheckoutID:         out.CheckoutID,
		Refreshed:          true,
		PreviousCheckoutID: out.PreviousCheckoutID,
	}
	if result.CheckoutID == "" {
		result.CheckoutID = out.ID
	}
	if out.Refreshed != nil {
		result.Refreshed = *out.Refreshed
	}
	if result.CheckoutID != "" && result.CheckoutID != checkoutID && result.PreviousCheckoutID == "" {
		result.PreviousCheckoutID = checkoutID
	}
	return result, nil
}

// LockCheckout freezes a checkout for payment
func (c *Client) LockCheckout(ctx context.Context, session checkout.CartSession, checkoutID string) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     checkoutPath(checkoutID, "lock"),
		session:  &session,
		mutating: true,
	}, nil)
}

// CompleteCheckout converts a locked checkout into an order
func (c *Client) CompleteCheckout(ctx context.Context, session checkout.CartSession, checkoutID string, req checkout.CompleteRequest) (*checkout.Order, error) {
	var out checkout.Order
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     checkoutPath(checkoutID, "complete"),
		session:  &session,
		body:     req,
		mutating: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetShipping stores the delivery address on a checkout
func (c *Client) SetShipping(ctx context.Context, session checkout.CartSession, checkoutID string, details checkout.ShippingDetails) (*checkout.Checkout, error) {
	var out checkout.Checkout
	err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     checkoutPath(checkoutID, "shipping"),
		session:  &session,
		body:     details,
		mutating: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetPickup selects an in-store pickup location for a checkout
func (c *Client) SetPickup(ctx context.Context, session checkout.CartSession, checkoutID string, selection checkout.PickupSelection) (*checkout.Checkout, error) {
	var out checkout.Checkout
	err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     checkoutPath(checkoutID, "pickup"),
		session:  &session,
		body:     selection,
		mutating: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPickupLocations lists pickup locations, optionally filtered by state
func (c *Client) ListPickupLocations(ctx context.Context, state string) ([]checkout.PickupLocation, error) {
	var query url.Values
	if state = strings.TrimSpace(state); state != "" {
		query = url.Values{"state": []string{state}}
	}
	var out []checkout.PickupLocation
	if err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/pickup-locations",
		query:  query,
	}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []checkout.PickupLocation{}
	}
	return out, nil
}

// PresignEvidence asks the backend for an upload target for payment evidence
func (c *Client) PresignEvidence(ctx context.Context, session checkout.CartSession, paymentID, fileName, mimeType string) (*checkout.PresignResult, error) {
	var out checkout.PresignResult
	err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/payments/" + url.PathEscape(paymentID) + "/evidence/presign",
		session:  &session,
		body:     presignRequest{FileName: fileName, MimeType: mimeType},
		mutating: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FinalizeEvidence confirms an uploaded evidence object
func (c *Client) FinalizeEvidence(ctx context.Context, session checkout.CartSession, paymentID, key string, details checkout.FinalizeDetails) error {
	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/payments/" + url.PathEscape(paymentID) + "/evidence/finalize",
		session:  &session,
		body:     finalizeRequest{Key: key, FinalizeDetails: details},
		mutating: true,
	}, nil)
}

// ClaimCart merges the session's anonymous cart into the authenticated account
func (c *Client) ClaimCart(ctx context.Context, session checkout.CartSession, accessToken string) (*checkout.ClaimOutcome, error) {
	var out claimResponse
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/cart/claim",
		session:     &session,
		accessToken: accessToken,
		body:        claimRequest{CartID: session.CartID},
		mutating:    true,
	}, &out)
	if err != nil {
		return nil, err
	}

	outcome := &checkout.ClaimOutcome{Claimed: out.Claimed}
	if out.CartToken != "" {
		outcome.Session = &checkout.CartSession{
			CartID:           out.CartID,
			CartToken:        out.CartToken,
			CartRefreshToken: out.CartRefreshToken,
		}
		if outcome.Session.CartID == "" {
			outcome.Session.CartID = session.CartID
		}
	}
	return outcome, nil
}
