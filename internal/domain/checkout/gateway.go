package checkout

import "context"

// CommerceAPI is the checkout side of the external commerce backend.
// Every call is an independent network request; implementations must not retry.
type CommerceAPI interface {
	CreateCheckout(ctx context.Context, session CartSession, cartID string, opts CreateOptions) (*Checkout, error)
	RefreshCheckout(ctx context.Context, session CartSession, checkoutID string) (*RefreshResult, error)
	LockCheckout(ctx context.Context, session CartSession, checkoutID string) error
	CompleteCheckout(ctx context.Context, session CartSession, checkoutID string, req CompleteRequest) (*Order, error)
	SetShipping(ctx context.Context, session CartSession, checkoutID string, details ShippingDetails) (*Checkout, error)
	SetPickup(ctx context.Context, session CartSession, checkoutID string, selection PickupSelection) (*Checkout, error)
	ListPickupLocations(ctx context.Context, state string) ([]PickupLocation, error)
}

// EvidenceAPI issues and accepts payment evidence uploads
type EvidenceAPI interface {
	PresignEvidence(ctx context.Context, session CartSession, paymentID, fileName, mimeType string) (*PresignResult, error)
	FinalizeEvidence(ctx context.Context, session CartSession, paymentID, key string, details FinalizeDetails) error
}

// ClaimOutcome is the backend's answer to a cart claim. Session is set when
// the backend hands back a fresh cart session for the account.
type ClaimOutcome struct {
	Claimed bool
	Session *CartSession
}

// CartAPI merges anonymous carts into authenticated accounts
type CartAPI interface {
	ClaimCart(ctx context.Context, session CartSession, accessToken string) (*ClaimOutcome, error)
}
