package checkout

import (
	"encoding/json"
	"strings"

	"github.com/storefront/backend/internal/domain/shipping"
)

// CartSession holds the three identifiers addressing an anonymous cart
type CartSession struct {
	CartID           string
	CartToken        string
	CartRefreshToken string
}

// HasToken reports whether the session carries a cart token
func (s CartSession) HasToken() bool {
	return strings.TrimSpace(s.CartToken) != ""
}

// IsComplete reports whether both cart id and cart token are present
func (s CartSession) IsComplete() bool {
	return strings.TrimSpace(s.CartID) != "" && s.HasToken()
}

// Checkout is a priced draft order. The backend payload is kept verbatim in
// Payload and re-emitted unchanged when the checkout is marshalled.
type Checkout struct {
	ID                 string          `json:"id"`
	CartID             string          `json:"cartId,omitempty"`
	Status             Status          `json:"status"`
	PreviousCheckoutID string          `json:"previousCheckoutId,omitempty"`
	Payload            json.RawMessage `json:"-"`
}

type checkoutFields struct {
	ID                 string `json:"id"`
	CheckoutID         string `json:"checkoutId"`
	CartID             string `json:"cartId"`
	Status             string `json:"status"`
	PreviousCheckoutID string `json:"previousCheckoutId"`
}

// UnmarshalJSON decodes the known fields and keeps the full payload
func (c *Checkout) UnmarshalJSON(data []byte) error {
	var f checkoutFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	c.ID = f.ID
	if c.ID == "" {
		c.ID = f.CheckoutID
	}
	c.CartID = f.CartID
	c.Status = ParseStatus(f.Status)
	c.PreviousCheckoutID = f.PreviousCheckoutID
	c.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the backend payload when present
func (c Checkout) MarshalJSON() ([]byte, error) {
	if len(c.Payload) > 0 {
		return c.Payload, nil
	}
	type plain Checkout
	return json.Marshal(plain(c))
}

// Order is created exactly once, from a locked checkout
type Order struct {
	ID                string          `json:"id"`
	CheckoutID        string          `json:"checkoutId,omitempty"`
	PaymentMethodType string          `json:"paymentMethodType,omitempty"`
	PaymentProvider   string          `json:"paymentProvider,omitempty"`
	Status            string          `json:"status,omitempty"`
	Payload           json.RawMessage `json:"-"`
}

type orderFields struct {
	ID                string `json:"id"`
	OrderID           string `json:"orderId"`
	CheckoutID        string `json:"checkoutId"`
	PaymentMethodType string `json:"paymentMethodType"`
	PaymentProvider   string `json:"paymentProvider"`
	Status            string `json:"status"`
}

// UnmarshalJSON decodes the known fields and keeps the full payload
func (o *Order) UnmarshalJSON(data []byte) error {
	var f orderFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	o.ID = f.ID
	if o.ID == "" {
		o.ID = f.OrderID
	}
	o.CheckoutID = f.CheckoutID
	o.PaymentMethodType = f.PaymentMethodType
	o.PaymentProvider = f.PaymentProvider
	o.Status = f.Status
	o.Payload = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits the backend payload when present
func (o Order) MarshalJSON() ([]byte, error) {
	if len(o.Payload) > 0 {
		return o.Payload, nil
	}
	type plain Order
	return json.Marshal(plain(o))
}

// CreateOptions are the optional fields accepted when creating a checkout
type CreateOptions struct {
	Email   string `json:"email,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// CompleteRequest carries the payment selection for completion
type CompleteRequest struct {
	PaymentMethodType string `json:"paymentMethodType"`
	PaymentProvider   string `json:"paymentProvider,omitempty"`
}

// ShippingDetails is the delivery address for a shipped order. When Items
// are supplied the shipping rate is computed locally and sent along.
type ShippingDetails struct {
	DeliveryMethod    shipping.DeliveryMethod `json:"deliveryMethod"`
	FirstName         string                  `json:"firstName"`
	LastName          string                  `json:"lastName,omitempty"`
	Email             string                  `json:"email,omitempty"`
	Phone             string                  `json:"phone"`
	AddressLine1      string                  `json:"addressLine1"`
	AddressLine2      string                  `json:"addressLine2,omitempty"`
	City              string                  `json:"city"`
	State             string                  `json:"state"`
	PostalCode        string                  `json:"postalCode,omitempty"`
	Country           string                  `json:"country,omitempty"`
	Items             []shipping.Item         `json:"-"`
	ShippingRateMinor *int64                  `json:"shippingRateMinor,omitempty"`
}

// PickupSelection chooses an in-store pickup location
type PickupSelection struct {
	PickupLocationID string `json:"pickupLocationId"`
	ContactName      string `json:"contactName,omitempty"`
	ContactPhone     string `json:"contactPhone,omitempty"`
	Email            string `json:"email,omitempty"`
	Note             string `json:"note,omitempty"`
}

// PickupLocation is a store where an order may be collected
type PickupLocation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	State   string `json:"state"`
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// ClaimResult reports whether an anonymous cart was merged into an account
type ClaimResult struct {
	Claimed bool   `json:"claimed"`
	Reason  string `json:"reason,omitempty"`
}

// Claim skip reasons
const (
	ClaimReasonNoCartToken      = "no_cart_token"
	ClaimReasonNotAuthenticated = "not_authenticated"
)
