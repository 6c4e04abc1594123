package dto

import (
	"github.com/storefront/backend/internal/domain/checkout"
	"github.com/storefront/backend/internal/domain/shipping"
)

// CreateCheckoutRequest is the optional body of POST /checkout/from-cart/:cartId
type CreateCheckoutRequest struct {
	Email   string `json:"email" binding:"omitempty,email,max=254"`
	Channel string `json:"channel" binding:"omitempty,max=64"`
}

// ToOptions converts the request to backend create options
func (r CreateCheckoutRequest) ToOptions() checkout.CreateOptions {
	return checkout.CreateOptions{Email: r.Email, Channel: r.Channel}
}

// CompleteCheckoutRequest chooses how the order is paid. A missing
// paymentMethodType is rejected by the checkout service with its own message.
type CompleteCheckoutRequest struct {
	PaymentMethodType string `json:"paymentMethodType" binding:"omitempty,max=64"`
	PaymentProvider   string `json:"paymentProvider" binding:"omitempty,max=64"`
}

// ToCompleteRequest converts the request to its domain form
func (r CompleteCheckoutRequest) ToCompleteRequest() checkout.CompleteRequest {
	return checkout.CompleteRequest{
		PaymentMethodType: r.PaymentMethodType,
		PaymentProvider:   r.PaymentProvider,
	}
}

// CartItemRequest is one cart line used to price shipping
type CartItemRequest struct {
	Quantity int      `json:"quantity" binding:"gte=0"`
	WeightKg *float64 `json:"weightKg" binding:"omitempty,gte=0"`
}

func toItems(items []CartItemRequest) []shipping.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]shipping.Item, len(items))
	for i, item := range items {
		out[i] = shipping.Item{Quantity: item.Quantity, WeightKg: item.WeightKg}
	}
	return out
}

// SetShippingRequest is the delivery address for PATCH /checkout/:id/shipping
type SetShippingRequest struct {
	DeliveryMethod string            `json:"deliveryMethod" binding:"omitempty,max=32"`
	FirstName      string            `json:"firstName" binding:"required,max=100"`
	LastName       string            `json:"lastName" binding:"omitempty,max=100"`
	Email          string            `json:"email" binding:"omitempty,email,max=254"`
	Phone          string            `json:"phone" binding:"required,max=32"`
	AddressLine1   string            `json:"addressLine1" binding:"required,max=255"`
	AddressLine2   string            `json:"addressLine2" binding:"omitempty,max=255"`
	City           string            `json:"city" binding:"required,max=100"`
	State          string            `json:"state" binding:"max=100"`
	PostalCode     string            `json:"postalCode" binding:"omitempty,max=20"`
	Country        string            `json:"country" binding:"omitempty,max=64"`
	Items          []CartItemRequest `json:"items" binding:"omitempty,dive"`
}

// ToShippingDetails converts the request to its domain form
func (r SetShippingRequest) ToShippingDetails() checkout.ShippingDetails {
	return checkout.ShippingDetails{
		DeliveryMethod: shipping.DeliveryMethod(r.DeliveryMethod),
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		Phone:          r.Phone,
		AddressLine1:   r.AddressLine1,
		AddressLine2:   r.AddressLine2,
		City:           r.City,
		State:          r.State,
		PostalCode:     r.PostalCode,
		Country:        r.Country,
		Items:          toItems(r.Items),
	}
}

// SetPickupRequest chooses a pickup location for PATCH /checkout/:id/pickup
type SetPickupRequest struct {
	PickupLocationID string `json:"pickupLocationId"`
	ContactName      string `json:"contactName" binding:"omitempty,max=100"`
	ContactPhone     string `json:"contactPhone" binding:"omitempty,max=32"`
	Email            string `json:"email" binding:"omitempty,email,max=254"`
	Note             string `json:"note" binding:"omitempty,max=500"`
}

// ToSelection converts the request to its domain form
func (r SetPickupRequest) ToSelection() checkout.PickupSelection {
	return checkout.PickupSelection{
		PickupLocationID: r.PickupLocationID,
		ContactName:      r.ContactName,
		ContactPhone:     r.ContactPhone,
		Email:            r.Email,
		Note:             r.Note,
	}
}

// ShippingQuoteRequest is the body of POST /shipping/quote
type ShippingQuoteRequest struct {
	DeliveryMethod string            `json:"deliveryMethod" binding:"omitempty,max=32"`
	State          string            `json:"state" binding:"max=100"`
	Items          []CartItemRequest `json:"items" binding:"omitempty,dive"`
}

// ShippingItems returns the cart lines in calculator form
func (r ShippingQuoteRequest) ShippingItems() []shipping.Item {
	return toItems(r.Items)
}

// PresignEvidenceRequest is the body of POST /payments/:id/evidence/presign
type PresignEvidenceRequest struct {
	FileName string `json:"fileName" binding:"max=255"`
	MimeType string `json:"mimeType" binding:"max=100"`
}

// FinalizeEvidenceRequest is the body of POST /payments/:id/evidence/finalize
type FinalizeEvidenceRequest struct {
	Key      string `json:"key" binding:"max=1024"`
	URL      string `json:"url" binding:"omitempty,url,max=2048"`
	FileName string `json:"fileName" binding:"omitempty,max=255"`
	MimeType string `json:"mimeType" binding:"omitempty,max=100"`
	Note     string `json:"note" binding:"omitempty,max=1000"`
}

// ToFinalizeDetails converts the request to its domain form
func (r FinalizeEvidenceRequest) ToFinalizeDetails() checkout.FinalizeDetails {
	return checkout.FinalizeDetails{
		URL:      r.URL,
		FileName: r.FileName,
		MimeType: r.MimeType,
		Note:     r.Note,
	}
}
