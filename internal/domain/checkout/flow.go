package checkout

import (
	"fmt"
	"strings"

	"github.com/storefront/backend/internal/domain/shared"
)

// RefreshResult is the backend's answer to a refresh. CheckoutID is the
// effective id for every following step.
type RefreshResult struct {
	CheckoutID         string `json:"checkoutId"`
	Refreshed          bool   `json:"refreshed"`
	PreviousCheckoutID string `json:"previousCheckoutId,omitempty"`
}

// Flow tracks one checkout through the status machine together with its
// effective id. It is request-scoped and never shared between goroutines.
type Flow struct {
	effectiveID string
	previousID  string
	status      Status
}

// NewFlow starts a flow for an existing checkout in StatusCreated
func NewFlow(checkoutID string) (*Flow, error) {
	checkoutID = strings.TrimSpace(checkoutID)
	if checkoutID == "" {
		return nil, shared.NewMissingFieldError("checkoutId")
	}
	return &Flow{effectiveID: checkoutID, status: StatusCreated}, nil
}

// EffectiveID returns the id subsequent steps must target
func (f *Flow) EffectiveID() string {
	return f.effectiveID
}

// PreviousID returns the id superseded by the last refresh, if any
func (f *Flow) PreviousID() string {
	return f.previousID
}

// Status returns the current flow status
func (f *Flow) Status() Status {
	return f.status
}

func (f *Flow) transition(target Status) error {
	if !f.status.CanTransitionTo(target) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot move checkout from %s to %s", f.status, target))
	}
	f.status = target
	return nil
}

// ApplyRefresh records a refresh result. A non-empty returned id that
// differs from the current one becomes the effective id.
func (f *Flow) ApplyRefresh(result RefreshResult) error {
	if err := f.transition(StatusRefreshed); err != nil {
		return err
	}
	next := strings.TrimSpace(result.CheckoutID)
	if next != "" && next != f.effectiveID {
		f.previousID = f.effectiveID
		f.effectiveID = next
	}
	if result.PreviousCheckoutID != "" {
		f.previousID = result.PreviousCheckoutID
	}
	return nil
}

// MarkLocked records a successful lock
func (f *Flow) MarkLocked() error {
	return f.transition(StatusLocked)
}

// MarkCompleted records that the backend returned an order
func (f *Flow) MarkCompleted() error {
	return f.transition(StatusCompleted)
}
