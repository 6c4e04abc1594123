package checkout

import (
	"fmt"

	"github.com/storefront/backend/internal/domain/checkout"
)

// Step names a single network call inside the place-order sequence
type Step string

const (
	StepCreate   Step = "create"
	StepRefresh  Step = "refresh"
	StepLock     Step = "lock"
	StepComplete Step = "complete"
)

// StepError reports which step of PlaceOrder failed. CheckoutID is the
// effective id at the time of failure and Status the last state reached,
// so a failure after lock is visible as StatusLocked with no order.
type StepError struct {
	Step       Step
	CheckoutID string
	Status     checkout.Status
	Err        error
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("checkout %s: %s step failed: %v", e.CheckoutID, e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *StepError) Unwrap() error {
	return e.Err
}
