// Package checkout models the cart-to-order checkout protocol: the checkout
// status machine, the effective-id flow and the values exchanged with the
// commerce backend.
package checkout

import "strings"

// Status represents the status of a checkout
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusRefreshed Status = "REFRESHED"
	StatusLocked    Status = "LOCKED"
	StatusCompleted Status = "COMPLETED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusRefreshed, StatusLocked, StatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Refresh is repeatable; Locked is only reachable from Refreshed and
// Completed only from Locked.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusCreated:
		return target == StatusRefreshed
	case StatusRefreshed:
		return target == StatusRefreshed || target == StatusLocked
	case StatusLocked:
		return target == StatusCompleted
	case StatusCompleted:
		return false // Terminal state
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

// ParseStatus maps a backend status string onto a Status. Unknown or empty
// values map to StatusCreated.
func ParseStatus(raw string) Status {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s
	}
	return StatusCreated
}
