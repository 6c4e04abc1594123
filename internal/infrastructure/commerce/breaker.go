package commerce

import (
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// newBreaker builds the circuit breaker around the commerce backend.
// Only transport failures and 5xx responses count against it; a 4xx is the
// backend working as intended.
func newBreaker(cfg config.BreakerConfig, log *zap.Logger) *gobreaker.CircuitBreaker[*response] {
	if log == nil {
		log = zap.NewNop()
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "commerce-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var de *shared.DomainError
	if errors.As(err, &de) && de.Kind == shared.KindUpstream {
		return de.Status < http.StatusInternalServerError
	}
	return false
}
