package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// NewCircuitBreaker opens after at least three calls within a minute of
// which 60% failed, and probes again after timeout. Caller cancellations do
// not count as failures.
func NewCircuitBreaker(nameof string, timeout time.Duration, onChange func(name string, from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        nameof,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: onChange,
	}
	return gobreaker.NewCircuitBreaker(settings)
}
