package infra

import (
	"math"
	"time"
)

const (
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential reconnect delay for a retry count,
// capped at one minute.
func CalculateBackoff(retryCount int) time.Duration {
	// 2^6 s already exceeds the cap
	if retryCount > 6 {
		return maxDelay
	}
	if retryCount < 0 {
		retryCount = 0
	}
	delay := baseDelay * time.Duration(math.Pow(2, float64(retryCount)))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
