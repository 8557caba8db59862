package httpx

import (
	"math"

	"github.com/sethvargo/go-retry"
)

// backoff builds the go-retry schedule for the policy: exponential from
// BaseDelay, capped at MaxDelay, jittered, and bounded by MaxRetries.
func (p RetryPolicy) backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	if p.Jitter > 0 {
		percent := uint64(math.Round(math.Min(p.Jitter, 1) * 100))
		if percent > 0 {
			b = retry.WithJitterPercent(percent, b)
		}
	}
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.WithMaxRetries(uint64(maxRetries), b)
}
