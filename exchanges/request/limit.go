package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Rate limit errors
var (
	ErrRateLimiterAlreadyDisabled = errors.New("rate limiter already disabled")
	ErrRateLimiterAlreadyEnabled  = errors.New("rate limiter already enabled")

	errLimiterSystemIsNil       = errors.New("limiter system is nil")
	errInvalidWeightCount       = errors.New("invalid weight count must equal or be greater than 1")
	errSpecificRateLimiterIsNil = errors.New("specific rate limiter is nil")
)

// RateLimitDefinitions is a map of endpoint limits to rate limiters
type RateLimitDefinitions map[EndpointLimit]*RateLimiterWithWeight

// RateLimiterWithWeight is a rate limiter coupled with a weight count which
// refers to the number or weighting of the request. This is used to define
// the rate limit for a specific endpoint.
type RateLimiterWithWeight struct {
	*rate.Limiter
	Weight int
}

// NewRateLimit creates a new RateLimit based of time interval and how many
// actions allowed and breaks it down to an actions-per-second basis -- Burst
// rate is kept as one as this is not supported for out-bound requests.
func NewRateLimit(interval time.Duration, actions int) *rate.Limiter {
	if actions <= 0 || interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	i := 1 / interval.Seconds()
	rps := i * float64(actions)
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// NewRateLimitWithWeight creates a new RateLimit based of time interval and how
// many actions allowed. This also has a weight count which refers to the number
// or weighting of the request.
func NewRateLimitWithWeight(interval time.Duration, actions, weight int) *RateLimiterWithWeight {
	return &RateLimiterWithWeight{Limiter: NewRateLimit(interval, actions), Weight: weight}
}

// NewWeightedRateLimitByDuration creates a new RateLimit based of time
// interval. This equates to 1 action per interval.
func NewWeightedRateLimitByDuration(interval time.Duration) *RateLimiterWithWeight {
	return NewRateLimitWithWeight(interval, 1, 1)
}

// NewBasicRateLimit returns an object that implements the limiter interface
// for a somewhat basic request layout
func NewBasicRateLimit(interval time.Duration, actions, weight int) RateLimitDefinitions {
	rl := NewRateLimitWithWeight(interval, actions, weight)
	return RateLimitDefinitions{Unset: rl, Auth: rl, UnAuth: rl}
}

// InitiateRateLimit sleeps for designated end point rate limits
func (r *Requester) InitiateRateLimit(ctx context.Context, e EndpointLimit) error {
	if r == nil {
		return ErrRequestSystemIsNil
	}
	if r.disableRateLimiter.Load() {
		return nil
	}
	if r.limiter == nil {
		return fmt.Errorf("cannot rate limit request %w", errLimiterSystemIsNil)
	}
	rl := r.limiter[e]
	if rl == nil {
		return fmt.Errorf("cannot rate limit request %w for endpoint %d", errSpecificRateLimiterIsNil, e)
	}
	if rl.Weight <= 0 {
		return fmt.Errorf("cannot rate limit request %w", errInvalidWeightCount)
	}
	return rl.WaitN(ctx, rl.Weight)
}

// DisableRateLimiter disables the rate limiting system for the exchange
func (r *Requester) DisableRateLimiter() error {
	if r == nil {
		return ErrRequestSystemIsNil
	}
	if !r.disableRateLimiter.CompareAndSwap(false, true) {
		return fmt.Errorf("%s %w", r.name, ErrRateLimiterAlreadyDisabled)
	}
	return nil
}

// EnableRateLimiter enables the rate limiting system for the exchange
func (r *Requester) EnableRateLimiter() error {
	if r == nil {
		return ErrRequestSystemIsNil
	}
	if !r.disableRateLimiter.CompareAndSwap(true, false) {
		return fmt.Errorf("%s %w", r.name, ErrRateLimiterAlreadyEnabled)
	}
	return nil
}

// GetRateLimiterDefinitions returns the rate limiter definitions for the requester
func (r *Requester) GetRateLimiterDefinitions() RateLimitDefinitions {
	if r == nil {
		return nil
	}
	return r.limiter
}
