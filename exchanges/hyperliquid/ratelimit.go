package hyperliquid

import (
	"time"

	"github.com/clawearn/clawearn/exchanges/request"
)

const (
	infoRequestsPerSecond     = 10
	exchangeRequestsPerSecond = 10
)

const (
	infoRateLimit request.EndpointLimit = iota
	exchangeRateLimit
)

// GetRateLimits returns the REST rate limits. Non-positive values fall back
// to the defaults.
func GetRateLimits(infoPerSecond, exchangePerSecond int) request.RateLimitDefinitions {
	if infoPerSecond <= 0 {
		infoPerSecond = infoRequestsPerSecond
	}
	if exchangePerSecond <= 0 {
		exchangePerSecond = exchangeRequestsPerSecond
	}
	return request.RateLimitDefinitions{
		infoRateLimit:     request.NewRateLimitWithWeight(time.Second, infoPerSecond, 1),
		exchangeRateLimit: request.NewRateLimitWithWeight(time.Second, exchangePerSecond, 1),
	}
}
