package request

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Const vars for rate limiter
const (
	Unset EndpointLimit = iota
	Auth
	UnAuth
)

// AuthType is used to specify the auth type of a request
type AuthType uint8

// Request auth types
const (
	UnauthenticatedRequest AuthType = iota
	AuthenticatedRequest
)

const maxErrorBodyBytes = 64 * 1024

// EndpointLimit defines individual endpoint rate limits
type EndpointLimit uint16

// Generate is a closure that builds a request item for each attempt
type Generate func() (*Item, error)

// Item is a temp item for requests
type Item struct {
	Method         string
	Path           string
	Headers        map[string]string
	Body           io.Reader
	Result         any
	HeaderResponse *http.Header
	Verbose        bool
}

// Requester struct for the request client
type Requester struct {
	_HTTPClient        *http.Client
	name               string
	userAgent          string
	limiter            RateLimitDefinitions
	disableRateLimiter atomic.Bool
	mu                 sync.RWMutex
}

// RequesterOption is a function option that can be applied to configure a Requester when creating it.
type RequesterOption func(*Requester)

// WithLimiter configures the rate limiter for a Requester
func WithLimiter(def RateLimitDefinitions) RequesterOption {
	return func(r *Requester) {
		r.limiter = def
	}
}

// WithUserAgent sets the user agent sent with every request
func WithUserAgent(ua string) RequesterOption {
	return func(r *Requester) {
		r.userAgent = ua
	}
}

// HTTPError is returned when the remote end responds with a non-2xx status.
// Body holds the response bytes verbatim, truncated to 64KiB.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("unsuccessful HTTP status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("unsuccessful HTTP status code: %d raw response: %s", e.StatusCode, e.Body)
}

// NewHTTPClientWithTimeout initialises a new HTTP client and its underlying
// transport IdleConnTimeout with the specified timeout duration
func NewHTTPClientWithTimeout(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		IdleConnTimeout:     timeout,
		TLSHandshakeTimeout: 15 * time.Second,
	}
	return &http.Client{
		Transport: t,
		Timeout:   timeout,
	}
}
