package hyperliquid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/exchanges/nonce"
	"github.com/clawearn/clawearn/exchanges/request"
	"github.com/clawearn/clawearn/wallet"
)

const (
	apiURL       = "https://api.hyperliquid.xyz"
	wsAPIURL     = "wss://api.hyperliquid.xyz/ws"
	infoPath     = "/info"
	exchangePath = "/exchange"
	venueName    = "hyperliquid"
)

var errEmptyAPIURL = errors.New("api url must not be empty")

// Config holds everything the client needs. No package level state is read.
type Config struct {
	APIURL            string
	WebsocketURL      string
	Domain            Domain
	RequestTimeout    time.Duration
	InfoRateLimit     int
	ExchangeRateLimit int
	UserAgent         string
}

// DefaultConfig returns mainnet endpoints and the L1 action domain
func DefaultConfig() Config {
	return Config{
		APIURL:            apiURL,
		WebsocketURL:      wsAPIURL,
		Domain:            DefaultDomain(),
		RequestTimeout:    15 * time.Second,
		InfoRateLimit:     infoRequestsPerSecond,
		ExchangeRateLimit: exchangeRequestsPerSecond,
		UserAgent:         "clawearn",
	}
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return errEmptyAPIURL
	}
	return c.Domain.validate()
}

// NonceSource issues nonces for signed actions
type NonceSource interface {
	Next() int64
}

// Exchange is the perpetual venue client
type Exchange struct {
	cfg       Config
	keys      wallet.KeySource
	requester *request.Requester
	client    *http.Client
	nonces    NonceSource
	recorder  Recorder
	now       func() time.Time

	assetCacheMu sync.RWMutex
	assetCache   map[string]int64
}

// Option configures an Exchange
type Option func(*Exchange)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(e *Exchange) { e.client = c }
}

// WithNonceSource replaces the default clock seeded monotonic source
func WithNonceSource(n NonceSource) Option {
	return func(e *Exchange) { e.nonces = n }
}

// WithRecorder journals every submission attempt
func WithRecorder(r Recorder) Option {
	return func(e *Exchange) { e.recorder = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Exchange) { e.now = now }
}

// New returns an Exchange. keys may be nil for read only use.
func New(cfg Config, keys wallet.KeySource, opts ...Option) (*Exchange, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	e := &Exchange{
		cfg:        cfg,
		keys:       keys,
		now:        time.Now,
		assetCache: make(map[string]int64),
	}
	for _, o := range opts {
		o(e)
	}
	if e.client == nil {
		e.client = request.NewHTTPClientWithTimeout(cfg.RequestTimeout)
	}
	if e.nonces == nil {
		e.nonces = nonce.New(e.now)
	}
	r, err := request.New(venueName, e.client,
		request.WithLimiter(GetRateLimits(cfg.InfoRateLimit, cfg.ExchangeRateLimit)),
		request.WithUserAgent(cfg.UserAgent))
	if err != nil {
		return nil, err
	}
	e.requester = r
	return e, nil
}

// Config returns the active configuration
func (e *Exchange) Config() Config {
	return e.cfg
}

func (e *Exchange) sendInfo(ctx context.Context, payload, result any) error {
	return e.sendPOSTWithLimit(ctx, infoPath, payload, result, infoRateLimit)
}

func (e *Exchange) sendPOSTWithLimit(ctx context.Context, path string, payload, result any, limit request.EndpointLimit) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request payload: %w", err)
	}
	generate := func() (*request.Item, error) {
		return &request.Item{
			Method:  http.MethodPost,
			Path:    e.cfg.APIURL + path,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    bytes.NewReader(data),
			Result:  result,
		}, nil
	}
	return e.requester.SendPayload(ctx, limit, generate, request.UnauthenticatedRequest)
}
