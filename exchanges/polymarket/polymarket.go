// Package polymarket is a client for the Polymarket prediction market: gamma
// discovery, order book reads and signed limit orders on the CLOB.
package polymarket

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/polymarket/go-order-utils/pkg/builder"

	"github.com/clawearn/clawearn/database/repository/submission"
	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/log"
	"github.com/clawearn/clawearn/wallet"
)

const venueName = "polymarket"

// Default endpoints
const (
	DefaultCLOBURL  = "https://clob.polymarket.com"
	DefaultGammaURL = "https://gamma-api.polymarket.com"
	PolygonChainID  = 137
)

const (
	apiKeyPath       = "/auth/api-key"
	deriveAPIKeyPath = "/auth/derive-api-key"
	marketPath       = "/markets/"
	bookPath         = "/book"
	pricePath        = "/price"
	midpointPath     = "/midpoint"
	tickSizePath     = "/tick-size"
	negRiskPath      = "/neg-risk"
	orderPath        = "/order"
	openOrdersPath   = "/data/orders"
	searchPath       = "/public-search"
	eventsPath       = "/events"

	initialCursor = "MA=="
	endCursor     = "LTE="
)

var (
	errEmptyCLOBURL   = errors.New("clob url must not be empty")
	errEmptyGammaURL  = errors.New("gamma url must not be empty")
	errInvalidChainID = errors.New("chain id must be positive")
	errEmptyTokenID   = errors.New("token id must not be empty")
	errEmptyQuery     = errors.New("search query must not be empty")
	errInvalidLimit   = errors.New("limit must be positive")
	errInvalidSide    = errors.New("side must be buy or sell")
	errTooManyPages   = errors.New("open orders pagination did not terminate")
)

// Recorder journals order submissions
type Recorder interface {
	Record(ctx context.Context, e submission.Entry) error
}

// Config holds endpoints and signing parameters
type Config struct {
	CLOBURL        string
	GammaURL       string
	ChainID        int64
	SignatureType  int
	FunderAddress  string
	RequestTimeout time.Duration
}

// DefaultConfig returns mainnet endpoints with EOA signing
func DefaultConfig() Config {
	return Config{
		CLOBURL:        DefaultCLOBURL,
		GammaURL:       DefaultGammaURL,
		ChainID:        PolygonChainID,
		SignatureType:  SignatureEOA,
		RequestTimeout: 15 * time.Second,
	}
}

func (c *Config) validate() error {
	switch {
	case c.CLOBURL == "":
		return errEmptyCLOBURL
	case c.GammaURL == "":
		return errEmptyGammaURL
	case c.ChainID <= 0:
		return errInvalidChainID
	case c.SignatureType < SignatureEOA || c.SignatureType > SignatureGnosisSafe:
		return fmt.Errorf("signature type %d is not 0, 1 or 2", c.SignatureType)
	}
	return nil
}

// Client talks to the CLOB and gamma APIs
type Client struct {
	cfg          Config
	keys         wallet.KeySource
	clob         *resty.Client
	gamma        *resty.Client
	orderBuilder *builder.ExchangeOrderBuilderImpl
	now          func() time.Time
	recorder     Recorder

	mu    sync.Mutex
	creds *APICredentials
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient routes both APIs through hc
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.clob = resty.NewWithClient(hc)
		c.gamma = resty.NewWithClient(hc)
	}
}

// WithClock overrides the auth header timestamp source
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithRecorder journals order and cancel attempts
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithCredentials supplies previously derived API credentials
func WithCredentials(creds *APICredentials) Option {
	return func(c *Client) { c.creds = creds }
}

// New returns a Client. keys may be nil for read only use.
func New(cfg Config, keys wallet.KeySource, opts ...Option) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:   cfg,
		keys:  keys,
		clob:  resty.New(),
		gamma: resty.New(),
		now:   time.Now,

		orderBuilder: builder.NewExchangeOrderBuilderImpl(big.NewInt(cfg.ChainID), nil),
	}
	for _, o := range opts {
		o(c)
	}
	for r, base := range map[*resty.Client]string{c.clob: cfg.CLOBURL, c.gamma: cfg.GammaURL} {
		r.SetBaseURL(strings.TrimSuffix(base, "/")).
			SetTimeout(cfg.RequestTimeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "clawearn")
	}
	return c, nil
}

// APIError is a non-2xx reply from either API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polymarket HTTP %d: %s", e.StatusCode, e.Message)
}

func apiError(resp *resty.Response) error {
	var body errorBody
	msg := strings.TrimSpace(string(resp.Body()))
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// send executes r and decodes a successful body into out
func send(r *resty.Request, method, path string, out any) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if !resp.IsSuccess() {
		log.Debugf(log.PolymarketSys, "%s %s returned %d", method, path, resp.StatusCode())
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) clobGet(ctx context.Context, path string, query map[string]string, out any) error {
	return send(c.clob.R().SetContext(ctx).SetQueryParams(query), http.MethodGet, path, out)
}

func (c *Client) gammaGet(ctx context.Context, path string, query map[string]string, out any) error {
	return send(c.gamma.R().SetContext(ctx).SetQueryParams(query), http.MethodGet, path, out)
}

func (c *Client) signingKey(ctx context.Context) (*wallet.Key, error) {
	if c.keys == nil {
		return nil, wallet.ErrNoSigningKey
	}
	return c.keys.SigningKey(ctx)
}

func (c *Client) record(ctx context.Context, action, signer, outcome, message string) {
	if c.recorder == nil {
		return
	}
	err := c.recorder.Record(context.WithoutCancel(ctx), submission.Entry{
		Venue:      venueName,
		ActionType: action,
		Signer:     signer,
		Outcome:    outcome,
		Message:    message,
		CreatedAt:  c.now(),
	})
	if err != nil {
		log.Errorf(log.DatabaseSys, "%s journal write failed: %v", venueName, err)
	}
}
