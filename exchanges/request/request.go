package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/log"
)

// Public request errors
var (
	ErrRequestSystemIsNil = errors.New("request system is nil")
	ErrAuthRequestFailed  = errors.New("authenticated request failed")
)

var (
	errRequestFunctionIsNil   = errors.New("request function is nil")
	errRequestItemNil         = errors.New("request item is nil")
	errInvalidPath            = errors.New("invalid path")
	errHeaderResponseMapIsNil = errors.New("header response map is nil")
	errCannotReuseHTTPClient  = errors.New("cannot reuse http client")
	errHTTPClientIsNil        = errors.New("http client is nil")
)

type contextKey string

const contextVerboseFlag contextKey = "verbose"

// New returns a new Requester
func New(name string, httpRequester *http.Client, opts ...RequesterOption) (*Requester, error) {
	if httpRequester == nil {
		return nil, errHTTPClientIsNil
	}
	r := &Requester{
		_HTTPClient: httpRequester,
		name:        name,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// SendPayload handles sending HTTP/HTTPS requests. A request is attempted
// once; callers own any retry policy.
func (r *Requester) SendPayload(ctx context.Context, ep EndpointLimit, newRequest Generate, requestType AuthType) error {
	if r == nil {
		return ErrRequestSystemIsNil
	}
	if newRequest == nil {
		return errRequestFunctionIsNil
	}
	item, err := newRequest()
	if err != nil {
		return err
	}
	req, err := item.validateRequest(ctx, r)
	if err != nil {
		return err
	}
	if err := r.InitiateRateLimit(ctx, ep); err != nil {
		return fmt.Errorf("failed to rate limit HTTP request: %w", err)
	}
	err = r.doRequest(req, item)
	if err != nil && requestType == AuthenticatedRequest {
		return fmt.Errorf("%w: %w", ErrAuthRequestFailed, err)
	}
	return err
}

// validateRequest validates the requester item fields and builds the request
func (i *Item) validateRequest(ctx context.Context, r *Requester) (*http.Request, error) {
	if r == nil {
		return nil, ErrRequestSystemIsNil
	}
	if i == nil {
		return nil, errRequestItemNil
	}
	if i.Path == "" {
		return nil, errInvalidPath
	}
	if i.HeaderResponse != nil && *i.HeaderResponse == nil {
		return nil, errHeaderResponseMapIsNil
	}
	if i.Method == "" {
		i.Method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, i.Method, i.Path, i.Body)
	if err != nil {
		return nil, err
	}
	for k, v := range i.Headers {
		req.Header.Add(k, v)
	}
	r.mu.RLock()
	ua := r.userAgent
	r.mu.RUnlock()
	if ua != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Add("User-Agent", ua)
	}
	return req, nil
}

func (r *Requester) doRequest(req *http.Request, item *Item) error {
	verbose := IsVerbose(req.Context(), item.Verbose)
	if verbose {
		log.Debugf(log.RequestSys, "%s request path: %s", r.name, req.URL.Redacted())
		log.Debugf(log.RequestSys, "%s request type: %s", r.name, req.Method)
	}

	r.mu.RLock()
	client := r._HTTPClient
	r.mu.RUnlock()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", r.name, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if item.HeaderResponse != nil {
		for k, v := range resp.Header {
			(*item.HeaderResponse)[k] = v
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode > http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if verbose {
			log.Debugf(log.RequestSys, "%s HTTP status %d body: %s", r.name, resp.StatusCode, body)
		}
		return &HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	contents, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s read response body: %w", r.name, err)
	}
	if verbose {
		log.Debugf(log.RequestSys, "%s HTTP status %d raw response: %s", r.name, resp.StatusCode, contents)
	}
	if item.Result == nil || len(strings.TrimSpace(string(contents))) == 0 {
		return nil
	}
	if err := json.Unmarshal(contents, item.Result); err != nil {
		return fmt.Errorf("%s decode response: %w", r.name, err)
	}
	return nil
}

// SetHTTPClient sets exchanges HTTP client
func (r *Requester) SetHTTPClient(newClient *http.Client) error {
	if r == nil {
		return ErrRequestSystemIsNil
	}
	if newClient == nil {
		return errHTTPClientIsNil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r._HTTPClient == newClient {
		return errCannotReuseHTTPClient
	}
	r._HTTPClient = newClient
	return nil
}

// SetHTTPClientUserAgent sets the exchanges HTTP user agent
func (r *Requester) SetHTTPClientUserAgent(userAgent string) error {
	if r == nil {
		return ErrRequestSystemIsNil
	}
	r.mu.Lock()
	r.userAgent = userAgent
	r.mu.Unlock()
	return nil
}

// GetHTTPClientUserAgent gets the exchanges HTTP user agent
func (r *Requester) GetHTTPClientUserAgent() (string, error) {
	if r == nil {
		return "", ErrRequestSystemIsNil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userAgent, nil
}

// WithVerbose adds verbosity to a request context so that specific requests
// can have distinct verbosity without impacting all requests.
func WithVerbose(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextVerboseFlag, true)
}

// IsVerbose checks main verbosity first then checks context verbose values
// for specific request verbosity.
func IsVerbose(ctx context.Context, verbose bool) bool {
	if verbose {
		return true
	}
	isCtxVerbose, _ := ctx.Value(contextVerboseFlag).(bool)
	return isCtxVerbose
}
