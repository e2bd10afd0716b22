package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// venue is a stand in for an exchange API with a handful of canned routes
func venue(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Venue-Echo", string(body))
		_, _ = io.WriteString(w, `{"universe":[{"name":"BTC"}]}`)
	})
	mux.HandleFunc("/exchange", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"status":"err","response":"Order has invalid price."}`)
	})
	mux.HandleFunc("/blank", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"agent":"`+r.UserAgent()+`","method":"`+r.Method+`"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func item(i *Item) Generate {
	return func() (*Item, error) { return i, nil }
}

func unlimited() RateLimitDefinitions {
	return NewBasicRateLimit(0, 0, 1)
}

func TestNewRateLimitWithWeight(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		interval time.Duration
		actions  int
		want     rate.Limit
	}{
		{time.Second, 20, 20},
		{10 * time.Second, 5, 0.5},
		{time.Second, 0, rate.Inf},
		{0, 100, rate.Inf},
	} {
		rl := NewRateLimitWithWeight(tc.interval, tc.actions, 2)
		assert.Equalf(t, tc.want, rl.Limit(), "%s/%d", tc.interval, tc.actions)
		assert.Equal(t, 2, rl.Weight)
		assert.Equal(t, 1, rl.Burst(), "outbound limiters must not burst")
	}
	assert.Equal(t, rate.Limit(2), NewWeightedRateLimitByDuration(500*time.Millisecond).Limit())
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New("venue", nil)
	require.ErrorIs(t, err, errHTTPClientIsNil)

	defs := unlimited()
	r, err := New("venue", new(http.Client), WithUserAgent("clawearn/test"), WithLimiter(defs))
	require.NoError(t, err)
	ua, err := r.GetHTTPClientUserAgent()
	require.NoError(t, err)
	assert.Equal(t, "clawearn/test", ua)
	assert.Equal(t, defs, r.GetRateLimiterDefinitions())
	assert.Nil(t, (*Requester)(nil).GetRateLimiterDefinitions())
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()
	r, err := New("venue", new(http.Client), WithUserAgent("clawearn/test"))
	require.NoError(t, err)
	ctx := t.Context()

	var nilItem *Item
	_, err = nilItem.validateRequest(ctx, r)
	assert.ErrorIs(t, err, errRequestItemNil)
	_, err = (&Item{Path: "http://venue"}).validateRequest(ctx, nil)
	assert.ErrorIs(t, err, ErrRequestSystemIsNil)
	_, err = new(Item).validateRequest(ctx, r)
	assert.ErrorIs(t, err, errInvalidPath)
	_, err = (&Item{Path: "http://venue", Method: "BAD METHOD"}).validateRequest(ctx, r)
	assert.Error(t, err, "methods with spaces must be refused by net/http")

	var unset http.Header
	_, err = (&Item{Path: "http://venue", HeaderResponse: &unset}).validateRequest(ctx, r)
	assert.ErrorIs(t, err, errHeaderResponseMapIsNil)

	i := &Item{Path: "http://venue/info", Headers: map[string]string{"Content-Type": "application/json"}}
	req, err := i.validateRequest(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method, "empty method must default to GET")
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "clawearn/test", req.UserAgent())

	i.Headers["User-Agent"] = "custom"
	req, err = i.validateRequest(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, "custom", req.UserAgent(), "an explicit user agent header must win")
}

func TestSendPayload(t *testing.T) {
	t.Parallel()
	srv := venue(t)
	r, err := New("venue", new(http.Client), WithLimiter(unlimited()))
	require.NoError(t, err)
	ctx := t.Context()

	assert.ErrorIs(t, (*Requester)(nil).SendPayload(ctx, UnAuth, nil, UnauthenticatedRequest), ErrRequestSystemIsNil)
	assert.ErrorIs(t, r.SendPayload(ctx, UnAuth, nil, UnauthenticatedRequest), errRequestFunctionIsNil)
	assert.ErrorIs(t, r.SendPayload(ctx, UnAuth, item(nil), UnauthenticatedRequest), errRequestItemNil)

	buildErr := errors.New("could not sign")
	err = r.SendPayload(ctx, UnAuth, func() (*Item, error) { return nil, buildErr }, UnauthenticatedRequest)
	assert.ErrorIs(t, err, buildErr)

	var meta struct {
		Universe []struct {
			Name string `json:"name"`
		} `json:"universe"`
	}
	headers := http.Header{}
	err = r.SendPayload(ctx, UnAuth, item(&Item{
		Method:         http.MethodPost,
		Path:           srv.URL + "/info",
		Body:           strings.NewReader(`{"type":"meta"}`),
		Result:         &meta,
		HeaderResponse: &headers,
		Verbose:        true,
	}), UnauthenticatedRequest)
	require.NoError(t, err)
	require.Len(t, meta.Universe, 1)
	assert.Equal(t, "BTC", meta.Universe[0].Name)
	assert.Equal(t, `{"type":"meta"}`, headers.Get("X-Venue-Echo"), "body must reach the venue")

	err = r.SendPayload(ctx, UnAuth, item(&Item{Path: srv.URL + "/blank", Result: &meta}), UnauthenticatedRequest)
	assert.NoError(t, err, "an empty 2xx body must not fail decoding")
}

func TestSendPayloadHTTPError(t *testing.T) {
	t.Parallel()
	srv := venue(t)
	r, err := New("venue", new(http.Client), WithLimiter(unlimited()))
	require.NoError(t, err)

	err = r.SendPayload(t.Context(), Auth, item(&Item{Method: http.MethodPost, Path: srv.URL + "/exchange", Result: new(any)}), AuthenticatedRequest)
	require.ErrorIs(t, err, ErrAuthRequestFailed)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
	assert.JSONEq(t, `{"status":"err","response":"Order has invalid price."}`, string(httpErr.Body))
	assert.Contains(t, httpErr.Error(), "422")

	assert.Equal(t, "unsuccessful HTTP status code: 503", (&HTTPError{StatusCode: 503}).Error())

	err = r.SendPayload(t.Context(), UnAuth, item(&Item{Path: srv.URL + "/missing"}), UnauthenticatedRequest)
	require.ErrorAs(t, err, &httpErr)
	assert.NotErrorIs(t, err, ErrAuthRequestFailed, "public requests must not be tagged as authenticated")
}

func TestSendPayloadSingleAttempt(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	r, err := New("venue", NewHTTPClientWithTimeout(20*time.Millisecond), WithLimiter(unlimited()))
	require.NoError(t, err)
	err = r.SendPayload(t.Context(), Auth, item(&Item{Method: http.MethodPost, Path: srv.URL}), AuthenticatedRequest)
	require.Error(t, err)
	var httpErr *HTTPError
	assert.False(t, errors.As(err, &httpErr), "transport failures must not look like venue responses")
	assert.Equal(t, int32(1), calls.Load(), "signed submissions must never be resent")
}

func TestSendPayloadContext(t *testing.T) {
	t.Parallel()
	srv := venue(t)
	r, err := New("venue", new(http.Client), WithLimiter(unlimited()))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	err = r.SendPayload(ctx, UnAuth, item(&Item{Path: srv.URL + "/slow"}), UnauthenticatedRequest)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInitiateRateLimit(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	assert.ErrorIs(t, (*Requester)(nil).InitiateRateLimit(ctx, Auth), ErrRequestSystemIsNil)

	r, err := New("venue", new(http.Client))
	require.NoError(t, err)
	assert.ErrorIs(t, r.InitiateRateLimit(ctx, Auth), errLimiterSystemIsNil)

	r, err = New("venue", new(http.Client), WithLimiter(RateLimitDefinitions{
		Auth:   NewRateLimitWithWeight(time.Second, 10, 0),
		UnAuth: NewRateLimitWithWeight(time.Second, 10, 1),
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, r.InitiateRateLimit(ctx, Unset), errSpecificRateLimiterIsNil)
	assert.ErrorIs(t, r.InitiateRateLimit(ctx, Auth), errInvalidWeightCount)
	assert.NoError(t, r.InitiateRateLimit(ctx, UnAuth))
}

func TestRateLimitSpacing(t *testing.T) {
	t.Parallel()
	srv := venue(t)
	r, err := New("venue", new(http.Client), WithLimiter(NewBasicRateLimit(200*time.Millisecond, 1, 1)))
	require.NoError(t, err)
	send := func(ctx context.Context) error {
		return r.SendPayload(ctx, UnAuth, item(&Item{Path: srv.URL + "/blank"}), UnauthenticatedRequest)
	}

	start := time.Now()
	require.NoError(t, send(t.Context()))
	require.NoError(t, send(t.Context()))
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond, "second request must wait for the limiter")

	ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond)
	defer cancel()
	assert.Error(t, send(ctx), "a wait longer than the deadline must fail fast")

	require.NoError(t, r.DisableRateLimiter())
	assert.ErrorIs(t, r.DisableRateLimiter(), ErrRateLimiterAlreadyDisabled)
	start = time.Now()
	for range 3 {
		require.NoError(t, send(t.Context()))
	}
	assert.Less(t, time.Since(start), 150*time.Millisecond, "disabled limiter must not delay requests")

	require.NoError(t, r.EnableRateLimiter())
	assert.ErrorIs(t, r.EnableRateLimiter(), ErrRateLimiterAlreadyEnabled)
}

func TestSetHTTPClient(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, (*Requester)(nil).SetHTTPClient(new(http.Client)), ErrRequestSystemIsNil)

	client := new(http.Client)
	r, err := New("venue", client)
	require.NoError(t, err)
	assert.ErrorIs(t, r.SetHTTPClient(nil), errHTTPClientIsNil)
	assert.ErrorIs(t, r.SetHTTPClient(client), errCannotReuseHTTPClient)
	assert.NoError(t, r.SetHTTPClient(new(http.Client)))
}

func TestSetHTTPClientUserAgent(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, (*Requester)(nil).SetHTTPClientUserAgent("x"), ErrRequestSystemIsNil)
	_, err := (*Requester)(nil).GetHTTPClientUserAgent()
	assert.ErrorIs(t, err, ErrRequestSystemIsNil)

	srv := venue(t)
	r, err := New("venue", new(http.Client), WithLimiter(unlimited()))
	require.NoError(t, err)
	require.NoError(t, r.SetHTTPClientUserAgent("clawearn/1.0"))
	var who struct {
		Agent  string `json:"agent"`
		Method string `json:"method"`
	}
	require.NoError(t, r.SendPayload(t.Context(), UnAuth, item(&Item{Path: srv.URL + "/whoami", Result: &who}), UnauthenticatedRequest))
	assert.Equal(t, "clawearn/1.0", who.Agent)
	assert.Equal(t, http.MethodGet, who.Method)
}

func TestIsVerbose(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	assert.False(t, IsVerbose(ctx, false))
	assert.True(t, IsVerbose(ctx, true))
	assert.True(t, IsVerbose(WithVerbose(ctx), false))
	assert.False(t, IsVerbose(context.WithValue(ctx, contextVerboseFlag, "yes"), false))
}
