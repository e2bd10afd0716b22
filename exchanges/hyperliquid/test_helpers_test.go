package hyperliquid

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/wallet"
)

const (
	testPrivateKey   = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress      = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testAddressLower = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	testNonce        = int64(1700000000000)
)

var testNow = time.UnixMilli(testNonce)

func testKey(t *testing.T) *wallet.Key {
	t.Helper()
	k, err := wallet.ParseKey(testPrivateKey)
	require.NoError(t, err, "ParseKey must not error")
	return k
}

// testOrder is the single limit order used throughout the signing tests
func testOrder() OrderWire {
	return OrderWire{
		Asset:     1,
		IsBuy:     true,
		LimitPx:   "3000",
		Size:      "0.1",
		OrderType: OrderTypeWire{Limit: &LimitOrderWire{TimeInForce: TimeInForceGTC}},
	}
}

type fixedNonce struct{ n atomic.Int64 }

func (f *fixedNonce) Next() int64 { return f.n.Add(1) }

func newFixedNonce(start int64) *fixedNonce {
	f := new(fixedNonce)
	f.n.Store(start - 1)
	return f
}

type recorded struct {
	path string
	body map[string]any
}

// testVenue is an httptest server standing in for both /info and /exchange
type testVenue struct {
	*httptest.Server
	calls    atomic.Int32
	requests chan recorded
}

func newTestVenue(t *testing.T, handler func(path string, body map[string]any) (int, string)) *testVenue {
	t.Helper()
	v := &testVenue{requests: make(chan recorded, 64)}
	v.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v.calls.Add(1)
		// handlers run off the test goroutine so failures use Errorf
		if r.Method != http.MethodPost {
			t.Errorf("method must be POST, got %s", r.Method)
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("request body must read: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var body map[string]any
		if len(data) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				t.Errorf("request body must be JSON: %v", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		select {
		case v.requests <- recorded{path: r.URL.Path, body: body}:
		default:
		}
		status, response := handler(r.URL.Path, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if _, err := io.WriteString(w, response); err != nil {
			t.Errorf("response must write: %v", err)
		}
	}))
	t.Cleanup(v.Close)
	return v
}

func (v *testVenue) last(t *testing.T) recorded {
	t.Helper()
	select {
	case r := <-v.requests:
		return r
	default:
		t.Fatal("no request recorded")
	}
	return recorded{}
}

func newTestExchange(t *testing.T, baseURL string, keys wallet.KeySource, opts ...Option) *Exchange {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIURL = baseURL
	cfg.RequestTimeout = 5 * time.Second
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	e, err := New(cfg, keys, opts...)
	require.NoError(t, err, "New must not error")
	return e
}

const (
	testMetaResponse     = `{"universe":[{"name":"BTC","szDecimals":5,"maxLeverage":50},{"name":"ETH","szDecimals":4,"maxLeverage":50}]}`
	testSpotMetaResponse = `{"universe":[{"tokens":[1,0],"name":"PURR/USDC","index":0,"isCanonical":true},{"tokens":[2,0],"name":"@1","index":1}],"tokens":[{"name":"USDC","szDecimals":8,"weiDecimals":8,"index":0},{"name":"PURR","szDecimals":0,"weiDecimals":5,"index":1}]}`
)

// metaHandler answers meta and spotMeta info queries and defers everything
// else to next
func metaHandler(next func(path string, body map[string]any) (int, string)) func(string, map[string]any) (int, string) {
	return func(path string, body map[string]any) (int, string) {
		if path == infoPath {
			switch body["type"] {
			case "meta":
				return http.StatusOK, testMetaResponse
			case "spotMeta":
				return http.StatusOK, testSpotMetaResponse
			}
		}
		return next(path, body)
	}
}
