package hyperliquid

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawearn/clawearn/wallet"
)

func validOrder() *OrderRequest {
	return &OrderRequest{Coin: "ETH", Side: SideBuy, Price: "3000", Size: "0.1"}
}

func TestValidateOrder(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateOrder(validOrder()))

	for name, mutate := range map[string]func(*OrderRequest){
		"empty coin":      func(o *OrderRequest) { o.Coin = "" },
		"bad side":        func(o *OrderRequest) { o.Side = "long" },
		"bad price":       func(o *OrderRequest) { o.Price = "three" },
		"negative size":   func(o *OrderRequest) { o.Size = "-0.1" },
		"small notional":  func(o *OrderRequest) { o.Size = "0.003" },
		"leverage high":   func(o *OrderRequest) { o.Leverage = MaxLeverage + 1 },
		"leverage low":    func(o *OrderRequest) { o.Leverage = -1 },
		"time in force":   func(o *OrderRequest) { o.TimeInForce = "Fok" },
		"client order id": func(o *OrderRequest) { o.ClientOrderID = "abc" },
	} {
		o := validOrder()
		mutate(o)
		assert.ErrorIs(t, ValidateOrder(o), ErrInvalidOrder, name)
	}
	assert.ErrorIs(t, ValidateOrder(nil), ErrInvalidOrder)

	edge := validOrder()
	edge.Size = "0.00333334"
	edge.Price = "3000"
	require.NoError(t, ValidateOrder(edge), "notional just over the minimum should pass")
}

func TestOrderWireFor(t *testing.T) {
	t.Parallel()
	o := validOrder()
	o.Price = "3000.00"
	o.Size = "0.10"
	o.Side = SideSell
	o.ReduceOnly = true
	w, err := OrderWireFor(o, 1)
	require.NoError(t, err)
	assert.Equal(t, "3000", w.LimitPx, "trailing zeros should be normalised")
	assert.Equal(t, "0.1", w.Size)
	assert.False(t, w.IsBuy)
	assert.True(t, w.ReduceOnly)
	require.NotNil(t, w.OrderType.Limit)
	assert.Equal(t, TimeInForceGTC, w.OrderType.Limit.TimeInForce, "time in force should default to Gtc")

	o.Side = SideBuy
	o.ReduceOnly = false
	o.Price, o.Size = "3000", "0.1"
	w, err = OrderWireFor(o, 1)
	require.NoError(t, err)
	enc, err := EncodeAction(w, testNonce, testAddressLower)
	require.NoError(t, err)
	assert.Equal(t, goldenHash, HashAction(enc).Hex(), "a normalised request should sign like the reference order")
}

func TestToBaseUnits(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]string{
		"1":         "1000000",
		"1.5":       "1500000",
		"0.000001":  "1",
		" 25.10 ":   "25100000",
		"100000000": "100000000000000",
	} {
		got, err := ToBaseUnits(in, usdcDecimals)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "-1", "abc", "0.0000001"} {
		_, err := ToBaseUnits(in, usdcDecimals)
		assert.ErrorIs(t, err, ErrInvalidAction, in)
	}
}

func TestNewClientOrderID(t *testing.T) {
	t.Parallel()
	a, err := NewClientOrderID()
	require.NoError(t, err)
	b, err := NewClientOrderID()
	require.NoError(t, err)
	assert.Regexp(t, cloidPattern, a)
	assert.NotEqual(t, a, b)
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, metaHandler(func(path string, body map[string]any) (int, string) {
		if path != exchangePath {
			return http.StatusNotFound, `{}`
		}
		return http.StatusOK, `{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":321}}]}}}`
	}))
	e := newTestExchange(t, v.URL, wallet.NewStaticSource(testPrivateKey), WithNonceSource(newFixedNonce(testNonce)))

	r, err := e.PlaceOrder(t.Context(), validOrder())
	require.NoError(t, err)
	id, ok := r.OrderID()
	require.True(t, ok)
	assert.Equal(t, int64(321), id)

	var exchangeReq recorded
	for range 3 {
		req := v.last(t)
		if req.path == exchangePath {
			exchangeReq = req
		}
	}
	action := exchangeReq.body["action"].(map[string]any)
	assert.Equal(t, "order", action["type"])
	orders := action["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, float64(1), orders[0].(map[string]any)["a"], "ETH should resolve to asset 1")
}

func TestPlaceOrderLocalFailures(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, metaHandler(reply(http.StatusOK, `{"status":"ok"}`)))
	e := newTestExchange(t, v.URL, wallet.NewStaticSource(testPrivateKey))

	small := validOrder()
	small.Size = "0.001"
	_, err := e.PlaceOrder(t.Context(), small)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = e.PlaceOrder(t.Context(), nil)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	_, err = e.PlaceOrders(t.Context(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	assert.Zero(t, v.calls.Load(), "invalid orders should not touch the network")

	unknown := validOrder()
	unknown.Coin = "DOGE"
	_, err = e.PlaceOrder(t.Context(), unknown)
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestCancelAndLeverage(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, metaHandler(reply(http.StatusOK, `{"status":"ok","response":{"type":"default"}}`)))
	e := newTestExchange(t, v.URL, wallet.NewStaticSource(testPrivateKey))
	ctx := t.Context()

	_, err := e.CancelOrder(ctx, "BTC", 0)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	r, err := e.CancelOrder(ctx, "BTC", 99)
	require.NoError(t, err)
	assert.Equal(t, "cancel", r.Action)

	_, err = e.CancelByClientID(ctx, "BTC", "nope")
	assert.ErrorIs(t, err, ErrInvalidOrder)
	cloid, err := NewClientOrderID()
	require.NoError(t, err)
	r, err = e.CancelByClientID(ctx, "BTC", cloid)
	require.NoError(t, err)
	assert.Equal(t, "cancelByCloid", r.Action)

	_, err = e.UpdateLeverage(ctx, "ETH", 0, true)
	assert.ErrorIs(t, err, ErrInvalidOrder)
	r, err = e.UpdateLeverage(ctx, "ETH", 5, false)
	require.NoError(t, err)
	assert.Equal(t, "updateLeverage", r.Action)

	r, err = e.ModifyOrder(ctx, OrderRef{OrderID: 99}, validOrder())
	require.NoError(t, err)
	assert.Equal(t, "batchModify", r.Action)
}

func TestWithdraw(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, reply(http.StatusOK, `{"status":"ok","response":{"type":"default"}}`))
	e := newTestExchange(t, v.URL, wallet.NewStaticSource(testPrivateKey))

	_, err := e.Withdraw(t.Context(), "not-an-address", "10")
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = e.Withdraw(t.Context(), testAddress, "1.0000001")
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Zero(t, v.calls.Load())

	r, err := e.Withdraw(t.Context(), testAddress, "12.5")
	require.NoError(t, err)
	assert.Equal(t, "withdraw3", r.Action)
	action := v.last(t).body["action"].(map[string]any)
	assert.Equal(t, "12500000", action["amount"])
	assert.Equal(t, testAddressLower, action["destination"])
}

func TestLiquidationPrice(t *testing.T) {
	t.Parallel()
	entry := decimal.NewFromInt(3000)
	assert.Equal(t, "2700", LiquidationPrice(entry, 10, true).String())
	assert.Equal(t, "3300", LiquidationPrice(entry, 10, false).String())
	assert.True(t, LiquidationPrice(entry, 1, true).IsZero())
}

func TestUnrealizedPnL(t *testing.T) {
	t.Parallel()
	entry := decimal.NewFromInt(3000)
	mark := decimal.NewFromInt(3100)
	size := decimal.RequireFromString("0.5")
	assert.Equal(t, "50", UnrealizedPnL(entry, mark, size, true).String())
	assert.Equal(t, "-50", UnrealizedPnL(entry, mark, size, false).String())
}
