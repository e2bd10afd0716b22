package hyperliquid

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetIndex(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, metaHandler(reply(http.StatusNotFound, `{}`)))
	e := newTestExchange(t, v.URL, nil)

	for symbol, want := range map[string]int64{
		"BTC":       0,
		"eth":       1,
		"PURR/USDC": spotAssetOffset,
		"PURR":      spotAssetOffset,
		"@1":        spotAssetOffset + 1,
	} {
		got, err := e.AssetIndex(t.Context(), symbol)
		require.NoError(t, err, symbol)
		assert.Equal(t, want, got, symbol)
	}

	_, err := e.AssetIndex(t.Context(), "DOGE")
	assert.ErrorIs(t, err, ErrUnknownAsset)
	_, err = e.AssetIndex(t.Context(), "  ")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestAssetIndexCached(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, metaHandler(reply(http.StatusNotFound, `{}`)))
	e := newTestExchange(t, v.URL, nil)
	_, err := e.AssetIndex(t.Context(), "BTC")
	require.NoError(t, err)
	calls := v.calls.Load()
	_, err = e.AssetIndex(t.Context(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, calls, v.calls.Load(), "known symbols should be served from the cache")
}

func TestAssetIndexFailsClosed(t *testing.T) {
	t.Parallel()
	down := newTestVenue(t, reply(http.StatusInternalServerError, `upstream unavailable`))
	e := newTestExchange(t, down.URL, nil)
	_, err := e.AssetIndex(t.Context(), "BTC")
	require.Error(t, err, "a metadata failure must not fall back to a default index")
	assert.False(t, errors.Is(err, ErrUnknownAsset))
	assert.Contains(t, err.Error(), "resolve BTC")

	empty := newTestVenue(t, reply(http.StatusOK, `{"universe":[]}`))
	e = newTestExchange(t, empty.URL, nil)
	_, err = e.AssetIndex(t.Context(), "BTC")
	assert.ErrorIs(t, err, errMetaNoMarkets)
}

func TestGetAllMidsAndMid(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, func(_ string, body map[string]any) (int, string) {
		assert.Equal(t, "allMids", body["type"])
		return http.StatusOK, `{"BTC":"64000.5","ETH":"3000.25"}`
	})
	e := newTestExchange(t, v.URL, nil)
	mids, err := e.GetAllMids(t.Context())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("64000.5").Equal(mids["BTC"]))

	mid, err := e.GetMid(t.Context(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, "3000.25", mid.String())

	_, err = e.GetMid(t.Context(), "DOGE")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestGetL2Book(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, func(_ string, body map[string]any) (int, string) {
		assert.Equal(t, "l2Book", body["type"])
		assert.Equal(t, "BTC", body["coin"])
		return http.StatusOK, `{"coin":"BTC","time":1700000000000,"levels":[[{"px":"63999","sz":"1.5","n":3}],[{"px":"64001","sz":"0.2","n":1}]]}`
	})
	e := newTestExchange(t, v.URL, nil)
	book, err := e.GetL2Book(t.Context(), "BTC")
	require.NoError(t, err)
	require.Len(t, book.Bids(), 1)
	require.Len(t, book.Asks(), 1)
	assert.Equal(t, "63999", book.Bids()[0].Price.String())
	assert.Equal(t, int64(1), book.Asks()[0].OrderCount)
	assert.Equal(t, testNow.UTC(), book.Time.Time())

	var nilBook *L2Book
	assert.Nil(t, nilBook.Bids())
	assert.Nil(t, nilBook.Asks())
}

func TestGetMetaAndAssetContexts(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, reply(http.StatusOK, `[`+testMetaResponse+`,[{"funding":"0.0000125","openInterest":"100","prevDayPx":"63000","dayNtlVlm":"1000000","oraclePx":"64000","markPx":"64010","midPx":null},{"funding":"0","openInterest":"1","prevDayPx":"1","dayNtlVlm":"1","oraclePx":"3000","markPx":"3001","midPx":"3000.5"}]]`))
	e := newTestExchange(t, v.URL, nil)
	resp, err := e.GetMetaAndAssetContexts(t.Context())
	require.NoError(t, err)
	require.Len(t, resp.Meta.Universe, 2)
	require.Len(t, resp.AssetContexts, 2)
	assert.Equal(t, "64010", resp.AssetContexts[0].MarkPrice.String())
	assert.False(t, resp.AssetContexts[0].MidPrice.Valid)
	assert.True(t, resp.AssetContexts[1].MidPrice.Valid)

	var malformed MetaAndAssetContexts
	assert.ErrorIs(t, malformed.UnmarshalJSON([]byte(`[{}]`)), errMetaAndAssetContextsMalformed)
}

func TestUserQueries(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, func(_ string, body map[string]any) (int, string) {
		assert.Equal(t, testAddressLower, body["user"])
		switch body["type"] {
		case "clearinghouseState":
			return http.StatusOK, `{"marginSummary":{"accountValue":"1000.5","totalNtlPos":"300","totalRawUsd":"700","totalMarginUsed":"30"},"withdrawable":"900","assetPositions":[{"type":"oneWay","position":{"coin":"ETH","szi":"-0.1","entryPx":"3000","positionValue":"300","unrealizedPnl":"1.5","liquidationPx":null,"leverage":{"type":"cross","value":10}}}]}`
		case "spotClearinghouseState":
			return http.StatusOK, `{"balances":[{"coin":"USDC","token":0,"hold":"0","total":"12.5"}]}`
		case "openOrders":
			return http.StatusOK, `[{"coin":"BTC","side":"B","limitPx":"60000","sz":"0.01","oid":11,"timestamp":1700000000000}]`
		case "userFills":
			return http.StatusOK, `[{"coin":"BTC","side":"A","px":"64000","sz":"0.01","oid":12,"time":1700000000000,"fee":"0.1","closedPnl":"0"}]`
		case "orderStatus":
			assert.Equal(t, float64(11), body["oid"])
			return http.StatusOK, `{"status":"order","order":{"status":"open","statusTimestamp":1700000000000,"order":{"coin":"BTC","side":"B","limitPx":"60000","sz":"0.01","oid":11,"timestamp":1700000000000}}}`
		}
		return http.StatusBadRequest, `{}`
	})
	e := newTestExchange(t, v.URL, nil)
	ctx := t.Context()

	state, err := e.GetClearinghouseState(ctx, testAddressLower)
	require.NoError(t, err)
	require.Len(t, state.AssetPositions, 1)
	pos := state.AssetPositions[0].Position
	assert.Equal(t, "ETH", pos.Coin)
	assert.False(t, pos.LiquidationPx.Valid)
	assert.Equal(t, "1000.5", state.MarginSummary.AccountValue.String())

	spot, err := e.GetSpotClearinghouseState(ctx, testAddressLower)
	require.NoError(t, err)
	require.Len(t, spot.Balances, 1)
	assert.Equal(t, "12.5", spot.Balances[0].Total.String())

	orders, err := e.GetOpenOrders(ctx, testAddressLower)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].IsBuy())

	fills, err := e.GetUserFills(ctx, testAddressLower)
	require.NoError(t, err)
	require.Len(t, fills, 1)

	status, err := e.GetOrderStatus(ctx, testAddressLower, OrderRef{OrderID: 11})
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFound, status.Status)
	require.NotNil(t, status.Order)
}

func TestMarket(t *testing.T) {
	t.Parallel()
	v := newTestVenue(t, metaHandler(reply(http.StatusNotFound, `{}`)))
	e := newTestExchange(t, v.URL, nil)
	m, err := e.Market(t.Context(), "btc")
	require.NoError(t, err)
	assert.Equal(t, int32(5), m.SzDecimals)
	_, err = e.Market(t.Context(), "DOGE")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}
