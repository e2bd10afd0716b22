package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/exchanges/polymarket"
	"github.com/clawearn/clawearn/wallet"
)

const (
	testTokenID = "71321045679252212594626385532706912750332728571942532289631379312455583992563"
	apiKeyReply = `{"apiKey":"key-1","secret":"AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=","passphrase":"pass-1"}`
)

func TestPolymarketSearch(t *testing.T) {
	v := newFakeVenue(t, map[string]string{
		"GET /public-search": `{"events":[{"id":"903","title":"Presidential Election Winner 2028","markets":[{"id":"1","question":"Will X win?","conditionId":"0xc0nd"}]}]}`,
		"GET /events":        `[]`,
	})
	env := newTestEnv(t, v.URL)

	out, _, err := env.run(t, "poly", "market", "search", "--query", "election")
	require.NoError(t, err)
	assert.Contains(t, out, "Presidential Election Winner 2028")
	assert.Contains(t, out, "0xc0nd")

	out, _, err = env.run(t, "polymarket", "market", "list", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, "No active events\n", out)
}

func TestPolymarketPriceAndBook(t *testing.T) {
	v := newFakeVenue(t, map[string]string{
		"GET /price":    `{"price":"0.54"}`,
		"GET /midpoint": `{"mid":"0.55"}`,
		"GET /book":     `{"market":"0xc0nd","asset_id":"1","bids":[{"price":"0.49","size":"10"},{"price":"0.54","size":"100"}],"asks":[{"price":"0.61","size":"5"},{"price":"0.56","size":"80"}],"tick_size":"0.01","min_order_size":"5"}`,
	})
	env := newTestEnv(t, v.URL)

	out, _, err := env.run(t, "poly", "price", "get", "--token-id", "1", "--side", "sell")
	require.NoError(t, err)
	assert.Contains(t, out, "SELL price: 0.54")
	assert.Contains(t, out, "Midpoint:  0.55")

	_, _, err = env.run(t, "poly", "price", "get", "--token-id", "1", "--side", "hold")
	assert.Error(t, err)

	out, _, err = env.run(t, "poly", "price", "book", "--token-id", "1", "--depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "0.56")
	assert.Contains(t, out, "0.54")
	assert.NotContains(t, out, "0.61", "depth keeps the best levels only")
	assert.NotContains(t, out, "0.49")
}

func TestPolymarketOrderJournaled(t *testing.T) {
	v := newFakeVenue(t, map[string]string{
		"GET /tick-size":     `{"minimum_tick_size":0.01}`,
		"GET /neg-risk":      `{"neg_risk":false}`,
		"POST /auth/api-key": apiKeyReply,
		"POST /order":        `{"success":true,"errorMsg":"","orderID":"0xfeed","status":"live"}`,
	})
	env := newTestEnv(t, v.URL)

	out, _, err := env.run(t, "--private-key", testPrivateKey, "poly", "order", "buy", "--token-id", testTokenID, "--price", "0.5", "--size", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "live")
	assert.Contains(t, out, "0xfeed")

	var sent struct {
		Order struct {
			MakerAmount string `json:"makerAmount"`
			TakerAmount string `json:"takerAmount"`
			Side        string `json:"side"`
			Signer      string `json:"signer"`
		} `json:"order"`
		Owner     string `json:"owner"`
		OrderType string `json:"orderType"`
	}
	require.NoError(t, json.Unmarshal(v.lastBody("POST /order"), &sent))
	assert.Equal(t, "5000000", sent.Order.MakerAmount)
	assert.Equal(t, "10000000", sent.Order.TakerAmount)
	assert.Equal(t, "BUY", sent.Order.Side)
	assert.Equal(t, testAddress, sent.Order.Signer)
	assert.Equal(t, "key-1", sent.Owner)
	assert.Equal(t, string(polymarket.GoodTilCancelled), sent.OrderType)

	out, _, err = env.run(t, "poly", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "0xfeed")
	assert.Contains(t, out, "accepted")
}

func TestPolymarketOrderRejected(t *testing.T) {
	v := newFakeVenue(t, map[string]string{
		"GET /tick-size":     `{"minimum_tick_size":0.01}`,
		"GET /neg-risk":      `{"neg_risk":true}`,
		"POST /auth/api-key": apiKeyReply,
		"POST /order":        `{"success":false,"errorMsg":"not enough balance / allowance"}`,
	})
	env := newTestEnv(t, v.URL)

	_, _, err := env.run(t, "--private-key", testPrivateKey, "poly", "order", "sell", "--token-id", testTokenID, "--price", "0.5", "--size", "10", "--type", "fok")
	var rej *polymarket.RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "not enough balance / allowance", rej.Message)
}

func TestPolymarketOrderNeedsKey(t *testing.T) {
	v := newFakeVenue(t, nil)
	env := newTestEnv(t, v.URL)

	_, _, err := env.run(t, "poly", "order", "buy", "--token-id", testTokenID, "--price", "0.5", "--size", "10")
	assert.ErrorIs(t, err, wallet.ErrNoSigningKey)
	_, _, err = env.run(t, "poly", "order", "list-open")
	assert.ErrorIs(t, err, wallet.ErrNoSigningKey)
	assert.Zero(t, v.count("POST /order"))
}
