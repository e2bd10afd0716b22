package hyperliquid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	json "github.com/clawearn/clawearn/encoding/json"
)

func TestExchangeResponseUnmarshal(t *testing.T) {
	t.Parallel()

	var msg ExchangeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"err","response":"Order has invalid price"}`), &msg))
	assert.Equal(t, StatusErr, msg.Status)
	assert.Equal(t, "Order has invalid price", msg.Message)
	assert.Nil(t, msg.Body)
	assert.Empty(t, msg.Statuses())

	var body ExchangeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ok","response":{"type":"order","data":{"statuses":[{"resting":{"oid":1,"cloid":"0x00112233445566778899aabbccddeeff"}},"waitingForFill",{"error":"bad"}]}}}`), &body))
	assert.Equal(t, StatusOK, body.Status)
	require.Len(t, body.Statuses(), 3)
	st := body.Statuses()
	assert.Equal(t, ExchangeStatusResting, st[0].Kind)
	assert.Equal(t, "0x00112233445566778899aabbccddeeff", st[0].Order.ClientOrderID)
	assert.Equal(t, ExchangeStatusWaiting, st[1].Kind)
	assert.Equal(t, ExchangeStatusError, st[2].Kind)
	assert.Equal(t, "bad", st[2].Error)

	var bare ExchangeResponse
	require.NoError(t, json.Unmarshal([]byte(`{"status":"ok"}`), &bare))
	assert.Nil(t, bare.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(bare.Raw))

	var missing ExchangeResponse
	assert.Error(t, json.Unmarshal([]byte(`{"response":"x"}`), &missing), "a reply without status is unusable")
}

func TestStatusEntryRoundTrip(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		`"success"`,
		`{"error":"Insufficient margin to place order."}`,
		`{"filled":{"oid":9,"totalSz":"0.1","avgPx":"3000.5"}}`,
	} {
		var e StatusEntry
		require.NoError(t, json.Unmarshal([]byte(raw), &e), raw)
		out, err := json.Marshal(e)
		require.NoError(t, err)
		var a, b any
		require.NoError(t, json.Unmarshal([]byte(raw), &a))
		require.NoError(t, json.Unmarshal(out, &b))
		assert.Equal(t, a, b, raw)
	}
}

func TestStatusEntryOrderID(t *testing.T) {
	t.Parallel()
	var e StatusEntry
	require.NoError(t, json.Unmarshal([]byte(`"Success"`), &e))
	assert.Equal(t, ExchangeStatusSuccess, e.Kind, "success should match case insensitively")
	_, ok := e.OrderID()
	assert.False(t, ok)

	require.NoError(t, json.Unmarshal([]byte(`{"resting":{"oid":42}}`), &e))
	id, ok := e.OrderID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}
