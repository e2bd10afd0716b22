package hyperliquid

import (
	"github.com/shopspring/decimal"

	json "github.com/clawearn/clawearn/encoding/json"
)

const (
	websocketChannelAllMids              = "allMids"
	websocketChannelL2Book               = "l2Book"
	websocketChannelSubscriptionResponse = "subscriptionResponse"
	websocketChannelError                = "error"
	websocketChannelPong                 = "pong"
)

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
}

type wsRequest struct {
	Method       string          `json:"method"`
	Subscription *wsSubscription `json:"subscription,omitempty"`
}

type wsAllMidsData struct {
	Mids map[string]decimal.Decimal `json:"mids"`
}

// MidsUpdate is one allMids push, filtered to the requested coins
type MidsUpdate struct {
	Mids map[string]decimal.Decimal
}
