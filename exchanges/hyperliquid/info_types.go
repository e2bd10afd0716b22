package hyperliquid

import (
	"errors"

	"github.com/shopspring/decimal"
)

var errMetaAndAssetContextsMalformed = errors.New("meta and asset contexts payload malformed")

// ClearinghouseState captures perpetual margin and positions for a user
type ClearinghouseState struct {
	Withdrawable   decimal.Decimal `json:"withdrawable"`
	MarginSummary  MarginSummary   `json:"marginSummary"`
	AssetPositions []AssetPosition `json:"assetPositions"`
	Time           Timestamp       `json:"time"`
}

// MarginSummary totals account value and margin in use
type MarginSummary struct {
	AccountValue    decimal.Decimal `json:"accountValue"`
	TotalNotional   decimal.Decimal `json:"totalNtlPos"`
	TotalRawUSD     decimal.Decimal `json:"totalRawUsd"`
	TotalMarginUsed decimal.Decimal `json:"totalMarginUsed"`
}

// AssetPosition wraps one open position
type AssetPosition struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
}

// Position is a signed perpetual position
type Position struct {
	Coin          string              `json:"coin"`
	Size          decimal.Decimal     `json:"szi"`
	EntryPrice    decimal.NullDecimal `json:"entryPx"`
	PositionValue decimal.Decimal     `json:"positionValue"`
	UnrealizedPnL decimal.Decimal     `json:"unrealizedPnl"`
	MarginUsed    decimal.Decimal     `json:"marginUsed"`
	Leverage      PositionLeverage    `json:"leverage"`
	LiquidationPx decimal.NullDecimal `json:"liquidationPx"`
}

// PositionLeverage describes the leverage mode on a position
type PositionLeverage struct {
	Type  string `json:"type"`
	Value int64  `json:"value"`
}

// SpotClearinghouseState lists spot balances for a user
type SpotClearinghouseState struct {
	Balances []SpotBalance `json:"balances"`
}

// SpotBalance is one spot token balance
type SpotBalance struct {
	Coin     string          `json:"coin"`
	Token    int64           `json:"token"`
	Total    decimal.Decimal `json:"total"`
	Hold     decimal.Decimal `json:"hold"`
	EntryNtl decimal.Decimal `json:"entryNtl"`
}

// OpenOrder is a resting order
type OpenOrder struct {
	Coin          string          `json:"coin"`
	LimitPrice    decimal.Decimal `json:"limitPx"`
	OrderID       int64           `json:"oid"`
	Side          string          `json:"side"`
	Size          decimal.Decimal `json:"sz"`
	OrigSize      decimal.Decimal `json:"origSz"`
	Timestamp     Timestamp       `json:"timestamp"`
	ReduceOnly    bool            `json:"reduceOnly"`
	ClientOrderID string          `json:"cloid,omitempty"`
}

// IsBuy reports whether the order is a bid. The venue uses B for bids and A
// for asks.
func (o *OpenOrder) IsBuy() bool {
	return o.Side == "B"
}

// Order status values
const (
	OrderStatusFound      = "order"
	OrderStatusUnknownOID = "unknownOid"
)

// OrderStatusResponse is the orderStatus reply
type OrderStatusResponse struct {
	Status string            `json:"status"`
	Order  *OrderStatusEntry `json:"order,omitempty"`
}

// OrderStatusEntry is the tracked state of one order
type OrderStatusEntry struct {
	Order           OpenOrder `json:"order"`
	Status          string    `json:"status"`
	StatusTimestamp Timestamp `json:"statusTimestamp"`
}

// UserFill is one execution against the user's orders
type UserFill struct {
	Coin          string          `json:"coin"`
	Price         decimal.Decimal `json:"px"`
	Size          decimal.Decimal `json:"sz"`
	Side          string          `json:"side"`
	Time          Timestamp       `json:"time"`
	Direction     string          `json:"dir"`
	ClosedPnL     decimal.Decimal `json:"closedPnl"`
	Hash          string          `json:"hash"`
	OrderID       int64           `json:"oid"`
	Crossed       bool            `json:"crossed"`
	Fee           decimal.Decimal `json:"fee"`
	TradeID       int64           `json:"tid"`
	FeeToken      string          `json:"feeToken"`
	ClientOrderID string          `json:"cloid,omitempty"`
}
