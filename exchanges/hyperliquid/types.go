package hyperliquid

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	json "github.com/clawearn/clawearn/encoding/json"
)

// spotAssetOffset is added to a spot universe index to form its asset id
const spotAssetOffset = 10000

// Timestamp is a millisecond unix time as sent by the venue
type Timestamp int64

// Time converts t to a UTC time.Time
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// MetaResponse defines the universe of perpetual markets
type MetaResponse struct {
	Universe []PerpetualMarket `json:"universe"`
}

// PerpetualMarket describes a single perpetual contract listing
type PerpetualMarket struct {
	Name         string `json:"name"`
	SzDecimals   int32  `json:"szDecimals"`
	MaxLeverage  int64  `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated"`
	IsDelisted   bool   `json:"isDelisted"`
}

// PerpetualAssetContext contains mark and volume information for a perpetual contract
type PerpetualAssetContext struct {
	Funding        decimal.Decimal     `json:"funding"`
	OpenInterest   decimal.Decimal     `json:"openInterest"`
	PrevDayPrice   decimal.Decimal     `json:"prevDayPx"`
	DayNotionalVol decimal.Decimal     `json:"dayNtlVlm"`
	OraclePrice    decimal.Decimal     `json:"oraclePx"`
	MarkPrice      decimal.Decimal     `json:"markPx"`
	MidPrice       decimal.NullDecimal `json:"midPx"`
}

// MetaAndAssetContexts pairs the universe with per market contexts
type MetaAndAssetContexts struct {
	Meta          MetaResponse
	AssetContexts []PerpetualAssetContext
}

// UnmarshalJSON decodes the [meta, contexts] array form
func (r *MetaAndAssetContexts) UnmarshalJSON(data []byte) error {
	var payload []json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode meta contexts: %w", err)
	}
	if len(payload) < 2 {
		return errMetaAndAssetContextsMalformed
	}
	if err := json.Unmarshal(payload[0], &r.Meta); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	if err := json.Unmarshal(payload[1], &r.AssetContexts); err != nil {
		return fmt.Errorf("decode asset contexts: %w", err)
	}
	return nil
}

// L2Book is the aggregated order book. Levels[0] holds bids and Levels[1]
// asks.
type L2Book struct {
	Coin   string        `json:"coin"`
	Time   Timestamp     `json:"time"`
	Levels [][]BookLevel `json:"levels"`
}

// Bids returns the bid side
func (b *L2Book) Bids() []BookLevel {
	if b == nil || len(b.Levels) < 1 {
		return nil
	}
	return b.Levels[0]
}

// Asks returns the ask side
func (b *L2Book) Asks() []BookLevel {
	if b == nil || len(b.Levels) < 2 {
		return nil
	}
	return b.Levels[1]
}

// BookLevel represents a price level within an L2 snapshot
type BookLevel struct {
	Price      decimal.Decimal `json:"px"`
	Size       decimal.Decimal `json:"sz"`
	OrderCount int64           `json:"n"`
}

// SpotMetaResponse contains the spot universe and token metadata
type SpotMetaResponse struct {
	Universe []SpotMarket `json:"universe"`
	Tokens   []SpotToken  `json:"tokens"`
}

// SpotMarket identifies a tradable spot market and its component tokens
type SpotMarket struct {
	Tokens      []int  `json:"tokens"`
	Name        string `json:"name"`
	Index       int64  `json:"index"`
	IsCanonical bool   `json:"isCanonical"`
}

// SpotToken describes a single spot token
type SpotToken struct {
	Name        string `json:"name"`
	SzDecimals  int32  `json:"szDecimals"`
	WeiDecimals int32  `json:"weiDecimals"`
	Index       int64  `json:"index"`
	TokenID     string `json:"tokenId"`
	IsCanonical bool   `json:"isCanonical"`
}
