package polymarket

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side is the direction of an outcome token order
type Side string

// Order sides
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide accepts buy/sell in any case
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	}
	return "", errInvalidSide
}

// OrderType is the time in force sent alongside a signed order
type OrderType string

// Order types accepted by the order book
const (
	GoodTilCancelled OrderType = "GTC"
	FillOrKill       OrderType = "FOK"
	FillAndKill      OrderType = "FAK"
	GoodTilDate      OrderType = "GTD"
)

// Signature types understood by the exchange contracts
const (
	SignatureEOA        = 0
	SignatureProxy      = 1
	SignatureGnosisSafe = 2
)

// APICredentials are the L2 credentials derived from the wallet
type APICredentials struct {
	Key        string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Valid reports whether every credential field is present
func (c *APICredentials) Valid() bool {
	return c != nil && c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// String keeps the secret and passphrase out of logs
func (c *APICredentials) String() string {
	if c == nil {
		return "APICredentials(<nil>)"
	}
	return "APICredentials(" + c.Key + ")"
}

// Token is one outcome of a market
type Token struct {
	TokenID string          `json:"token_id"`
	Outcome string          `json:"outcome"`
	Price   decimal.Decimal `json:"price"`
	Winner  bool            `json:"winner"`
}

// Market is a CLOB market keyed by condition id
type Market struct {
	ConditionID     string          `json:"condition_id"`
	QuestionID      string          `json:"question_id"`
	Question        string          `json:"question"`
	Description     string          `json:"description"`
	MarketSlug      string          `json:"market_slug"`
	EndDateISO      string          `json:"end_date_iso"`
	Active          bool            `json:"active"`
	Closed          bool            `json:"closed"`
	AcceptingOrders bool            `json:"accepting_orders"`
	NegRisk         bool            `json:"neg_risk"`
	MinimumTickSize decimal.Decimal `json:"minimum_tick_size"`
	MinimumOrder    decimal.Decimal `json:"minimum_order_size"`
	Tokens          []Token         `json:"tokens"`
}

// PriceLevel is one aggregated book level
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// OrderBook is the CLOB book summary for one token
type OrderBook struct {
	Market       string          `json:"market"`
	AssetID      string          `json:"asset_id"`
	Timestamp    string          `json:"timestamp"`
	Hash         string          `json:"hash"`
	Bids         []PriceLevel    `json:"bids"`
	Asks         []PriceLevel    `json:"asks"`
	MinOrderSize decimal.Decimal `json:"min_order_size"`
	TickSize     decimal.Decimal `json:"tick_size"`
	NegRisk      bool            `json:"neg_risk"`
}

// Price is the best price for a side of one token
type Price struct {
	Price decimal.Decimal `json:"price"`
}

// Midpoint is the mid of the best bid and ask
type Midpoint struct {
	Mid decimal.Decimal `json:"mid"`
}

type tickSizeResponse struct {
	MinimumTickSize decimal.Decimal `json:"minimum_tick_size"`
}

type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// Tag is a gamma category
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// GammaMarket is the gamma view of a market inside an event
type GammaMarket struct {
	ID           string `json:"id"`
	Question     string `json:"question"`
	ConditionID  string `json:"conditionId"`
	Slug         string `json:"slug"`
	Outcomes     string `json:"outcomes"`
	OutcomePrice string `json:"outcomePrices"`
	ClobTokenIDs string `json:"clobTokenIds"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
}

// Event groups related markets
type Event struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Slug    string        `json:"slug"`
	EndDate string        `json:"endDate"`
	Active  bool          `json:"active"`
	Closed  bool          `json:"closed"`
	Markets []GammaMarket `json:"markets"`
	Tags    []Tag         `json:"tags"`
}

// SearchResults is the gamma public search reply
type SearchResults struct {
	Events []Event `json:"events"`
	Tags   []Tag   `json:"tags"`
}

// Empty reports whether the search matched nothing
func (s *SearchResults) Empty() bool {
	return s == nil || (len(s.Events) == 0 && len(s.Tags) == 0)
}

// OpenOrder is a resting order owned by the API key
type OpenOrder struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Market       string          `json:"market"`
	AssetID      string          `json:"asset_id"`
	Side         Side            `json:"side"`
	OriginalSize decimal.Decimal `json:"original_size"`
	SizeMatched  decimal.Decimal `json:"size_matched"`
	Price        decimal.Decimal `json:"price"`
	Outcome      string          `json:"outcome"`
	OrderType    OrderType       `json:"order_type"`
	CreatedAt    int64           `json:"created_at"`
}

type openOrdersPage struct {
	Data       []OpenOrder `json:"data"`
	NextCursor string      `json:"next_cursor"`
}

// OrderResponse is the reply to an order submission
type OrderResponse struct {
	Success  bool     `json:"success"`
	ErrorMsg string   `json:"errorMsg"`
	OrderID  string   `json:"orderID"`
	Status   string   `json:"status"`
	TxHashes []string `json:"transactionsHashes"`
}

// CancelResponse lists the orders the venue cancelled and why others were not
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// OrderRequest is a limit order in human units
type OrderRequest struct {
	TokenID   string
	Side      Side
	Price     string
	Size      string
	OrderType OrderType
}

type signedOrderWire struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          Side   `json:"side"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

type orderPayload struct {
	Order     signedOrderWire `json:"order"`
	Owner     string          `json:"owner"`
	OrderType OrderType       `json:"orderType"`
}

type cancelPayload struct {
	OrderID string `json:"orderID"`
}

type errorBody struct {
	Error string `json:"error"`
}
