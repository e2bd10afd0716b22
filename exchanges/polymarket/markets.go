package polymarket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SearchMarkets runs a gamma public search
func (c *Client) SearchMarkets(ctx context.Context, query string) (*SearchResults, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errEmptyQuery
	}
	var out SearchResults
	err := c.gammaGet(ctx, searchPath, map[string]string{"q": query, "limit_per_type": "10"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns active open events, optionally filtered to a tag id
func (c *Client) ListEvents(ctx context.Context, tag string, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, errInvalidLimit
	}
	q := map[string]string{"active": "true", "closed": "false", "limit": strconv.Itoa(limit)}
	if tag != "" {
		q["tag_id"] = tag
	}
	var out []Event
	if err := c.gammaGet(ctx, eventsPath, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMarket fetches one market by condition id
func (c *Client) GetMarket(ctx context.Context, conditionID string) (*Market, error) {
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" {
		return nil, fmt.Errorf("market: %w", errEmptyTokenID)
	}
	var out Market
	if err := c.clobGet(ctx, marketPath+conditionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPrice returns the best price a taker on side would trade at
func (c *Client) GetPrice(ctx context.Context, tokenID string, side Side) (decimal.Decimal, error) {
	if tokenID == "" {
		return decimal.Zero, errEmptyTokenID
	}
	if side != Buy && side != Sell {
		return decimal.Zero, errInvalidSide
	}
	var out Price
	if err := c.clobGet(ctx, pricePath, map[string]string{"token_id": tokenID, "side": string(side)}, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Price, nil
}

// GetOrderBook returns the book summary for tokenID
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	if tokenID == "" {
		return nil, errEmptyTokenID
	}
	var out OrderBook
	if err := c.clobGet(ctx, bookPath, map[string]string{"token_id": tokenID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMidpoint returns the book mid for tokenID
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if tokenID == "" {
		return decimal.Zero, errEmptyTokenID
	}
	var out Midpoint
	if err := c.clobGet(ctx, midpointPath, map[string]string{"token_id": tokenID}, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Mid, nil
}

// GetTickSize returns the minimum price increment for tokenID
func (c *Client) GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if tokenID == "" {
		return decimal.Zero, errEmptyTokenID
	}
	var out tickSizeResponse
	if err := c.clobGet(ctx, tickSizePath, map[string]string{"token_id": tokenID}, &out); err != nil {
		return decimal.Zero, err
	}
	return out.MinimumTickSize, nil
}

// GetNegRisk reports whether tokenID settles through the neg risk exchange
func (c *Client) GetNegRisk(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, errEmptyTokenID
	}
	var out negRiskResponse
	if err := c.clobGet(ctx, negRiskPath, map[string]string{"token_id": tokenID}, &out); err != nil {
		return false, err
	}
	return out.NegRisk, nil
}
