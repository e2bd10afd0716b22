package hyperliquid

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type userRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

// GetMeta retrieves the perpetual universe
func (e *Exchange) GetMeta(ctx context.Context) (*MetaResponse, error) {
	resp := new(MetaResponse)
	if err := e.sendInfo(ctx, struct {
		Type string `json:"type"`
	}{"meta"}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMetaAndAssetContexts retrieves the perpetual universe with mark prices,
// funding and volume
func (e *Exchange) GetMetaAndAssetContexts(ctx context.Context) (*MetaAndAssetContexts, error) {
	resp := new(MetaAndAssetContexts)
	if err := e.sendInfo(ctx, struct {
		Type string `json:"type"`
	}{"metaAndAssetCtxs"}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSpotMeta retrieves the spot universe and token list
func (e *Exchange) GetSpotMeta(ctx context.Context) (*SpotMetaResponse, error) {
	resp := new(SpotMetaResponse)
	if err := e.sendInfo(ctx, struct {
		Type string `json:"type"`
	}{"spotMeta"}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetAllMids retrieves mid prices for all coins
func (e *Exchange) GetAllMids(ctx context.Context) (map[string]decimal.Decimal, error) {
	var resp map[string]decimal.Decimal
	if err := e.sendInfo(ctx, struct {
		Type string `json:"type"`
	}{"allMids"}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetMid returns the mid price for coin
func (e *Exchange) GetMid(ctx context.Context, coin string) (decimal.Decimal, error) {
	mids, err := e.GetAllMids(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	mid, ok := mids[coin]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s", ErrUnknownAsset, coin)
	}
	return mid, nil
}

// GetL2Book retrieves the aggregated book for coin
func (e *Exchange) GetL2Book(ctx context.Context, coin string) (*L2Book, error) {
	resp := new(L2Book)
	if err := e.sendInfo(ctx, struct {
		Type string `json:"type"`
		Coin string `json:"coin"`
	}{"l2Book", coin}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetClearinghouseState retrieves perpetual margin and positions for user
func (e *Exchange) GetClearinghouseState(ctx context.Context, user string) (*ClearinghouseState, error) {
	resp := new(ClearinghouseState)
	if err := e.sendInfo(ctx, userRequest{"clearinghouseState", user}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSpotClearinghouseState retrieves spot balances for user
func (e *Exchange) GetSpotClearinghouseState(ctx context.Context, user string) (*SpotClearinghouseState, error) {
	resp := new(SpotClearinghouseState)
	if err := e.sendInfo(ctx, userRequest{"spotClearinghouseState", user}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetOpenOrders retrieves resting orders for user
func (e *Exchange) GetOpenOrders(ctx context.Context, user string) ([]OpenOrder, error) {
	var resp []OpenOrder
	if err := e.sendInfo(ctx, userRequest{"openOrders", user}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetUserFills retrieves recent fills for user
func (e *Exchange) GetUserFills(ctx context.Context, user string) ([]UserFill, error) {
	var resp []UserFill
	if err := e.sendInfo(ctx, userRequest{"userFills", user}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetOrderStatus looks an order up by venue id or client order id
func (e *Exchange) GetOrderStatus(ctx context.Context, user string, ref OrderRef) (*OrderStatusResponse, error) {
	resp := new(OrderStatusResponse)
	if err := e.sendInfo(ctx, struct {
		Type string   `json:"type"`
		User string   `json:"user"`
		OID  OrderRef `json:"oid"`
	}{"orderStatus", user, ref}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// AssetIndex resolves a symbol to the venue asset id. Perpetuals map to their
// universe position and spot pairs, or a token that is the base of a pair, to
// spotAssetOffset plus the pair's spot index.
// Any lookup failure is returned; there is no fallback index.
func (e *Exchange) AssetIndex(ctx context.Context, symbol string) (int64, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return 0, fmt.Errorf("%w: empty symbol", ErrUnknownAsset)
	}
	key := strings.ToUpper(symbol)
	e.assetCacheMu.RLock()
	idx, ok := e.assetCache[key]
	e.assetCacheMu.RUnlock()
	if ok {
		return idx, nil
	}
	if err := e.loadAssets(ctx); err != nil {
		return 0, fmt.Errorf("resolve %s: %w", symbol, err)
	}
	e.assetCacheMu.RLock()
	idx, ok = e.assetCache[key]
	e.assetCacheMu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return idx, nil
}

// Market returns the listing for a perpetual coin
func (e *Exchange) Market(ctx context.Context, coin string) (*PerpetualMarket, error) {
	meta, err := e.GetMeta(ctx)
	if err != nil {
		return nil, err
	}
	for i := range meta.Universe {
		if strings.EqualFold(meta.Universe[i].Name, coin) {
			return &meta.Universe[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, coin)
}

func (e *Exchange) loadAssets(ctx context.Context) error {
	meta, err := e.GetMeta(ctx)
	if err != nil {
		return err
	}
	if len(meta.Universe) == 0 {
		return errMetaNoMarkets
	}
	spot, err := e.GetSpotMeta(ctx)
	if err != nil {
		return err
	}
	assets := make(map[string]int64, len(meta.Universe)+len(spot.Universe)+len(spot.Tokens))
	byBase := make(map[int64]int64, len(spot.Universe))
	for i := range spot.Universe {
		pair := &spot.Universe[i]
		assets[strings.ToUpper(pair.Name)] = spotAssetOffset + pair.Index
		if len(pair.Tokens) > 0 {
			if _, ok := byBase[int64(pair.Tokens[0])]; !ok {
				byBase[int64(pair.Tokens[0])] = pair.Index
			}
		}
	}
	// a bare token name resolves to the first pair it is the base of
	for i := range spot.Tokens {
		name := strings.ToUpper(spot.Tokens[i].Name)
		if idx, ok := byBase[spot.Tokens[i].Index]; ok {
			if _, taken := assets[name]; !taken {
				assets[name] = spotAssetOffset + idx
			}
		}
	}
	// perpetual names win over spot pair names
	for i := range meta.Universe {
		assets[strings.ToUpper(meta.Universe[i].Name)] = int64(i)
	}
	e.assetCacheMu.Lock()
	e.assetCache = assets
	e.assetCacheMu.Unlock()
	return nil
}
