package polymarket

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"

	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/log"
)

const (
	outcomeAccepted       = "accepted"
	outcomeRejected       = "rejected"
	outcomeNetworkFailure = "network_failure"

	collateralDecimals = 6
	maxOrderPages      = 100
	zeroAddress        = "0x0000000000000000000000000000000000000000"
)

// Order errors
var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrUnknownTickSize = errors.New("unsupported tick size")
)

// RejectionError carries the venue's reason verbatim
type RejectionError struct {
	OrderID string
	Message string
}

func (e *RejectionError) Error() string {
	if e.OrderID != "" {
		return "polymarket rejected " + e.OrderID + ": " + e.Message
	}
	return "polymarket rejected order: " + e.Message
}

// failureOutcome classifies a failed submission for the journal. A 4xx
// reply means the venue read and refused the request.
func failureOutcome(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		return outcomeRejected
	}
	return outcomeNetworkFailure
}

// rounding holds the decimal places allowed for each amount at a tick size
type rounding struct {
	price, size, amount int32
}

var tickRounding = map[string]rounding{
	"0.1":    {price: 1, size: 2, amount: 3},
	"0.01":   {price: 2, size: 2, amount: 4},
	"0.001":  {price: 3, size: 2, amount: 5},
	"0.0001": {price: 4, size: 2, amount: 6},
}

func roundingFor(tick decimal.Decimal) (rounding, error) {
	r, ok := tickRounding[tick.String()]
	if !ok {
		return rounding{}, fmt.Errorf("%w: %s", ErrUnknownTickSize, tick)
	}
	return r, nil
}

// fitAmount trims x to places decimals, rounding up through a guard band
// first so float artefacts of the product do not lose a unit.
func fitAmount(x decimal.Decimal, places int32) decimal.Decimal {
	if x.Equal(x.Truncate(places)) {
		return x
	}
	x = x.RoundUp(places + 4)
	if x.Equal(x.Truncate(places)) {
		return x
	}
	return x.RoundDown(places)
}

func toUnits(x decimal.Decimal) *big.Int {
	return x.Shift(collateralDecimals).BigInt()
}

// OrderAmounts converts a limit order into maker and taker amounts in 6
// decimal base units. A buy gives collateral for outcome tokens, a sell the
// reverse.
func OrderAmounts(side Side, price, size, tick decimal.Decimal) (maker, taker *big.Int, err error) {
	rc, err := roundingFor(tick)
	if err != nil {
		return nil, nil, err
	}
	if price.LessThan(tick) || price.GreaterThan(decimal.NewFromInt(1).Sub(tick)) {
		return nil, nil, fmt.Errorf("%w: price %s outside [%s, %s]", ErrInvalidOrder, price, tick, decimal.NewFromInt(1).Sub(tick))
	}
	px := price.Round(rc.price)
	shares := size.RoundDown(rc.size)
	if !shares.IsPositive() {
		return nil, nil, fmt.Errorf("%w: size %s rounds to zero", ErrInvalidOrder, size)
	}
	notional := fitAmount(shares.Mul(px), rc.amount)
	if !notional.IsPositive() {
		return nil, nil, fmt.Errorf("%w: notional rounds to zero", ErrInvalidOrder)
	}
	switch side {
	case Buy:
		return toUnits(notional), toUnits(shares), nil
	case Sell:
		return toUnits(shares), toUnits(notional), nil
	}
	return nil, nil, fmt.Errorf("%w: %w", ErrInvalidOrder, errInvalidSide)
}

func (r *OrderRequest) parse() (price, size decimal.Decimal, err error) {
	if r == nil {
		return price, size, fmt.Errorf("%w: nil request", ErrInvalidOrder)
	}
	if strings.TrimSpace(r.TokenID) == "" {
		return price, size, fmt.Errorf("%w: %w", ErrInvalidOrder, errEmptyTokenID)
	}
	if r.Side != Buy && r.Side != Sell {
		return price, size, fmt.Errorf("%w: %w", ErrInvalidOrder, errInvalidSide)
	}
	if price, err = decimal.NewFromString(strings.TrimSpace(r.Price)); err != nil || !price.IsPositive() {
		return price, size, fmt.Errorf("%w: price %q", ErrInvalidOrder, r.Price)
	}
	if size, err = decimal.NewFromString(strings.TrimSpace(r.Size)); err != nil || !size.IsPositive() {
		return price, size, fmt.Errorf("%w: size %q", ErrInvalidOrder, r.Size)
	}
	switch r.OrderType {
	case "", GoodTilCancelled, FillOrKill, FillAndKill:
	default:
		return price, size, fmt.Errorf("%w: order type %q", ErrInvalidOrder, r.OrderType)
	}
	return price, size, nil
}

// PlaceOrder signs and posts a limit order. The tick size is always fetched
// and an unknown or unavailable tick size aborts before signing.
func (c *Client) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	price, size, err := req.parse()
	if err != nil {
		return nil, err
	}
	key, err := c.signingKey(ctx)
	if err != nil {
		return nil, err
	}
	tick, err := c.GetTickSize(ctx, req.TokenID)
	if err != nil {
		return nil, fmt.Errorf("tick size for %s: %w", req.TokenID, err)
	}
	makerAmount, takerAmount, err := OrderAmounts(req.Side, price, size, tick)
	if err != nil {
		return nil, err
	}
	negRisk, err := c.GetNegRisk(ctx, req.TokenID)
	if err != nil {
		return nil, fmt.Errorf("neg risk for %s: %w", req.TokenID, err)
	}
	creds, err := c.CreateOrDeriveAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	maker := key.Address().Hex()
	if c.cfg.FunderAddress != "" {
		maker = common.HexToAddress(c.cfg.FunderAddress).Hex()
	}
	side := model.BUY
	if req.Side == Sell {
		side = model.SELL
	}
	contract := model.CTFExchange
	if negRisk {
		contract = model.NegRiskCTFExchange
	}
	signed, err := c.orderBuilder.BuildSignedOrder(key.PrivateKey(), &model.OrderData{
		Maker:         maker,
		Taker:         zeroAddress,
		TokenId:       req.TokenID,
		MakerAmount:   makerAmount.String(),
		TakerAmount:   takerAmount.String(),
		Side:          side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        key.Address().Hex(),
		Expiration:    "0",
		SignatureType: model.SignatureType(c.cfg.SignatureType),
	}, contract)
	if err != nil {
		return nil, fmt.Errorf("build order: %w", err)
	}

	orderType := req.OrderType
	if orderType == "" {
		orderType = GoodTilCancelled
	}
	wire := signedOrderWire{
		Salt:          signed.Order.Salt.Int64(),
		Maker:         signed.Order.Maker.Hex(),
		Signer:        signed.Order.Signer.Hex(),
		Taker:         signed.Order.Taker.Hex(),
		TokenID:       signed.Order.TokenId.String(),
		MakerAmount:   signed.Order.MakerAmount.String(),
		TakerAmount:   signed.Order.TakerAmount.String(),
		Expiration:    signed.Order.Expiration.String(),
		Nonce:         signed.Order.Nonce.String(),
		FeeRateBps:    signed.Order.FeeRateBps.String(),
		Side:          req.Side,
		SignatureType: int(signed.Order.SignatureType.Int64()),
		Signature:     hexutil.Encode(signed.Signature),
	}
	body, err := json.Marshal(orderPayload{Order: wire, Owner: creds.Key, OrderType: orderType})
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}
	log.Debugf(log.PolymarketSys, "%s %s %s @ %s maker %s taker %s neg risk %v sig %s",
		req.Side, req.TokenID, size, price, wire.MakerAmount, wire.TakerAmount, negRisk, redact(wire.Signature))

	var out OrderResponse
	if err := c.authedSend(ctx, key, http.MethodPost, orderPath, nil, body, &out); err != nil {
		c.record(ctx, "order", key.Address().Hex(), failureOutcome(err), err.Error())
		return nil, err
	}
	if !out.Success || out.ErrorMsg != "" {
		rej := &RejectionError{OrderID: out.OrderID, Message: out.ErrorMsg}
		if rej.Message == "" {
			rej.Message = "order not accepted"
		}
		c.record(ctx, "order", key.Address().Hex(), outcomeRejected, rej.Message)
		return &out, rej
	}
	log.Infof(log.PolymarketSys, "order %s %s", out.OrderID, out.Status)
	c.record(ctx, "order", key.Address().Hex(), outcomeAccepted, out.OrderID)
	return &out, nil
}

// CancelOrder cancels one resting order by id
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id required", ErrInvalidOrder)
	}
	key, err := c.signingKey(ctx)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(cancelPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	var out CancelResponse
	if err := c.authedSend(ctx, key, http.MethodDelete, orderPath, nil, body, &out); err != nil {
		c.record(ctx, "cancel", key.Address().Hex(), failureOutcome(err), err.Error())
		return nil, err
	}
	if reason, ok := out.NotCanceled[orderID]; ok {
		c.record(ctx, "cancel", key.Address().Hex(), outcomeRejected, reason)
		return &out, &RejectionError{OrderID: orderID, Message: reason}
	}
	c.record(ctx, "cancel", key.Address().Hex(), outcomeAccepted, orderID)
	return &out, nil
}

// GetOpenOrders pages through every order still resting for the API key
func (c *Client) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	key, err := c.signingKey(ctx)
	if err != nil {
		return nil, err
	}
	var orders []OpenOrder
	cursor := initialCursor
	for range maxOrderPages {
		var page openOrdersPage
		if err := c.authedSend(ctx, key, http.MethodGet, openOrdersPath, map[string]string{"next_cursor": cursor}, nil, &page); err != nil {
			return nil, err
		}
		orders = append(orders, page.Data...)
		if page.NextCursor == "" || page.NextCursor == endCursor {
			return orders, nil
		}
		cursor = page.NextCursor
	}
	return nil, errTooManyPages
}
