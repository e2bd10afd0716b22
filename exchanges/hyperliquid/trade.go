package hyperliquid

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofrs/uuid"
	"github.com/kat-co/vala"
	"github.com/shopspring/decimal"
)

// Order sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order limits enforced before signing
const (
	MinOrderNotional = 10
	MinLeverage      = 1
	MaxLeverage      = 20
)

// usdcDecimals is the precision of withdrawal amounts
const usdcDecimals = 6

var minNotional = decimal.NewFromInt(MinOrderNotional)

// OrderRequest is a human oriented limit order. Price and Size are decimal
// strings and are sent exactly as normalised by decimal.
type OrderRequest struct {
	Coin          string
	Side          string
	Price         string
	Size          string
	TimeInForce   string
	ReduceOnly    bool
	ClientOrderID string
	// Leverage is only checked for range; set it with UpdateLeverage
	Leverage int64
}

func decimalChecker(v, name string) vala.Checker {
	return func() (bool, string) {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return false, fmt.Sprintf("%s %q is not a decimal", name, v)
		}
		return d.IsPositive(), name + " must be positive"
	}
}

// ValidateOrder checks o without touching the network
func ValidateOrder(o *OrderRequest) error {
	if o == nil {
		return fmt.Errorf("%w: order is nil", ErrInvalidOrder)
	}
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(o.Coin, "coin"),
		func() (bool, string) {
			return o.Side == SideBuy || o.Side == SideSell, "side must be buy or sell"
		},
		decimalChecker(o.Price, "price"),
		decimalChecker(o.Size, "size"),
	).Check()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}
	price, _ := decimal.NewFromString(o.Price)
	size, _ := decimal.NewFromString(o.Size)
	if Notional(price, size).LessThan(minNotional) {
		return fmt.Errorf("%w: order notional must be at least $%d", ErrInvalidOrder, MinOrderNotional)
	}
	if o.Leverage != 0 && (o.Leverage < MinLeverage || o.Leverage > MaxLeverage) {
		return fmt.Errorf("%w: leverage must be between %d and %d", ErrInvalidOrder, MinLeverage, MaxLeverage)
	}
	switch o.TimeInForce {
	case "", TimeInForceGTC, TimeInForceALO, TimeInForceIOC:
	default:
		return fmt.Errorf("%w: %w", ErrInvalidOrder, errInvalidTimeInForce)
	}
	if o.ClientOrderID != "" && !cloidPattern.MatchString(o.ClientOrderID) {
		return fmt.Errorf("%w: %w", ErrInvalidOrder, errInvalidClientOrderID)
	}
	return nil
}

// Notional returns price times size
func Notional(price, size decimal.Decimal) decimal.Decimal {
	return price.Mul(size)
}

// OrderWireFor converts o into its wire form against asset
func OrderWireFor(o *OrderRequest, asset int64) (OrderWire, error) {
	if err := ValidateOrder(o); err != nil {
		return OrderWire{}, err
	}
	tif := o.TimeInForce
	if tif == "" {
		tif = TimeInForceGTC
	}
	price, _ := decimal.NewFromString(o.Price)
	size, _ := decimal.NewFromString(o.Size)
	return OrderWire{
		Asset:         asset,
		IsBuy:         o.Side == SideBuy,
		LimitPx:       price.String(),
		Size:          size.String(),
		ReduceOnly:    o.ReduceOnly,
		OrderType:     OrderTypeWire{Limit: &LimitOrderWire{TimeInForce: tif}},
		ClientOrderID: o.ClientOrderID,
	}, nil
}

// PlaceOrder resolves the coin, builds a single order action and submits it
func (e *Exchange) PlaceOrder(ctx context.Context, o *OrderRequest, opts ...ExecuteOption) (*Receipt, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: order is nil", ErrInvalidOrder)
	}
	return e.PlaceOrders(ctx, []OrderRequest{*o}, nil, opts...)
}

// PlaceOrders submits a batch of orders in one signed action
func (e *Exchange) PlaceOrders(ctx context.Context, orders []OrderRequest, builder *BuilderWire, opts ...ExecuteOption) (*Receipt, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: no orders supplied", ErrInvalidOrder)
	}
	for i := range orders {
		if err := ValidateOrder(&orders[i]); err != nil {
			return nil, fmt.Errorf("order %d: %w", i, err)
		}
	}
	wires := make([]OrderWire, len(orders))
	for i := range orders {
		asset, err := e.AssetIndex(ctx, orders[i].Coin)
		if err != nil {
			return nil, err
		}
		if wires[i], err = OrderWireFor(&orders[i], asset); err != nil {
			return nil, err
		}
	}
	return e.Execute(ctx, OrderAction{Orders: wires, Grouping: GroupingNA, Builder: builder}, opts...)
}

// CancelOrder cancels a resting order by venue id
func (e *Exchange) CancelOrder(ctx context.Context, coin string, orderID int64, opts ...ExecuteOption) (*Receipt, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: order id must be positive", ErrInvalidOrder)
	}
	asset, err := e.AssetIndex(ctx, coin)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, CancelAction{Cancels: []CancelWire{{Asset: asset, OrderID: orderID}}}, opts...)
}

// CancelByClientID cancels a resting order by client order id
func (e *Exchange) CancelByClientID(ctx context.Context, coin, cloid string, opts ...ExecuteOption) (*Receipt, error) {
	if !cloidPattern.MatchString(cloid) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, errInvalidClientOrderID)
	}
	asset, err := e.AssetIndex(ctx, coin)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, CancelByCloidAction{Cancels: []CancelByCloidWire{{Asset: asset, ClientOrderID: cloid}}}, opts...)
}

// ModifyOrder replaces the resting order ref with o
func (e *Exchange) ModifyOrder(ctx context.Context, ref OrderRef, o *OrderRequest, opts ...ExecuteOption) (*Receipt, error) {
	if err := ValidateOrder(o); err != nil {
		return nil, err
	}
	asset, err := e.AssetIndex(ctx, o.Coin)
	if err != nil {
		return nil, err
	}
	wire, err := OrderWireFor(o, asset)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, BatchModifyAction{Modifies: []ModifyWire{{OrderID: ref, Order: wire}}}, opts...)
}

// UpdateLeverage sets cross or isolated leverage for coin
func (e *Exchange) UpdateLeverage(ctx context.Context, coin string, leverage int64, isCross bool, opts ...ExecuteOption) (*Receipt, error) {
	if leverage < MinLeverage || leverage > MaxLeverage {
		return nil, fmt.Errorf("%w: leverage must be between %d and %d", ErrInvalidOrder, MinLeverage, MaxLeverage)
	}
	asset, err := e.AssetIndex(ctx, coin)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, UpdateLeverageAction{Asset: asset, IsCross: isCross, Leverage: leverage}, opts...)
}

// Withdraw moves amount USDC to destination on the bridge chain. amount is a
// decimal USDC figure and is scaled to integer micro units.
func (e *Exchange) Withdraw(ctx context.Context, destination, amount string, opts ...ExecuteOption) (*Receipt, error) {
	if !common.IsHexAddress(destination) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidDestination)
	}
	units, err := ToBaseUnits(amount, usdcDecimals)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, TransferAction{
		Kind:        TransferWithdraw,
		Destination: strings.ToLower(destination),
		Amount:      units,
	}, opts...)
}

// ToBaseUnits scales a positive decimal string by 10^decimals. Amounts with
// more precision than decimals are rejected rather than rounded.
func ToBaseUnits(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || !d.IsPositive() {
		return "", fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidAmount)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidAction, amount, decimals)
	}
	return scaled.Truncate(0).String(), nil
}

// NewClientOrderID returns a random 128 bit client order id
func NewClientOrderID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return "0x" + strings.ReplaceAll(id.String(), "-", ""), nil
}

// LiquidationPrice estimates where a position opened at entry liquidates.
// Leverage at or below one never liquidates and returns zero.
func LiquidationPrice(entry decimal.Decimal, leverage int64, long bool) decimal.Decimal {
	if leverage <= 1 {
		return decimal.Zero
	}
	step := decimal.NewFromInt(1).Div(decimal.NewFromInt(leverage))
	if long {
		return entry.Mul(decimal.NewFromInt(1).Sub(step))
	}
	return entry.Mul(decimal.NewFromInt(1).Add(step))
}

// UnrealizedPnL is (mark - entry) * size for longs and the negation for shorts
func UnrealizedPnL(entry, mark, size decimal.Decimal, long bool) decimal.Decimal {
	pnl := mark.Sub(entry).Mul(size)
	if !long {
		return pnl.Neg()
	}
	return pnl
}
