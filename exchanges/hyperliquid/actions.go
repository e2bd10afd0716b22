package hyperliquid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	json "github.com/clawearn/clawearn/encoding/json"
)

// Action is a signable venue action. The set of implementations is closed;
// each one encodes its fields in a fixed declared order for both msgpack and
// JSON so the signed bytes and the submitted document always agree.
type Action interface {
	msgpack.CustomEncoder
	// ActionType names the action kind for logs and the journal.
	ActionType() string
	validate() error
}

// Time in force values
const (
	TimeInForceGTC = "Gtc"
	TimeInForceALO = "Alo"
	TimeInForceIOC = "Ioc"
)

// Grouping values for order actions
const (
	GroupingNA           = "na"
	GroupingNormalTPSL   = "normalTpsl"
	GroupingPositionTPSL = "positionTpsl"
)

// TransferKind tags a transfer action
type TransferKind string

// Transfer kinds
const (
	TransferWithdraw TransferKind = "withdraw3"
	TransferUSDSend  TransferKind = "usdSend"
	TransferSpotSend TransferKind = "spotSend"
)

var (
	cloidPattern  = regexp.MustCompile(`^0x[0-9a-f]{32}$`)
	amountPattern = regexp.MustCompile(`^[0-9]+$`)
)

// LimitOrderWire is the limit variant of an order type
type LimitOrderWire struct {
	TimeInForce string `json:"tif"`
}

// TriggerOrderWire is the trigger variant of an order type
type TriggerOrderWire struct {
	IsMarket  bool   `json:"isMarket"`
	TriggerPx string `json:"triggerPx"`
	TPSL      string `json:"tpsl"`
}

// OrderTypeWire holds exactly one of Limit or Trigger
type OrderTypeWire struct {
	Limit   *LimitOrderWire   `json:"limit,omitempty"`
	Trigger *TriggerOrderWire `json:"trigger,omitempty"`
}

// OrderWire is a single order in venue field codes: a asset index, b is buy,
// p limit price, s size, r reduce only, t order type, c client order id.
// Used directly it is the minimal single order action; OrderAction batches
// several of them in the venue's order envelope.
type OrderWire struct {
	Asset         int64         `json:"a"`
	IsBuy         bool          `json:"b"`
	LimitPx       string        `json:"p"`
	Size          string        `json:"s"`
	ReduceOnly    bool          `json:"r"`
	OrderType     OrderTypeWire `json:"t"`
	ClientOrderID string        `json:"c,omitempty"`
}

// BuilderWire attributes a builder fee in tenths of a basis point
type BuilderWire struct {
	Address string `json:"b"`
	Fee     int64  `json:"f"`
}

// OrderAction places one or more orders
type OrderAction struct {
	Orders   []OrderWire
	Grouping string
	Builder  *BuilderWire
}

// CancelWire identifies an order by venue id
type CancelWire struct {
	Asset   int64 `json:"a"`
	OrderID int64 `json:"o"`
}

// CancelAction cancels orders by venue id
type CancelAction struct {
	Cancels []CancelWire
}

// CancelByCloidWire identifies an order by client id
type CancelByCloidWire struct {
	Asset         int64  `json:"asset"`
	ClientOrderID string `json:"cloid"`
}

// CancelByCloidAction cancels orders by client order id
type CancelByCloidAction struct {
	Cancels []CancelByCloidWire
}

// OrderRef refers to an order either by venue id or client id. It encodes
// as an integer when ClientOrderID is empty and as a string otherwise.
type OrderRef struct {
	OrderID       int64
	ClientOrderID string
}

// ModifyWire replaces a resting order
type ModifyWire struct {
	OrderID OrderRef  `json:"oid"`
	Order   OrderWire `json:"order"`
}

// BatchModifyAction amends resting orders
type BatchModifyAction struct {
	Modifies []ModifyWire
}

// UpdateLeverageAction sets leverage for an asset
type UpdateLeverageAction struct {
	Asset    int64
	IsCross  bool
	Leverage int64
}

// TransferAction moves funds off the venue or between accounts. Amount is an
// unsigned integer string in the asset's smallest unit.
type TransferAction struct {
	Kind        TransferKind
	Destination string
	Amount      string
	Token       string
}

func validateDecimalString(field, v string) error {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("%w: %s %q is not a decimal string", ErrInvalidAction, field, v)
	}
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidAction, field)
	}
	return nil
}

func (t OrderTypeWire) validate() error {
	switch {
	case t.Limit != nil && t.Trigger == nil:
		switch t.Limit.TimeInForce {
		case TimeInForceGTC, TimeInForceALO, TimeInForceIOC:
			return nil
		}
		return fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidTimeInForce)
	case t.Trigger != nil && t.Limit == nil:
		if t.Trigger.TPSL != "tp" && t.Trigger.TPSL != "sl" {
			return fmt.Errorf("%w: trigger tpsl must be tp or sl", ErrInvalidAction)
		}
		return validateDecimalString("triggerPx", t.Trigger.TriggerPx)
	}
	return fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidOrderType)
}

// ActionType implements Action
func (OrderWire) ActionType() string { return "order" }

func (o OrderWire) validate() error {
	if o.Asset < 0 {
		return fmt.Errorf("%w: asset index must not be negative", ErrInvalidAction)
	}
	if err := validateDecimalString("price", o.LimitPx); err != nil {
		return err
	}
	if err := validateDecimalString("size", o.Size); err != nil {
		return err
	}
	if o.ClientOrderID != "" && !cloidPattern.MatchString(o.ClientOrderID) {
		return fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidClientOrderID)
	}
	return o.OrderType.validate()
}

// ActionType implements Action
func (OrderAction) ActionType() string { return "order" }

func (a OrderAction) grouping() string {
	if a.Grouping == "" {
		return GroupingNA
	}
	return a.Grouping
}

func (a OrderAction) validate() error {
	if len(a.Orders) == 0 {
		return fmt.Errorf("%w: order action has no orders", ErrInvalidAction)
	}
	for i := range a.Orders {
		if err := a.Orders[i].validate(); err != nil {
			return fmt.Errorf("order %d: %w", i, err)
		}
	}
	switch a.grouping() {
	case GroupingNA, GroupingNormalTPSL, GroupingPositionTPSL:
	default:
		return fmt.Errorf("%w: unknown grouping %q", ErrInvalidAction, a.Grouping)
	}
	if a.Builder != nil && !common.IsHexAddress(a.Builder.Address) {
		return fmt.Errorf("%w: builder address", ErrInvalidAction)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a OrderAction) MarshalJSON() ([]byte, error) {
	var builder *BuilderWire
	if a.Builder != nil {
		builder = &BuilderWire{Address: strings.ToLower(a.Builder.Address), Fee: a.Builder.Fee}
	}
	return json.Marshal(struct {
		Type     string       `json:"type"`
		Orders   []OrderWire  `json:"orders"`
		Grouping string       `json:"grouping"`
		Builder  *BuilderWire `json:"builder,omitempty"`
	}{"order", a.Orders, a.grouping(), builder})
}

// ActionType implements Action
func (CancelAction) ActionType() string { return "cancel" }

func (a CancelAction) validate() error {
	if len(a.Cancels) == 0 {
		return fmt.Errorf("%w: cancel action has no orders", ErrInvalidAction)
	}
	for i := range a.Cancels {
		if a.Cancels[i].Asset < 0 || a.Cancels[i].OrderID <= 0 {
			return fmt.Errorf("%w: cancel %d needs an asset and order id", ErrInvalidAction, i)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a CancelAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string       `json:"type"`
		Cancels []CancelWire `json:"cancels"`
	}{"cancel", a.Cancels})
}

// ActionType implements Action
func (CancelByCloidAction) ActionType() string { return "cancelByCloid" }

func (a CancelByCloidAction) validate() error {
	if len(a.Cancels) == 0 {
		return fmt.Errorf("%w: cancel action has no orders", ErrInvalidAction)
	}
	for i := range a.Cancels {
		if a.Cancels[i].Asset < 0 || !cloidPattern.MatchString(a.Cancels[i].ClientOrderID) {
			return fmt.Errorf("%w: cancel %d: %w", ErrInvalidAction, i, errInvalidClientOrderID)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a CancelByCloidAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string              `json:"type"`
		Cancels []CancelByCloidWire `json:"cancels"`
	}{"cancelByCloid", a.Cancels})
}

// MarshalJSON implements json.Marshaler
func (r OrderRef) MarshalJSON() ([]byte, error) {
	if r.ClientOrderID != "" {
		return json.Marshal(r.ClientOrderID)
	}
	return json.Marshal(r.OrderID)
}

// ActionType implements Action
func (BatchModifyAction) ActionType() string { return "batchModify" }

func (a BatchModifyAction) validate() error {
	if len(a.Modifies) == 0 {
		return fmt.Errorf("%w: modify action has no orders", ErrInvalidAction)
	}
	for i := range a.Modifies {
		ref := a.Modifies[i].OrderID
		switch {
		case ref.ClientOrderID != "" && !cloidPattern.MatchString(ref.ClientOrderID):
			return fmt.Errorf("%w: modify %d: %w", ErrInvalidAction, i, errInvalidClientOrderID)
		case ref.ClientOrderID == "" && ref.OrderID <= 0:
			return fmt.Errorf("%w: modify %d needs an order id", ErrInvalidAction, i)
		}
		if err := a.Modifies[i].Order.validate(); err != nil {
			return fmt.Errorf("modify %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a BatchModifyAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string       `json:"type"`
		Modifies []ModifyWire `json:"modifies"`
	}{"batchModify", a.Modifies})
}

// ActionType implements Action
func (UpdateLeverageAction) ActionType() string { return "updateLeverage" }

func (a UpdateLeverageAction) validate() error {
	if a.Asset < 0 {
		return fmt.Errorf("%w: asset index must not be negative", ErrInvalidAction)
	}
	if a.Leverage <= 0 {
		return fmt.Errorf("%w: leverage must be positive", ErrInvalidAction)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a UpdateLeverageAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Asset    int64  `json:"asset"`
		IsCross  bool   `json:"isCross"`
		Leverage int64  `json:"leverage"`
	}{"updateLeverage", a.Asset, a.IsCross, a.Leverage})
}

// ActionType implements Action
func (a TransferAction) ActionType() string { return string(a.Kind) }

func (a TransferAction) validate() error {
	switch a.Kind {
	case TransferWithdraw, TransferUSDSend:
	case TransferSpotSend:
		if a.Token == "" {
			return fmt.Errorf("%w: spot transfer needs a token", ErrInvalidAction)
		}
	default:
		return fmt.Errorf("%w: unknown transfer kind %q", ErrInvalidAction, a.Kind)
	}
	if !common.IsHexAddress(a.Destination) {
		return fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidDestination)
	}
	if !amountPattern.MatchString(a.Amount) || strings.TrimLeft(a.Amount, "0") == "" {
		return fmt.Errorf("%w: %w", ErrInvalidAction, errInvalidAmount)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (a TransferAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Destination string `json:"destination"`
		Amount      string `json:"amount"`
		Token       string `json:"token,omitempty"`
	}{string(a.Kind), a.Destination, a.Amount, a.Token})
}
