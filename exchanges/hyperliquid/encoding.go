package hyperliquid

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vmihailenco/msgpack/v5"
)

// Canonical encoding
//
// EncodeAction writes MessagePack with these rules and nothing else:
//
//	triple            fixarray(3) 0x93, then action, nonce, vault
//	action / object   map header sized to the fields present (fixmap 0x80|n,
//	                  map16 0xde), then key/value pairs in declared order;
//	                  absent optional fields are omitted, never nil
//	key / string      fixstr 0xa0|n (n<32), str8 0xd9, str16 0xda, str32 0xdb
//	bool              0xc2 false, 0xc3 true
//	integer >= 0      positive fixint (<128), uint8 0xcc, uint16 0xcd,
//	                  uint32 0xce, uint64 0xcf, always the narrowest
//	integer < 0       negative fixint (>=-32), int8 0xd0 ... int64 0xd3
//	decimal           the decimal string, as string
//	array             fixarray 0x90|n, array16 0xdc
//	vault             the address string exactly as given; empty encodes nil 0xc0
//
// Map keys are never sorted.

type encodeFunc func(*msgpack.Encoder) error

type field struct {
	key   string
	value encodeFunc
}

func str(v string) encodeFunc {
	return func(enc *msgpack.Encoder) error { return enc.EncodeString(v) }
}

func integer(v int64) encodeFunc {
	return func(enc *msgpack.Encoder) error { return enc.EncodeInt(v) }
}

func boolean(v bool) encodeFunc {
	return func(enc *msgpack.Encoder) error { return enc.EncodeBool(v) }
}

func object(v msgpack.CustomEncoder) encodeFunc {
	return v.EncodeMsgpack
}

func encodeMap(enc *msgpack.Encoder, fields ...field) error {
	if err := enc.EncodeMapLen(len(fields)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := enc.EncodeString(f.key); err != nil {
			return err
		}
		if err := f.value(enc); err != nil {
			return fmt.Errorf("field %q: %w", f.key, err)
		}
	}
	return nil
}

func encodeSlice[T msgpack.CustomEncoder](items []T) encodeFunc {
	return func(enc *msgpack.Encoder) error {
		if err := enc.EncodeArrayLen(len(items)); err != nil {
			return err
		}
		for i := range items {
			if err := items[i].EncodeMsgpack(enc); err != nil {
				return err
			}
		}
		return nil
	}
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (l LimitOrderWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"tif", str(l.TimeInForce)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (t TriggerOrderWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc,
		field{"isMarket", boolean(t.IsMarket)},
		field{"triggerPx", str(t.TriggerPx)},
		field{"tpsl", str(t.TPSL)},
	)
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (t OrderTypeWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch {
	case t.Limit != nil && t.Trigger == nil:
		return encodeMap(enc, field{"limit", object(t.Limit)})
	case t.Trigger != nil && t.Limit == nil:
		return encodeMap(enc, field{"trigger", object(t.Trigger)})
	}
	return errInvalidOrderType
}

func (o OrderWire) fields() []field {
	fields := []field{
		{"a", integer(o.Asset)},
		{"b", boolean(o.IsBuy)},
		{"p", str(o.LimitPx)},
		{"s", str(o.Size)},
		{"r", boolean(o.ReduceOnly)},
		{"t", object(o.OrderType)},
	}
	if o.ClientOrderID != "" {
		fields = append(fields, field{"c", str(o.ClientOrderID)})
	}
	return fields
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (o OrderWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, o.fields()...)
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (b BuilderWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc,
		field{"b", str(strings.ToLower(b.Address))},
		field{"f", integer(b.Fee)},
	)
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (a OrderAction) EncodeMsgpack(enc *msgpack.Encoder) error {
	fields := []field{
		{"type", str("order")},
		{"orders", encodeSlice(a.Orders)},
		{"grouping", str(a.grouping())},
	}
	if a.Builder != nil {
		fields = append(fields, field{"builder", object(*a.Builder)})
	}
	return encodeMap(enc, fields...)
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (c CancelWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"a", integer(c.Asset)}, field{"o", integer(c.OrderID)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (a CancelAction) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"type", str("cancel")}, field{"cancels", encodeSlice(a.Cancels)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (c CancelByCloidWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"asset", integer(c.Asset)}, field{"cloid", str(c.ClientOrderID)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (a CancelByCloidAction) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"type", str("cancelByCloid")}, field{"cancels", encodeSlice(a.Cancels)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (r OrderRef) EncodeMsgpack(enc *msgpack.Encoder) error {
	if r.ClientOrderID != "" {
		return enc.EncodeString(r.ClientOrderID)
	}
	return enc.EncodeInt(r.OrderID)
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (m ModifyWire) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"oid", object(m.OrderID)}, field{"order", object(m.Order)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (a BatchModifyAction) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc, field{"type", str("batchModify")}, field{"modifies", encodeSlice(a.Modifies)})
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (a UpdateLeverageAction) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeMap(enc,
		field{"type", str("updateLeverage")},
		field{"asset", integer(a.Asset)},
		field{"isCross", boolean(a.IsCross)},
		field{"leverage", integer(a.Leverage)},
	)
}

// EncodeMsgpack implements msgpack.CustomEncoder
func (a TransferAction) EncodeMsgpack(enc *msgpack.Encoder) error {
	fields := []field{
		{"type", str(string(a.Kind))},
		{"destination", str(a.Destination)},
		{"amount", str(a.Amount)},
	}
	if a.Token != "" {
		fields = append(fields, field{"token", str(a.Token)})
	}
	return encodeMap(enc, fields...)
}

// EncodeAction returns the canonical encoding of [action, nonce, vault]. The
// nonce is checked before the action so a bad nonce never reaches the encoder.
func EncodeAction(action Action, nonce int64, vault string) ([]byte, error) {
	if nonce <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNonce, nonce)
	}
	if isNilAction(action) {
		return nil, fmt.Errorf("%w: action is nil", ErrInvalidAction)
	}
	if err := action.validate(); err != nil {
		return nil, err
	}
	if vault != "" && !common.IsHexAddress(vault) {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidAction, errInvalidVaultAddress, vault)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encodeTriple(enc, action, nonce, vault); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return buf.Bytes(), nil
}

// isNilAction also catches typed nil pointers, whose value methods would
// panic on dereference
func isNilAction(action Action) bool {
	switch a := action.(type) {
	case nil:
		return true
	case *OrderAction:
		return a == nil
	case *CancelAction:
		return a == nil
	case *CancelByCloidAction:
		return a == nil
	case *BatchModifyAction:
		return a == nil
	case *UpdateLeverageAction:
		return a == nil
	case *TransferAction:
		return a == nil
	case *OrderWire:
		return a == nil
	}
	return false
}

func encodeTriple(enc *msgpack.Encoder, action Action, nonce int64, vault string) error {
	if err := enc.EncodeArrayLen(3); err != nil {
		return err
	}
	if err := action.EncodeMsgpack(enc); err != nil {
		return err
	}
	if err := enc.EncodeInt(nonce); err != nil {
		return err
	}
	if vault == "" {
		return enc.EncodeNil()
	}
	return enc.EncodeString(vault)
}

// HashAction returns the Keccak-256 digest of encoded
func HashAction(encoded []byte) common.Hash {
	return crypto.Keccak256Hash(encoded)
}
