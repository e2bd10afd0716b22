package hyperliquid

import (
	"fmt"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"

	json "github.com/clawearn/clawearn/encoding/json"
)

// Venue status sentinels
const (
	StatusOK  = "ok"
	StatusErr = "err"
)

// Status entry kinds
const (
	ExchangeStatusSuccess = "success"
	ExchangeStatusResting = "resting"
	ExchangeStatusError   = "error"
	ExchangeStatusFilled  = "filled"
	ExchangeStatusWaiting = "waitingForFill"
)

// ExchangeResponse is the /exchange reply. Response is either a bare error
// string (Message) or an object (Body).
type ExchangeResponse struct {
	Status  string
	Message string
	Body    *ExchangeResponseBody
	Raw     json.RawMessage
}

// ExchangeResponseBody captures the nested response payload
type ExchangeResponseBody struct {
	Type string               `json:"type"`
	Data ExchangeResponseData `json:"data"`
}

// ExchangeResponseData holds per sub-action statuses
type ExchangeResponseData struct {
	Statuses []StatusEntry `json:"statuses"`
}

// UnmarshalJSON sniffs the shape of "response" before decoding it
func (r *ExchangeResponse) UnmarshalJSON(data []byte) error {
	status, err := jsonparser.GetString(data, "status")
	if err != nil {
		return fmt.Errorf("venue response status: %w", err)
	}
	out := ExchangeResponse{Status: status, Raw: append(json.RawMessage(nil), data...)}
	value, dataType, _, err := jsonparser.Get(data, "response")
	switch {
	case err != nil && dataType != jsonparser.NotExist:
		return fmt.Errorf("venue response body: %w", err)
	case dataType == jsonparser.String:
		msg, err := jsonparser.ParseString(value)
		if err != nil {
			return fmt.Errorf("venue response message: %w", err)
		}
		out.Message = msg
	case dataType == jsonparser.Object:
		body := new(ExchangeResponseBody)
		if err := json.Unmarshal(value, body); err != nil {
			return fmt.Errorf("venue response body: %w", err)
		}
		out.Body = body
	}
	*r = out
	return nil
}

// Statuses returns the per sub-action statuses, if any
func (r *ExchangeResponse) Statuses() []StatusEntry {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Data.Statuses
}

// OrderState is the payload of resting and filled statuses
type OrderState struct {
	OrderID       int64           `json:"oid"`
	ClientOrderID string          `json:"cloid,omitempty"`
	TotalSize     decimal.Decimal `json:"totalSz"`
	AveragePrice  decimal.Decimal `json:"avgPx"`
}

// StatusEntry is one sub-action outcome. The venue sends either a bare
// string ("success", "waitingForFill") or a single key object.
type StatusEntry struct {
	Kind  string
	Text  string
	Order *OrderState
	Error string
}

// UnmarshalJSON decodes string or object status entries
func (e *StatusEntry) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var status string
		if err := json.Unmarshal(data, &status); err != nil {
			return err
		}
		e.Text = status
		e.Kind = status
		if strings.EqualFold(status, ExchangeStatusSuccess) {
			e.Kind = ExchangeStatusSuccess
		}
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch strings.ToLower(key) {
		case ExchangeStatusResting, ExchangeStatusFilled:
			e.Kind = strings.ToLower(key)
			e.Text = key
			e.Order = new(OrderState)
			if err := json.Unmarshal(value, e.Order); err != nil {
				return err
			}
		case ExchangeStatusError:
			e.Kind = ExchangeStatusError
			e.Text = key
			if err := json.Unmarshal(value, &e.Error); err != nil {
				return err
			}
		default:
			e.Kind = key
			e.Text = key
		}
	}
	return nil
}

// MarshalJSON writes the entry back in venue form
func (e StatusEntry) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case ExchangeStatusError:
		return json.Marshal(map[string]string{ExchangeStatusError: e.Error})
	case ExchangeStatusResting, ExchangeStatusFilled:
		return json.Marshal(map[string]*OrderState{e.Kind: e.Order})
	}
	return json.Marshal(e.Text)
}

// OrderID returns the venue order id carried by resting and filled entries
func (e *StatusEntry) OrderID() (int64, bool) {
	if e.Order == nil || e.Order.OrderID == 0 {
		return 0, false
	}
	return e.Order.OrderID, true
}
