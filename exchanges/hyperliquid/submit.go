package hyperliquid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clawearn/clawearn/database/repository/submission"
	json "github.com/clawearn/clawearn/encoding/json"
	"github.com/clawearn/clawearn/exchanges/request"
	"github.com/clawearn/clawearn/log"
)

// Outcome is the terminal state of a submission
type Outcome uint8

// Submission outcomes
const (
	Accepted Outcome = iota + 1
	Rejected
	NetworkFailure
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case NetworkFailure:
		return "network_failure"
	}
	return "unknown"
}

// Recorder journals submission attempts. Entries never carry key material or
// signatures.
type Recorder interface {
	Record(ctx context.Context, e submission.Entry) error
}

// Envelope is the document POSTed to /exchange
type Envelope struct {
	Action       Action        `json:"action"`
	Nonce        int64         `json:"nonce"`
	Signature    SignatureWire `json:"signature"`
	VaultAddress string        `json:"vaultAddress,omitempty"`
}

// NewEnvelope wraps a signed action for submission. The vault address is
// only carried when it differs from signer.
func NewEnvelope(s *SignedAction, signer string) Envelope {
	env := Envelope{
		Action:    s.Action,
		Nonce:     s.Nonce,
		Signature: s.Signature.Wire(),
	}
	if s.Vault != "" && !strings.EqualFold(s.Vault, signer) {
		env.VaultAddress = s.Vault
	}
	return env
}

// Receipt describes a settled submission
type Receipt struct {
	Outcome  Outcome
	Action   string
	Nonce    int64
	Signer   string
	Vault    string
	OrderIDs []int64
	Statuses []StatusEntry
	// Errors lists per sub-action failures on an otherwise accepted batch
	Errors   []string
	Response *ExchangeResponse
}

// OrderID returns the first venue assigned order id, if any
func (r *Receipt) OrderID() (int64, bool) {
	if r == nil || len(r.OrderIDs) == 0 {
		return 0, false
	}
	return r.OrderIDs[0], true
}

type executeOptions struct {
	vault    string
	nonce    int64
	nonceSet bool
}

// ExecuteOption tunes a single Execute call
type ExecuteOption func(*executeOptions)

// WithVault acts on behalf of address instead of the signer
func WithVault(address string) ExecuteOption {
	return func(o *executeOptions) { o.vault = address }
}

// WithNonce pins the nonce instead of drawing one from the nonce source
func WithNonce(n int64) ExecuteOption {
	return func(o *executeOptions) { o.nonce, o.nonceSet = n, true }
}

// Execute signs action and submits it once. Every local failure is returned
// before any network I/O. A Rejected receipt comes with a
// *VenueRejectionError and a NetworkFailure receipt with a
// *NetworkFailureError.
func (e *Exchange) Execute(ctx context.Context, action Action, opts ...ExecuteOption) (*Receipt, error) {
	if e == nil {
		return nil, errNilSubmitter
	}
	var o executeOptions
	for _, fn := range opts {
		fn(&o)
	}
	if e.keys == nil {
		return nil, ErrNoSigningKey
	}
	key, err := e.keys.SigningKey(ctx)
	if err != nil {
		return nil, err
	}
	own := key.Address().Hex()
	signer := strings.ToLower(own)

	nonce := o.nonce
	if !o.nonceSet {
		nonce = e.nonces.Next()
	}
	// the signer's own address is hashed in checksum form whatever case
	// the caller passed, the envelope omits it either way
	vault := own
	if o.vault != "" {
		if !common.IsHexAddress(o.vault) {
			return nil, fmt.Errorf("%w: %w %q", ErrInvalidAction, errInvalidVaultAddress, o.vault)
		}
		if !strings.EqualFold(o.vault, own) {
			vault = o.vault
		}
	}

	signed, err := SignL1Action(key, action, nonce, vault, e.cfg.Domain)
	if err != nil {
		return nil, err
	}
	if err := signed.Signature.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(NewEnvelope(signed, signer))
	if err != nil {
		return nil, fmt.Errorf("%w: envelope: %w", ErrEncoding, err)
	}

	receipt := &Receipt{
		Action: action.ActionType(),
		Nonce:  nonce,
		Signer: signer,
		Vault:  vault,
	}
	if _, ok := ctx.Deadline(); !ok && e.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()
	}
	resp := new(ExchangeResponse)
	sendErr := e.requester.SendPayload(ctx, exchangeRateLimit, func() (*request.Item, error) {
		return &request.Item{
			Method:  http.MethodPost,
			Path:    e.cfg.APIURL + exchangePath,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    bytes.NewReader(payload),
			Result:  resp,
		}, nil
	}, request.AuthenticatedRequest)

	err = interpret(receipt, resp, sendErr)
	e.record(ctx, receipt, err)
	return receipt, err
}

// interpret settles the receipt from the transport result
func interpret(r *Receipt, resp *ExchangeResponse, sendErr error) error {
	if sendErr != nil {
		var httpErr *request.HTTPError
		if errors.As(sendErr, &httpErr) && len(httpErr.Body) > 0 {
			parsed := new(ExchangeResponse)
			if json.Unmarshal(httpErr.Body, parsed) == nil && parsed.Status != "" {
				return settle(r, parsed)
			}
			r.Outcome = NetworkFailure
			return &NetworkFailureError{StatusCode: httpErr.StatusCode, Err: sendErr}
		}
		r.Outcome = NetworkFailure
		nf := &NetworkFailureError{Err: sendErr}
		if httpErr != nil {
			nf.StatusCode = httpErr.StatusCode
		}
		return nf
	}
	if resp == nil || resp.Status == "" {
		r.Outcome = NetworkFailure
		return &NetworkFailureError{Err: errResponseMissing}
	}
	return settle(r, resp)
}

func settle(r *Receipt, resp *ExchangeResponse) error {
	r.Response = resp
	r.Statuses = resp.Statuses()
	switch resp.Status {
	case StatusOK:
		failed := 0
		for i := range r.Statuses {
			if id, ok := r.Statuses[i].OrderID(); ok {
				r.OrderIDs = append(r.OrderIDs, id)
			}
			if r.Statuses[i].Kind == ExchangeStatusError {
				failed++
				r.Errors = append(r.Errors, r.Statuses[i].Error)
			}
		}
		if failed > 0 && failed == len(r.Statuses) {
			r.Outcome = Rejected
			return rejectionFromStatuses(r.Statuses)
		}
		r.Outcome = Accepted
		return nil
	case StatusErr:
		r.Outcome = Rejected
		if resp.Message != "" {
			return &VenueRejectionError{Message: resp.Message, Statuses: r.Statuses}
		}
		if len(r.Statuses) == 0 {
			return &VenueRejectionError{Message: string(resp.Raw)}
		}
		return rejectionFromStatuses(r.Statuses)
	}
	r.Outcome = NetworkFailure
	return &NetworkFailureError{Err: fmt.Errorf("%w %q", errUnexpectedStatus, resp.Status)}
}

func (e *Exchange) record(ctx context.Context, r *Receipt, outcomeErr error) {
	switch r.Outcome {
	case Accepted:
		log.WithFields(log.ExchangeSys, map[string]any{
			"action": r.Action,
			"nonce":  r.Nonce,
			"orders": r.OrderIDs,
		}, venueName+" submission accepted")
	default:
		log.Warnf(log.ExchangeSys, "%s %s nonce %d %s: %v", venueName, r.Action, r.Nonce, r.Outcome, outcomeErr)
	}
	if e.recorder == nil {
		return
	}
	entry := submission.Entry{
		Venue:      venueName,
		ActionType: r.Action,
		Signer:     r.Signer,
		Vault:      r.Vault,
		Nonce:      r.Nonce,
		Outcome:    r.Outcome.String(),
		OrderIDs:   r.OrderIDs,
		CreatedAt:  e.now(),
	}
	if outcomeErr != nil {
		entry.Message = outcomeErr.Error()
	}
	if err := e.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Errorf(log.DatabaseSys, "%s journal write failed: %v", venueName, err)
	}
}
