package hyperliquid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clawearn/clawearn/wallet"
)

// Local failures. None of these reach the network.
var (
	ErrInvalidAction       = errors.New("invalid action")
	ErrInvalidNonce        = errors.New("nonce must be a positive integer")
	ErrEncoding            = errors.New("action encoding failed")
	ErrSigning             = errors.New("signing failed")
	ErrSchema              = errors.New("typed data schema is malformed")
	ErrSignatureValidation = errors.New("signature failed validation")
	ErrNoSigningKey        = wallet.ErrNoSigningKey
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrInvalidOrder        = errors.New("invalid order")
)

var (
	errResponseMissing        = errors.New("venue response missing")
	errUnexpectedStatus       = errors.New("unexpected venue status")
	errInvalidVaultAddress    = errors.New("invalid vault address")
	errInvalidDestination     = errors.New("invalid destination address")
	errInvalidAmount          = errors.New("amount must be a positive integer string")
	errInvalidOrderType       = errors.New("order type must be exactly one of limit or trigger")
	errInvalidTimeInForce     = errors.New("time in force must be Gtc, Alo or Ioc")
	errInvalidClientOrderID   = errors.New("client order id must be 0x followed by 32 lowercase hex characters")
	errNilSubmitter           = errors.New("exchange is nil")
	errMetaNoMarkets          = errors.New("venue metadata returned no markets")
	errDepositBelowMinimum    = errors.New("deposit amount below bridge minimum")
	errChainClientNil         = errors.New("chain client is nil")
	errWebsocketSubscriptions = errors.New("at least one coin is required")
)

// NetworkFailureError reports that the venue could not be reached or
// returned an unusable response. The nonce may have been consumed remotely
// so a retry must use a fresh nonce.
type NetworkFailureError struct {
	StatusCode int
	Err        error
}

func (e *NetworkFailureError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network failure (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkFailureError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting is worthwhile. It is false when the
// caller cancelled the attempt. A retry must be signed with a fresh nonce
// since the venue may already have applied this one.
func (e *NetworkFailureError) Retryable() bool {
	return !errors.Is(e.Err, context.Canceled)
}

// VenueRejectionError carries the venue's reason verbatim
type VenueRejectionError struct {
	Message  string
	Statuses []StatusEntry
}

func (e *VenueRejectionError) Error() string {
	return "venue rejected action: " + e.Message
}

// Retryable is always false; the same nonce will be replay rejected
func (e *VenueRejectionError) Retryable() bool {
	return false
}

func rejectionFromStatuses(statuses []StatusEntry) *VenueRejectionError {
	msgs := make([]string, 0, len(statuses))
	for i := range statuses {
		if statuses[i].Error != "" {
			msgs = append(msgs, statuses[i].Error)
		}
	}
	return &VenueRejectionError{Message: strings.Join(msgs, "; "), Statuses: statuses}
}
