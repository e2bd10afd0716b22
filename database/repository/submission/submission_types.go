package submission

import (
	"errors"
	"time"
)

// Entry is one journaled submission attempt
type Entry struct {
	ID         int64
	Venue      string
	ActionType string
	Signer     string
	Vault      string
	Nonce      int64
	Outcome    string
	OrderIDs   []int64
	Message    string
	CreatedAt  time.Time
}

var (
	errInvalidLimit = errors.New("limit must be positive")
	errMissingVenue = errors.New("entry venue is empty")
)
