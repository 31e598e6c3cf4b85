// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for balances and amounts.
const MoneyPlaces = 2

var (
	// ErrWalletNotFound indicates that the wallet is not found.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInvalidBalance indicates that the initial wallet balance is negative or malformed.
	ErrInvalidBalance = errors.New("invalid balance")
	// ErrNegativeBalance indicates that a balance change would make the wallet balance negative.
	ErrNegativeBalance = errors.New("negative balance")
)

// Wallet holds a labeled non-negative balance.
//
// Balance is owned by the ledger: it changes only as a side effect of
// creating or deleting transactions.
type Wallet struct {
	ID        int64           `json:"id"`
	Label     string          `json:"label"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// SortOrder is the direction used when listing wallets and transactions.
type SortOrder string

// Supported sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListWalletsParams is the input data to list wallets.
type ListWalletsParams struct {
	Label  string    // case-insensitive substring, empty means any
	Sort   SortOrder // by balance, ascending when empty
	Limit  int32
	Offset int32
}

// IsMoney reports whether d fits the fixed-point money representation.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyPlaces))
}
