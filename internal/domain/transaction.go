package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInvalidAmount indicates that the amount is not a positive money value.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSameWalletTransfer indicates that source and destination wallets are the same.
	ErrSameWalletTransfer = errors.New("source and destination wallets must differ")
	// ErrInsufficientFunds indicates that the source wallet balance is below the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrConflict indicates that a concurrent change invalidated the operation. Callers may retry.
	ErrConflict = errors.New("conflict")
)

// Transaction holds an immutable movement of funds into a wallet.
//
// A nil SourceWalletID means the funds come from outside the ledger.
type Transaction struct {
	ID                  int64           `json:"id"`
	SourceWalletID      *int64          `json:"source_wallet_id"`
	DestinationWalletID int64           `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"` // always positive
	TxID                string          `json:"txid"`
	CreatedAt           time.Time       `json:"timestamp"`
}

// CreateTransactionParams is the input data for the ledger to create a transaction.
type CreateTransactionParams struct {
	SourceWalletID      *int64
	DestinationWalletID int64
	Amount              decimal.Decimal
}

// InsertTransactionParams is the record written to the transaction log.
type InsertTransactionParams struct {
	SourceWalletID      *int64
	DestinationWalletID int64
	Amount              decimal.Decimal
	TxID                string
}

// ListTransactionsParams is the input data to list transactions.
type ListTransactionsParams struct {
	WalletID *int64    // matches either side
	TxID     string    // case-insensitive substring, empty means any
	Sort     SortOrder // by amount, ascending when empty
	Limit    int32
	Offset   int32
}

// Involves reports whether the transaction moves funds from or to the given wallet.
func (t Transaction) Involves(walletID int64) bool {
	if t.DestinationWalletID == walletID {
		return true
	}

	return t.SourceWalletID != nil && *t.SourceWalletID == walletID
}

// WalletIDs returns the ids of the wallets touched by the transaction.
func (t Transaction) WalletIDs() []int64 {
	if t.SourceWalletID == nil {
		return []int64{t.DestinationWalletID}
	}

	return []int64{*t.SourceWalletID, t.DestinationWalletID}
}
