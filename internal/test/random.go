package test

import (
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// RandomWallet returns a random wallet holding between 1000 and 10000.
func RandomWallet() domain.Wallet {
	return domain.Wallet{
		ID:        randompkg.IntBetween(1, 100),
		Label:     randompkg.Label(),
		Balance:   randompkg.MoneyAmountBetween(1000, 10_000),
		CreatedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

// RandomTransaction returns a random transaction between the given wallets.
// source may be nil for a deposit.
func RandomTransaction(source *int64, destination int64) domain.Transaction {
	return domain.Transaction{
		ID:                  randompkg.IntBetween(1, 100),
		SourceWalletID:      source,
		DestinationWalletID: destination,
		Amount:              randompkg.MoneyAmountBetween(1, 100),
		TxID:                randompkg.String(36),
		CreatedAt:           time.Now().Truncate(time.Second).UTC(),
	}
}
