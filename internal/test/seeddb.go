// Package test provides shared test helpers.
package test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/internal/walletrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// SeedWallet creates a wallet with a random label and the given balance.
func SeedWallet(t *testing.T, tx dbpkg.SQLInterface, balance string) domain.Wallet {
	t.Helper()

	walletRepo := walletrepo.NewTxRepoPGS(tx)

	label := randompkg.Label()

	wallet, err := walletRepo.Create(context.Background(), label, decimal.RequireFromString(balance))
	if err != nil {
		t.Fatalf("walletRepo.Create(context.Background(), %v, %v) returned error: %v", label, balance, err)
	}

	return wallet
}

// SeedWalletWith1000Balance creates a wallet with 1000.00 on balance.
func SeedWalletWith1000Balance(t *testing.T, tx dbpkg.SQLInterface) domain.Wallet {
	t.Helper()

	return SeedWallet(t, tx, "1000.00")
}

// SeedTransaction inserts a transaction record without touching balances.
func SeedTransaction(t *testing.T, tx dbpkg.SQLInterface, source *int64, destination int64, amount string) domain.Transaction {
	t.Helper()

	transactionRepo := transactionrepo.NewRepoPGS(tx)

	arg := domain.InsertTransactionParams{
		SourceWalletID:      source,
		DestinationWalletID: destination,
		Amount:              decimal.RequireFromString(amount),
		TxID:                randompkg.String(36),
	}

	transaction, err := transactionRepo.Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("transactionRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return transaction
}

// SeedTransactions inserts count deposits with random amounts into destination.
func SeedTransactions(t *testing.T, tx dbpkg.SQLInterface, count int, destination int64) []domain.Transaction {
	t.Helper()

	transactions := make([]domain.Transaction, count)

	for i := range transactions {
		amount := randompkg.MoneyAmountBetween(1, 1000).StringFixed(domain.MoneyPlaces)
		transactions[i] = SeedTransaction(t, tx, nil, destination, amount)
	}

	return transactions
}
