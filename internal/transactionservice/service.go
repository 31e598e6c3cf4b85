// Package transactionservice manages read access to the transaction log.
//
// Transactions are created and deleted by ledgerservice.
package transactionservice

import (
	"context"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Repo provides data access layer interface needed by transaction service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transactionservice
type Repo interface {
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	Count(ctx context.Context, arg domain.ListTransactionsParams) (int64, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
}

// Service facilitates transaction service layer logic.
type Service struct {
	repo Repo
}

// New returns transaction service.
func New(tr Repo) *Service {
	return &Service{repo: tr}
}

// Get returns transaction for the given ID.
func (s *Service) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	return s.repo.Get(ctx, id)
}

// List returns the pageID page of transactions matching walletID and txid,
// together with the total number of matching transactions.
func (s *Service) List(ctx context.Context, walletID *int64, txid string, sort domain.SortOrder, pageSize, pageID int32) ([]domain.Transaction, int64, error) {
	arg := domain.ListTransactionsParams{
		WalletID: walletID,
		TxID:     txid,
		Sort:     sort,
		Limit:    pageSize,
		Offset:   (pageID - 1) * pageSize,
	}

	count, err := s.repo.Count(ctx, arg)
	if err != nil {
		return nil, 0, err
	}

	transactions, err := s.repo.List(ctx, arg)
	if err != nil {
		return nil, 0, err
	}

	return transactions, count, nil
}
