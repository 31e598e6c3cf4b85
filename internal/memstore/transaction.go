package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// TransactionRepo is the read-only transaction repository view of a Store.
//
// Transactions are written only through ledger units, see Store.ExecTx.
type TransactionRepo struct {
	s *Store
}

// Get returns the transaction with the given id.
func (r *TransactionRepo) Get(_ context.Context, id int64) (domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transactions[id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
	}

	return t, nil
}

func (r *TransactionRepo) filter(arg domain.ListTransactionsParams) []domain.Transaction {
	items := []domain.Transaction{}

	for _, t := range r.s.transactions {
		if arg.WalletID != nil && !t.Involves(*arg.WalletID) {
			continue
		}

		if !matches(t.TxID, arg.TxID) {
			continue
		}

		items = append(items, t)
	}

	return items
}

// Count returns the number of transactions matching the filters of arg.
func (r *TransactionRepo) Count(_ context.Context, arg domain.ListTransactionsParams) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return int64(len(r.filter(arg))), nil
}

// List returns one page of transactions filtered by wallet and txid and sorted by amount.
func (r *TransactionRepo) List(_ context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	items := r.filter(arg)
	r.s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			if arg.Sort == domain.SortDesc {
				return c > 0
			}

			return c < 0
		}

		return a.ID < b.ID
	})

	return page(items, arg.Limit, arg.Offset), nil
}
