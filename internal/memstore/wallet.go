package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// WalletRepo is the wallet repository view of a Store.
type WalletRepo struct {
	s *Store
}

// Create creates the wallet and then returns it.
func (r *WalletRepo) Create(_ context.Context, label string, balance decimal.Decimal) (domain.Wallet, error) {
	if balance.IsNegative() || !moneypkg.InRange(balance) {
		return domain.Wallet{}, domain.ErrInvalidBalance
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.lastWalletID++

	w := domain.Wallet{
		ID:        r.s.lastWalletID,
		Label:     label,
		Balance:   balance,
		CreatedAt: r.s.now().UTC(),
	}

	r.s.wallets[w.ID] = &walletEntry{wallet: w}

	return w, nil
}

// Get returns the wallet with the given id.
func (r *WalletRepo) Get(_ context.Context, id int64) (domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.wallets[id]
	if !ok {
		return domain.Wallet{}, fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
	}

	return e.wallet, nil
}

// Delete removes the wallet together with every transaction that references it.
func (r *WalletRepo) Delete(_ context.Context, id int64) error {
	e := r.s.entry(id)
	if e == nil {
		return fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e.deleted {
		return fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
	}

	e.deleted = true
	delete(r.s.wallets, id)

	for tid, t := range r.s.transactions {
		if t.Involves(id) {
			delete(r.s.transactions, tid)
			delete(r.s.txids, t.TxID)
		}
	}

	return nil
}

func (r *WalletRepo) filter(label string) []domain.Wallet {
	items := []domain.Wallet{}

	for _, e := range r.s.wallets {
		if matches(e.wallet.Label, label) {
			items = append(items, e.wallet)
		}
	}

	return items
}

// Count returns the number of wallets whose label contains the given substring.
func (r *WalletRepo) Count(_ context.Context, label string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return int64(len(r.filter(label))), nil
}

// List returns one page of wallets filtered by label and sorted by balance.
func (r *WalletRepo) List(_ context.Context, arg domain.ListWalletsParams) ([]domain.Wallet, error) {
	r.s.mu.RLock()
	items := r.filter(arg.Label)
	r.s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := a.Balance.Cmp(b.Balance); c != 0 {
			if arg.Sort == domain.SortDesc {
				return c > 0
			}

			return c < 0
		}

		return a.ID < b.ID
	})

	return page(items, arg.Limit, arg.Offset), nil
}
