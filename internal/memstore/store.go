// Package memstore provides a concurrency-safe in-memory wallet store,
// transaction log and ledger unit.
//
// Each wallet carries its own mutex. A ledger unit acquires the mutexes of
// the wallets it touches in ascending id order and holds them until it ends,
// so units on unrelated wallets run in parallel. Writes made inside a unit
// are staged and applied under the store lock at commit, which keeps readers
// from observing a half-applied unit.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

type walletEntry struct {
	lock    sync.Mutex // owned by the unit touching the wallet
	wallet  domain.Wallet
	deleted bool
}

// Store keeps wallets and transactions in memory.
type Store struct {
	mu           sync.RWMutex
	wallets      map[int64]*walletEntry
	transactions map[int64]domain.Transaction
	txids        map[string]int64

	lastWalletID      int64
	lastTransactionID int64

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		wallets:      make(map[int64]*walletEntry),
		transactions: make(map[int64]domain.Transaction),
		txids:        make(map[string]int64),
		now:          time.Now,
	}
}

// Wallets returns the wallet repository view of the store.
func (s *Store) Wallets() *WalletRepo {
	return &WalletRepo{s: s}
}

// Transactions returns the read-only transaction repository view of the store.
func (s *Store) Transactions() *TransactionRepo {
	return &TransactionRepo{s: s}
}

func (s *Store) entry(id int64) *walletEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wallets[id]
}

// ExecTx runs fn as one atomic unit.
func (s *Store) ExecTx(ctx context.Context, fn func(tx ledgerservice.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u := &unit{
		s:        s,
		locked:   make(map[int64]*walletEntry),
		balances: make(map[int64]domain.Wallet),
		deletes:  make(map[int64]domain.Transaction),
	}
	defer u.release()

	if err := fn(u); err != nil {
		return err
	}

	u.commit()

	return nil
}

// unit is an in-flight ledger unit. It is used by a single goroutine.
type unit struct {
	s         *Store
	lockTaken bool
	locked    map[int64]*walletEntry
	balances  map[int64]domain.Wallet
	inserts   []domain.Transaction
	deletes   map[int64]domain.Transaction
}

func (u *unit) LockWallets(_ context.Context, ids ...int64) (map[int64]domain.Wallet, error) {
	if u.lockTaken {
		return nil, errors.New("memstore: wallets already locked in this unit")
	}

	u.lockTaken = true

	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	found := make(map[int64]domain.Wallet, len(sorted))

	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}

		e := u.s.entry(id)
		if e == nil {
			continue
		}

		e.lock.Lock()

		u.s.mu.RLock()
		deleted, w := e.deleted, e.wallet
		u.s.mu.RUnlock()

		if deleted {
			e.lock.Unlock()
			continue
		}

		u.locked[id] = e
		u.balances[id] = w
		found[id] = w
	}

	return found, nil
}

func (u *unit) AddBalance(_ context.Context, id int64, delta decimal.Decimal) (domain.Wallet, error) {
	w, ok := u.balances[id]
	if !ok {
		return domain.Wallet{}, fmt.Errorf("%w: id %d is not locked by the unit", domain.ErrWalletNotFound, id)
	}

	balance := w.Balance.Add(delta)
	if balance.IsNegative() {
		return domain.Wallet{}, fmt.Errorf("%w: wallet %d by %s", domain.ErrNegativeBalance, id, delta)
	}

	if !moneypkg.InRange(balance) {
		return domain.Wallet{}, fmt.Errorf("%w: wallet %d balance out of range by %s", domain.ErrInvalidAmount, id, delta)
	}

	w.Balance = balance
	u.balances[id] = w

	return w, nil
}

func (u *unit) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	if _, ok := u.deletes[id]; ok {
		return domain.Transaction{}, fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
	}

	for _, t := range u.inserts {
		if t.ID == id {
			return t, nil
		}
	}

	return u.s.Transactions().Get(ctx, id)
}

func (u *unit) CreateTransaction(_ context.Context, arg domain.InsertTransactionParams) (domain.Transaction, error) {
	if !arg.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	if _, ok := u.balances[arg.DestinationWalletID]; !ok {
		return domain.Transaction{}, domain.ErrWalletNotFound
	}

	if arg.SourceWalletID != nil {
		if *arg.SourceWalletID == arg.DestinationWalletID {
			return domain.Transaction{}, domain.ErrSameWalletTransfer
		}

		if _, ok := u.balances[*arg.SourceWalletID]; !ok {
			return domain.Transaction{}, domain.ErrWalletNotFound
		}
	}

	u.s.mu.Lock()
	_, taken := u.s.txids[arg.TxID]
	u.s.lastTransactionID++
	id := u.s.lastTransactionID
	u.s.mu.Unlock()

	if taken {
		return domain.Transaction{}, fmt.Errorf("%w: txid %s already exists", domain.ErrConflict, arg.TxID)
	}

	var source *int64
	if arg.SourceWalletID != nil {
		v := *arg.SourceWalletID
		source = &v
	}

	t := domain.Transaction{
		ID:                  id,
		SourceWalletID:      source,
		DestinationWalletID: arg.DestinationWalletID,
		Amount:              arg.Amount,
		TxID:                arg.TxID,
		CreatedAt:           u.s.now().UTC(),
	}

	u.inserts = append(u.inserts, t)

	return t, nil
}

func (u *unit) DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	t, err := u.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	for i := range u.inserts {
		if u.inserts[i].ID == id {
			u.inserts = append(u.inserts[:i], u.inserts[i+1:]...)
			return t, nil
		}
	}

	u.deletes[id] = t

	return t, nil
}

func (u *unit) commit() {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	for id, w := range u.balances {
		u.locked[id].wallet = w
	}

	for _, t := range u.inserts {
		u.s.transactions[t.ID] = t
		u.s.txids[t.TxID] = t.ID
	}

	for id, t := range u.deletes {
		delete(u.s.transactions, id)
		delete(u.s.txids, t.TxID)
	}
}

func (u *unit) release() {
	for _, e := range u.locked {
		e.lock.Unlock()
	}
}

func matches(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func page[T any](items []T, limit, offset int32) []T {
	if offset >= int32(len(items)) {
		return []T{}
	}

	end := int64(offset) + int64(limit)
	if end > int64(len(items)) {
		end = int64(len(items))
	}

	return items[offset:end]
}
