// Package ledgerservice manages the ledger: the only place where wallet
// balances change.
//
// Every operation runs as one atomic unit of the underlying Store. Inside the
// unit the wallets involved are locked first, preconditions are checked
// against the locked state, and only then balances and the transaction log
// are written. Any error aborts the unit and is returned unchanged, so no
// partial balance change survives.
package ledgerservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Tx is the view of the store available inside an atomic unit.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Tx interface {
	// LockWallets locks the given wallets until the unit ends and returns
	// those that exist, keyed by id. It is called at most once per unit.
	LockWallets(ctx context.Context, ids ...int64) (map[int64]domain.Wallet, error)
	// AddBalance adds delta to the wallet balance. It fails with
	// domain.ErrNegativeBalance if the result would be negative.
	AddBalance(ctx context.Context, id int64, delta decimal.Decimal) (domain.Wallet, error)
	GetTransaction(ctx context.Context, id int64) (domain.Transaction, error)
	CreateTransaction(ctx context.Context, arg domain.InsertTransactionParams) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error)
}

// Store runs fn as a single atomic unit: either everything fn wrote is
// committed or nothing is.
type Store interface {
	ExecTx(ctx context.Context, fn func(tx Tx) error) error
}

// Cache keeps cached wallets in step with committed balances.
type Cache interface {
	// Sequence is called inside a unit while its wallets are locked, so
	// units touching the same wallet get increasing numbers. 0 means none.
	Sequence(ctx context.Context) int64
	// Put stores wallets committed by the unit that obtained seq.
	Put(ctx context.Context, seq int64, wallets ...domain.Wallet)
}

// Service facilitates ledger service layer logic.
type Service struct {
	store   Store
	cache   Cache
	newTxID func() string
}

// New returns ledger service. cache may be nil.
func New(store Store, cache Cache) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		newTxID: uuid.NewString,
	}
}

func validAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", domain.ErrInvalidAmount, amount)
	}

	if !domain.IsMoney(amount) {
		return fmt.Errorf("%w: %s has more than %d decimal places", domain.ErrInvalidAmount, amount, domain.MoneyPlaces)
	}

	return nil
}

// CreateTransaction moves arg.Amount from the source wallet, if any, to the
// destination wallet and records the movement.
func (s *Service) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if err := validAmount(arg.Amount); err != nil {
		return domain.Transaction{}, err
	}

	if arg.SourceWalletID != nil && *arg.SourceWalletID == arg.DestinationWalletID {
		return domain.Transaction{}, domain.ErrSameWalletTransfer
	}

	ids := []int64{arg.DestinationWalletID}
	if arg.SourceWalletID != nil {
		ids = append(ids, *arg.SourceWalletID)
	}

	var (
		created domain.Transaction
		updated []domain.Wallet
		seq     int64
	)

	err := s.store.ExecTx(ctx, func(tx Tx) error {
		updated = updated[:0]

		wallets, err := tx.LockWallets(ctx, ids...)
		if err != nil {
			return err
		}

		if _, ok := wallets[arg.DestinationWalletID]; !ok {
			return fmt.Errorf("%w: destination id %d", domain.ErrWalletNotFound, arg.DestinationWalletID)
		}

		if arg.SourceWalletID != nil {
			source, ok := wallets[*arg.SourceWalletID]
			if !ok {
				return fmt.Errorf("%w: source id %d", domain.ErrWalletNotFound, *arg.SourceWalletID)
			}

			if source.Balance.LessThan(arg.Amount) {
				return fmt.Errorf("%w: wallet %d has %s, need %s", domain.ErrInsufficientFunds,
					source.ID, source.Balance.StringFixed(domain.MoneyPlaces), arg.Amount.StringFixed(domain.MoneyPlaces))
			}
		}

		seq = s.sequence(ctx)

		if arg.SourceWalletID != nil {
			w, err := tx.AddBalance(ctx, *arg.SourceWalletID, arg.Amount.Neg())
			if err != nil {
				return err
			}

			updated = append(updated, w)
		}

		w, err := tx.AddBalance(ctx, arg.DestinationWalletID, arg.Amount)
		if err != nil {
			return err
		}

		updated = append(updated, w)

		created, err = tx.CreateTransaction(ctx, domain.InsertTransactionParams{
			SourceWalletID:      arg.SourceWalletID,
			DestinationWalletID: arg.DestinationWalletID,
			Amount:              arg.Amount,
			TxID:                s.newTxID(),
		})

		return err
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.writeThrough(ctx, seq, updated)

	return created, nil
}

// DeleteTransaction removes the transaction and reverses its effect on wallet
// balances.
//
// Deletion is refused with an error matching both domain.ErrConflict and
// domain.ErrNegativeBalance when the destination wallet no longer holds
// enough funds to give the amount back.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	var (
		deleted domain.Transaction
		updated []domain.Wallet
		seq     int64
	)

	err := s.store.ExecTx(ctx, func(tx Tx) error {
		updated = updated[:0]

		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}

		wallets, err := tx.LockWallets(ctx, t.WalletIDs()...)
		if err != nil {
			return err
		}

		// Re-read under the locks: a concurrent unit or wallet deletion may
		// have removed the record in the meantime.
		deleted, err = tx.DeleteTransaction(ctx, id)
		if err != nil {
			return err
		}

		destination, ok := wallets[deleted.DestinationWalletID]
		if !ok {
			return fmt.Errorf("%w: destination id %d", domain.ErrWalletNotFound, deleted.DestinationWalletID)
		}

		if destination.Balance.LessThan(deleted.Amount) {
			return fmt.Errorf("%w: %w: wallet %d has %s, reversal needs %s", domain.ErrConflict, domain.ErrNegativeBalance,
				destination.ID, destination.Balance.StringFixed(domain.MoneyPlaces), deleted.Amount.StringFixed(domain.MoneyPlaces))
		}

		seq = s.sequence(ctx)

		w, err := tx.AddBalance(ctx, destination.ID, deleted.Amount.Neg())
		if err != nil {
			if errors.Is(err, domain.ErrNegativeBalance) {
				return fmt.Errorf("%w: %w", domain.ErrConflict, err)
			}

			return err
		}

		updated = append(updated, w)

		if deleted.SourceWalletID != nil {
			w, err := tx.AddBalance(ctx, *deleted.SourceWalletID, deleted.Amount)
			if err != nil {
				return err
			}

			updated = append(updated, w)
		}

		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	s.writeThrough(ctx, seq, updated)

	return deleted, nil
}

func (s *Service) sequence(ctx context.Context) int64 {
	if s.cache == nil {
		return 0
	}

	return s.cache.Sequence(ctx)
}

// writeThrough runs after commit, so it must not depend on the caller still
// waiting for the result.
func (s *Service) writeThrough(ctx context.Context, seq int64, wallets []domain.Wallet) {
	if s.cache != nil {
		s.cache.Put(context.WithoutCancel(ctx), seq, wallets...)
	}
}
