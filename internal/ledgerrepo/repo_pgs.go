// Package ledgerrepo provides the Postgres atomic unit used by the ledger.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/internal/walletrepo"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS runs ledger units inside Postgres transactions.
type RepoPGS struct {
	conn *sql.DB
}

// NewRepoPGS returns ledger RepoPGS.
func NewRepoPGS(conn *sql.DB) *RepoPGS {
	return &RepoPGS{conn: conn}
}

// ExecTx runs fn within a single database transaction.
//
// The transaction is committed only if fn returns nil; otherwise it is rolled
// back and the error of fn is returned as is.
func (r *RepoPGS) ExecTx(ctx context.Context, fn func(tx ledgerservice.Tx) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	unit := &txRepo{
		wallets:      walletrepo.NewTxRepoPGS(tx),
		transactions: transactionrepo.NewRepoPGS(tx),
	}

	if err := fn(unit); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if dbpkg.IsRetryable(err) {
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}

		l.Error().Err(err).Send()

		return errorspkg.ErrInternal
	}

	return nil
}

// txRepo binds wallet and transaction repositories to one database transaction.
type txRepo struct {
	wallets      *walletrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
	locked       bool
}

func (t *txRepo) LockWallets(ctx context.Context, ids ...int64) (map[int64]domain.Wallet, error) {
	if t.locked {
		return nil, errors.New("ledgerrepo: wallets already locked in this transaction")
	}

	t.locked = true

	return t.wallets.Lock(ctx, ids...)
}

func (t *txRepo) AddBalance(ctx context.Context, id int64, delta decimal.Decimal) (domain.Wallet, error) {
	return t.wallets.AddBalance(ctx, id, delta)
}

func (t *txRepo) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return t.transactions.Get(ctx, id)
}

func (t *txRepo) CreateTransaction(ctx context.Context, arg domain.InsertTransactionParams) (domain.Transaction, error) {
	return t.transactions.Create(ctx, arg)
}

func (t *txRepo) DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	return t.transactions.Delete(ctx, id)
}
