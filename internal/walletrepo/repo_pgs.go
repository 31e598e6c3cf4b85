// Package walletrepo manages repository layer of wallets.
package walletrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates wallet repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns wallet RepoPGS bound to an open database transaction.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns wallet RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const walletColumns = `id, label, balance, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanWallet(row scanner) (domain.Wallet, error) {
	var w domain.Wallet

	err := row.Scan(
		&w.ID,
		&w.Label,
		&w.Balance,
		&w.CreatedAt,
	)

	return w, err
}

const createQuery = `
INSERT INTO
    wallets (label, balance)
VALUES
    ($1, $2)
RETURNING ` + walletColumns

// Create creates the wallet and then returns it.
func (r *RepoPGS) Create(ctx context.Context, label string, balance decimal.Decimal) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	w, err := scanWallet(r.db.QueryRowContext(ctx, createQuery, label, balance))
	if err != nil {
		if dbpkg.Constraint(err) == "wallets_balance_check" || dbpkg.IsNumericOverflow(err) {
			return domain.Wallet{}, domain.ErrInvalidBalance
		}

		l.Error().Err(err).Msgf("Create(ctx, %q, %s)", label, balance)

		return domain.Wallet{}, errorspkg.ErrInternal
	}

	return w, nil
}

const getQuery = `
SELECT ` + walletColumns + `
FROM wallets
WHERE id = $1
`

// Get returns the wallet with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	w, err := scanWallet(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wallet{}, fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
		}

		l.Error().Err(err).Send()

		return domain.Wallet{}, errorspkg.ErrInternal
	}

	return w, nil
}

const lockQuery = `
SELECT ` + walletColumns + `
FROM wallets
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE
`

// Lock locks the rows of the given wallets until the surrounding transaction ends
// and returns the wallets found, keyed by id.
//
// Rows are locked in ascending id order so that concurrent transactions
// touching the same wallets cannot deadlock.
func (r *RepoPGS) Lock(ctx context.Context, ids ...int64) (map[int64]domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, lockQuery, pq.Array(ids))
	if err != nil {
		return nil, r.mapTxError(l, err)
	}
	defer rows.Close()

	wallets := make(map[int64]domain.Wallet, len(ids))

	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		wallets[w.ID] = w
	}

	if err := rows.Err(); err != nil {
		return nil, r.mapTxError(l, err)
	}

	return wallets, nil
}

const addBalanceQuery = `
UPDATE wallets
SET balance = balance + $1
WHERE id = $2
RETURNING ` + walletColumns

// AddBalance changes the wallet's balance by delta and returns the changed wallet.
func (r *RepoPGS) AddBalance(ctx context.Context, id int64, delta decimal.Decimal) (domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	w, err := scanWallet(r.db.QueryRowContext(ctx, addBalanceQuery, delta, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wallet{}, fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
		}

		if dbpkg.Constraint(err) == "wallets_balance_check" {
			return domain.Wallet{}, fmt.Errorf("%w: wallet %d by %s", domain.ErrNegativeBalance, id, delta)
		}

		if dbpkg.IsNumericOverflow(err) {
			return domain.Wallet{}, fmt.Errorf("%w: wallet %d balance out of range by %s", domain.ErrInvalidAmount, id, delta)
		}

		return domain.Wallet{}, r.mapTxError(l, err)
	}

	return w, nil
}

const (
	deleteTransactionsQuery = `
DELETE FROM transactions
WHERE source_wallet_id = $1 OR destination_wallet_id = $1
`
	deleteQuery = `
DELETE FROM wallets
WHERE id = $1
`
)

// Delete removes the wallet with the given id together with every transaction
// that references it, within a single db transaction.
//
// Balances of the counterpart wallets are left untouched.
func (r *RepoPGS) Delete(ctx context.Context, id int64) error {
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

	locked, err := NewTxRepoPGS(tx).Lock(ctx, id)
	if err != nil {
		return err
	}

	if _, ok := locked[id]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrWalletNotFound, id)
	}

	if _, err := tx.ExecContext(ctx, deleteTransactionsQuery, id); err != nil {
		return r.mapTxError(l, err)
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
		return r.mapTxError(l, err)
	}

	if err := tx.Commit(); err != nil {
		return r.mapTxError(l, err)
	}

	return nil
}

func (r *RepoPGS) mapTxError(l *zerolog.Logger, err error) error {
	if dbpkg.IsRetryable(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}

	l.Error().Err(err).Send()

	return errorspkg.ErrInternal
}

const countQuery = `
SELECT count(*)
FROM wallets
WHERE $1 = '' OR label ILIKE '%' || $1 || '%'
`

// Count returns the number of wallets whose label contains the given substring.
func (r *RepoPGS) Count(ctx context.Context, label string) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := r.db.QueryRowContext(ctx, countQuery, dbpkg.EscapeLike(label)).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}

const listQuery = `
SELECT ` + walletColumns + `
FROM wallets
WHERE $1 = '' OR label ILIKE '%' || $1 || '%'
ORDER BY
    CASE WHEN $2 = 'desc' THEN balance END DESC,
    CASE WHEN $2 <> 'desc' THEN balance END ASC,
    id
LIMIT $3 OFFSET $4
`

// List returns one page of wallets filtered by label and sorted by balance.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListWalletsParams) ([]domain.Wallet, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, dbpkg.EscapeLike(arg.Label), string(arg.Sort), arg.Limit, arg.Offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Wallet{}

	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, w)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
