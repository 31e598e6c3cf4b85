// Package transactionrepo manages repository layer of transactions.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const transactionColumns = `id, source_wallet_id, destination_wallet_id, amount, txid, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t      domain.Transaction
		source sql.NullInt64
	)

	err := row.Scan(
		&t.ID,
		&source,
		&t.DestinationWalletID,
		&t.Amount,
		&t.TxID,
		&t.CreatedAt,
	)

	if source.Valid {
		t.SourceWalletID = &source.Int64
	}

	return t, err
}

func nullable(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: *id, Valid: true}
}

const createQuery = `
INSERT INTO
    transactions (source_wallet_id, destination_wallet_id, amount, txid)
VALUES
    ($1, $2, $3, $4)
RETURNING ` + transactionColumns

// Create creates the transaction record and then returns it.
//
// Create does not touch wallet balances.
func (r *RepoPGS) Create(ctx context.Context, arg domain.InsertTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		nullable(arg.SourceWalletID),
		arg.DestinationWalletID,
		arg.Amount,
		arg.TxID,
	)

	t, err := scanTransaction(row)
	if err != nil {
		switch dbpkg.Constraint(err) {
		case "transactions_source_wallet_id_fkey", "transactions_destination_wallet_id_fkey":
			return domain.Transaction{}, domain.ErrWalletNotFound
		case "transactions_amount_check":
			return domain.Transaction{}, domain.ErrInvalidAmount
		case "transactions_distinct_wallets_check":
			return domain.Transaction{}, domain.ErrSameWalletTransfer
		}

		if dbpkg.IsRetryable(err) {
			return domain.Transaction{}, fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}

		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

const deleteQuery = `
DELETE FROM transactions
WHERE id = $1
RETURNING ` + transactionColumns

// Delete removes the transaction record and returns it as it was before removal.
func (r *RepoPGS) Delete(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, deleteQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
		}

		if dbpkg.IsRetryable(err) {
			return domain.Transaction{}, fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

const filter = `
WHERE
    ($1::bigint IS NULL OR source_wallet_id = $1 OR destination_wallet_id = $1) AND
    ($2 = '' OR txid ILIKE '%' || $2 || '%')
`

const countQuery = `
SELECT count(*)
FROM transactions
` + filter

// Count returns the number of transactions matching the filters of arg.
func (r *RepoPGS) Count(ctx context.Context, arg domain.ListTransactionsParams) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64

	err := r.db.QueryRowContext(ctx, countQuery, nullable(arg.WalletID), dbpkg.EscapeLike(arg.TxID)).Scan(&n)
	if err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}

const listQuery = `
SELECT ` + transactionColumns + `
FROM transactions
` + filter + `
ORDER BY
    CASE WHEN $3 = 'desc' THEN amount END DESC,
    CASE WHEN $3 <> 'desc' THEN amount END ASC,
    id
LIMIT $4 OFFSET $5
`

// List returns one page of transactions filtered by wallet and txid and sorted by amount.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery,
		nullable(arg.WalletID),
		dbpkg.EscapeLike(arg.TxID),
		string(arg.Sort),
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
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
