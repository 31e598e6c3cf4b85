//go:build integration

package walletrepo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/integrationtest"
	"github.com/go-petr/pet-ledger/internal/test"
	"github.com/go-petr/pet-ledger/internal/walletrepo"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

var dbSource string

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	source, terminate, err := integrationtest.StartPostgres(context.Background(), integrationtest.MigrationURL)
	if err != nil {
		log.Println("cannot start postgres:", err)
		return 1
	}
	defer terminate()

	dbSource = source

	return m.Run()
}

var equateDecimal = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestCreate(t *testing.T) {
	ctx := context.Background()
	tx := integrationtest.SetupTX(t, dbSource)
	repo := walletrepo.NewTxRepoPGS(tx)

	label := randompkg.Label()
	balance := randompkg.MoneyAmountBetween(0, 1000)

	got, err := repo.Create(ctx, label, balance)
	require.NoError(t, err)
	require.NotZero(t, got.ID)
	require.NotZero(t, got.CreatedAt)
	require.Equal(t, label, got.Label)
	require.True(t, got.Balance.Equal(balance))

	fetched, err := repo.Get(ctx, got.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(got, fetched, equateDecimal, cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	_, err = repo.Create(ctx, label, decimal.RequireFromString("-1"))
	require.ErrorIs(t, err, domain.ErrInvalidBalance)
}

func TestGetNotFound(t *testing.T) {
	repo := walletrepo.NewTxRepoPGS(integrationtest.SetupTX(t, dbSource))

	_, err := repo.Get(context.Background(), 1<<40)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestLockAndAddBalance(t *testing.T) {
	ctx := context.Background()
	tx := integrationtest.SetupTX(t, dbSource)
	repo := walletrepo.NewTxRepoPGS(tx)

	a := test.SeedWallet(t, tx, "10.00")
	b := test.SeedWallet(t, tx, "0.00")

	locked, err := repo.Lock(ctx, b.ID, a.ID, 1<<40)
	require.NoError(t, err)
	require.Len(t, locked, 2)
	require.True(t, locked[a.ID].Balance.Equal(a.Balance))

	got, err := repo.AddBalance(ctx, a.ID, decimal.RequireFromString("-10.00"))
	require.NoError(t, err)
	require.True(t, got.Balance.IsZero())

	_, err = repo.AddBalance(ctx, 1<<40, decimal.RequireFromString("1"))
	require.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestAddBalanceNegative(t *testing.T) {
	ctx := context.Background()
	tx := integrationtest.SetupTX(t, dbSource)
	repo := walletrepo.NewTxRepoPGS(tx)

	a := test.SeedWallet(t, tx, "10.00")

	// A failed statement aborts the surrounding db transaction, so it goes last.
	_, err := repo.AddBalance(ctx, a.ID, decimal.RequireFromString("-10.01"))
	require.ErrorIs(t, err, domain.ErrNegativeBalance)
}

func TestAddBalanceOutOfRange(t *testing.T) {
	ctx := context.Background()
	tx := integrationtest.SetupTX(t, dbSource)
	repo := walletrepo.NewTxRepoPGS(tx)

	a := test.SeedWallet(t, tx, "9999999999999999.00")

	_, err := repo.AddBalance(ctx, a.ID, decimal.RequireFromString("1.00"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := integrationtest.SetupDB(t, dbSource)
	repo := walletrepo.NewRepoPGS(db)

	a := test.SeedWalletWith1000Balance(t, db)
	b := test.SeedWalletWith1000Balance(t, db)
	c := test.SeedWalletWith1000Balance(t, db)

	test.SeedTransaction(t, db, &a.ID, b.ID, "1.00")
	test.SeedTransaction(t, db, &b.ID, a.ID, "2.00")
	kept := test.SeedTransaction(t, db, &b.ID, c.ID, "3.00")

	require.NoError(t, repo.Delete(ctx, a.ID))
	require.ErrorIs(t, repo.Delete(ctx, a.ID), domain.ErrWalletNotFound)

	_, err := repo.Get(ctx, a.ID)
	require.ErrorIs(t, err, domain.ErrWalletNotFound)

	var txids []string

	rows, err := db.QueryContext(ctx, `SELECT txid FROM transactions ORDER BY id`)
	require.NoError(t, err)

	defer rows.Close()

	for rows.Next() {
		var txid string
		require.NoError(t, rows.Scan(&txid))

		txids = append(txids, txid)
	}

	require.NoError(t, rows.Err())
	require.Equal(t, []string{kept.TxID}, txids)

	// Counterpart balances are untouched.
	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(b.Balance))
}

func TestList(t *testing.T) {
	ctx := context.Background()
	tx := integrationtest.SetupTX(t, dbSource)
	repo := walletrepo.NewTxRepoPGS(tx)

	prefix := randompkg.String(10)

	create := func(label, balance string) domain.Wallet {
		w, err := repo.Create(ctx, label, decimal.RequireFromString(balance))
		require.NoError(t, err)

		return w
	}

	low := create(prefix+"-Low", "1.00")
	high := create(prefix+"-high", "300.00")
	mid := create(prefix+"-mid", "20.00")
	create("100%_"+prefix, "5.00")

	testCases := []struct {
		name      string
		arg       domain.ListWalletsParams
		wantIDs   []int64
		wantCount int64
	}{
		{
			name:      "Asc",
			arg:       domain.ListWalletsParams{Label: prefix + "-", Limit: 10},
			wantIDs:   []int64{low.ID, mid.ID, high.ID},
			wantCount: 3,
		},
		{
			name:      "Desc",
			arg:       domain.ListWalletsParams{Label: prefix + "-", Sort: domain.SortDesc, Limit: 10},
			wantIDs:   []int64{high.ID, mid.ID, low.ID},
			wantCount: 3,
		},
		{
			name:      "CaseInsensitive",
			arg:       domain.ListWalletsParams{Label: prefix + "-LOW", Limit: 10},
			wantIDs:   []int64{low.ID},
			wantCount: 1,
		},
		{
			name:      "Paged",
			arg:       domain.ListWalletsParams{Label: prefix + "-", Limit: 2, Offset: 2},
			wantIDs:   []int64{high.ID},
			wantCount: 3,
		},
		{
			name:      "WildcardsAreLiteral",
			arg:       domain.ListWalletsParams{Label: "%_" + prefix, Limit: 10},
			wantCount: 1,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.List(ctx, tc.arg)
			require.NoError(t, err)

			if tc.wantIDs != nil {
				ids := make([]int64, len(got))
				for i, w := range got {
					ids[i] = w.ID
				}

				require.Equal(t, tc.wantIDs, ids)
			}

			count, err := repo.Count(ctx, tc.arg.Label)
			require.NoError(t, err)
			require.Equal(t, tc.wantCount, count)
		})
	}
}
