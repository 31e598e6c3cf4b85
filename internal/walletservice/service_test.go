package walletservice

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/test"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

var equateDecimal = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestCreate(t *testing.T) {
	testWallet := test.RandomWallet()

	testCases := []struct {
		name       string
		balance    decimal.Decimal
		buildStubs func(repo *MockRepo)
		wantErr    error
	}{
		{
			name:    "NegativeBalance",
			balance: decimal.RequireFromString("-0.01"),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidBalance,
		},
		{
			name:    "TooManyDecimalPlaces",
			balance: decimal.RequireFromString("1.005"),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidBalance,
		},
		{
			name:    "RepoError",
			balance: testWallet.Balance,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), testWallet.Label, gomock.Any()).Times(1).
					Return(domain.Wallet{}, errorspkg.ErrInternal)
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name:    "ZeroBalance",
			balance: decimal.Zero,
			buildStubs: func(repo *MockRepo) {
				w := testWallet
				w.Balance = decimal.Zero

				repo.EXPECT().Create(gomock.Any(), testWallet.Label, decimal.Zero).Times(1).Return(w, nil)
			},
		},
		{
			name:    "OK",
			balance: testWallet.Balance,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), testWallet.Label, testWallet.Balance).Times(1).
					Return(testWallet, nil)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			tc.buildStubs(repo)

			got, err := New(repo, nil).Create(context.Background(), testWallet.Label, tc.balance)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Empty(t, got)

				return
			}

			require.NoError(t, err)
			require.Equal(t, testWallet.Label, got.Label)
			require.True(t, got.Balance.Equal(tc.balance))
		})
	}
}

func TestGet(t *testing.T) {
	testWallet := test.RandomWallet()

	testCases := []struct {
		name       string
		buildStubs func(repo *MockRepo, cache *MockCache)
		want       domain.Wallet
		wantErr    error
	}{
		{
			name: "CacheHit",
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).Return(testWallet, true, nil)
				repo.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
				cache.EXPECT().Add(gomock.Any(), gomock.Any()).Times(0)
			},
			want: testWallet,
		},
		{
			name: "CacheMiss",
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).Return(domain.Wallet{}, false, nil)
				repo.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).Return(testWallet, nil)
				cache.EXPECT().Add(gomock.Any(), testWallet).Times(1)
			},
			want: testWallet,
		},
		{
			name: "NotFound",
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).Return(domain.Wallet{}, false, nil)
				repo.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).
					Return(domain.Wallet{}, domain.ErrWalletNotFound)
				cache.EXPECT().Add(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrWalletNotFound,
		},
		{
			name: "DeletedInCache",
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				cache.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).
					Return(domain.Wallet{}, false, domain.ErrWalletNotFound)
				repo.EXPECT().Get(gomock.Any(), gomock.Any()).Times(0)
				cache.EXPECT().Add(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrWalletNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			cache := NewMockCache(ctrl)
			tc.buildStubs(repo, cache)

			got, err := New(repo, cache).Get(context.Background(), testWallet.ID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)

			if diff := cmp.Diff(tc.want, got, equateDecimal); diff != "" {
				t.Errorf("Get mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetWithoutCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	testWallet := test.RandomWallet()

	repo := NewMockRepo(ctrl)
	repo.EXPECT().Get(gomock.Any(), testWallet.ID).Times(1).Return(testWallet, nil)

	got, err := New(repo, nil).Get(context.Background(), testWallet.ID)
	require.NoError(t, err)
	require.Equal(t, testWallet.ID, got.ID)
}

func TestList(t *testing.T) {
	wallets := []domain.Wallet{test.RandomWallet(), test.RandomWallet()}

	testCases := []struct {
		name       string
		pageSize   int32
		pageID     int32
		buildStubs func(repo *MockRepo)
		wantCount  int64
		wantErr    error
	}{
		{
			name:     "CountError",
			pageSize: 10,
			pageID:   1,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Count(gomock.Any(), "main").Times(1).Return(int64(0), errorspkg.ErrInternal)
				repo.EXPECT().List(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name:     "ListError",
			pageSize: 10,
			pageID:   1,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Count(gomock.Any(), "main").Times(1).Return(int64(2), nil)
				repo.EXPECT().List(gomock.Any(), gomock.Any()).Times(1).Return(nil, errorspkg.ErrInternal)
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name:     "ThirdPage",
			pageSize: 5,
			pageID:   3,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Count(gomock.Any(), "main").Times(1).Return(int64(12), nil)
				repo.EXPECT().List(gomock.Any(), domain.ListWalletsParams{
					Label:  "main",
					Sort:   domain.SortDesc,
					Limit:  5,
					Offset: 10,
				}).Times(1).Return(wallets, nil)
			},
			wantCount: 12,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			tc.buildStubs(repo)

			got, count, err := New(repo, nil).List(context.Background(), "main", domain.SortDesc, tc.pageSize, tc.pageID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCount, count)
			require.Len(t, got, len(wallets))
		})
	}
}

func TestDelete(t *testing.T) {
	testCases := []struct {
		name       string
		buildStubs func(repo *MockRepo, cache *MockCache)
		wantErr    error
	}{
		{
			name: "NotFound",
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				repo.EXPECT().Delete(gomock.Any(), int64(1)).Times(1).Return(domain.ErrWalletNotFound)
				cache.EXPECT().Forget(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrWalletNotFound,
		},
		{
			name: "OK",
			buildStubs: func(repo *MockRepo, cache *MockCache) {
				repo.EXPECT().Delete(gomock.Any(), int64(1)).Times(1).Return(nil)
				cache.EXPECT().Forget(gomock.Any(), int64(1)).Times(1)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			cache := NewMockCache(ctrl)
			tc.buildStubs(repo, cache)

			err := New(repo, cache).Delete(context.Background(), 1)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}
}
