// Package walletservice manages business logic layer of wallets.
package walletservice

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Repo provides data access layer interface needed by wallet service layer.
//
// It deliberately has no way to change a balance; see ledgerservice.
//
//go:generate mockgen -source service.go -destination service_mock.go -package walletservice
type Repo interface {
	Create(ctx context.Context, label string, balance decimal.Decimal) (domain.Wallet, error)
	Get(ctx context.Context, id int64) (domain.Wallet, error)
	Count(ctx context.Context, label string) (int64, error)
	List(ctx context.Context, arg domain.ListWalletsParams) ([]domain.Wallet, error)
	Delete(ctx context.Context, id int64) error
}

// Cache provides optional read-through caching of wallets.
type Cache interface {
	// Get reports a cached wallet. A wallet known to be deleted is returned
	// as domain.ErrWalletNotFound.
	Get(ctx context.Context, id int64) (domain.Wallet, bool, error)
	// Add caches a wallet read from the store unless a newer entry exists.
	Add(ctx context.Context, w domain.Wallet)
	// Forget marks the wallet as deleted.
	Forget(ctx context.Context, id int64)
}

// Service facilitates wallet service layer logic.
type Service struct {
	repo  Repo
	cache Cache
}

// New returns wallet service struct to manage wallet bussines logic. cache may be nil.
func New(wr Repo, cache Cache) *Service {
	return &Service{repo: wr, cache: cache}
}

// Create creates and returns a wallet with the given label and initial balance.
func (s *Service) Create(ctx context.Context, label string, balance decimal.Decimal) (domain.Wallet, error) {
	if balance.IsNegative() {
		return domain.Wallet{}, fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidBalance, balance)
	}

	if !domain.IsMoney(balance) {
		return domain.Wallet{}, fmt.Errorf("%w: %s has more than %d decimal places",
			domain.ErrInvalidBalance, balance, domain.MoneyPlaces)
	}

	wallet, err := s.repo.Create(ctx, label, balance)
	if err != nil {
		return domain.Wallet{}, err
	}

	return wallet, nil
}

// Get returns wallet for the given wallet ID.
func (s *Service) Get(ctx context.Context, id int64) (domain.Wallet, error) {
	if s.cache != nil {
		wallet, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			return domain.Wallet{}, err
		}

		if ok {
			return wallet, nil
		}
	}

	wallet, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Wallet{}, err
	}

	if s.cache != nil {
		s.cache.Add(ctx, wallet)
	}

	return wallet, nil
}

// List returns the pageID page of wallets whose label contains label,
// together with the total number of matching wallets.
func (s *Service) List(ctx context.Context, label string, sort domain.SortOrder, pageSize, pageID int32) ([]domain.Wallet, int64, error) {
	count, err := s.repo.Count(ctx, label)
	if err != nil {
		return nil, 0, err
	}

	arg := domain.ListWalletsParams{
		Label:  label,
		Sort:   sort,
		Limit:  pageSize,
		Offset: (pageID - 1) * pageSize,
	}

	wallets, err := s.repo.List(ctx, arg)
	if err != nil {
		return nil, 0, err
	}

	return wallets, count, nil
}

// Delete removes the wallet and every transaction referencing it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.Forget(context.WithoutCancel(ctx), id)
	}

	return nil
}
