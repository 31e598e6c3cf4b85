// Package walletdelivery manages delivery layer of wallets.
package walletdelivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by wallet delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package walletdelivery
type Service interface {
	Create(ctx context.Context, label string, balance decimal.Decimal) (domain.Wallet, error)
	Get(ctx context.Context, id int64) (domain.Wallet, error)
	List(ctx context.Context, label string, sort domain.SortOrder, pageSize, pageID int32) ([]domain.Wallet, int64, error)
	Delete(ctx context.Context, id int64) error
}

// Handler facilitates wallet delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns wallet handler.
func NewHandler(ws Service) *Handler {
	return &Handler{service: ws}
}

// Wallet is the JSON representation of a wallet.
type Wallet struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Balance string `json:"balance"`
}

// NewWallet renders w with a fixed two-digit balance.
func NewWallet(w domain.Wallet) Wallet {
	return Wallet{
		ID:      w.ID,
		Label:   w.Label,
		Balance: w.Balance.StringFixed(domain.MoneyPlaces),
	}
}

type createRequest struct {
	Label   string      `json:"label" binding:"required,max=255"`
	Balance json.Number `json:"balance" binding:"omitempty,money"`
}

// Create handles http request to create wallet.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	balance := decimal.Zero

	if req.Balance != "" {
		// Shape is already checked by the money validator.
		balance, _ = moneypkg.Parse(req.Balance.String())
	}

	wallet, err := h.service.Create(ctx, req.Label, balance)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidBalance) {
			l.Info().Err(err).Send()
			gctx.JSON(http.StatusBadRequest, web.Error(err))

			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusCreated, NewWallet(wallet))
}

type uriRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get wallet.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusNotFound, web.Error(domain.ErrWalletNotFound))

		return
	}

	wallet, err := h.service.Get(ctx, req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(domain.ErrWalletNotFound))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, NewWallet(wallet))
}

type listRequest struct {
	web.PageQuery
	Label string `form:"label"`
	Sort  string `form:"sort" binding:"omitempty,oneof=asc desc"`
}

// List handles http request to list wallets.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	req.Normalize()

	wallets, count, err := h.service.List(ctx, req.Label, domain.SortOrder(req.Sort), req.PageSize, req.Page)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	if req.OutOfRange(count) {
		gctx.JSON(http.StatusNotFound, web.Error(web.ErrInvalidPage))
		return
	}

	results := make([]Wallet, len(wallets))
	for i, w := range wallets {
		results[i] = NewWallet(w)
	}

	gctx.JSON(http.StatusOK, web.NewPage(gctx.Request.URL, count, req.Page, req.PageSize, results))
}

// Delete handles http request to delete wallet and its transactions.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusNotFound, web.Error(domain.ErrWalletNotFound))

		return
	}

	if err := h.service.Delete(ctx, req.ID); err != nil {
		switch {
		case errors.Is(err, domain.ErrWalletNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(domain.ErrWalletNotFound))
		case errors.Is(err, domain.ErrConflict):
			gctx.JSON(http.StatusConflict, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.Status(http.StatusNoContent)
}
