// Package transactiondelivery manages delivery layer of transactions.
package transactiondelivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Ledger provides the ledger operations needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Ledger interface {
	CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) (domain.Transaction, error)
}

// Service provides the read operations needed by transaction delivery layer.
type Service interface {
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	List(ctx context.Context, walletID *int64, txid string, sort domain.SortOrder, pageSize, pageID int32) ([]domain.Transaction, int64, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	ledger  Ledger
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ledger Ledger, ts Service) *Handler {
	return &Handler{
		ledger:  ledger,
		service: ts,
	}
}

// Transaction is the JSON representation of a transaction.
type Transaction struct {
	ID                  int64     `json:"id"`
	SourceWalletID      *int64    `json:"source_wallet_id"`
	DestinationWalletID int64     `json:"destination_wallet_id"`
	Amount              string    `json:"amount"`
	TxID                string    `json:"txid"`
	Timestamp           time.Time `json:"timestamp"`
}

// NewTransaction renders t with a fixed two-digit amount.
func NewTransaction(t domain.Transaction) Transaction {
	return Transaction{
		ID:                  t.ID,
		SourceWalletID:      t.SourceWalletID,
		DestinationWalletID: t.DestinationWalletID,
		Amount:              t.Amount.StringFixed(domain.MoneyPlaces),
		TxID:                t.TxID,
		Timestamp:           t.CreatedAt,
	}
}

type createRequest struct {
	SourceWalletID      *int64      `json:"source_wallet_id" binding:"omitempty,min=1"`
	DestinationWalletID int64       `json:"destination_wallet_id" binding:"required,min=1"`
	Amount              json.Number `json:"amount" binding:"required,money"`
}

// Create handles http request to move funds into a wallet.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	amount, _ := moneypkg.Parse(req.Amount.String())

	arg := domain.CreateTransactionParams{
		SourceWalletID:      req.SourceWalletID,
		DestinationWalletID: req.DestinationWalletID,
		Amount:              amount,
	}

	t, err := h.ledger.CreateTransaction(ctx, arg)
	if err != nil {
		l.Info().Err(err).Send()

		switch {
		case
			errors.Is(err, domain.ErrWalletNotFound),
			errors.Is(err, domain.ErrInvalidAmount),
			errors.Is(err, domain.ErrSameWalletTransfer),
			errors.Is(err, domain.ErrInsufficientFunds),
			errors.Is(err, domain.ErrNegativeBalance):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		case errors.Is(err, domain.ErrConflict):
			gctx.JSON(http.StatusConflict, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusCreated, NewTransaction(t))
}

type uriRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// Get handles http request to get transaction.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusNotFound, web.Error(domain.ErrTransactionNotFound))

		return
	}

	t, err := h.service.Get(ctx, req.ID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			gctx.JSON(http.StatusNotFound, web.Error(domain.ErrTransactionNotFound))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, NewTransaction(t))
}

type listRequest struct {
	web.PageQuery
	WalletID *int64 `form:"wallet" binding:"omitempty,min=1"`
	TxID     string `form:"txid"`
	Sort     string `form:"sort" binding:"omitempty,oneof=asc desc"`
}

// List handles http request to list transactions.
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

	transactions, count, err := h.service.List(ctx, req.WalletID, req.TxID, domain.SortOrder(req.Sort), req.PageSize, req.Page)
	if err != nil {
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		return
	}

	if req.OutOfRange(count) {
		gctx.JSON(http.StatusNotFound, web.Error(web.ErrInvalidPage))
		return
	}

	results := make([]Transaction, len(transactions))
	for i, t := range transactions {
		results[i] = NewTransaction(t)
	}

	gctx.JSON(http.StatusOK, web.NewPage(gctx.Request.URL, count, req.Page, req.PageSize, results))
}

// Delete handles http request to delete a transaction and reverse its effect on balances.
func (h *Handler) Delete(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req uriRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusNotFound, web.Error(domain.ErrTransactionNotFound))

		return
	}

	if _, err := h.ledger.DeleteTransaction(ctx, req.ID); err != nil {
		l.Info().Err(err).Send()

		switch {
		case errors.Is(err, domain.ErrTransactionNotFound):
			gctx.JSON(http.StatusNotFound, web.Error(domain.ErrTransactionNotFound))
		case errors.Is(err, domain.ErrConflict):
			gctx.JSON(http.StatusConflict, web.Error(err))
		case errors.Is(err, domain.ErrInvalidAmount):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.Status(http.StatusNoContent)
}
