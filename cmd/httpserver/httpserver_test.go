package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/internal/walletdelivery"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

func newMemoryServer(t *testing.T, withCache bool) *httpserver.Server {
	t.Helper()

	config := configpkg.Config{
		DBDriver:       configpkg.DriverMemory,
		WalletCacheTTL: time.Minute,
		Environment:    "test",
	}

	var client *redis.Client

	if withCache {
		mr := miniredis.RunT(t)
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
	}

	server, err := httpserver.New(nil, client, zerolog.Nop(), config)
	require.NoError(t, err)

	return server
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	h.ServeHTTP(recorder, req)

	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &v), recorder.Body.String())

	return v
}

func createWallet(t *testing.T, h http.Handler, label, balance string) walletdelivery.Wallet {
	t.Helper()

	recorder := do(t, h, http.MethodPost, "/wallets/", map[string]any{"label": label, "balance": balance})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	return decode[walletdelivery.Wallet](t, recorder)
}

func requireBalance(t *testing.T, h http.Handler, id int64, want string) {
	t.Helper()

	recorder := do(t, h, http.MethodGet, fmt.Sprintf("/wallets/%d/", id), nil)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	require.Equal(t, want, decode[walletdelivery.Wallet](t, recorder).Balance)
}

func transfer(t *testing.T, h http.Handler, source *int64, destination int64, amount string) *httptest.ResponseRecorder {
	t.Helper()

	return do(t, h, http.MethodPost, "/transactions/", map[string]any{
		"source_wallet_id":      source,
		"destination_wallet_id": destination,
		"amount":                amount,
	})
}

// testLedgerAPI runs the ledger scenarios against a freshly created server.
func testLedgerAPI(t *testing.T, h http.Handler) {
	t.Run("Transfer", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "100")
		b := createWallet(t, h, randompkg.Label(), "0")

		recorder := transfer(t, h, &a.ID, b.ID, "40")
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		tr := decode[transactiondelivery.Transaction](t, recorder)
		require.NotEmpty(t, tr.TxID)
		require.Equal(t, "40.00", tr.Amount)
		require.Equal(t, a.ID, *tr.SourceWalletID)

		requireBalance(t, h, a.ID, "60.00")
		requireBalance(t, h, b.ID, "40.00")

		recorder = do(t, h, http.MethodGet, fmt.Sprintf("/transactions/%d/", tr.ID), nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		require.Equal(t, tr.TxID, decode[transactiondelivery.Transaction](t, recorder).TxID)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "10")
		b := createWallet(t, h, randompkg.Label(), "0")

		recorder := transfer(t, h, &a.ID, b.ID, "50")
		require.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())

		requireBalance(t, h, a.ID, "10.00")
		requireBalance(t, h, b.ID, "0.00")
	})

	t.Run("SameWallet", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "10")

		recorder := transfer(t, h, &a.ID, a.ID, "10")
		require.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())

		requireBalance(t, h, a.ID, "10.00")
	})

	t.Run("UnknownWallet", func(t *testing.T) {
		b := createWallet(t, h, randompkg.Label(), "0")
		missing := b.ID + 1_000_000

		recorder := transfer(t, h, &missing, b.ID, "1")
		require.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())

		recorder = do(t, h, http.MethodGet, fmt.Sprintf("/wallets/%d/", missing), nil)
		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("Deposit", func(t *testing.T) {
		b := createWallet(t, h, randompkg.Label(), "1.50")

		recorder := transfer(t, h, nil, b.ID, "25")
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
		require.Nil(t, decode[transactiondelivery.Transaction](t, recorder).SourceWalletID)

		requireBalance(t, h, b.ID, "26.50")
	})

	t.Run("Reversal", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "100")
		b := createWallet(t, h, randompkg.Label(), "5")

		recorder := transfer(t, h, &a.ID, b.ID, "30")
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		tr := decode[transactiondelivery.Transaction](t, recorder)
		path := fmt.Sprintf("/transactions/%d/", tr.ID)

		require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, path, nil).Code)

		requireBalance(t, h, a.ID, "100.00")
		requireBalance(t, h, b.ID, "5.00")

		require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, nil).Code)
		require.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, path, nil).Code)
	})

	t.Run("ReversalConflict", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "100")
		b := createWallet(t, h, randompkg.Label(), "0")
		c := createWallet(t, h, randompkg.Label(), "0")

		recorder := transfer(t, h, &a.ID, b.ID, "30")
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		tr := decode[transactiondelivery.Transaction](t, recorder)

		recorder = transfer(t, h, &b.ID, c.ID, "20")
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		recorder = do(t, h, http.MethodDelete, fmt.Sprintf("/transactions/%d/", tr.ID), nil)
		require.Equal(t, http.StatusConflict, recorder.Code, recorder.Body.String())

		requireBalance(t, h, a.ID, "70.00")
		requireBalance(t, h, b.ID, "10.00")
	})

	t.Run("BalanceOutOfRange", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "9999999999999999.00")

		recorder := transfer(t, h, nil, a.ID, "1.00")
		require.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())

		requireBalance(t, h, a.ID, "9999999999999999.00")
	})

	t.Run("MalformedID", func(t *testing.T) {
		for _, path := range []string{"/wallets/abc/", "/transactions/abc/"} {
			recorder := do(t, h, http.MethodGet, path, nil)
			require.Equal(t, http.StatusNotFound, recorder.Code, path)
			require.NotContains(t, recorder.Body.String(), "strconv")
		}
	})

	t.Run("WalletDeletionCascades", func(t *testing.T) {
		a := createWallet(t, h, randompkg.Label(), "100")
		b := createWallet(t, h, randompkg.Label(), "0")

		for _, amount := range []string{"1", "2", "3"} {
			require.Equal(t, http.StatusCreated, transfer(t, h, &a.ID, b.ID, amount).Code)
		}

		listPath := fmt.Sprintf("/transactions/?wallet=%d", b.ID)

		recorder := do(t, h, http.MethodGet, listPath, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		require.EqualValues(t, 3, decode[struct {
			Count int64 `json:"count"`
		}](t, recorder).Count)

		require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, fmt.Sprintf("/wallets/%d/", a.ID), nil).Code)
		require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, fmt.Sprintf("/wallets/%d/", a.ID), nil).Code)

		recorder = do(t, h, http.MethodGet, listPath, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		require.EqualValues(t, 0, decode[struct {
			Count int64 `json:"count"`
		}](t, recorder).Count)

		// Balances are not reversed by the cascade.
		requireBalance(t, h, b.ID, "6.00")
	})

	t.Run("ListWallets", func(t *testing.T) {
		prefix := randompkg.String(12)

		for _, balance := range []string{"5", "50", "0.50"} {
			createWallet(t, h, prefix+"-"+balance, balance)
		}

		recorder := do(t, h, http.MethodGet, "/wallets/?sort=desc&page_size=2&label="+prefix, nil)
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

		page := decode[struct {
			Count    int64                   `json:"count"`
			Next     *string                 `json:"next"`
			Previous *string                 `json:"previous"`
			Results  []walletdelivery.Wallet `json:"results"`
		}](t, recorder)

		require.EqualValues(t, 3, page.Count)
		require.NotNil(t, page.Next)
		require.Nil(t, page.Previous)
		require.Len(t, page.Results, 2)
		require.Equal(t, "50.00", page.Results[0].Balance)
		require.Equal(t, "5.00", page.Results[1].Balance)

		recorder = do(t, h, http.MethodGet, *page.Next, nil)
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

		recorder = do(t, h, http.MethodGet, "/wallets/?page=3&page_size=2&label="+prefix, nil)
		require.Equal(t, http.StatusNotFound, recorder.Code)
	})

	t.Run("WithoutTrailingSlash", func(t *testing.T) {
		recorder := do(t, h, http.MethodPost, "/wallets", map[string]any{"label": "plain"})
		require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

		w := decode[walletdelivery.Wallet](t, recorder)
		require.Equal(t, "0.00", w.Balance)

		recorder = do(t, h, http.MethodGet, fmt.Sprintf("/wallets/%d", w.ID), nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder = do(t, h, http.MethodGet, "/transactions", nil)
		require.Equal(t, http.StatusOK, recorder.Code)
	})
}

func TestLedgerAPI(t *testing.T) {
	testLedgerAPI(t, newMemoryServer(t, false))
}

func TestLedgerAPIWithWalletCache(t *testing.T) {
	testLedgerAPI(t, newMemoryServer(t, true))
}

func TestHealth(t *testing.T) {
	server := newMemoryServer(t, false)

	recorder := do(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestRequestID(t *testing.T) {
	server := newMemoryServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)

	require.Equal(t, "abc", recorder.Header().Get("X-Request-ID"))

	recorder = do(t, server, http.MethodGet, "/health", nil)
	require.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestNew(t *testing.T) {
	_, err := httpserver.New(nil, nil, zerolog.Nop(), configpkg.Config{DBDriver: configpkg.DriverPostgres})
	require.Error(t, err)

	_, err = httpserver.New(nil, nil, zerolog.Nop(), configpkg.Config{DBDriver: "mysql"})
	require.Error(t, err)
}
