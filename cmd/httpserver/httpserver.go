// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/ledgerrepo"
	"github.com/go-petr/pet-ledger/internal/ledgerservice"
	"github.com/go-petr/pet-ledger/internal/memstore"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/internal/transactionservice"
	"github.com/go-petr/pet-ledger/internal/walletcache"
	"github.com/go-petr/pet-ledger/internal/walletdelivery"
	"github.com/go-petr/pet-ledger/internal/walletrepo"
	"github.com/go-petr/pet-ledger/internal/walletservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

type backend struct {
	wallets      walletservice.Repo
	transactions transactionservice.Repo
	ledger       ledgerservice.Store
}

func newBackend(conn *sql.DB, config configpkg.Config) (backend, error) {
	switch config.DBDriver {
	case configpkg.DriverMemory:
		store := memstore.New()

		return backend{
			wallets:      store.Wallets(),
			transactions: store.Transactions(),
			ledger:       store,
		}, nil
	case configpkg.DriverPostgres:
		if conn == nil {
			return backend{}, errors.New("postgres backend needs a database connection")
		}

		return backend{
			wallets:      walletrepo.NewRepoPGS(conn),
			transactions: transactionrepo.NewRepoPGS(conn),
			ledger:       ledgerrepo.NewRepoPGS(conn),
		}, nil
	default:
		return backend{}, errors.New("unsupported db driver " + config.DBDriver)
	}
}

// New creates Server type with instantiated domains and routes.
//
// conn is only used by the postgres backend. cacheClient may be nil, in which
// case wallets are always read from the store.
func New(conn *sql.DB, cacheClient *redis.Client, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	b, err := newBackend(conn, config)
	if err != nil {
		return nil, err
	}

	var (
		walletCache walletservice.Cache
		ledgerCache ledgerservice.Cache
	)

	if cacheClient != nil {
		c := walletcache.New(cacheClient, config.WalletCacheTTL)
		walletCache, ledgerCache = c, c
	}

	walletService := walletservice.New(b.wallets, walletCache)
	transactionService := transactionservice.New(b.transactions)
	ledgerService := ledgerservice.New(b.ledger, ledgerCache)

	walletHandler := walletdelivery.NewHandler(walletService)
	transactionHandler := transactiondelivery.NewHandler(ledgerService, transactionService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	server := &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}

	engine.GET("/health", server.health)

	handle(engine, http.MethodPost, "/wallets", walletHandler.Create)
	handle(engine, http.MethodGet, "/wallets", walletHandler.List)
	handle(engine, http.MethodGet, "/wallets/:id", walletHandler.Get)
	handle(engine, http.MethodDelete, "/wallets/:id", walletHandler.Delete)

	handle(engine, http.MethodPost, "/transactions", transactionHandler.Create)
	handle(engine, http.MethodGet, "/transactions", transactionHandler.List)
	handle(engine, http.MethodGet, "/transactions/:id", transactionHandler.Get)
	handle(engine, http.MethodDelete, "/transactions/:id", transactionHandler.Delete)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("money", moneypkg.ValidMoney)
		if err != nil {
			return nil, errors.New("cannot register money validator")
		}
	}

	return server, nil
}

// handle registers h for path both with and without the trailing slash, so
// clients are served directly instead of being redirected.
func handle(engine *gin.Engine, method, path string, h gin.HandlerFunc) {
	engine.Handle(method, path, h)
	engine.Handle(method, path+"/", h)
}

func (s *Server) health(gctx *gin.Context) {
	if s.DB != nil {
		if err := s.DB.PingContext(gctx.Request.Context()); err != nil {
			zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Msg("database is unreachable")
			gctx.JSON(http.StatusServiceUnavailable, web.ErrorMsg("database is unreachable"))

			return
		}
	}

	gctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
