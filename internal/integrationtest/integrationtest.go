// Package integrationtest provides db helpers used in integration tests.
//
// A package under test calls StartPostgres from its TestMain to get a
// disposable, migrated database shared by the package's tests.
package integrationtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"

	// Postgres driver for database/sql.
	_ "github.com/lib/pq"
)

// MigrationURL points to the migrations from a package two levels below the
// module root, e.g. internal/walletrepo.
const MigrationURL = "file://../../configs/db/migration"

// StartPostgres runs a PostgreSQL container, applies the migrations found at
// migrationURL and returns its connection string with a terminate function.
func StartPostgres(ctx context.Context, migrationURL string) (string, func(), error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pet_ledger"),
		tcpostgres.WithUsername("root"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}

	terminate := func() { _ = container.Terminate(context.Background()) }

	source, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("container connection string: %w", err)
	}

	db, err := dbpkg.Setup(configpkg.DriverPostgres, source)
	if err != nil {
		terminate()
		return "", nil, err
	}
	defer db.Close()

	if err := dbpkg.Migrate(db, migrationURL); err != nil {
		terminate()
		return "", nil, err
	}

	return source, terminate, nil
}

// Flush flushes all db tables without droping.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables sql.NullString

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name <> 'schema_migrations';`

	if err := db.QueryRow(query).Scan(&tables); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if !tables.Valid {
		return
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables.String + ` RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB sets up connection with database for testing and then cleans it.
func SetupDB(t *testing.T, source string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(configpkg.DriverPostgres, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T, source string) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(configpkg.DriverPostgres, source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}

		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}

// SetupServer returns a postgres backed test server that cleans up database
// after the test.
func SetupServer(t *testing.T, source string) *httpserver.Server {
	t.Helper()

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	config := configpkg.Config{
		DBDriver:    configpkg.DriverPostgres,
		DBSource:    source,
		Environment: "test",
	}

	db := SetupDB(t, source)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, nil, zerolog.Nop(), config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, nil, logger, config) returned error: %v`, err)
	}

	return server
}
