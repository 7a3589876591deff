// Package integration runs the ledger against a real PostgreSQL started
// with testcontainers. Every test is skipped with -short.
package integration

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/settlement/internal/infrastructure/migration"
	"github.com/erp/settlement/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ledgerTables lists every table the migrations create, children first
var ledgerTables = []string{
	"payments",
	"billing_documents",
	"party_accounts",
	"payouts",
	"payment_collections",
	"order_revenues",
}

// postgresContainer is started once per package run and migrated once
var postgresContainer struct {
	once      sync.Once
	container *tcpostgres.PostgresContainer
	dsn       string
	err       error
}

// TestDB is a connection to the shared, freshly truncated database
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB connects to the shared container, starting and migrating it on
// first use, and empties every ledger table.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	postgresContainer.once.Do(startPostgres)
	require.NoError(t, postgresContainer.err, "PostgreSQL container unavailable")

	db := openGorm(t, postgresContainer.dsn)
	require.NoError(t,
		db.Exec("TRUNCATE TABLE "+strings.Join(ledgerTables, ", ")+" CASCADE").Error,
		"Failed to reset ledger tables")
	return &TestDB{DB: db}
}

func startPostgres() {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger_test"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(90*time.Second)),
	)
	if err != nil {
		postgresContainer.err = err
		return
	}
	postgresContainer.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		postgresContainer.err = err
		return
	}
	postgresContainer.dsn = dsn

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		postgresContainer.err = err
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		postgresContainer.err = err
		return
	}
	defer sqlDB.Close()

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	if err != nil {
		postgresContainer.err = err
		return
	}
	postgresContainer.err = m.Up()
}

// openGorm connects with a pool large enough for the concurrency tests.
// TEST_DB_DEBUG=1 prints every statement.
func openGorm(t *testing.T, dsn string) *gorm.DB {
	t.Helper()

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CleanupSharedContainer terminates the container, if one was started
func CleanupSharedContainer() {
	if postgresContainer.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = postgresContainer.container.Terminate(ctx)
}
