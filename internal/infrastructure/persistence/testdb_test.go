package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// tenantIndexes mirrors the tenant scoped unique indexes of the SQL migrations
var tenantIndexes = []string{
	`CREATE UNIQUE INDEX idx_party_accounts_party ON party_accounts (tenant_id, party_type, party_id)`,
	`CREATE UNIQUE INDEX idx_billing_documents_number ON billing_documents (tenant_id, document_number)`,
	`CREATE UNIQUE INDEX idx_payments_idempotency ON payments (tenant_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE UNIQUE INDEX idx_order_revenues_order ON order_revenues (tenant_id, order_id)`,
	`CREATE UNIQUE INDEX idx_payouts_partner_period ON payouts (tenant_id, partner_id, period_start, period_end) WHERE status <> 'failed'`,
}

// setupLedgerTestDB opens an in-memory sqlite database with the ledger schema.
// A single connection keeps every statement on the same in-memory database.
func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.PartyAccountModel{},
		&models.BillingDocumentModel{},
		&models.PaymentModel{},
		&models.OrderRevenueModel{},
		&models.PayoutModel{},
		&models.PaymentCollectionModel{},
	))
	for _, stmt := range tenantIndexes {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

// newMockDatabase opens GORM on the postgres dialector over sqlmock
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

// at returns a fixed UTC instant offset by the given number of days
func at(days int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}
