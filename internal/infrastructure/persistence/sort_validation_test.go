package persistence

import (
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestValidateSortOrder(t *testing.T) {
	for input, want := range map[string]string{
		"":                "DESC",
		"asc":             "ASC",
		"  ASC ":          "ASC",
		"Asc":             "ASC",
		"desc":            "DESC",
		"sideways":        "DESC",
		"ASC; DELETE x;":  "DESC",
		"asc, total desc": "DESC",
	} {
		assert.Equal(t, want, ValidateSortOrder(input), "input %q", input)
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := payoutSort.columns

	assert.Equal(t, "period_start", ValidateSortField("period_start", allowed, "created_at"))
	assert.Equal(t, "total_net_payout", ValidateSortField(" total_net_payout ", allowed, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("", allowed, "created_at"))
	assert.Equal(t, "created_at", ValidateSortField("PERIOD_START", allowed, "created_at"))
	assert.Equal(t, "", ValidateSortField("deductions", allowed, ""))

	for _, payload := range []string{
		"partner_id; DROP TABLE payouts;--",
		"partner_id' OR '1'='1",
		"partner_id, (SELECT outstanding_balance FROM party_accounts)",
		"CASE WHEN 1=1 THEN partner_id ELSE status END",
		"status/**/;UPDATE order_revenues SET status='paid_out'",
		"status\n; DROP TABLE payouts",
	} {
		assert.Equal(t, "created_at", ValidateSortField(payload, allowed, "created_at"), "payload %q", payload)
	}
}

func TestSortSpecs_ShareAuditColumns(t *testing.T) {
	for name, spec := range map[string]sortSpec{
		"billing documents":   billingDocumentSort,
		"order revenue":       orderRevenueSort,
		"payment collections": paymentCollectionSort,
		"payouts":             payoutSort,
	} {
		for _, col := range []string{"id", "created_at", "updated_at", "status", spec.fallback} {
			assert.True(t, spec.columns[col], "%s must allow sorting by %s", name, col)
		}
		assert.NotEmpty(t, spec.tieBreak, name)
	}
	assert.False(t, billingDocumentSort.columns["party_name"], "free text columns stay unsortable")
}

func TestSortSpec_Apply(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DryRun: true,
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	orderBy := func(spec sortSpec, f shared.Filter) string {
		stmt := spec.apply(db.Model(&models.PayoutModel{}), f).Find(&[]models.PayoutModel{}).Statement
		return stmt.SQL.String()
	}

	sql := orderBy(payoutSort, shared.Filter{OrderBy: "total_net_payout", OrderDir: "asc"})
	assert.Contains(t, sql, "ORDER BY total_net_payout ASC,partner_id ASC")

	sql = orderBy(payoutSort, shared.Filter{OrderBy: "payout_number; DROP TABLE payouts", OrderDir: "up"})
	assert.Contains(t, sql, "ORDER BY created_at DESC,partner_id ASC")
	assert.NotContains(t, sql, "DROP")

	sql = orderBy(orderRevenueSort, shared.Filter{})
	assert.Contains(t, sql, "ORDER BY created_at DESC,order_id ASC")
}
