package persistence

import (
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes dir to ASC or DESC. Anything but a
// case-insensitive "asc" sorts descending.
func ValidateSortOrder(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns field when it is whitelisted and fallback
// otherwise. Column names are never interpolated without passing here.
func ValidateSortField(field string, allowed map[string]bool, fallback string) string {
	if f := strings.TrimSpace(field); allowed[f] {
		return f
	}
	return fallback
}

// sortSpec is the ORDER BY policy of one list query. tieBreak keeps
// pagination stable when the primary column has duplicates.
type sortSpec struct {
	columns  map[string]bool
	fallback string
	tieBreak string
}

func (s sortSpec) apply(query *gorm.DB, filter shared.Filter) *gorm.DB {
	column := ValidateSortField(filter.OrderBy, s.columns, s.fallback)
	return query.Order(column + " " + ValidateSortOrder(filter.OrderDir)).Order(s.tieBreak + " ASC")
}

func columns(names ...string) map[string]bool {
	set := map[string]bool{"id": true, "created_at": true, "updated_at": true}
	for _, n := range names {
		set[n] = true
	}
	return set
}

var (
	billingDocumentSort = sortSpec{
		columns:  columns("document_number", "party_id", "issue_date", "due_date", "total", "status"),
		fallback: "created_at",
		tieBreak: "id",
	}
	orderRevenueSort = sortSpec{
		columns:  columns("order_id", "partner_id", "order_amount", "partner_commission", "status"),
		fallback: "created_at",
		tieBreak: "order_id",
	}
	paymentCollectionSort = sortSpec{
		columns:  columns("collection_number", "collection_date", "total_amount", "status"),
		fallback: "created_at",
		tieBreak: "id",
	}
	payoutSort = sortSpec{
		columns:  columns("payout_number", "partner_id", "period_start", "total_net_payout", "scheduled_date", "status"),
		fallback: "created_at",
		tieBreak: "partner_id",
	}
)
