package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/erp/settlement/internal/domain/revenue"
	"go.uber.org/zap"
)

const statementContentType = "text/csv; charset=utf-8"

// StatementExporter renders payout statements and stores them through an
// ObjectWriter. Keys look like <prefix>/<tenant>/<period start>/<payout number>.csv.
type StatementExporter struct {
	writer   ObjectWriter
	renderer *StatementRenderer
	prefix   string
	logger   *zap.Logger
}

// NewStatementExporter creates an exporter
func NewStatementExporter(writer ObjectWriter, renderer *StatementRenderer, prefix string, logger *zap.Logger) *StatementExporter {
	if renderer == nil {
		renderer = NewStatementRenderer("")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatementExporter{
		writer:   writer,
		renderer: renderer,
		prefix:   prefix,
		logger:   logger,
	}
}

// StatementKey returns the object key of a payout statement
func (e *StatementExporter) StatementKey(payout *revenue.Payout) string {
	return path.Join(
		e.prefix,
		payout.TenantID.String(),
		payout.PeriodStart.UTC().Format(dateLayout),
		payout.PayoutNumber+".csv",
	)
}

// Export renders and uploads the statement, returning its key
func (e *StatementExporter) Export(ctx context.Context, payout *revenue.Payout, records []revenue.OrderRevenue) (string, error) {
	body, err := e.renderer.Render(payout, records)
	if err != nil {
		return "", fmt.Errorf("render statement %s: %w", payout.PayoutNumber, err)
	}

	key := e.StatementKey(payout)
	if err := e.writer.Upload(ctx, key, body, statementContentType); err != nil {
		return "", fmt.Errorf("upload statement %s: %w", payout.PayoutNumber, err)
	}

	e.logger.Info("payout statement exported",
		zap.String("payout_number", payout.PayoutNumber),
		zap.String("partner_id", payout.PartnerID),
		zap.String("key", key),
		zap.String("locale", e.renderer.Locale().String()),
	)
	return key, nil
}
