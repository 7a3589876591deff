package revenue

import (
	"context"

	"github.com/erp/settlement/internal/domain/revenue"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
)

// CommissionService quotes partner commissions from the rate table
type CommissionService struct {
	engine *revenue.CommissionEngine
}

// NewCommissionService creates a new CommissionService
func NewCommissionService(engine *revenue.CommissionEngine) *CommissionService {
	if engine == nil {
		engine = revenue.NewCommissionEngine(nil)
	}
	return &CommissionService{engine: engine}
}

// Calculate returns the commission for a tier, type and base amount
func (s *CommissionService) Calculate(ctx context.Context, req CalculateCommissionRequest) (*CommissionResponse, error) {
	_, span := telemetry.StartServiceSpan(ctx, "commission", "calculate")
	defer span.End()

	c, err := s.engine.Calculate(revenue.PartnerTier(req.PartnerTier), revenue.CommissionType(req.CommissionType), req.BaseAmount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return toCommissionResponse(c), nil
}
