package revenue

import (
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommissionService_Calculate(t *testing.T) {
	svc := NewCommissionService(nil)

	tests := []struct {
		name        string
		tier        string
		ctype       string
		base        string
		wantAmount  string
		wantApplied string
	}{
		{"gold order completion", "gold", "order_completion", "1000", "100.00", "gold"},
		{"platinum service rounds half up", "platinum", "service_provision", "33.33", "5.00", "platinum"},
		{"bronze referral", "bronze", "referral", "12.25", "0.25", "bronze"},
		{"unknown tier falls back to bronze", "diamond", "delivery", "200", "6.00", "bronze"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Calculate(t.Context(), CalculateCommissionRequest{
				PartnerTier:    tt.tier,
				CommissionType: tt.ctype,
				BaseAmount:     dec(tt.base),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, got.Amount.StringFixed(2))
			assert.Equal(t, tt.wantApplied, got.AppliedTier)
			assert.Equal(t, tt.tier, got.RequestedTier)
		})
	}

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.Calculate(t.Context(), CalculateCommissionRequest{PartnerTier: "gold", CommissionType: "tip", BaseAmount: dec("10")})
		assertCode(t, err, shared.CodeUnknownRate)
	})

	t.Run("negative base", func(t *testing.T) {
		_, err := svc.Calculate(t.Context(), CalculateCommissionRequest{PartnerTier: "gold", CommissionType: "referral", BaseAmount: dec("-1")})
		assertCode(t, err, shared.CodeValidation)
	})
}
