package revenue

import (
	"fmt"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PartnerTier is a partner's commission tier
type PartnerTier string

const (
	PartnerTierBronze   PartnerTier = "bronze"
	PartnerTierSilver   PartnerTier = "silver"
	PartnerTierGold     PartnerTier = "gold"
	PartnerTierPlatinum PartnerTier = "platinum"
)

// FallbackTier is used when a partner's tier has no rates
const FallbackTier = PartnerTierBronze

// CommissionType is the kind of activity a commission is paid for
type CommissionType string

const (
	CommissionTypeOrderCompletion  CommissionType = "order_completion"
	CommissionTypeServiceProvision CommissionType = "service_provision"
	CommissionTypeReferral         CommissionType = "referral"
	CommissionTypeDelivery         CommissionType = "delivery"
)

// RateTable maps tier and commission type to a rate. It is immutable after
// construction; lookups never mutate it.
type RateTable struct {
	rates map[PartnerTier]map[CommissionType]decimal.Decimal
}

// NewRateTable copies the given rates into an immutable table.
// The fallback tier must be present.
func NewRateTable(rates map[PartnerTier]map[CommissionType]decimal.Decimal) (*RateTable, error) {
	if _, ok := rates[FallbackTier]; !ok {
		return nil, fmt.Errorf("rate table must define the %s tier", FallbackTier)
	}
	copied := make(map[PartnerTier]map[CommissionType]decimal.Decimal, len(rates))
	for tier, byType := range rates {
		inner := make(map[CommissionType]decimal.Decimal, len(byType))
		for ct, rate := range byType {
			if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
				return nil, fmt.Errorf("rate for %s/%s must be within [0, 1], got %s", tier, ct, rate)
			}
			inner[ct] = rate
		}
		copied[tier] = inner
	}
	return &RateTable{rates: copied}, nil
}

// DefaultRateTable returns the standard partner commission rates
func DefaultRateTable() *RateTable {
	r := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	table, err := NewRateTable(map[PartnerTier]map[CommissionType]decimal.Decimal{
		PartnerTierBronze: {
			CommissionTypeOrderCompletion:  r("0.05"),
			CommissionTypeServiceProvision: r("0.08"),
			CommissionTypeReferral:         r("0.02"),
			CommissionTypeDelivery:         r("0.03"),
		},
		PartnerTierSilver: {
			CommissionTypeOrderCompletion:  r("0.07"),
			CommissionTypeServiceProvision: r("0.10"),
			CommissionTypeReferral:         r("0.03"),
			CommissionTypeDelivery:         r("0.04"),
		},
		PartnerTierGold: {
			CommissionTypeOrderCompletion:  r("0.10"),
			CommissionTypeServiceProvision: r("0.12"),
			CommissionTypeReferral:         r("0.04"),
			CommissionTypeDelivery:         r("0.05"),
		},
		PartnerTierPlatinum: {
			CommissionTypeOrderCompletion:  r("0.12"),
			CommissionTypeServiceProvision: r("0.15"),
			CommissionTypeReferral:         r("0.05"),
			CommissionTypeDelivery:         r("0.06"),
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// Rate looks up the rate for tier and type. Unknown tiers fall back to
// bronze; an unknown type has no rate and yields UNKNOWN_RATE.
func (t *RateTable) Rate(tier PartnerTier, ct CommissionType) (decimal.Decimal, PartnerTier, error) {
	byType, ok := t.rates[tier]
	if !ok {
		tier = FallbackTier
		byType = t.rates[FallbackTier]
	}
	rate, ok := byType[ct]
	if !ok {
		return decimal.Zero, tier, shared.NewDomainError(shared.CodeUnknownRate,
			fmt.Sprintf("no commission rate for tier %s and type %s", tier, ct))
	}
	return rate, tier, nil
}

// Tiers lists the tiers defined in the table
func (t *RateTable) Tiers() []PartnerTier {
	out := make([]PartnerTier, 0, len(t.rates))
	for _, tier := range []PartnerTier{PartnerTierBronze, PartnerTierSilver, PartnerTierGold, PartnerTierPlatinum} {
		if _, ok := t.rates[tier]; ok {
			out = append(out, tier)
		}
	}
	return out
}

// Commission is the result of a commission calculation
type Commission struct {
	RequestedTier  PartnerTier     `json:"requested_tier"`
	AppliedTier    PartnerTier     `json:"applied_tier"`
	CommissionType CommissionType  `json:"commission_type"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	Rate           decimal.Decimal `json:"rate"`
	Amount         decimal.Decimal `json:"amount"`
}

// CommissionEngine computes partner commissions from a rate table
type CommissionEngine struct {
	table *RateTable
}

// NewCommissionEngine creates an engine over table, or the default table when nil
func NewCommissionEngine(table *RateTable) *CommissionEngine {
	if table == nil {
		table = DefaultRateTable()
	}
	return &CommissionEngine{table: table}
}

// Calculate returns round2(baseAmount × rate), rounding half-up once at the end
func (e *CommissionEngine) Calculate(tier PartnerTier, ct CommissionType, baseAmount decimal.Decimal) (Commission, error) {
	if baseAmount.IsNegative() {
		return Commission{}, shared.NewValidationError("base amount cannot be negative")
	}
	rate, applied, err := e.table.Rate(tier, ct)
	if err != nil {
		return Commission{}, err
	}
	return Commission{
		RequestedTier:  tier,
		AppliedTier:    applied,
		CommissionType: ct,
		BaseAmount:     baseAmount,
		Rate:           rate,
		Amount:         shared.Round2(baseAmount.Mul(rate)),
	}, nil
}
