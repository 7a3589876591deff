package finance

import (
	"fmt"
	"sort"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType names how a payment is split across documents
type AllocationStrategyType string

const (
	AllocationStrategyProportional AllocationStrategyType = "proportional"
	AllocationStrategyExplicit     AllocationStrategyType = "explicit"
)

// AllocationTarget is a document a payment may be applied to
type AllocationTarget struct {
	DocumentID     uuid.UUID
	DocumentNumber string
	AmountDue      decimal.Decimal
}

// AllocationStrategy splits a payment amount across target documents
type AllocationStrategy interface {
	Type() AllocationStrategyType
	Allocate(amount decimal.Decimal, targets []AllocationTarget) (Allocations, error)
}

// NewAllocationStrategy returns the explicit strategy when per-document
// amounts are supplied, otherwise the proportional one
func NewAllocationStrategy(explicit []Allocation) AllocationStrategy {
	if len(explicit) > 0 {
		return &ExplicitAllocationStrategy{requested: explicit}
	}
	return &ProportionalAllocationStrategy{}
}

// ProportionalAllocationStrategy splits a payment in proportion to each
// document's amount due
type ProportionalAllocationStrategy struct{}

// Type returns the strategy type
func (s *ProportionalAllocationStrategy) Type() AllocationStrategyType {
	return AllocationStrategyProportional
}

// Allocate works in cents with the largest-remainder method so the shares
// sum exactly to amount and no share exceeds its document's amount due.
func (s *ProportionalAllocationStrategy) Allocate(amount decimal.Decimal, targets []AllocationTarget) (Allocations, error) {
	if err := checkAllocationInput(amount, targets); err != nil {
		return nil, err
	}

	totalDue := decimal.Zero
	for _, t := range targets {
		totalDue = totalDue.Add(t.AmountDue)
	}
	if amount.GreaterThan(totalDue) {
		return nil, overpayment(amount, totalDue)
	}

	hundred := decimal.NewFromInt(100)
	amountCents := amount.Mul(hundred)

	type share struct {
		idx   int
		cents decimal.Decimal
		frac  decimal.Decimal
	}
	shares := make([]share, len(targets))
	allocated := decimal.Zero
	for i, t := range targets {
		exact := amountCents.Mul(t.AmountDue).Div(totalDue)
		floor := exact.Floor()
		shares[i] = share{idx: i, cents: floor, frac: exact.Sub(floor)}
		allocated = allocated.Add(floor)
	}

	leftover := amountCents.Sub(allocated).IntPart()
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := shares[order[a]], shares[order[b]]
		if !sa.frac.Equal(sb.frac) {
			return sa.frac.GreaterThan(sb.frac)
		}
		return targets[sa.idx].AmountDue.GreaterThan(targets[sb.idx].AmountDue)
	})
	for i := int64(0); i < leftover && int(i) < len(order); i++ {
		shares[order[i]].cents = shares[order[i]].cents.Add(decimal.NewFromInt(1))
	}

	result := make(Allocations, 0, len(targets))
	for i, t := range targets {
		value := shares[i].cents.Div(hundred)
		if value.IsZero() {
			continue
		}
		result = append(result, Allocation{DocumentID: t.DocumentID, Amount: value})
	}
	return result, nil
}

// ExplicitAllocationStrategy applies caller-specified amounts per document
type ExplicitAllocationStrategy struct {
	requested []Allocation
}

// Type returns the strategy type
func (s *ExplicitAllocationStrategy) Type() AllocationStrategyType {
	return AllocationStrategyExplicit
}

// Allocate validates the requested split against the targets
func (s *ExplicitAllocationStrategy) Allocate(amount decimal.Decimal, targets []AllocationTarget) (Allocations, error) {
	if err := checkAllocationInput(amount, targets); err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]AllocationTarget, len(targets))
	totalDue := decimal.Zero
	for _, t := range targets {
		byID[t.DocumentID] = t
		totalDue = totalDue.Add(t.AmountDue)
	}
	if amount.GreaterThan(totalDue) {
		return nil, overpayment(amount, totalDue)
	}

	seen := make(map[uuid.UUID]struct{}, len(s.requested))
	result := make(Allocations, 0, len(s.requested))
	sum := decimal.Zero
	for _, req := range s.requested {
		target, ok := byID[req.DocumentID]
		if !ok {
			return nil, shared.NewValidationError("allocation references document %s outside the payment's document set", req.DocumentID)
		}
		if _, dup := seen[req.DocumentID]; dup {
			return nil, shared.NewValidationError("document %s is allocated more than once", req.DocumentID)
		}
		seen[req.DocumentID] = struct{}{}

		if !req.Amount.IsPositive() {
			return nil, shared.NewValidationError("allocation for document %s must be positive", req.DocumentID)
		}
		if !req.Amount.Equal(shared.Round2(req.Amount)) {
			return nil, shared.NewValidationError("allocation for document %s has more than two decimal places", req.DocumentID)
		}
		if req.Amount.GreaterThan(target.AmountDue) {
			return nil, overpayment(req.Amount, target.AmountDue)
		}
		result = append(result, Allocation{DocumentID: req.DocumentID, Amount: req.Amount})
		sum = sum.Add(req.Amount)
	}

	if !sum.Equal(amount) {
		return nil, shared.NewValidationError("allocations sum to %s but payment amount is %s", sum.StringFixed(2), amount.StringFixed(2))
	}
	return result, nil
}

func checkAllocationInput(amount decimal.Decimal, targets []AllocationTarget) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive")
	}
	if !amount.Equal(shared.Round2(amount)) {
		return shared.NewValidationError("payment amount has more than two decimal places")
	}
	if len(targets) == 0 {
		return shared.NewValidationError("at least one document is required")
	}
	return nil
}

func overpayment(amount, due decimal.Decimal) error {
	return shared.NewDomainError(shared.CodeOverpayment,
		fmt.Sprintf("payment amount %s exceeds amount due %s", amount.StringFixed(2), due.StringFixed(2)))
}
