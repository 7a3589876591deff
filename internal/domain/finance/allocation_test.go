package finance

import (
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets(dues ...string) []AllocationTarget {
	out := make([]AllocationTarget, 0, len(dues))
	for i, d := range dues {
		out = append(out, AllocationTarget{
			DocumentID:     uuid.New(),
			DocumentNumber: "DOC-" + string(rune('A'+i)),
			AmountDue:      dec(d),
		})
	}
	return out
}

func TestNewAllocationStrategy(t *testing.T) {
	assert.Equal(t, AllocationStrategyProportional, NewAllocationStrategy(nil).Type())
	assert.Equal(t, AllocationStrategyExplicit, NewAllocationStrategy([]Allocation{{DocumentID: uuid.New(), Amount: dec("1")}}).Type())
}

func TestProportionalAllocation(t *testing.T) {
	s := &ProportionalAllocationStrategy{}

	t.Run("splits by amount due", func(t *testing.T) {
		tg := targets("300", "100")
		allocs, err := s.Allocate(dec("200"), tg)
		require.NoError(t, err)
		require.Len(t, allocs, 2)
		assert.True(t, allocs[0].Amount.Equal(dec("150")))
		assert.True(t, allocs[1].Amount.Equal(dec("50")))
	})

	t.Run("full payment settles every document", func(t *testing.T) {
		tg := targets("10.01", "20.02", "0.03")
		allocs, err := s.Allocate(dec("30.06"), tg)
		require.NoError(t, err)
		for i, a := range allocs {
			assert.True(t, a.Amount.Equal(tg[i].AmountDue), "doc %d got %s", i, a.Amount)
		}
	})

	t.Run("rounding remainder keeps exact sum", func(t *testing.T) {
		tg := targets("0.01", "0.01", "0.01", "0.01", "0.01")
		allocs, err := s.Allocate(dec("0.03"), tg)
		require.NoError(t, err)
		assert.True(t, allocs.Total().Equal(dec("0.03")))
		for _, a := range allocs {
			assert.True(t, a.Amount.Equal(dec("0.01")))
		}
	})

	t.Run("thirds", func(t *testing.T) {
		tg := targets("100", "100", "100")
		allocs, err := s.Allocate(dec("100"), tg)
		require.NoError(t, err)
		assert.True(t, allocs.Total().Equal(dec("100")))
		for i, a := range allocs {
			assert.True(t, a.Amount.LessThanOrEqual(tg[i].AmountDue))
			assert.True(t, a.Amount.GreaterThanOrEqual(dec("33.33")))
		}
	})

	t.Run("overpayment", func(t *testing.T) {
		_, err := s.Allocate(dec("700"), targets("600"))
		assertCode(t, err, shared.CodeOverpayment)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := s.Allocate(decimal.Zero, targets("10"))
		assertCode(t, err, shared.CodeValidation)
		_, err = s.Allocate(dec("1.001"), targets("10"))
		assertCode(t, err, shared.CodeValidation)
		_, err = s.Allocate(dec("1"), nil)
		assertCode(t, err, shared.CodeValidation)
	})
}

func TestExplicitAllocation(t *testing.T) {
	tg := targets("100", "50")

	t.Run("valid split", func(t *testing.T) {
		s := NewAllocationStrategy([]Allocation{
			{DocumentID: tg[1].DocumentID, Amount: dec("50")},
			{DocumentID: tg[0].DocumentID, Amount: dec("10")},
		})
		allocs, err := s.Allocate(dec("60"), tg)
		require.NoError(t, err)
		require.Len(t, allocs, 2)
		assert.Equal(t, tg[1].DocumentID, allocs[0].DocumentID)
	})

	tests := []struct {
		name   string
		allocs []Allocation
		amount string
		code   string
	}{
		{"unknown document", []Allocation{{DocumentID: uuid.New(), Amount: dec("10")}}, "10", shared.CodeValidation},
		{"duplicate document", []Allocation{{DocumentID: tg[0].DocumentID, Amount: dec("5")}, {DocumentID: tg[0].DocumentID, Amount: dec("5")}}, "10", shared.CodeValidation},
		{"non-positive share", []Allocation{{DocumentID: tg[0].DocumentID, Amount: dec("0")}}, "10", shared.CodeValidation},
		{"share exceeds due", []Allocation{{DocumentID: tg[1].DocumentID, Amount: dec("60")}}, "60", shared.CodeOverpayment},
		{"sum mismatch", []Allocation{{DocumentID: tg[0].DocumentID, Amount: dec("10")}}, "20", shared.CodeValidation},
		{"total overpayment", []Allocation{{DocumentID: tg[0].DocumentID, Amount: dec("100")}}, "151", shared.CodeOverpayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAllocationStrategy(tt.allocs).Allocate(dec(tt.amount), tg)
			assertCode(t, err, tt.code)
		})
	}
}
