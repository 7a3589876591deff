package handler

import (
	"context"
	"time"

	financeapp "github.com/erp/settlement/internal/application/finance"
	revenueapp "github.com/erp/settlement/internal/application/revenue"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBillingService is a mock implementation of BillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) Create(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, req financeapp.CreateDocumentRequest) (*financeapp.DocumentResponse, error) {
	args := m.Called(ctx, tenantID, kind, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.DocumentResponse), args.Error(1)
}

func (m *MockBillingService) Send(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*financeapp.DocumentResponse, error) {
	args := m.Called(ctx, tenantID, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.DocumentResponse), args.Error(1)
}

func (m *MockBillingService) Cancel(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID, req financeapp.CancelDocumentRequest) (*financeapp.DocumentResponse, error) {
	args := m.Called(ctx, tenantID, kind, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.DocumentResponse), args.Error(1)
}

func (m *MockBillingService) GetByID(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, id uuid.UUID) (*financeapp.DocumentResponse, error) {
	args := m.Called(ctx, tenantID, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.DocumentResponse), args.Error(1)
}

func (m *MockBillingService) List(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, filter financeapp.DocumentListFilter) ([]financeapp.DocumentResponse, int64, error) {
	args := m.Called(ctx, tenantID, kind, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]financeapp.DocumentResponse), args.Get(1).(int64), args.Error(2)
}

// MockAgingService is a mock implementation of AgingService
type MockAgingService struct {
	mock.Mock
}

func (m *MockAgingService) PartyAging(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, partyID string, asOf *time.Time) (*finance.AgingReport, error) {
	args := m.Called(ctx, tenantID, kind, partyID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.AgingReport), args.Error(1)
}

func (m *MockAgingService) Summary(ctx context.Context, tenantID uuid.UUID, kind finance.DocumentKind, asOf *time.Time) (*finance.AgingSummary, error) {
	args := m.Called(ctx, tenantID, kind, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.AgingSummary), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) ApplyPayment(ctx context.Context, tenantID uuid.UUID, req financeapp.ApplyPaymentRequest) (*financeapp.PaymentResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*financeapp.PaymentResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) ListByParty(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) ([]financeapp.PaymentResponse, error) {
	args := m.Called(ctx, tenantID, partyType, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]financeapp.PaymentResponse), args.Error(1)
}

// MockBalanceService is a mock implementation of BalanceService
type MockBalanceService struct {
	mock.Mock
}

func (m *MockBalanceService) GetAccount(ctx context.Context, tenantID uuid.UUID, partyType finance.PartyType, partyID string) (*financeapp.PartyAccountResponse, error) {
	args := m.Called(ctx, tenantID, partyType, partyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.PartyAccountResponse), args.Error(1)
}

func (m *MockBalanceService) ReconcileBalances(ctx context.Context, tenantID uuid.UUID, partyType *finance.PartyType) (*financeapp.BalanceReconciliationReport, error) {
	args := m.Called(ctx, tenantID, partyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*financeapp.BalanceReconciliationReport), args.Error(1)
}

// MockOrderRevenueService is a mock implementation of OrderRevenueService
type MockOrderRevenueService struct {
	mock.Mock
}

func (m *MockOrderRevenueService) Record(ctx context.Context, tenantID uuid.UUID, req revenueapp.RecordOrderRevenueRequest) (*revenueapp.OrderRevenueResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.OrderRevenueResponse), args.Error(1)
}

func (m *MockOrderRevenueService) Settle(ctx context.Context, tenantID uuid.UUID, orderID string) (*revenueapp.OrderRevenueResponse, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.OrderRevenueResponse), args.Error(1)
}

func (m *MockOrderRevenueService) Dispute(ctx context.Context, tenantID uuid.UUID, orderID string, req revenueapp.DisputeOrderRequest) (*revenueapp.OrderRevenueResponse, error) {
	args := m.Called(ctx, tenantID, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.OrderRevenueResponse), args.Error(1)
}

func (m *MockOrderRevenueService) GetByOrderID(ctx context.Context, tenantID uuid.UUID, orderID string) (*revenueapp.OrderRevenueResponse, error) {
	args := m.Called(ctx, tenantID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.OrderRevenueResponse), args.Error(1)
}

func (m *MockOrderRevenueService) List(ctx context.Context, tenantID uuid.UUID, filter revenueapp.OrderRevenueListFilter) ([]revenueapp.OrderRevenueResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]revenueapp.OrderRevenueResponse), args.Get(1).(int64), args.Error(2)
}

// MockCommissionService is a mock implementation of CommissionService
type MockCommissionService struct {
	mock.Mock
}

func (m *MockCommissionService) Calculate(ctx context.Context, req revenueapp.CalculateCommissionRequest) (*revenueapp.CommissionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.CommissionResponse), args.Error(1)
}

// MockCollectionService is a mock implementation of CollectionService
type MockCollectionService struct {
	mock.Mock
}

func (m *MockCollectionService) CreateCollection(ctx context.Context, tenantID uuid.UUID, req revenueapp.CreateCollectionRequest) (*revenueapp.CollectionResponse, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.CollectionResponse), args.Error(1)
}

func (m *MockCollectionService) MarkCollected(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.CollectionResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.CollectionResponse), args.Error(1)
}

func (m *MockCollectionService) MarkDeposited(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.CollectionResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.CollectionResponse), args.Error(1)
}

func (m *MockCollectionService) Reconcile(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.ReconciliationResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.ReconciliationResponse), args.Error(1)
}

func (m *MockCollectionService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.CollectionResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.CollectionResponse), args.Error(1)
}

func (m *MockCollectionService) List(ctx context.Context, tenantID uuid.UUID, filter revenueapp.CollectionListFilter) ([]revenueapp.CollectionResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]revenueapp.CollectionResponse), args.Get(1).(int64), args.Error(2)
}

// MockPayoutService is a mock implementation of PayoutService
type MockPayoutService struct {
	mock.Mock
}

func (m *MockPayoutService) GeneratePayouts(ctx context.Context, tenantID uuid.UUID, req revenueapp.GeneratePayoutsRequest) (*revenueapp.PayoutBatchResult, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.PayoutBatchResult), args.Error(1)
}

func (m *MockPayoutService) MarkProcessing(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.PayoutResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.PayoutResponse), args.Error(1)
}

func (m *MockPayoutService) MarkCompleted(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.PayoutResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.PayoutResponse), args.Error(1)
}

func (m *MockPayoutService) MarkFailed(ctx context.Context, tenantID, id uuid.UUID, req revenueapp.FailPayoutRequest) (*revenueapp.PayoutResponse, error) {
	args := m.Called(ctx, tenantID, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.PayoutResponse), args.Error(1)
}

func (m *MockPayoutService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*revenueapp.PayoutResponse, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.PayoutResponse), args.Error(1)
}

func (m *MockPayoutService) List(ctx context.Context, tenantID uuid.UUID, filter revenueapp.PayoutListFilter) ([]revenueapp.PayoutResponse, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]revenueapp.PayoutResponse), args.Get(1).(int64), args.Error(2)
}

// MockPayoutSummaryService is a mock implementation of PayoutSummaryService
type MockPayoutSummaryService struct {
	mock.Mock
}

func (m *MockPayoutSummaryService) WeeklySummary(ctx context.Context, tenantID uuid.UUID, weekOf *time.Time) (*revenueapp.WeeklyPayoutSummary, error) {
	args := m.Called(ctx, tenantID, weekOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*revenueapp.WeeklyPayoutSummary), args.Error(1)
}
