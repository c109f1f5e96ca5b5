package billing

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/tenant"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/wallet"
)

func TestMain(m *testing.M) {
	logger.Init()

	code := m.Run()
	os.Exit(code)
}

type MockBillingRepo struct{ mock.Mock }

func (m *MockBillingRepo) CreatePending(ctx context.Context, tenantID int, planCode, billingCycle string, preferenceID, externalReference *string) (*Subscription, error) {
	args := m.Called(ctx, tenantID, planCode, billingCycle, preferenceID, externalReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockBillingRepo) FindByPreferenceID(ctx context.Context, preferenceID string) (*Subscription, error) {
	args := m.Called(ctx, preferenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockBillingRepo) FindByExternalReference(ctx context.Context, externalReference string) (*Subscription, error) {
	args := m.Called(ctx, externalReference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

func (m *MockBillingRepo) CurrentSubscription(ctx context.Context, tenantID int) (*plan.SubscriptionInfo, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.SubscriptionInfo), args.Error(1)
}

func (m *MockBillingRepo) UpdateStatus(ctx context.Context, subscriptionID int, status string, currentPeriodEnd *time.Time) error {
	return m.Called(ctx, subscriptionID, status, currentPeriodEnd).Error(0)
}

func (m *MockBillingRepo) InsertEvent(ctx context.Context, ev *SubscriptionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *MockBillingRepo) CreateTopupCheckout(ctx context.Context, tenantID int, packCode, paymentID, qrCode string) (*TopupCheckout, error) {
	args := m.Called(ctx, tenantID, packCode, paymentID, qrCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopupCheckout), args.Error(1)
}

func (m *MockBillingRepo) FindTopupByPaymentID(ctx context.Context, paymentID string) (*TopupCheckout, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TopupCheckout), args.Error(1)
}

func (m *MockBillingRepo) MarkTopupConsumed(ctx context.Context, checkoutID int) error {
	return m.Called(ctx, checkoutID).Error(0)
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) EnsureCycle(ctx context.Context, tenantID int) (*wallet.Wallet, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedger) Snapshot(ctx context.Context, tenantID int) (*wallet.Snapshot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Snapshot), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, tenantID int, appointmentID *int, providerMessageID string) (*wallet.DebitResult, error) {
	args := m.Called(ctx, tenantID, appointmentID, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.DebitResult), args.Error(1)
}

func (m *MockLedger) CreditTopup(ctx context.Context, tenantID int, paymentID string, pack plan.TopupPack) (bool, error) {
	args := m.Called(ctx, tenantID, paymentID, pack)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) RecordBlocked(ctx context.Context, tenantID int, appointmentID *int, reason string, metadata *string) error {
	return m.Called(ctx, tenantID, appointmentID, reason, metadata).Error(0)
}

func (m *MockLedger) CountDebitsForAppointment(ctx context.Context, tenantID, appointmentID int) (int, error) {
	args := m.Called(ctx, tenantID, appointmentID)
	return args.Int(0), args.Error(1)
}

func (m *MockLedger) ListTransactions(ctx context.Context, tenantID, limit, offset int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

func (m *MockLedger) TopupHistory(ctx context.Context, tenantID, limit int) ([]wallet.Transaction, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]wallet.Transaction), args.Error(1)
}

type MockTenantRepo struct{ mock.Mock }

func (m *MockTenantRepo) CreateTrial(ctx context.Context, name, planCode string, trialDays int) (*tenant.Tenant, error) {
	args := m.Called(ctx, name, planCode, trialDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *MockTenantRepo) FindByID(ctx context.Context, id int) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *MockTenantRepo) PlanInfo(ctx context.Context, tenantID int) (*plan.TenantInfo, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.TenantInfo), args.Error(1)
}

func (m *MockTenantRepo) UpdatePlan(ctx context.Context, tenantID int, planCode, planStatus string, activeUntil *time.Time) error {
	return m.Called(ctx, tenantID, planCode, planStatus, activeUntil).Error(0)
}

func (m *MockTenantRepo) SetStatus(ctx context.Context, tenantID int, planStatus string) error {
	return m.Called(ctx, tenantID, planStatus).Error(0)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreatePixPayment(ctx context.Context, amountCents int64, description, externalReference, payerEmail string) (*PixCheckout, error) {
	args := m.Called(ctx, amountCents, description, externalReference, payerEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PixCheckout), args.Error(1)
}

func (m *MockGateway) CreateSubscriptionCheckout(ctx context.Context, reason string, amountCents int64, externalReference, payerEmail, backURL string) (*SubscriptionCheckout, error) {
	args := m.Called(ctx, reason, amountCents, externalReference, payerEmail, backURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubscriptionCheckout), args.Error(1)
}

var testNow = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, ledger wallet.Ledger, tenants tenant.Repository, gateway Gateway) Service {
	return &service{
		repo:    repo,
		ledger:  ledger,
		tenants: tenants,
		gateway: gateway,
		now:     func() time.Time { return testNow },
	}
}

func TestReconcileWalletTopup(t *testing.T) {
	ctx := context.Background()
	pack100, _ := plan.PackByCode("pack_100")

	topupEvent := PaymentEvent{
		Type:      EventTypeWalletTopup,
		EventID:   "evt-1",
		PaymentID: "pay-1",
		Status:    PaymentStatusApproved,
	}

	t.Run("Approved payment credits the wallet", func(t *testing.T) {
		repo := new(MockBillingRepo)
		ledger := new(MockLedger)
		svc := newTestService(repo, ledger, new(MockTenantRepo), new(MockGateway))

		checkout := &TopupCheckout{ID: 3, TenantID: 5, PackCode: "pack_100", PaymentID: "pay-1", Status: CheckoutStatusPending}

		repo.On("FindTopupByPaymentID", ctx, "pay-1").Return(checkout, nil)
		ledger.On("CreditTopup", ctx, 5, "pay-1", pack100).Return(true, nil)
		repo.On("MarkTopupConsumed", ctx, 3).Return(nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, topupEvent)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Applied)
		repo.AssertExpectations(t)
	})

	t.Run("Replayed webhook does not credit twice", func(t *testing.T) {
		repo := new(MockBillingRepo)
		ledger := new(MockLedger)
		svc := newTestService(repo, ledger, new(MockTenantRepo), new(MockGateway))

		checkout := &TopupCheckout{ID: 3, TenantID: 5, PackCode: "pack_100", PaymentID: "pay-1", Status: CheckoutStatusConsumed}

		repo.On("FindTopupByPaymentID", ctx, "pay-1").Return(checkout, nil)
		// The wallet dedup key already holds a row for this payment.
		ledger.On("CreditTopup", ctx, 5, "pay-1", pack100).Return(false, nil)
		repo.On("MarkTopupConsumed", ctx, 3).Return(nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, topupEvent)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.False(t, res.Applied)
	})

	t.Run("Non-approved payment is ignored", func(t *testing.T) {
		repo := new(MockBillingRepo)
		svc := newTestService(repo, new(MockLedger), new(MockTenantRepo), new(MockGateway))

		ev := topupEvent
		ev.Status = PaymentStatusRejected

		res, err := svc.Reconcile(ctx, ev)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.False(t, res.Applied)
		repo.AssertNotCalled(t, "FindTopupByPaymentID", mock.Anything, mock.Anything)
	})

	t.Run("Unmatched payment id", func(t *testing.T) {
		repo := new(MockBillingRepo)
		svc := newTestService(repo, new(MockLedger), new(MockTenantRepo), new(MockGateway))

		repo.On("FindTopupByPaymentID", ctx, "pay-1").Return(nil, nil)

		res, err := svc.Reconcile(ctx, topupEvent)
		require.NoError(t, err)
		assert.False(t, res.OK)
	})
}

func TestReconcileSubscriptionCharge(t *testing.T) {
	ctx := context.Background()
	prefID := "pref-1"

	chargeEvent := PaymentEvent{
		Type:         EventTypeSubscriptionCharge,
		EventID:      "evt-2",
		PaymentID:    "pay-2",
		PreferenceID: prefID,
		Status:       PaymentStatusApproved,
	}

	t.Run("Approval promotes pending subscription to active", func(t *testing.T) {
		repo := new(MockBillingRepo)
		ledger := new(MockLedger)
		tenants := new(MockTenantRepo)
		svc := newTestService(repo, ledger, tenants, new(MockGateway))

		sub := &Subscription{ID: 9, TenantID: 5, PlanCode: plan.CodePro, Status: SubStatusPending, GatewayPreferenceID: &prefID}
		periodEnd := testNow.AddDate(0, 1, 0)

		repo.On("FindByPreferenceID", ctx, prefID).Return(sub, nil)
		repo.On("UpdateStatus", ctx, 9, SubStatusActive, &periodEnd).Return(nil)
		tenants.On("UpdatePlan", ctx, 5, plan.CodePro, plan.StatusActive, &periodEnd).Return(nil)
		ledger.On("EnsureCycle", ctx, 5).Return(&wallet.Wallet{TenantID: 5}, nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, chargeEvent)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Applied)
		repo.AssertExpectations(t)
		tenants.AssertExpectations(t)
	})

	t.Run("Replay against an already active subscription is a no-op", func(t *testing.T) {
		repo := new(MockBillingRepo)
		tenants := new(MockTenantRepo)
		svc := newTestService(repo, new(MockLedger), tenants, new(MockGateway))

		sub := &Subscription{ID: 9, TenantID: 5, PlanCode: plan.CodePro, Status: SubStatusActive, GatewayPreferenceID: &prefID}

		repo.On("FindByPreferenceID", ctx, prefID).Return(sub, nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, chargeEvent)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.False(t, res.Applied)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		tenants.AssertNotCalled(t, "UpdatePlan", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Rejection marks subscription and tenant delinquent", func(t *testing.T) {
		repo := new(MockBillingRepo)
		tenants := new(MockTenantRepo)
		svc := newTestService(repo, new(MockLedger), tenants, new(MockGateway))

		sub := &Subscription{ID: 9, TenantID: 5, PlanCode: plan.CodePro, Status: SubStatusActive, GatewayPreferenceID: &prefID}

		ev := chargeEvent
		ev.Status = PaymentStatusRejected

		repo.On("FindByPreferenceID", ctx, prefID).Return(sub, nil)
		repo.On("UpdateStatus", ctx, 9, SubStatusDelinquent, (*time.Time)(nil)).Return(nil)
		tenants.On("SetStatus", ctx, 5, plan.StatusDelinquent).Return(nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, ev)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Applied)
		tenants.AssertExpectations(t)
	})

	t.Run("Cancellation", func(t *testing.T) {
		repo := new(MockBillingRepo)
		tenants := new(MockTenantRepo)
		svc := newTestService(repo, new(MockLedger), tenants, new(MockGateway))

		sub := &Subscription{ID: 9, TenantID: 5, PlanCode: plan.CodePro, Status: SubStatusActive, GatewayPreferenceID: &prefID}

		ev := chargeEvent
		ev.Status = PaymentStatusCancelled

		repo.On("FindByPreferenceID", ctx, prefID).Return(sub, nil)
		repo.On("UpdateStatus", ctx, 9, SubStatusCanceled, (*time.Time)(nil)).Return(nil)
		tenants.On("SetStatus", ctx, 5, plan.StatusCanceled).Return(nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, ev)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Applied)
	})

	t.Run("Falls back to external reference when preference misses", func(t *testing.T) {
		repo := new(MockBillingRepo)
		tenants := new(MockTenantRepo)
		svc := newTestService(repo, new(MockLedger), tenants, new(MockGateway))

		extRef := "ext-9"
		sub := &Subscription{ID: 9, TenantID: 5, PlanCode: plan.CodePro, Status: SubStatusActive, ExternalReference: &extRef}

		ev := chargeEvent
		ev.ExternalReference = extRef

		repo.On("FindByPreferenceID", ctx, prefID).Return(nil, nil)
		repo.On("FindByExternalReference", ctx, extRef).Return(sub, nil)
		repo.On("InsertEvent", ctx, mock.AnythingOfType("*billing.SubscriptionEvent")).Return(nil)

		res, err := svc.Reconcile(ctx, ev)
		require.NoError(t, err)
		assert.True(t, res.OK)
	})

	t.Run("Unmatched event", func(t *testing.T) {
		repo := new(MockBillingRepo)
		svc := newTestService(repo, new(MockLedger), new(MockTenantRepo), new(MockGateway))

		repo.On("FindByPreferenceID", ctx, prefID).Return(nil, nil)

		res, err := svc.Reconcile(ctx, chargeEvent)
		require.NoError(t, err)
		assert.False(t, res.OK)
		repo.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything)
	})
}

func TestReconcileUnknownType(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(new(MockBillingRepo), new(MockLedger), new(MockTenantRepo), new(MockGateway))

	res, err := svc.Reconcile(ctx, PaymentEvent{Type: "chargeback", Status: PaymentStatusApproved})
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestCreateTopupCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown pack", func(t *testing.T) {
		svc := newTestService(new(MockBillingRepo), new(MockLedger), new(MockTenantRepo), new(MockGateway))

		_, err := svc.CreateTopupCheckout(ctx, 5, "pack_9000", "owner@example.com")
		assert.ErrorIs(t, err, ErrUnknownPack)
	})

	t.Run("Creates a PIX payment and stores the checkout", func(t *testing.T) {
		repo := new(MockBillingRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, new(MockLedger), new(MockTenantRepo), gateway)

		pix := &PixCheckout{PaymentID: "123", QRCode: "qr-data"}
		gateway.On("CreatePixPayment", ctx, int64(1490), "Pacote de mensagens pack_100", mock.AnythingOfType("string"), "owner@example.com").Return(pix, nil)
		repo.On("CreateTopupCheckout", ctx, 5, "pack_100", "123", "qr-data").
			Return(&TopupCheckout{ID: 1, TenantID: 5, PackCode: "pack_100", PaymentID: "123", QRCode: "qr-data", Status: CheckoutStatusPending}, nil)

		checkout, err := svc.CreateTopupCheckout(ctx, 5, "pack_100", "owner@example.com")
		require.NoError(t, err)
		assert.Equal(t, "123", checkout.PaymentID)
		gateway.AssertExpectations(t)
	})
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown plan", func(t *testing.T) {
		svc := newTestService(new(MockBillingRepo), new(MockLedger), new(MockTenantRepo), new(MockGateway))

		_, _, err := svc.Subscribe(ctx, 5, "enterprise", "owner@example.com", "https://back")
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})

	t.Run("Creates a pending subscription with a checkout link", func(t *testing.T) {
		repo := new(MockBillingRepo)
		gateway := new(MockGateway)
		svc := newTestService(repo, new(MockLedger), new(MockTenantRepo), gateway)

		checkout := &SubscriptionCheckout{PreferenceID: "pref-7", InitPoint: "https://mp/checkout"}
		gateway.On("CreateSubscriptionCheckout", ctx, "Assinatura Pro", int64(9990), mock.AnythingOfType("string"), "owner@example.com", "https://back").Return(checkout, nil)
		repo.On("CreatePending", ctx, 5, plan.CodePro, "monthly", &checkout.PreferenceID, mock.AnythingOfType("*string")).
			Return(&Subscription{ID: 9, TenantID: 5, PlanCode: plan.CodePro, Status: SubStatusPending}, nil)

		sub, initPoint, err := svc.Subscribe(ctx, 5, plan.CodePro, "owner@example.com", "https://back")
		require.NoError(t, err)
		assert.Equal(t, SubStatusPending, sub.Status)
		assert.Equal(t, "https://mp/checkout", initPoint)
	})
}
