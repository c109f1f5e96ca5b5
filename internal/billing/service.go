package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/logger"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/metrics"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/tenant"
	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/wallet"
)

var (
	ErrUnknownPack = errors.New("unknown top-up pack")
	ErrUnknownPlan = errors.New("unknown plan")
)

type Service interface {
	Reconcile(ctx context.Context, ev PaymentEvent) (*ReconcileResult, error)
	CreateTopupCheckout(ctx context.Context, tenantID int, packCode, payerEmail string) (*TopupCheckout, error)
	Subscribe(ctx context.Context, tenantID int, planCode, payerEmail, backURL string) (*Subscription, string, error)
}

type service struct {
	repo    Repository
	ledger  wallet.Ledger
	tenants tenant.Repository
	gateway Gateway
	now     func() time.Time
}

func NewService(repo Repository, ledger wallet.Ledger, tenants tenant.Repository, gateway Gateway) Service {
	return &service{
		repo:    repo,
		ledger:  ledger,
		tenants: tenants,
		gateway: gateway,
		now:     time.Now,
	}
}

// Reconcile applies one gateway webhook event. Deliveries are
// at-least-once and unordered, so every branch must converge to the
// same final state however many times it runs. Balance-affecting
// effects dedup at the wallet transaction layer; subscription
// transitions are no-ops once the target state is reached.
func (s *service) Reconcile(ctx context.Context, ev PaymentEvent) (*ReconcileResult, error) {
	switch ev.Type {
	case EventTypeSubscriptionCharge:
		return s.reconcileSubscriptionCharge(ctx, ev)
	case EventTypeWalletTopup:
		return s.reconcileWalletTopup(ctx, ev)
	default:
		metrics.RecordWebhookEvent(ev.Type, ev.Status, "ignored")
		return &ReconcileResult{OK: false}, nil
	}
}

func (s *service) reconcileSubscriptionCharge(ctx context.Context, ev PaymentEvent) (*ReconcileResult, error) {
	sub, err := s.resolveSubscription(ctx, ev)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		logger.Error("webhook matched no subscription", "payment_id", ev.PaymentID, "preference_id", ev.PreferenceID)
		metrics.RecordWebhookEvent(ev.Type, ev.Status, "unmatched")
		return &ReconcileResult{OK: false}, nil
	}

	var target string
	switch ev.Status {
	case PaymentStatusApproved:
		target = SubStatusActive
	case PaymentStatusRejected:
		target = SubStatusDelinquent
	case PaymentStatusCancelled:
		target = SubStatusCanceled
	default:
		metrics.RecordWebhookEvent(ev.Type, ev.Status, "ignored")
		return &ReconcileResult{OK: false}, nil
	}

	applied := false
	if sub.Status != target {
		var periodEnd *time.Time
		if target == SubStatusActive {
			end := s.now().AddDate(0, 1, 0)
			periodEnd = &end
		}

		if err := s.repo.UpdateStatus(ctx, sub.ID, target, periodEnd); err != nil {
			return nil, err
		}

		if target == SubStatusActive {
			if err := s.tenants.UpdatePlan(ctx, sub.TenantID, sub.PlanCode, plan.StatusActive, periodEnd); err != nil {
				return nil, err
			}
			// Provision the wallet so the new allowance is visible
			// immediately after activation.
			if _, err := s.ledger.EnsureCycle(ctx, sub.TenantID); err != nil {
				return nil, err
			}
		} else {
			tenantStatus := plan.StatusDelinquent
			if target == SubStatusCanceled {
				tenantStatus = plan.StatusCanceled
			}
			if err := s.tenants.SetStatus(ctx, sub.TenantID, tenantStatus); err != nil {
				return nil, err
			}
		}
		applied = true
	}

	if err := s.insertEvent(ctx, sub.TenantID, &sub.ID, ev); err != nil {
		return nil, err
	}

	metrics.RecordWebhookEvent(ev.Type, ev.Status, outcome(applied))
	return &ReconcileResult{OK: true, Applied: applied}, nil
}

func (s *service) reconcileWalletTopup(ctx context.Context, ev PaymentEvent) (*ReconcileResult, error) {
	if ev.Status != PaymentStatusApproved {
		metrics.RecordWebhookEvent(ev.Type, ev.Status, "ignored")
		return &ReconcileResult{OK: true, Applied: false}, nil
	}

	checkout, err := s.repo.FindTopupByPaymentID(ctx, ev.PaymentID)
	if err != nil {
		return nil, err
	}
	if checkout == nil {
		logger.Error("webhook matched no top-up checkout", "payment_id", ev.PaymentID)
		metrics.RecordWebhookEvent(ev.Type, ev.Status, "unmatched")
		return &ReconcileResult{OK: false}, nil
	}

	pack, ok := plan.PackByCode(checkout.PackCode)
	if !ok {
		return nil, ErrUnknownPack
	}

	applied, err := s.ledger.CreditTopup(ctx, checkout.TenantID, ev.PaymentID, pack)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkTopupConsumed(ctx, checkout.ID); err != nil {
		return nil, err
	}

	if err := s.insertEvent(ctx, checkout.TenantID, nil, ev); err != nil {
		return nil, err
	}

	metrics.RecordWebhookEvent(ev.Type, ev.Status, outcome(applied))
	return &ReconcileResult{OK: true, Applied: applied}, nil
}

func (s *service) resolveSubscription(ctx context.Context, ev PaymentEvent) (*Subscription, error) {
	if ev.PreferenceID != "" {
		sub, err := s.repo.FindByPreferenceID(ctx, ev.PreferenceID)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	if ev.ExternalReference != "" {
		return s.repo.FindByExternalReference(ctx, ev.ExternalReference)
	}
	return nil, nil
}

func (s *service) insertEvent(ctx context.Context, tenantID int, subscriptionID *int, ev PaymentEvent) error {
	var eventID *string
	if ev.EventID != "" {
		eventID = &ev.EventID
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	payloadStr := string(payload)

	return s.repo.InsertEvent(ctx, &SubscriptionEvent{
		TenantID:       tenantID,
		SubscriptionID: subscriptionID,
		GatewayEventID: eventID,
		EventType:      ev.Type,
		Status:         ev.Status,
		Payload:        &payloadStr,
	})
}

// CreateTopupCheckout starts a PIX purchase of a message pack. The
// credit lands on the wallet only when the approval webhook arrives.
func (s *service) CreateTopupCheckout(ctx context.Context, tenantID int, packCode, payerEmail string) (*TopupCheckout, error) {
	pack, ok := plan.PackByCode(packCode)
	if !ok {
		return nil, ErrUnknownPack
	}

	externalReference := uuid.NewString()
	pix, err := s.gateway.CreatePixPayment(ctx, pack.PriceCents, "Pacote de mensagens "+pack.Code, externalReference, payerEmail)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateTopupCheckout(ctx, tenantID, pack.Code, pix.PaymentID, pix.QRCode)
}

// Subscribe creates a pending subscription row and a gateway checkout.
// The row is promoted to active by the first approved charge webhook.
func (s *service) Subscribe(ctx context.Context, tenantID int, planCode, payerEmail, backURL string) (*Subscription, string, error) {
	if !plan.IsKnownCode(planCode) {
		return nil, "", ErrUnknownPlan
	}
	p := plan.ByCode(planCode)

	externalReference := uuid.NewString()
	checkout, err := s.gateway.CreateSubscriptionCheckout(ctx, "Assinatura "+p.Name, p.PriceCents, externalReference, payerEmail, backURL)
	if err != nil {
		return nil, "", err
	}

	sub, err := s.repo.CreatePending(ctx, tenantID, planCode, "monthly", &checkout.PreferenceID, &externalReference)
	if err != nil {
		return nil, "", err
	}

	return sub, checkout.InitPoint, nil
}

func outcome(applied bool) string {
	if applied {
		return "applied"
	}
	return "noop"
}
