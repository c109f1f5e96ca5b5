package billing

import (
	"context"
	"time"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

type Repository interface {
	CreatePending(ctx context.Context, tenantID int, planCode, billingCycle string, preferenceID, externalReference *string) (*Subscription, error)
	FindByPreferenceID(ctx context.Context, preferenceID string) (*Subscription, error)
	FindByExternalReference(ctx context.Context, externalReference string) (*Subscription, error)
	CurrentSubscription(ctx context.Context, tenantID int) (*plan.SubscriptionInfo, error)
	UpdateStatus(ctx context.Context, subscriptionID int, status string, currentPeriodEnd *time.Time) error
	InsertEvent(ctx context.Context, ev *SubscriptionEvent) error

	CreateTopupCheckout(ctx context.Context, tenantID int, packCode, paymentID, qrCode string) (*TopupCheckout, error)
	FindTopupByPaymentID(ctx context.Context, paymentID string) (*TopupCheckout, error)
	MarkTopupConsumed(ctx context.Context, checkoutID int) error
}
