package plan

import (
	"context"
	"errors"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/metrics"
)

var (
	ErrPlanDelinquent    = errors.New("subscription payment is overdue")
	ErrProfessionalLimit = errors.New("professional limit reached for current plan")
)

// Guard reject codes, stable across the API surface.
const (
	ReasonPlanDelinquent    = "plan_delinquent"
	ReasonProfessionalLimit = "professional_limit_reached"
)

type EntitlementSource interface {
	Resolve(ctx context.Context, tenantID int) (Entitlement, error)
}

type ProfessionalCounter interface {
	CountActive(ctx context.Context, tenantID int) (int, error)
}

// Notifier receives plan-limit events. Injected so the notification
// path is testable with a fake sink.
type Notifier interface {
	PlanLimitReached(ctx context.Context, tenantID int, action, reason string)
}

type noopNotifier struct{}

func (noopNotifier) PlanLimitReached(context.Context, int, string, string) {}

// Guard gates state-changing actions on the tenant's entitlement.
// Delinquent tenants may read and cancel but not create new obligations.
// Appointment volume and service count are deliberately unlimited; only
// the professional count is capped by the plan.
type Guard struct {
	entitlements  EntitlementSource
	professionals ProfessionalCounter
	notifier      Notifier
}

func NewGuard(entitlements EntitlementSource, professionals ProfessionalCounter, notifier Notifier) *Guard {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Guard{entitlements: entitlements, professionals: professionals, notifier: notifier}
}

func (g *Guard) CheckCreateProfessional(ctx context.Context, tenantID int) error {
	ent, err := g.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	if ent.IsDelinquent {
		return g.reject(ctx, tenantID, "create_professional", ReasonPlanDelinquent, ErrPlanDelinquent)
	}

	count, err := g.professionals.CountActive(ctx, tenantID)
	if err != nil {
		return err
	}
	if count >= ent.MaxProfessionals {
		return g.reject(ctx, tenantID, "create_professional", ReasonProfessionalLimit, ErrProfessionalLimit)
	}
	return nil
}

func (g *Guard) CheckCreateService(ctx context.Context, tenantID int) error {
	return g.checkNotDelinquent(ctx, tenantID, "create_service")
}

func (g *Guard) CheckCreateAppointment(ctx context.Context, tenantID int) error {
	return g.checkNotDelinquent(ctx, tenantID, "create_appointment")
}

func (g *Guard) CheckSendMessage(ctx context.Context, tenantID int) error {
	return g.checkNotDelinquent(ctx, tenantID, "send_message")
}

func (g *Guard) checkNotDelinquent(ctx context.Context, tenantID int, action string) error {
	ent, err := g.entitlements.Resolve(ctx, tenantID)
	if err != nil {
		return err
	}
	if ent.IsDelinquent {
		return g.reject(ctx, tenantID, action, ReasonPlanDelinquent, ErrPlanDelinquent)
	}
	return nil
}

func (g *Guard) reject(ctx context.Context, tenantID int, action, reason string, err error) error {
	metrics.RecordGuardRejection(action, reason)
	g.notifier.PlanLimitReached(ctx, tenantID, action, reason)
	return err
}
