package tenant

import (
	"context"
	"time"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

type Repository interface {
	CreateTrial(ctx context.Context, name, planCode string, trialDays int) (*Tenant, error)
	FindByID(ctx context.Context, id int) (*Tenant, error)
	PlanInfo(ctx context.Context, tenantID int) (*plan.TenantInfo, error)
	UpdatePlan(ctx context.Context, tenantID int, planCode, planStatus string, activeUntil *time.Time) error
	SetStatus(ctx context.Context, tenantID int, planStatus string) error
}
