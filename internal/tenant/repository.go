package tenant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carlos50barbosa/agendamentos-online-mvp-sub000/internal/plan"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateTrial(ctx context.Context, name, planCode string, trialDays int) (*Tenant, error) {
	trialEndsAt := time.Now().AddDate(0, 0, trialDays)

	t := &Tenant{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO tenants (name, plan_code, plan_status, trial_ends_at)
		VALUES ($1, $2, 'trialing', $3)
		RETURNING id, name, plan_code, plan_status, trial_ends_at, plan_active_until, created_at, updated_at
	`, name, planCode, trialEndsAt).StructScan(t)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Tenant, error) {
	t := &Tenant{}
	err := r.db.GetContext(ctx, t, `SELECT * FROM tenants WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *repository) PlanInfo(ctx context.Context, tenantID int) (*plan.TenantInfo, error) {
	t, err := r.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	return &plan.TenantInfo{
		ID:              t.ID,
		PlanCode:        t.PlanCode,
		PlanStatus:      t.PlanStatus,
		TrialEndsAt:     t.TrialEndsAt,
		PlanActiveUntil: t.PlanActiveUntil,
	}, nil
}

func (r *repository) UpdatePlan(ctx context.Context, tenantID int, planCode, planStatus string, activeUntil *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenants
		SET plan_code = $1, plan_status = $2, plan_active_until = $3, updated_at = NOW()
		WHERE id = $4
	`, planCode, planStatus, activeUntil, tenantID)
	return err
}

func (r *repository) SetStatus(ctx context.Context, tenantID int, planStatus string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tenants
		SET plan_status = $1, updated_at = NOW()
		WHERE id = $2
	`, planStatus, tenantID)
	return err
}
