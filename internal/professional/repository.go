package professional

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateProfessional(ctx context.Context, tenantID int, name, phone string) (*Professional, error) {
	p := &Professional{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO professionals (tenant_id, name, phone, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, tenant_id, name, phone, active, created_at
	`, tenantID, name, phone).StructScan(p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *repository) ListProfessionals(ctx context.Context, tenantID int) ([]Professional, error) {
	pros := []Professional{}
	err := r.db.SelectContext(ctx, &pros, `
		SELECT id, tenant_id, name, phone, active, created_at
		FROM professionals
		WHERE tenant_id = $1
		ORDER BY id
	`, tenantID)
	return pros, err
}

func (r *repository) CountActive(ctx context.Context, tenantID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM professionals
		WHERE tenant_id = $1 AND active
	`, tenantID)
	return count, err
}

func (r *repository) DeactivateProfessional(ctx context.Context, tenantID, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE professionals SET active = FALSE
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return err
}

func (r *repository) CreateService(ctx context.Context, tenantID int, name string, durationMin int, priceCents int64) (*Service, error) {
	s := &Service{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO services (tenant_id, name, duration_min, price_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tenant_id, name, duration_min, price_cents, created_at
	`, tenantID, name, durationMin, priceCents).StructScan(s)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repository) ListServices(ctx context.Context, tenantID int) ([]Service, error) {
	svcs := []Service{}
	err := r.db.SelectContext(ctx, &svcs, `
		SELECT id, tenant_id, name, duration_min, price_cents, created_at
		FROM services
		WHERE tenant_id = $1
		ORDER BY id
	`, tenantID)
	return svcs, err
}
