package appointment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, tenantID, professionalID, serviceID int, customerName, customerPhone string, startsAt time.Time) (*Appointment, error) {
	a := &Appointment{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO appointments (tenant_id, professional_id, service_id, customer_name, customer_phone, starts_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled')
		RETURNING id, tenant_id, professional_id, service_id, customer_name, customer_phone, starts_at, status, created_at
	`, tenantID, professionalID, serviceID, customerName, customerPhone, startsAt).StructScan(a)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repository) FindByID(ctx context.Context, tenantID, id int) (*Appointment, error) {
	a := &Appointment{}
	err := r.db.GetContext(ctx, a, `
		SELECT id, tenant_id, professional_id, service_id, customer_name, customer_phone, starts_at, status, created_at
		FROM appointments
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *repository) Cancel(ctx context.Context, tenantID, id int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE tenant_id = $1 AND id = $2 AND status = 'scheduled'
	`, tenantID, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 50
	}

	appts := []Appointment{}
	err := r.db.SelectContext(ctx, &appts, `
		SELECT id, tenant_id, professional_id, service_id, customer_name, customer_phone, starts_at, status, created_at
		FROM appointments
		WHERE tenant_id = $1
		ORDER BY starts_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	return appts, err
}
