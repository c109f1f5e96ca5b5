package appointment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, tenantID, professionalID, serviceID int, customerName, customerPhone string, startsAt time.Time) (*Appointment, error)
	FindByID(ctx context.Context, tenantID, id int) (*Appointment, error)
	Cancel(ctx context.Context, tenantID, id int) error
	ListByTenant(ctx context.Context, tenantID, limit, offset int) ([]Appointment, error)
}
