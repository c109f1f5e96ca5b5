package professional

import "context"

type Repository interface {
	CreateProfessional(ctx context.Context, tenantID int, name, phone string) (*Professional, error)
	ListProfessionals(ctx context.Context, tenantID int) ([]Professional, error)
	CountActive(ctx context.Context, tenantID int) (int, error)
	DeactivateProfessional(ctx context.Context, tenantID, id int) error

	CreateService(ctx context.Context, tenantID int, name string, durationMin int, priceCents int64) (*Service, error)
	ListServices(ctx context.Context, tenantID int) ([]Service, error)
}
