package wallet

import (
	"context"
	"time"
)

type Repository interface {
	GetWallet(ctx context.Context, tenantID int) (*Wallet, error)
	CreateIfAbsent(ctx context.Context, tenantID, includedLimit int, cycleStart, cycleEnd time.Time) (*Wallet, error)
	ApplyCycleReset(ctx context.Context, tenantID, includedLimit int, newStart, newEnd time.Time) (bool, error)
	Debit(ctx context.Context, tenantID int, appointmentID *int, providerMessageID string) (bucket string, idempotent bool, err error)
	CreditTopup(ctx context.Context, tenantID int, paymentID string, messages int, metadata *string) (applied bool, err error)
	InsertBlocked(ctx context.Context, tenantID int, appointmentID *int, reason string, metadata *string) error
	CountDebitsForAppointment(ctx context.Context, tenantID, appointmentID int) (int, error)
	ListTransactions(ctx context.Context, tenantID, limit, offset int) ([]Transaction, error)
	ListTopups(ctx context.Context, tenantID, limit int) ([]Transaction, error)
}
