package wallet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

const walletColumns = `id, tenant_id, cycle_start, cycle_end, included_limit, included_balance, extra_balance, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetWallet(ctx context.Context, tenantID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w,
		`SELECT `+walletColumns+` FROM wallets WHERE tenant_id = $1`, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// CreateIfAbsent creates the wallet with a full included balance. A
// concurrent creator winning the insert race is a no-op: the unique
// constraint on tenant_id swallows the duplicate and the surviving row
// is returned.
func (r *repository) CreateIfAbsent(ctx context.Context, tenantID, includedLimit int, cycleStart, cycleEnd time.Time) (*Wallet, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (tenant_id, cycle_start, cycle_end, included_limit, included_balance, extra_balance)
		VALUES ($1, $2, $3, $4, $4, 0)
		ON CONFLICT (tenant_id) DO NOTHING
	`, tenantID, cycleStart, cycleEnd, includedLimit)
	if err != nil {
		return nil, err
	}

	w, err := r.GetWallet(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWalletNotFound
	}
	return w, nil
}

// ApplyCycleReset rolls the wallet into a new billing window. The reset
// is keyed by (tenant_id, new cycle_start): concurrent callers collapse
// to one effective reset via the partial unique index on cycle_reset
// rows. extra_balance is left untouched. Returns false when another
// caller already applied this reset.
func (r *repository) ApplyCycleReset(ctx context.Context, tenantID, includedLimit int, newStart, newEnd time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var w Wallet
	err = tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE tenant_id = $1 FOR UPDATE`, tenantID,
	).StructScan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrWalletNotFound
		}
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (tenant_id, kind, delta, included_delta, extra_delta, cycle_start)
		VALUES ($1, 'cycle_reset', $2, $2, 0, $3)
		ON CONFLICT (tenant_id, cycle_start) WHERE kind = 'cycle_reset' DO NOTHING
	`, tenantID, includedLimit-w.IncludedBalance, newStart)
	if err != nil {
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET cycle_start = $1, cycle_end = $2, included_limit = $3, included_balance = $3, updated_at = NOW()
		WHERE id = $4
	`, newStart, newEnd, includedLimit, w.ID)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// Debit consumes exactly one message credit. The wallet row lock, the
// replay check and the ledger insert share one transaction so that two
// concurrent debits with different message ids serialize their balance
// mutation, and a replayed message id never mutates the balance.
func (r *repository) Debit(ctx context.Context, tenantID int, appointmentID *int, providerMessageID string) (string, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", false, err
	}
	defer tx.Rollback()

	var w Wallet
	err = tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE tenant_id = $1 FOR UPDATE`, tenantID,
	).StructScan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, ErrWalletNotFound
		}
		return "", false, err
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM wallet_transactions
			WHERE tenant_id = $1 AND kind = 'debit' AND provider_message_id = $2
		)
	`, tenantID, providerMessageID)
	if err != nil {
		return "", false, err
	}
	if exists {
		return "", true, tx.Commit()
	}

	var bucket string
	includedDelta, extraDelta := 0, 0
	switch {
	case w.IncludedBalance > 0:
		bucket = BucketIncluded
		includedDelta = -1
		w.IncludedBalance--
	case w.ExtraBalance > 0:
		bucket = BucketExtra
		extraDelta = -1
		w.ExtraBalance--
	default:
		return "", false, ErrInsufficientBalance
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET included_balance = $1, extra_balance = $2, updated_at = NOW()
		WHERE id = $3
	`, w.IncludedBalance, w.ExtraBalance, w.ID)
	if err != nil {
		return "", false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (tenant_id, kind, delta, included_delta, extra_delta, provider_message_id, appointment_id)
		VALUES ($1, 'debit', -1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, provider_message_id) WHERE kind = 'debit' DO NOTHING
	`, tenantID, includedDelta, extraDelta, providerMessageID, appointmentID)
	if err != nil {
		return "", false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if inserted == 0 {
		// Lost a race the row lock should have prevented; the deferred
		// rollback discards the balance update.
		return "", true, nil
	}

	return bucket, false, tx.Commit()
}

// CreditTopup adds paid credits to the extra bucket, at most once per
// payment id. Returns false when the payment was already credited.
func (r *repository) CreditTopup(ctx context.Context, tenantID int, paymentID string, messages int, metadata *string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var w Wallet
	err = tx.QueryRowxContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE tenant_id = $1 FOR UPDATE`, tenantID,
	).StructScan(&w)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrWalletNotFound
		}
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (tenant_id, kind, delta, included_delta, extra_delta, payment_id, metadata)
		VALUES ($1, 'topup_credit', $2, 0, $2, $3, $4)
		ON CONFLICT (tenant_id, payment_id) WHERE kind = 'topup_credit' DO NOTHING
	`, tenantID, messages, paymentID, metadata)
	if err != nil {
		return false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if inserted == 0 {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE wallets
		SET extra_balance = extra_balance + $1, updated_at = NOW()
		WHERE id = $2
	`, messages, w.ID)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (r *repository) InsertBlocked(ctx context.Context, tenantID int, appointmentID *int, reason string, metadata *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_transactions (tenant_id, kind, delta, included_delta, extra_delta, appointment_id, reason, metadata)
		VALUES ($1, 'blocked', 0, 0, 0, $2, $3, $4)
	`, tenantID, appointmentID, reason, metadata)
	return err
}

func (r *repository) CountDebitsForAppointment(ctx context.Context, tenantID, appointmentID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM wallet_transactions
		WHERE tenant_id = $1 AND kind = 'debit' AND appointment_id = $2
	`, tenantID, appointmentID)
	return count, err
}

func (r *repository) ListTransactions(ctx context.Context, tenantID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT * FROM wallet_transactions
		WHERE tenant_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	return txs, err
}

func (r *repository) ListTopups(ctx context.Context, tenantID, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT * FROM wallet_transactions
		WHERE tenant_id = $1 AND kind = 'topup_credit'
		ORDER BY id DESC
		LIMIT $2
	`, tenantID, limit)
	return txs, err
}
