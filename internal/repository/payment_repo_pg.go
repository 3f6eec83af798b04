package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zosh-air/airline-reservation/internal/domain"
)

var ErrPaymentNotFound = errors.New("payment not found")

type PaymentRepository interface {
	// Record stores the processor's latest word on the booking's payment.
	// One payment per booking; a second report updates the same row.
	Record(ctx context.Context, payment *domain.Payment) error
	GetByBookingReference(ctx context.Context, reference string) (*domain.Payment, error)
}

type PGPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func (r *PGPaymentRepository) Record(ctx context.Context, payment *domain.Payment) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO payments (id, booking_reference, amount_cents, currency, provider, transaction_id, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (booking_reference) DO UPDATE
		SET status=EXCLUDED.status, transaction_id=EXCLUDED.transaction_id, paid_at=EXCLUDED.paid_at, updated_at=now()
		RETURNING created_at, updated_at`,
		payment.ID, payment.BookingReference, payment.AmountCents, payment.Currency,
		payment.Provider, payment.TransactionID, payment.Status, payment.PaidAt).
		Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PGPaymentRepository) GetByBookingReference(ctx context.Context, reference string) (*domain.Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, booking_reference, amount_cents, currency, provider, transaction_id, status, paid_at, created_at, updated_at
		FROM payments WHERE booking_reference=$1`, reference)

	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingReference, &p.AmountCents, &p.Currency, &p.Provider, &p.TransactionID, &p.Status, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
