package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zosh-air/airline-reservation/internal/domain"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, reference string, status domain.BookingStatus) (*domain.Booking, error)
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
	ListConfirmedDeparted(ctx context.Context, now time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, reference, flight_id, status, email, hold_expires_at, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.FlightID, &b.Status, &b.Email, &b.HoldExpiresAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `
		INSERT INTO bookings (reference, flight_id, status, email, hold_expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.FlightID, booking.Status, booking.Email, booking.HoldExpiresAt).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	for _, seatID := range booking.SeatIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO booking_seats (booking_id, seat_id) VALUES ($1, $2)`, booking.ID, seatID); err != nil {
			return err
		}
	}
	for i := range booking.Passengers {
		p := &booking.Passengers[i]
		p.BookingID = booking.ID
		if err := tx.QueryRow(ctx, `
			INSERT INTO passengers (booking_id, full_name, seat_id)
			VALUES ($1, $2, $3) RETURNING id`,
			p.BookingID, p.FullName, p.SeatID).Scan(&p.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1`, reference)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.loadDetails(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, reference string, status domain.BookingStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings SET status=$1, updated_at=now()
		WHERE reference=$2
		RETURNING `+bookingColumns, status, reference)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.loadDetails(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE bookings SET status=$1, updated_at=now()
		WHERE status=$2 AND hold_expires_at <= $3
		RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	expired, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	for i := range expired {
		if err := r.loadDetails(ctx, &expired[i]); err != nil {
			return nil, err
		}
	}
	return expired, nil
}

func (r *PGBookingRepository) ListConfirmedDeparted(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT b.id, b.reference, b.flight_id, b.status, b.email, b.hold_expires_at, b.created_at, b.updated_at
		FROM bookings b
		JOIN flights f ON f.id = b.flight_id
		WHERE b.status=$1 AND f.departure_time < $2`,
		domain.BookingStatusConfirmed, now)
	if err != nil {
		return nil, err
	}
	departed, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	for i := range departed {
		if err := r.loadDetails(ctx, &departed[i]); err != nil {
			return nil, err
		}
	}
	return departed, nil
}

func (r *PGBookingRepository) loadDetails(ctx context.Context, b *domain.Booking) error {
	rows, err := r.db.Query(ctx, `SELECT seat_id FROM booking_seats WHERE booking_id=$1 ORDER BY seat_id`, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	b.SeatIDs = b.SeatIDs[:0]
	for rows.Next() {
		var seatID string
		if err := rows.Scan(&seatID); err != nil {
			return err
		}
		b.SeatIDs = append(b.SeatIDs, seatID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	prows, err := r.db.Query(ctx, `SELECT id, booking_id, full_name, seat_id FROM passengers WHERE booking_id=$1 ORDER BY id`, b.ID)
	if err != nil {
		return err
	}
	defer prows.Close()
	b.Passengers = b.Passengers[:0]
	for prows.Next() {
		var p domain.Passenger
		if err := prows.Scan(&p.ID, &p.BookingID, &p.FullName, &p.SeatID); err != nil {
			return err
		}
		b.Passengers = append(b.Passengers, p)
	}
	return prows.Err()
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
