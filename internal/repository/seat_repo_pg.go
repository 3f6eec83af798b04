package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/ledger"
)

// PGSeatLedger is the durable seat ledger. The compare-and-set contract maps
// onto a single conditional UPDATE guarded by the version column, so no
// multi-statement transaction is needed per mutation.
type PGSeatLedger struct {
	db *pgxpool.Pool
}

func NewSeatLedger(db *pgxpool.Pool) ledger.SeatLedger {
	return &PGSeatLedger{db: db}
}

const seatColumns = `flight_id, seat_id, status, version, holder_booking_id, hold_expires_at, created_at, updated_at`

func scanSeat(row pgx.Row) (*domain.SeatSlot, error) {
	var s domain.SeatSlot
	var holder *string
	if err := row.Scan(&s.FlightID, &s.SeatID, &s.Status, &s.Version, &holder, &s.HoldExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if holder != nil {
		s.HolderBookingID = *holder
	}
	return &s, nil
}

func (r *PGSeatLedger) Get(ctx context.Context, flightID int64, seatID string) (*domain.SeatSlot, error) {
	row := r.db.QueryRow(ctx, `SELECT `+seatColumns+` FROM seat_slots WHERE flight_id=$1 AND seat_id=$2`, flightID, seatID)
	slot, err := scanSeat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrSeatNotFound
		}
		return nil, err
	}
	return slot, nil
}

func (r *PGSeatLedger) CompareAndSet(ctx context.Context, flightID int64, seatID string, expectedVersion int64, change ledger.Change) (*domain.SeatSlot, error) {
	var holder *string
	if change.HolderBookingID != "" {
		holder = &change.HolderBookingID
	}

	row := r.db.QueryRow(ctx, `
		UPDATE seat_slots
		SET status=$1, holder_booking_id=$2, hold_expires_at=$3, version=version+1, updated_at=now()
		WHERE flight_id=$4 AND seat_id=$5 AND version=$6
		RETURNING `+seatColumns,
		change.Status, holder, change.HoldExpiresAt, flightID, seatID, expectedVersion)

	slot, err := scanSeat(row)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// No row matched: either the seat does not exist or the version moved.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM seat_slots WHERE flight_id=$1 AND seat_id=$2)`, flightID, seatID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ledger.ErrSeatNotFound
	}
	return nil, ledger.ErrVersionConflict
}

func (r *PGSeatLedger) ListAvailable(ctx context.Context, flightID int64) ([]domain.SeatSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+seatColumns+` FROM seat_slots
		WHERE flight_id=$1 AND (status=$2 OR (status=$3 AND hold_expires_at <= now()))
		ORDER BY seat_id`,
		flightID, domain.SeatStatusAvailable, domain.SeatStatusHeld)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeats(rows)
}

func (r *PGSeatLedger) ListHeld(ctx context.Context, flightID int64) ([]domain.SeatSlot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+seatColumns+` FROM seat_slots
		WHERE flight_id=$1 AND status=$2
		ORDER BY seat_id`,
		flightID, domain.SeatStatusHeld)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeats(rows)
}

func (r *PGSeatLedger) CreateForFlight(ctx context.Context, flightID int64, seatIDs []string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO seat_slots (flight_id, seat_id, status, version)
		SELECT $1, unnest($2::text[]), $3, 0
		ON CONFLICT (flight_id, seat_id) DO NOTHING`,
		flightID, seatIDs, domain.SeatStatusAvailable)
	return err
}

func collectSeats(rows pgx.Rows) ([]domain.SeatSlot, error) {
	slots := make([]domain.SeatSlot, 0)
	for rows.Next() {
		slot, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

var _ ledger.SeatLedger = (*PGSeatLedger)(nil)
