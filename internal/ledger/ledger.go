package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/zosh-air/airline-reservation/internal/domain"
)

var (
	// ErrSeatNotFound means the seat does not belong to the flight's seat map.
	ErrSeatNotFound = errors.New("seat not found")
	// ErrVersionConflict means the stored version no longer matched the
	// expected one. Callers re-read and retry or give up; the record was not
	// touched.
	ErrVersionConflict = errors.New("seat version conflict")
)

// Change is the target state of a compare-and-set. The ledger copies these
// fields onto the slot and bumps the version by one.
type Change struct {
	Status          domain.SeatStatus
	HolderBookingID string
	HoldExpiresAt   *time.Time
}

// SeatLedger is the single source of truth for seat availability. All
// mutation goes through CompareAndSet; there is no other write path.
type SeatLedger interface {
	// Get returns the current slot for the seat or ErrSeatNotFound.
	Get(ctx context.Context, flightID int64, seatID string) (*domain.SeatSlot, error)
	// CompareAndSet applies change only if the stored version still equals
	// expectedVersion, incrementing the version. Returns the updated slot,
	// or ErrVersionConflict without any mutation.
	CompareAndSet(ctx context.Context, flightID int64, seatID string, expectedVersion int64, change Change) (*domain.SeatSlot, error)
	// ListAvailable returns a snapshot of slots currently AVAILABLE, or HELD
	// with an expired hold. The snapshot may be stale; callers re-validate
	// through CompareAndSet.
	ListAvailable(ctx context.Context, flightID int64) ([]domain.SeatSlot, error)
	// ListHeld returns a snapshot of HELD slots for the flight, expired ones
	// included. Used by the expiry sweep.
	ListHeld(ctx context.Context, flightID int64) ([]domain.SeatSlot, error)
	// CreateForFlight registers the seat map of a flight, one AVAILABLE slot
	// per seat at version 0. Called once at schedule-publish time.
	CreateForFlight(ctx context.Context, flightID int64, seatIDs []string) error
}
