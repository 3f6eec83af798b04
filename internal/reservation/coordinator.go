package reservation

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/ledger"
	"go.uber.org/zap"
)

var (
	// ErrSeatUnavailable means a requested seat is booked, blocked or validly
	// held by another booking. The client can pick another seat.
	ErrSeatUnavailable = errors.New("seat unavailable")
	// ErrReservationConflict means the retry budget ran out under contention.
	// The client can resubmit the same request.
	ErrReservationConflict = errors.New("reservation conflict, retries exhausted")
	// ErrHoldExpired means a confirm arrived after the hold lapsed; the seats
	// must be re-reserved.
	ErrHoldExpired = errors.New("hold expired")
	// ErrHoldNotOwned means the seat is not held by the confirming booking.
	ErrHoldNotOwned = errors.New("hold not owned by booking")
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 20 * time.Millisecond
)

// Coordinator turns "reserve these seats for booking B" into a set of
// ledger holds, or a clean failure with nothing retained. Every mutation is
// a per-seat compare-and-set; no lock spans a whole reservation.
type Coordinator struct {
	ledger      ledger.SeatLedger
	maxAttempts int
	backoffBase time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

type CoordinatorOption func(*Coordinator)

// WithMaxAttempts bounds the number of full-request retries after version
// conflicts.
func WithMaxAttempts(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the base delay between retry attempts.
func WithBackoffBase(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithClock overrides the time source. Tests use it to age holds.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(l ledger.SeatLedger, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		ledger:      l,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reserve holds every seat in seatIDs for bookingID, or fails with no holds
// retained. Seats are taken in ascending seat order so concurrent multi-seat
// requests cannot wait on each other in a cycle. An expired hold left by
// another booking counts as available and is reclaimed in place.
func (c *Coordinator) Reserve(ctx context.Context, flightID int64, seatIDs []string, bookingID string, holdDuration time.Duration) ([]domain.SeatSlot, error) {
	if len(seatIDs) == 0 {
		return nil, errors.New("no seats requested")
	}

	ordered := make([]string, len(seatIDs))
	copy(ordered, seatIDs)
	sort.Strings(ordered)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		held, err := c.tryReserve(ctx, flightID, ordered, bookingID, holdDuration)
		if err == nil {
			return held, nil
		}
		if !errors.Is(err, ledger.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		c.logger.Debug("reservation attempt lost a seat race",
			zap.Int64("flight_id", flightID),
			zap.String("booking_id", bookingID),
			zap.Int("attempt", attempt),
		)
		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	c.logger.Warn("reservation retries exhausted",
		zap.Int64("flight_id", flightID),
		zap.String("booking_id", bookingID),
		zap.Error(lastErr),
	)
	return nil, ErrReservationConflict
}

// tryReserve is one full attempt. On a version conflict it rolls back every
// seat held by this attempt and reports ledger.ErrVersionConflict so the
// caller can retry the whole request.
func (c *Coordinator) tryReserve(ctx context.Context, flightID int64, ordered []string, bookingID string, holdDuration time.Duration) ([]domain.SeatSlot, error) {
	now := c.now()
	expiry := now.Add(holdDuration)

	// Pre-check every seat before touching any of them, so an obviously lost
	// request rejects without leaving holds to roll back.
	current := make([]*domain.SeatSlot, 0, len(ordered))
	for _, seatID := range ordered {
		slot, err := c.ledger.Get(ctx, flightID, seatID)
		if err != nil {
			return nil, err
		}
		if !c.claimable(slot, bookingID, now) {
			return nil, ErrSeatUnavailable
		}
		current = append(current, slot)
	}

	held := make([]domain.SeatSlot, 0, len(ordered))
	for i, seatID := range ordered {
		updated, err := c.ledger.CompareAndSet(ctx, flightID, seatID, current[i].Version, ledger.Change{
			Status:          domain.SeatStatusHeld,
			HolderBookingID: bookingID,
			HoldExpiresAt:   &expiry,
		})
		if err != nil {
			c.rollback(ctx, flightID, bookingID, held)
			return nil, err
		}
		held = append(held, *updated)
	}
	return held, nil
}

// claimable reports whether bookingID may take the slot right now. A slot
// the booking already holds is claimable again, which makes Reserve safe to
// retry end to end.
func (c *Coordinator) claimable(slot *domain.SeatSlot, bookingID string, now time.Time) bool {
	switch slot.Status {
	case domain.SeatStatusAvailable:
		return true
	case domain.SeatStatusHeld:
		return slot.HoldExpired(now) || slot.HolderBookingID == bookingID
	default:
		return false
	}
}

// Confirm moves every held seat of the booking to BOOKED. A lapsed hold
// fails with ErrHoldExpired, a foreign hold with ErrHoldNotOwned; in either
// case the caller must re-reserve.
func (c *Coordinator) Confirm(ctx context.Context, flightID int64, seatIDs []string, bookingID string) error {
	now := c.now()
	for _, seatID := range seatIDs {
		for {
			slot, err := c.ledger.Get(ctx, flightID, seatID)
			if err != nil {
				return err
			}
			if slot.Status == domain.SeatStatusBooked && slot.HolderBookingID == bookingID {
				break // already confirmed, keep going
			}
			if slot.Status != domain.SeatStatusHeld || slot.HolderBookingID != bookingID {
				return ErrHoldNotOwned
			}
			if slot.HoldExpired(now) {
				return ErrHoldExpired
			}
			_, err = c.ledger.CompareAndSet(ctx, flightID, seatID, slot.Version, ledger.Change{
				Status:          domain.SeatStatusBooked,
				HolderBookingID: bookingID,
			})
			if err == nil {
				break
			}
			if !errors.Is(err, ledger.ErrVersionConflict) {
				return err
			}
			// Lost a race on this seat, re-read and decide again.
		}
	}
	return nil
}

// Release returns every seat owned by the booking to AVAILABLE. It is
// idempotent: seats already free, or owned by someone else by now, are left
// alone.
func (c *Coordinator) Release(ctx context.Context, flightID int64, seatIDs []string, bookingID string) error {
	for _, seatID := range seatIDs {
		for {
			slot, err := c.ledger.Get(ctx, flightID, seatID)
			if err != nil {
				if errors.Is(err, ledger.ErrSeatNotFound) {
					break
				}
				return err
			}
			if slot.Status == domain.SeatStatusAvailable || slot.HolderBookingID != bookingID {
				break
			}
			_, err = c.ledger.CompareAndSet(ctx, flightID, seatID, slot.Version, ledger.Change{
				Status: domain.SeatStatusAvailable,
			})
			if err == nil {
				break
			}
			if !errors.Is(err, ledger.ErrVersionConflict) {
				return err
			}
		}
	}
	return nil
}

// SweepExpired releases every lapsed hold on the flight and returns how many
// seats it freed. Expiry is lazy, readers already treat lapsed holds as
// available; the sweep is hygiene so stale holds do not linger in listings.
func (c *Coordinator) SweepExpired(ctx context.Context, flightID int64) (int, error) {
	held, err := c.ledger.ListHeld(ctx, flightID)
	if err != nil {
		return 0, err
	}

	now := c.now()
	freed := 0
	for _, slot := range held {
		if !slot.HoldExpired(now) {
			continue
		}
		_, err := c.ledger.CompareAndSet(ctx, flightID, slot.SeatID, slot.Version, ledger.Change{
			Status: domain.SeatStatusAvailable,
		})
		if err != nil {
			if errors.Is(err, ledger.ErrVersionConflict) {
				continue // someone reclaimed it first, fine
			}
			return freed, err
		}
		freed++
	}
	return freed, nil
}

// rollback releases the holds taken by a failed attempt. Version conflicts
// here mean the seat already moved on; nothing to undo.
func (c *Coordinator) rollback(ctx context.Context, flightID int64, bookingID string, held []domain.SeatSlot) {
	for _, slot := range held {
		_, err := c.ledger.CompareAndSet(ctx, flightID, slot.SeatID, slot.Version, ledger.Change{
			Status: domain.SeatStatusAvailable,
		})
		if err != nil && !errors.Is(err, ledger.ErrVersionConflict) {
			c.logger.Warn("rollback failed to release seat",
				zap.Int64("flight_id", flightID),
				zap.String("seat_id", slot.SeatID),
				zap.String("booking_id", bookingID),
				zap.Error(err),
			)
		}
	}
}

func (c *Coordinator) sleep(ctx context.Context, attempt int) error {
	base := c.backoffBase * time.Duration(attempt)
	jitter := time.Duration(rand.Int63n(int64(c.backoffBase)))
	timer := time.NewTimer(base + jitter)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
