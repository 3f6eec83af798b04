package domain

import "time"

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusHeld      SeatStatus = "HELD"
	SeatStatusBooked    SeatStatus = "BOOKED"
	SeatStatusBlocked   SeatStatus = "BLOCKED"
)

// SeatSlot is one physical seat on one flight occurrence. There is exactly
// one slot per (flight, seat) pair; the Version column is the optimistic
// lock every mutation goes through.
type SeatSlot struct {
	FlightID        int64
	SeatID          string
	Status          SeatStatus
	Version         int64
	HolderBookingID string
	HoldExpiresAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HoldExpired reports whether the slot carries a hold that has already
// lapsed at the given instant. Expired holds are treated as available by
// every reader; nobody waits for the sweep.
func (s *SeatSlot) HoldExpired(now time.Time) bool {
	return s.Status == SeatStatusHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}

// HeldBy reports whether the slot is held by the given booking and the hold
// is still live.
func (s *SeatSlot) HeldBy(bookingID string, now time.Time) bool {
	return s.Status == SeatStatusHeld && s.HolderBookingID == bookingID && !s.HoldExpired(now)
}
