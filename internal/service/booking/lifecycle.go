package booking

import (
	"errors"
	"fmt"

	"github.com/zosh-air/airline-reservation/internal/domain"
)

// ErrInvalidTransition marks an illegal lifecycle move. It is an integration
// bug, not a user error: terminal bookings never change again.
var ErrInvalidTransition = errors.New("invalid booking transition")

// Event is something that happens to a booking.
type Event string

const (
	EventPaymentSuccess Event = "payment_success"
	EventPaymentFailure Event = "payment_failure"
	EventHoldExpiry     Event = "hold_expiry"
	EventCancel         Event = "cancel"
	EventFlightDeparted Event = "flight_departed"
)

// NextStatus resolves the lifecycle transition table. Seat side effects are
// the caller's job (confirm on payment success, release on any cancellation);
// this function only decides whether the move is legal and where it lands.
func NextStatus(current domain.BookingStatus, event Event) (domain.BookingStatus, error) {
	switch current {
	case domain.BookingStatusPending:
		switch event {
		case EventPaymentSuccess:
			return domain.BookingStatusConfirmed, nil
		case EventPaymentFailure, EventHoldExpiry, EventCancel:
			return domain.BookingStatusCancelled, nil
		}
	case domain.BookingStatusConfirmed:
		switch event {
		case EventCancel:
			return domain.BookingStatusCancelled, nil
		case EventFlightDeparted:
			return domain.BookingStatusCompleted, nil
		}
	}
	return current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, current)
}
