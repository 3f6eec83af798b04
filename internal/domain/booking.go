package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// Booking aggregates the seats and passengers of one reservation. Reference
// is the PNR handed back to the client; all API operations address bookings
// by it.
type Booking struct {
	ID            int64
	Reference     string
	FlightID      int64
	SeatIDs       []string
	Passengers    []Passenger
	Status        BookingStatus
	Email         string
	HoldExpiresAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Passenger travels on one seat of a booking.
type Passenger struct {
	ID        int64
	BookingID int64
	FullName  string
	SeatID    string
}
