package domain

import "time"

type Flight struct {
	ID            int64
	FlightNumber  string
	FromAirport   string
	ToAirport     string
	DepartureTime time.Time
	ArrivalTime   time.Time
	Aircraft      string
	PriceCents    int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Departed reports whether the flight has left at the given instant. Used by
// the worker to move CONFIRMED bookings to COMPLETED.
func (f *Flight) Departed(now time.Time) bool {
	return f.DepartureTime.Before(now)
}
