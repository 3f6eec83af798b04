package kafka

import "time"

// BookingEvent is published on every booking lifecycle move and mirrored to
// the notifications topic for the email worker.
type BookingEvent struct {
	Type          string    `json:"type"`
	Reference     string    `json:"reference"`
	FlightID      int64     `json:"flight_id"`
	SeatIDs       []string  `json:"seat_ids"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	HoldExpiresAt time.Time `json:"hold_expires_at"`
}

// PaymentEvent is what the external payment processor reports for a booking.
// The worker consumes these and drives the booking lifecycle.
type PaymentEvent struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
}
