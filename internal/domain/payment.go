package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is one-to-one with a booking. The external processor reports the
// terminal status; the booking lifecycle reacts to it.
type Payment struct {
	ID               string
	BookingReference string
	AmountCents      int64
	Currency         string
	Provider         string
	TransactionID    string
	Status           PaymentStatus
	PaidAt           *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
