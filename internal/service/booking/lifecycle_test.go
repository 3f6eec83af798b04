package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zosh-air/airline-reservation/internal/domain"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name    string
		current domain.BookingStatus
		event   Event
		want    domain.BookingStatus
		wantErr bool
	}{
		{"pending payment success", domain.BookingStatusPending, EventPaymentSuccess, domain.BookingStatusConfirmed, false},
		{"pending payment failure", domain.BookingStatusPending, EventPaymentFailure, domain.BookingStatusCancelled, false},
		{"pending hold expiry", domain.BookingStatusPending, EventHoldExpiry, domain.BookingStatusCancelled, false},
		{"pending cancel", domain.BookingStatusPending, EventCancel, domain.BookingStatusCancelled, false},
		{"confirmed cancel", domain.BookingStatusConfirmed, EventCancel, domain.BookingStatusCancelled, false},
		{"confirmed departed", domain.BookingStatusConfirmed, EventFlightDeparted, domain.BookingStatusCompleted, false},
		{"pending departed", domain.BookingStatusPending, EventFlightDeparted, domain.BookingStatusPending, true},
		{"confirmed payment success", domain.BookingStatusConfirmed, EventPaymentSuccess, domain.BookingStatusConfirmed, true},
		{"cancelled is terminal", domain.BookingStatusCancelled, EventCancel, domain.BookingStatusCancelled, true},
		{"completed is terminal", domain.BookingStatusCompleted, EventCancel, domain.BookingStatusCompleted, true},
		{"completed payment", domain.BookingStatusCompleted, EventPaymentSuccess, domain.BookingStatusCompleted, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStatus(tc.current, tc.event)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
