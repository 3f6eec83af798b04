package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewSeatLedger(pool))
	assert.NotNil(t, NewBookingRepository(pool))
	assert.NotNil(t, NewFlightRepository(pool))
	assert.NotNil(t, NewPaymentRepository(pool))
}
