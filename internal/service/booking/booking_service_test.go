package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/reservation"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, reference string, status domain.BookingStatus) (*domain.Booking, error) {
	args := m.Called(ctx, reference, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListConfirmedDeparted(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Record(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByBookingReference(ctx context.Context, reference string) (*domain.Payment, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

type MockSeatReserver struct {
	mock.Mock
}

func (m *MockSeatReserver) Reserve(ctx context.Context, flightID int64, seatIDs []string, bookingID string, holdDuration time.Duration) ([]domain.SeatSlot, error) {
	args := m.Called(ctx, flightID, seatIDs, bookingID, holdDuration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatSlot), args.Error(1)
}

func (m *MockSeatReserver) Confirm(ctx context.Context, flightID int64, seatIDs []string, bookingID string) error {
	args := m.Called(ctx, flightID, seatIDs, bookingID)
	return args.Error(0)
}

func (m *MockSeatReserver) Release(ctx context.Context, flightID int64, seatIDs []string, bookingID string) error {
	args := m.Called(ctx, flightID, seatIDs, bookingID)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateSeats(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func heldSlots(flightID int64, bookingID string, expiry time.Time, seatIDs ...string) []domain.SeatSlot {
	slots := make([]domain.SeatSlot, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		e := expiry
		slots = append(slots, domain.SeatSlot{
			FlightID:        flightID,
			SeatID:          seatID,
			Status:          domain.SeatStatusHeld,
			Version:         1,
			HolderBookingID: bookingID,
			HoldExpiresAt:   &e,
		})
	}
	return slots
}

func newService(bookings *MockBookingRepository, payments *MockPaymentRepository, reserver *MockSeatReserver, cache *MockCache, producer *MockProducer) *BookingService {
	return NewBookingService(bookings, payments, reserver, cache, producer, "booking-events", 15*time.Minute, nil)
}

func TestBookingService_CreateBooking(t *testing.T) {
	bookings := &MockBookingRepository{}
	payments := &MockPaymentRepository{}
	reserver := &MockSeatReserver{}
	cache := &MockCache{}
	producer := &MockProducer{}
	svc := newService(bookings, payments, reserver, cache, producer)

	expiry := time.Now().Add(15 * time.Minute)
	reserver.On("Reserve", mock.Anything, int64(7), []string{"1A", "1B"}, mock.AnythingOfType("string"), 15*time.Minute).
		Return(heldSlots(7, "ref", expiry, "1A", "1B"), nil)
	bookings.On("CreatePending", mock.Anything, mock.AnythingOfType("*domain.Booking")).Return(nil)
	cache.On("InvalidateSeats", mock.Anything, int64(7)).Return(nil)
	producer.On("Publish", mock.Anything, "booking-events", mock.AnythingOfType("string"), mock.Anything).Return(nil)

	created, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID: 7,
		SeatIDs:  []string{"1A", "1B"},
		Passengers: []PassengerInput{
			{FullName: "Ada Lovelace", SeatID: "1A"},
			{FullName: "Alan Turing", SeatID: "1B"},
		},
		Email: "ada@example.com",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, created.Reference)
	assert.Equal(t, domain.BookingStatusPending, created.Status)
	assert.Equal(t, expiry.Unix(), created.HoldExpiresAt.Unix())

	reserver.AssertExpectations(t)
	bookings.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestBookingService_CreateBookingValidation(t *testing.T) {
	svc := newService(&MockBookingRepository{}, &MockPaymentRepository{}, &MockSeatReserver{}, nil, nil)

	cases := []struct {
		name  string
		input CreateBookingInput
	}{
		{"no seats", CreateBookingInput{FlightID: 1, Email: "a@b.c"}},
		{"no email", CreateBookingInput{FlightID: 1, SeatIDs: []string{"1A"}, Passengers: []PassengerInput{{FullName: "A", SeatID: "1A"}}}},
		{"passenger count mismatch", CreateBookingInput{FlightID: 1, SeatIDs: []string{"1A", "1B"}, Passengers: []PassengerInput{{FullName: "A", SeatID: "1A"}}, Email: "a@b.c"}},
		{"duplicate seat", CreateBookingInput{FlightID: 1, SeatIDs: []string{"1A", "1A"}, Passengers: []PassengerInput{{FullName: "A", SeatID: "1A"}, {FullName: "B", SeatID: "1A"}}, Email: "a@b.c"}},
		{"passenger on foreign seat", CreateBookingInput{FlightID: 1, SeatIDs: []string{"1A"}, Passengers: []PassengerInput{{FullName: "A", SeatID: "2C"}}, Email: "a@b.c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tc.input)
			assert.Error(t, err)
		})
	}
}

func TestBookingService_CreateBookingReleasesOnPersistFailure(t *testing.T) {
	bookings := &MockBookingRepository{}
	reserver := &MockSeatReserver{}
	svc := newService(bookings, &MockPaymentRepository{}, reserver, nil, nil)

	expiry := time.Now().Add(15 * time.Minute)
	reserver.On("Reserve", mock.Anything, int64(7), []string{"1A"}, mock.AnythingOfType("string"), 15*time.Minute).
		Return(heldSlots(7, "ref", expiry, "1A"), nil)
	bookings.On("CreatePending", mock.Anything, mock.Anything).Return(errors.New("db down"))
	reserver.On("Release", mock.Anything, int64(7), []string{"1A"}, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:   7,
		SeatIDs:    []string{"1A"},
		Passengers: []PassengerInput{{FullName: "Ada Lovelace", SeatID: "1A"}},
		Email:      "ada@example.com",
	})

	assert.Error(t, err)
	reserver.AssertCalled(t, "Release", mock.Anything, int64(7), []string{"1A"}, mock.AnythingOfType("string"))
}

func TestBookingService_CreateBookingSeatTaken(t *testing.T) {
	reserver := &MockSeatReserver{}
	svc := newService(&MockBookingRepository{}, &MockPaymentRepository{}, reserver, nil, nil)

	reserver.On("Reserve", mock.Anything, int64(7), []string{"1A"}, mock.AnythingOfType("string"), 15*time.Minute).
		Return(nil, reservation.ErrSeatUnavailable)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		FlightID:   7,
		SeatIDs:    []string{"1A"},
		Passengers: []PassengerInput{{FullName: "Ada Lovelace", SeatID: "1A"}},
		Email:      "ada@example.com",
	})
	assert.ErrorIs(t, err, reservation.ErrSeatUnavailable)
}

func TestBookingService_ApplyPaymentSuccess(t *testing.T) {
	bookings := &MockBookingRepository{}
	payments := &MockPaymentRepository{}
	reserver := &MockSeatReserver{}
	cache := &MockCache{}
	producer := &MockProducer{}
	svc := newService(bookings, payments, reserver, cache, producer)

	pending := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusPending}
	confirmed := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusConfirmed}

	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(pending, nil)
	payments.On("Record", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)
	reserver.On("Confirm", mock.Anything, int64(7), []string{"1A"}, "PNR-1").Return(nil)
	bookings.On("UpdateStatus", mock.Anything, "PNR-1", domain.BookingStatusConfirmed).Return(confirmed, nil)
	cache.On("InvalidateSeats", mock.Anything, int64(7)).Return(nil)
	producer.On("Publish", mock.Anything, "booking-events", "PNR-1", mock.Anything).Return(nil)

	updated, err := svc.ApplyPayment(context.Background(), PaymentUpdate{
		Reference: "PNR-1",
		Status:    domain.PaymentStatusSuccess,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, updated.Status)
	reserver.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestBookingService_ApplyPaymentSuccessAfterHoldExpiry(t *testing.T) {
	bookings := &MockBookingRepository{}
	payments := &MockPaymentRepository{}
	reserver := &MockSeatReserver{}
	cache := &MockCache{}
	producer := &MockProducer{}
	svc := newService(bookings, payments, reserver, cache, producer)

	pending := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusPending}
	cancelled := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusCancelled}

	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(pending, nil)
	payments.On("Record", mock.Anything, mock.Anything).Return(nil)
	reserver.On("Confirm", mock.Anything, int64(7), []string{"1A"}, "PNR-1").Return(reservation.ErrHoldExpired)
	bookings.On("UpdateStatus", mock.Anything, "PNR-1", domain.BookingStatusCancelled).Return(cancelled, nil)
	reserver.On("Release", mock.Anything, int64(7), []string{"1A"}, "PNR-1").Return(nil)
	cache.On("InvalidateSeats", mock.Anything, int64(7)).Return(nil)
	producer.On("Publish", mock.Anything, "booking-events", "PNR-1", mock.Anything).Return(nil)

	_, err := svc.ApplyPayment(context.Background(), PaymentUpdate{
		Reference: "PNR-1",
		Status:    domain.PaymentStatusSuccess,
	})

	assert.ErrorIs(t, err, reservation.ErrHoldExpired)
	bookings.AssertCalled(t, "UpdateStatus", mock.Anything, "PNR-1", domain.BookingStatusCancelled)
	reserver.AssertCalled(t, "Release", mock.Anything, int64(7), []string{"1A"}, "PNR-1")
}

func TestBookingService_ApplyPaymentFailure(t *testing.T) {
	bookings := &MockBookingRepository{}
	payments := &MockPaymentRepository{}
	reserver := &MockSeatReserver{}
	cache := &MockCache{}
	producer := &MockProducer{}
	svc := newService(bookings, payments, reserver, cache, producer)

	pending := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusPending}
	cancelled := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusCancelled}

	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(pending, nil)
	payments.On("Record", mock.Anything, mock.Anything).Return(nil)
	bookings.On("UpdateStatus", mock.Anything, "PNR-1", domain.BookingStatusCancelled).Return(cancelled, nil)
	reserver.On("Release", mock.Anything, int64(7), []string{"1A"}, "PNR-1").Return(nil)
	cache.On("InvalidateSeats", mock.Anything, int64(7)).Return(nil)
	producer.On("Publish", mock.Anything, "booking-events", "PNR-1", mock.Anything).Return(nil)

	updated, err := svc.ApplyPayment(context.Background(), PaymentUpdate{
		Reference: "PNR-1",
		Status:    domain.PaymentStatusFailed,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, updated.Status)
	reserver.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_ApplyPaymentPendingOnlyRecords(t *testing.T) {
	bookings := &MockBookingRepository{}
	payments := &MockPaymentRepository{}
	reserver := &MockSeatReserver{}
	svc := newService(bookings, payments, reserver, nil, nil)

	pending := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusPending}
	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(pending, nil)
	payments.On("Record", mock.Anything, mock.Anything).Return(nil)

	updated, err := svc.ApplyPayment(context.Background(), PaymentUpdate{
		Reference: "PNR-1",
		Status:    domain.PaymentStatusPending,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, updated.Status)
	reserver.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	reserver.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CancelBooking(t *testing.T) {
	bookings := &MockBookingRepository{}
	reserver := &MockSeatReserver{}
	cache := &MockCache{}
	producer := &MockProducer{}
	svc := newService(bookings, &MockPaymentRepository{}, reserver, cache, producer)

	confirmed := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A", "1B"}, Status: domain.BookingStatusConfirmed}
	cancelled := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A", "1B"}, Status: domain.BookingStatusCancelled}

	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(confirmed, nil)
	bookings.On("UpdateStatus", mock.Anything, "PNR-1", domain.BookingStatusCancelled).Return(cancelled, nil)
	reserver.On("Release", mock.Anything, int64(7), []string{"1A", "1B"}, "PNR-1").Return(nil)
	cache.On("InvalidateSeats", mock.Anything, int64(7)).Return(nil)
	producer.On("Publish", mock.Anything, "booking-events", "PNR-1", mock.Anything).Return(nil)

	updated, err := svc.CancelBooking(context.Background(), "PNR-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, updated.Status)
	reserver.AssertExpectations(t)
}

func TestBookingService_CancelBookingIdempotent(t *testing.T) {
	bookings := &MockBookingRepository{}
	reserver := &MockSeatReserver{}
	svc := newService(bookings, &MockPaymentRepository{}, reserver, nil, nil)

	cancelled := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusCancelled}
	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(cancelled, nil)

	updated, err := svc.CancelBooking(context.Background(), "PNR-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, updated.Status)
	reserver.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CancelCompletedBooking(t *testing.T) {
	bookings := &MockBookingRepository{}
	svc := newService(bookings, &MockPaymentRepository{}, &MockSeatReserver{}, nil, nil)

	completed := &domain.Booking{Reference: "PNR-1", FlightID: 7, Status: domain.BookingStatusCompleted}
	bookings.On("GetByReference", mock.Anything, "PNR-1").Return(completed, nil)

	_, err := svc.CancelBooking(context.Background(), "PNR-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBookingService_ExpirePendingBookings(t *testing.T) {
	bookings := &MockBookingRepository{}
	reserver := &MockSeatReserver{}
	cache := &MockCache{}
	producer := &MockProducer{}
	svc := newService(bookings, &MockPaymentRepository{}, reserver, cache, producer)

	expired := []domain.Booking{
		{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusCancelled},
		{Reference: "PNR-2", FlightID: 9, SeatIDs: []string{"3C"}, Status: domain.BookingStatusCancelled},
	}
	bookings.On("ExpirePendingBefore", mock.Anything, mock.AnythingOfType("time.Time")).Return(expired, nil)
	reserver.On("Release", mock.Anything, int64(7), []string{"1A"}, "PNR-1").Return(nil)
	reserver.On("Release", mock.Anything, int64(9), []string{"3C"}, "PNR-2").Return(nil)
	cache.On("InvalidateSeats", mock.Anything, mock.AnythingOfType("int64")).Return(nil)
	producer.On("Publish", mock.Anything, "booking-events", mock.AnythingOfType("string"), mock.Anything).Return(nil)

	got, err := svc.ExpirePendingBookings(context.Background())
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	reserver.AssertExpectations(t)
}

func TestBookingService_CompleteDepartedBookings(t *testing.T) {
	bookings := &MockBookingRepository{}
	reserver := &MockSeatReserver{}
	producer := &MockProducer{}
	svc := newService(bookings, &MockPaymentRepository{}, reserver, nil, producer)

	departed := []domain.Booking{
		{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusConfirmed},
	}
	completed := &domain.Booking{Reference: "PNR-1", FlightID: 7, SeatIDs: []string{"1A"}, Status: domain.BookingStatusCompleted}

	bookings.On("ListConfirmedDeparted", mock.Anything, mock.AnythingOfType("time.Time")).Return(departed, nil)
	bookings.On("UpdateStatus", mock.Anything, "PNR-1", domain.BookingStatusCompleted).Return(completed, nil)
	producer.On("Publish", mock.Anything, "booking-events", "PNR-1", mock.Anything).Return(nil)

	got, err := svc.CompleteDepartedBookings(context.Background())
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, domain.BookingStatusCompleted, got[0].Status)
	reserver.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
