package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/kafka"
	"github.com/zosh-air/airline-reservation/internal/repository"
	"github.com/zosh-air/airline-reservation/internal/reservation"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, reference string) (*domain.Booking, error)
	ApplyPayment(ctx context.Context, update PaymentUpdate) (*domain.Booking, error)
	ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error)
	CompleteDepartedBookings(ctx context.Context) ([]domain.Booking, error)
}

// SeatReserver is the slice of the reservation coordinator the lifecycle
// needs. The lifecycle never touches seat slots itself.
type SeatReserver interface {
	Reserve(ctx context.Context, flightID int64, seatIDs []string, bookingID string, holdDuration time.Duration) ([]domain.SeatSlot, error)
	Confirm(ctx context.Context, flightID int64, seatIDs []string, bookingID string) error
	Release(ctx context.Context, flightID int64, seatIDs []string, bookingID string) error
}

type Cache interface {
	InvalidateSeats(ctx context.Context, flightID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	payments           repository.PaymentRepository
	reserver           SeatReserver
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
	logger             *zap.Logger
}

type CreateBookingInput struct {
	FlightID   int64            `json:"flight_id"`
	SeatIDs    []string         `json:"seat_ids"`
	Passengers []PassengerInput `json:"passengers"`
	Email      string           `json:"email"`
}

type PassengerInput struct {
	FullName string `json:"full_name"`
	SeatID   string `json:"seat_id"`
}

// PaymentUpdate is the processor's report for a booking's payment.
type PaymentUpdate struct {
	Reference     string
	Status        domain.PaymentStatus
	AmountCents   int64
	Currency      string
	Provider      string
	TransactionID string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	reserver SeatReserver,
	cache Cache,
	producer Producer,
	bookingTopic string,
	holdTTL time.Duration,
	logger *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &BookingService{
		bookings:     bookings,
		payments:     payments,
		reserver:     reserver,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		holdTTL:      holdTTL,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking reserves the requested seats and records a PENDING booking
// under a fresh PNR. If the booking row cannot be persisted the holds are
// released; nothing is retained.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	reference := uuid.NewString()
	held, err := s.reserver.Reserve(ctx, input.FlightID, input.SeatIDs, reference, s.holdTTL)
	if err != nil {
		return nil, err
	}

	passengers := make([]domain.Passenger, 0, len(input.Passengers))
	for _, p := range input.Passengers {
		passengers = append(passengers, domain.Passenger{FullName: p.FullName, SeatID: p.SeatID})
	}

	booking := &domain.Booking{
		Reference:     reference,
		FlightID:      input.FlightID,
		SeatIDs:       input.SeatIDs,
		Passengers:    passengers,
		Status:        domain.BookingStatusPending,
		Email:         input.Email,
		HoldExpiresAt: *held[0].HoldExpiresAt,
	}

	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		if relErr := s.reserver.Release(ctx, input.FlightID, input.SeatIDs, reference); relErr != nil {
			s.logger.Error("release after failed persist", zap.String("reference", reference), zap.Error(relErr))
		}
		return nil, err
	}

	s.invalidateSeats(ctx, input.FlightID)
	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	return s.bookings.GetByReference(ctx, reference)
}

// ApplyPayment records the processor's report and drives the lifecycle:
// SUCCESS confirms the held seats and the booking, FAILED cancels and
// releases. PENDING and REFUNDED reports are recorded without a transition.
func (s *BookingService) ApplyPayment(ctx context.Context, update PaymentUpdate) (*domain.Booking, error) {
	booking, err := s.bookings.GetByReference(ctx, update.Reference)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:               uuid.NewString(),
		BookingReference: update.Reference,
		AmountCents:      update.AmountCents,
		Currency:         update.Currency,
		Provider:         update.Provider,
		TransactionID:    update.TransactionID,
		Status:           update.Status,
	}
	if update.Status == domain.PaymentStatusSuccess {
		now := time.Now()
		payment.PaidAt = &now
	}
	if err := s.payments.Record(ctx, payment); err != nil {
		return nil, err
	}

	switch update.Status {
	case domain.PaymentStatusSuccess:
		return s.confirmBooking(ctx, booking)
	case domain.PaymentStatusFailed:
		return s.cancelBooking(ctx, booking, EventPaymentFailure, "booking_cancelled")
	default:
		return booking, nil
	}
}

func (s *BookingService) confirmBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	if booking.Status == domain.BookingStatusConfirmed {
		return booking, nil // duplicate success report
	}
	next, err := NextStatus(booking.Status, EventPaymentSuccess)
	if err != nil {
		s.logger.Error("payment success on wrong state",
			zap.String("reference", booking.Reference),
			zap.String("status", string(booking.Status)),
		)
		return nil, err
	}

	if err := s.reserver.Confirm(ctx, booking.FlightID, booking.SeatIDs, booking.Reference); err != nil {
		if errors.Is(err, reservation.ErrHoldExpired) || errors.Is(err, reservation.ErrHoldNotOwned) {
			// Paid too late: the holds are gone. Cancel the booking so the
			// client re-reserves; the payment stays recorded for refund.
			if _, cErr := s.cancelBooking(ctx, booking, EventHoldExpiry, "booking_expired"); cErr != nil {
				s.logger.Error("cancel after stale confirm", zap.String("reference", booking.Reference), zap.Error(cErr))
			}
		}
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, booking.Reference, next)
	if err != nil {
		return nil, err
	}
	s.invalidateSeats(ctx, updated.FlightID)
	s.publish(ctx, "booking_confirmed", updated)
	return updated, nil
}

// CancelBooking cancels a PENDING or CONFIRMED booking and releases its
// seats. Cancelling an already cancelled booking is a no-op; a COMPLETED
// booking cannot be cancelled.
func (s *BookingService) CancelBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if booking.Status == domain.BookingStatusCancelled {
		return booking, nil
	}
	return s.cancelBooking(ctx, booking, EventCancel, "booking_cancelled")
}

func (s *BookingService) cancelBooking(ctx context.Context, booking *domain.Booking, event Event, eventType string) (*domain.Booking, error) {
	next, err := NextStatus(booking.Status, event)
	if err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, booking.Reference, next)
	if err != nil {
		return nil, err
	}
	if err := s.reserver.Release(ctx, updated.FlightID, updated.SeatIDs, updated.Reference); err != nil {
		s.logger.Error("release seats on cancel", zap.String("reference", updated.Reference), zap.Error(err))
	}
	s.invalidateSeats(ctx, updated.FlightID)
	s.publish(ctx, eventType, updated)
	return updated, nil
}

// ExpirePendingBookings cancels every PENDING booking whose hold lapsed and
// releases its seats. The worker calls this on a ticker; readers do not wait
// for it, expired holds are reclaimed lazily on access.
func (s *BookingService) ExpirePendingBookings(ctx context.Context) ([]domain.Booking, error) {
	expired, err := s.bookings.ExpirePendingBefore(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	for i := range expired {
		b := &expired[i]
		if err := s.reserver.Release(ctx, b.FlightID, b.SeatIDs, b.Reference); err != nil {
			s.logger.Error("release seats on expiry", zap.String("reference", b.Reference), zap.Error(err))
		}
		s.invalidateSeats(ctx, b.FlightID)
		s.publish(ctx, "booking_expired", b)
	}
	return expired, nil
}

// CompleteDepartedBookings moves CONFIRMED bookings of departed flights to
// COMPLETED. No seat effect; the flight is gone.
func (s *BookingService) CompleteDepartedBookings(ctx context.Context) ([]domain.Booking, error) {
	departed, err := s.bookings.ListConfirmedDeparted(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	completed := make([]domain.Booking, 0, len(departed))
	for i := range departed {
		b := &departed[i]
		next, err := NextStatus(b.Status, EventFlightDeparted)
		if err != nil {
			s.logger.Error("departed booking in wrong state", zap.String("reference", b.Reference), zap.Error(err))
			continue
		}
		updated, err := s.bookings.UpdateStatus(ctx, b.Reference, next)
		if err != nil {
			return completed, err
		}
		s.publish(ctx, "booking_completed", updated)
		completed = append(completed, *updated)
	}
	return completed, nil
}

func validateCreateInput(input CreateBookingInput) error {
	if len(input.SeatIDs) == 0 {
		return errors.New("at least one seat is required")
	}
	if input.Email == "" {
		return errors.New("email is required")
	}
	if len(input.Passengers) != len(input.SeatIDs) {
		return errors.New("one passenger per seat is required")
	}

	seats := make(map[string]bool, len(input.SeatIDs))
	for _, seatID := range input.SeatIDs {
		if seats[seatID] {
			return errors.New("duplicate seat in request")
		}
		seats[seatID] = true
	}
	for _, p := range input.Passengers {
		if p.FullName == "" {
			return errors.New("passenger name is required")
		}
		if !seats[p.SeatID] {
			return errors.New("passenger seat is not part of the request")
		}
	}
	return nil
}

func (s *BookingService) invalidateSeats(ctx context.Context, flightID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSeats(ctx, flightID); err != nil {
		s.logger.Warn("invalidate seat cache", zap.Int64("flight_id", flightID), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:          eventType,
		Reference:     booking.Reference,
		FlightID:      booking.FlightID,
		SeatIDs:       booking.SeatIDs,
		Email:         booking.Email,
		Status:        string(booking.Status),
		HoldExpiresAt: booking.HoldExpiresAt,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Reference, event); err != nil {
		s.logger.Warn("publish booking event", zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
			s.logger.Warn("publish notification event", zap.String("type", eventType), zap.String("reference", booking.Reference), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
