package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/ledger"
	"github.com/zosh-air/airline-reservation/internal/repository"
	"github.com/zosh-air/airline-reservation/internal/reservation"
	"github.com/zosh-air/airline-reservation/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	SeatID   string `json:"seat_id" binding:"required"`
}

type createBookingRequest struct {
	FlightID   int64              `json:"flight_id" binding:"required"`
	SeatIDs    []string           `json:"seat_ids" binding:"required,min=1"`
	Passengers []passengerRequest `json:"passengers" binding:"required,min=1"`
	Email      string             `json:"email" binding:"required,email"`
}

type paymentRequest struct {
	Status        string `json:"status" binding:"required"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Provider      string `json:"provider"`
	TransactionID string `json:"transaction_id"`
}

type bookingResponse struct {
	Reference     string             `json:"reference"`
	Status        string             `json:"status"`
	FlightID      int64              `json:"flight_id"`
	SeatIDs       []string           `json:"seat_ids"`
	Passengers    []passengerRequest `json:"passengers"`
	Email         string             `json:"email"`
	HoldExpiresAt string             `json:"hold_expires_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:reference", h.get)
	router.DELETE("/:reference", h.cancel)
	router.POST("/:reference/payment", h.payment)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passengers := make([]booking.PassengerInput, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, booking.PassengerInput{FullName: p.FullName, SeatID: p.SeatID})
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		FlightID:   req.FlightID,
		SeatIDs:    req.SeatIDs,
		Passengers: passengers,
		Email:      req.Email,
	})
	if err != nil {
		c.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	cancelled, err := h.service.CancelBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		c.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

// payment is the webhook the payment processor calls with the outcome for a
// booking's payment.
func (h *BookingHandler) payment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.ApplyPayment(c.Request.Context(), booking.PaymentUpdate{
		Reference:     c.Param("reference"),
		Status:        domain.PaymentStatus(req.Status),
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		Provider:      req.Provider,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		c.JSON(bookingErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	passengers := make([]passengerRequest, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		passengers = append(passengers, passengerRequest{FullName: p.FullName, SeatID: p.SeatID})
	}
	return bookingResponse{
		Reference:     b.Reference,
		Status:        string(b.Status),
		FlightID:      b.FlightID,
		SeatIDs:       b.SeatIDs,
		Passengers:    passengers,
		Email:         b.Email,
		HoldExpiresAt: b.HoldExpiresAt.Format(time.RFC3339),
	}
}

func bookingErrorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrBookingNotFound), errors.Is(err, ledger.ErrSeatNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservation.ErrSeatUnavailable),
		errors.Is(err, reservation.ErrReservationConflict),
		errors.Is(err, reservation.ErrHoldExpired),
		errors.Is(err, reservation.ErrHoldNotOwned),
		errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
