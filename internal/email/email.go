package email

import (
	"context"

	"github.com/zosh-air/airline-reservation/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers booking notifications. Delivery is logged only; the real
// SMTP relay lives outside this service.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.logger.Info("send booking email",
		zap.String("to", event.Email),
		zap.String("type", event.Type),
		zap.String("reference", event.Reference),
		zap.Int64("flight_id", event.FlightID),
		zap.Strings("seats", event.SeatIDs),
	)
	return nil
}
