package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/zosh-air/airline-reservation/config"
	"github.com/zosh-air/airline-reservation/internal/cache"
	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/email"
	"github.com/zosh-air/airline-reservation/internal/kafka"
	"github.com/zosh-air/airline-reservation/internal/logger"
	"github.com/zosh-air/airline-reservation/internal/repository"
	"github.com/zosh-air/airline-reservation/internal/reservation"
	"github.com/zosh-air/airline-reservation/internal/service/booking"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Path, cfg.Log.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second,
		time.Duration(cfg.Booking.SeatsCacheTTL)*time.Second,
	)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	seatLedger := repository.NewSeatLedger(pool)
	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)

	coordinator := reservation.NewCoordinator(seatLedger, zlog,
		reservation.WithMaxAttempts(cfg.Booking.ReserveMaxAttempts),
		reservation.WithBackoffBase(time.Duration(cfg.Booking.ReserveBackoffMs)*time.Millisecond),
	)

	bookingService := booking.NewBookingService(
		bookingRepo,
		paymentRepo,
		coordinator,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		zlog,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	// Payment outcomes from the external processor drive the lifecycle.
	paymentConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.PaymentsTopic)
	defer paymentConsumer.Close()
	go func() {
		err := paymentConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.PaymentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				zlog.Warn("decode payment event", zap.Error(err))
				return nil
			}
			if _, err := bookingService.ApplyPayment(ctx, booking.PaymentUpdate{
				Reference:     event.Reference,
				Status:        domain.PaymentStatus(event.Status),
				AmountCents:   event.AmountCents,
				Currency:      event.Currency,
				Provider:      event.Provider,
				TransactionID: event.TransactionID,
			}); err != nil {
				zlog.Warn("apply payment", zap.String("reference", event.Reference), zap.Error(err))
			}
			return nil
		})
		if err != nil {
			zlog.Info("payment consumer stopped", zap.Error(err))
		}
	}()

	// Booking notifications feed the email sender.
	notifyConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer notifyConsumer.Close()
	emailSender := email.NewSender(zlog)
	go func() {
		err := notifyConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				zlog.Warn("decode booking event", zap.Error(err))
				return nil
			}
			return emailSender.Send(ctx, event)
		})
		if err != nil {
			zlog.Info("notification consumer stopped", zap.Error(err))
		}
	}()

	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()
	completeTicker := time.NewTicker(time.Duration(cfg.Worker.CompletionSweepMinutes) * time.Minute)
	defer completeTicker.Stop()

	for {
		select {
		case <-expireTicker.C:
			expired, err := bookingService.ExpirePendingBookings(ctx)
			if err != nil {
				zlog.Error("expire bookings", zap.Error(err))
				continue
			}
			if len(expired) > 0 {
				zlog.Info("expired bookings", zap.Int("count", len(expired)))
			}
			// Hygiene pass over the ledger itself, so lapsed holds do not
			// linger in listings until someone touches the seat.
			flights, err := flightRepo.List(ctx)
			if err != nil {
				zlog.Error("list flights for hold sweep", zap.Error(err))
				continue
			}
			freed := 0
			for _, f := range flights {
				n, err := coordinator.SweepExpired(ctx, f.ID)
				if err != nil {
					zlog.Warn("sweep expired holds", zap.Int64("flight_id", f.ID), zap.Error(err))
					continue
				}
				freed += n
			}
			if freed > 0 {
				zlog.Info("released expired holds", zap.Int("count", freed))
			}
		case <-completeTicker.C:
			completed, err := bookingService.CompleteDepartedBookings(ctx)
			if err != nil {
				zlog.Error("complete departed bookings", zap.Error(err))
				continue
			}
			if len(completed) > 0 {
				zlog.Info("completed bookings", zap.Int("count", len(completed)))
			}
		case <-ctx.Done():
			zlog.Info("shutting down worker")
			return
		}
	}
}
