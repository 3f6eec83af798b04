package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zosh-air/airline-reservation/config"
	"github.com/zosh-air/airline-reservation/internal/bootstrap"
	"github.com/zosh-air/airline-reservation/internal/cache"
	"github.com/zosh-air/airline-reservation/internal/kafka"
	"github.com/zosh-air/airline-reservation/internal/logger"
	"github.com/zosh-air/airline-reservation/internal/repository"
	"github.com/zosh-air/airline-reservation/internal/reservation"
	"github.com/zosh-air/airline-reservation/internal/service/booking"
	"github.com/zosh-air/airline-reservation/internal/service/flights"
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

	flightService := flights.NewFlightService(flightRepo, seatLedger, redisCache, zlog)
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

	zlog.Info("starting http server", zap.String("address", cfg.HTTP.Address))
	if err := bootstrap.Run(ctx, cfg, flightService, bookingService); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}
