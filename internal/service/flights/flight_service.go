package flights

import (
	"context"
	"fmt"

	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/ledger"
	"github.com/zosh-air/airline-reservation/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	AvailableSeats(ctx context.Context, flightID int64) ([]string, error)
	PublishSchedule(ctx context.Context, flightID int64) error
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetAvailableSeats(ctx context.Context, flightID int64) ([]string, error)
	SetAvailableSeats(ctx context.Context, flightID int64, seats []string) error
}

type FlightService struct {
	repo   repository.FlightRepository
	seats  ledger.SeatLedger
	cache  Cache
	logger *zap.Logger
}

func NewFlightService(repo repository.FlightRepository, seats ledger.SeatLedger, cache Cache, logger *zap.Logger) *FlightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlightService{repo: repo, seats: seats, cache: cache, logger: logger}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("cache flights", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// AvailableSeats returns a snapshot of seat ids currently open on the
// flight. The snapshot may be stale by the time the client books; the
// reservation path re-validates every seat against the ledger.
func (s *FlightService) AvailableSeats(ctx context.Context, flightID int64) ([]string, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetAvailableSeats(ctx, flightID); err == nil && cached != nil {
			return cached, nil
		}
	}

	slots, err := s.seats.ListAvailable(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seatIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		seatIDs = append(seatIDs, slot.SeatID)
	}
	if s.cache != nil {
		if err := s.cache.SetAvailableSeats(ctx, flightID, seatIDs); err != nil {
			s.logger.Warn("cache available seats", zap.Int64("flight_id", flightID), zap.Error(err))
		}
	}
	return seatIDs, nil
}

// PublishSchedule materialises the flight's seat map into the ledger, one
// AVAILABLE slot per seat. Safe to call again; existing slots are kept.
func (s *FlightService) PublishSchedule(ctx context.Context, flightID int64) error {
	seatMap, err := s.repo.SeatMap(ctx, flightID)
	if err != nil {
		return err
	}
	if len(seatMap) == 0 {
		return fmt.Errorf("flight %d has no seat map", flightID)
	}
	return s.seats.CreateForFlight(ctx, flightID, seatMap)
}

var _ FlightUseCase = (*FlightService)(nil)
