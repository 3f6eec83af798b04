package flights

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zosh-air/airline-reservation/internal/domain"
	"github.com/zosh-air/airline-reservation/internal/ledger"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) SeatMap(ctx context.Context, flightID int64) ([]string, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func (m *MockCache) GetAvailableSeats(ctx context.Context, flightID int64) ([]string, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockCache) SetAvailableSeats(ctx context.Context, flightID int64, seats []string) error {
	args := m.Called(ctx, flightID, seats)
	return args.Error(0)
}

func TestFlightService_ListUsesCache(t *testing.T) {
	repo := &MockFlightRepository{}
	cache := &MockCache{}
	svc := NewFlightService(repo, ledger.NewMemory(), cache, nil)

	cached := []domain.Flight{{ID: 1, FlightNumber: "ZA101"}}
	cache.On("GetFlights", mock.Anything).Return(cached, nil)

	flights, err := svc.List(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, cached, flights)
	repo.AssertNotCalled(t, "List", mock.Anything)
}

func TestFlightService_ListFallsBackToRepo(t *testing.T) {
	repo := &MockFlightRepository{}
	cache := &MockCache{}
	svc := NewFlightService(repo, ledger.NewMemory(), cache, nil)

	stored := []domain.Flight{{ID: 1, FlightNumber: "ZA101", DepartureTime: time.Now()}}
	cache.On("GetFlights", mock.Anything).Return(nil, nil)
	repo.On("List", mock.Anything).Return(stored, nil)
	cache.On("SetFlights", mock.Anything, stored).Return(nil)

	flights, err := svc.List(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, stored, flights)
	cache.AssertCalled(t, "SetFlights", mock.Anything, stored)
}

func TestFlightService_AvailableSeats(t *testing.T) {
	repo := &MockFlightRepository{}
	cache := &MockCache{}
	seats := ledger.NewMemory()
	assert.NoError(t, seats.CreateForFlight(context.Background(), 1, []string{"1A", "1B"}))

	svc := NewFlightService(repo, seats, cache, nil)
	cache.On("GetAvailableSeats", mock.Anything, int64(1)).Return(nil, nil)
	cache.On("SetAvailableSeats", mock.Anything, int64(1), []string{"1A", "1B"}).Return(nil)

	open, err := svc.AvailableSeats(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, []string{"1A", "1B"}, open)
}

func TestFlightService_PublishSchedule(t *testing.T) {
	repo := &MockFlightRepository{}
	seats := ledger.NewMemory()
	svc := NewFlightService(repo, seats, nil, nil)

	repo.On("SeatMap", mock.Anything, int64(1)).Return([]string{"1A", "1B"}, nil)

	assert.NoError(t, svc.PublishSchedule(context.Background(), 1))
	slot, err := seats.Get(context.Background(), 1, "1A")
	assert.NoError(t, err)
	assert.Equal(t, domain.SeatStatusAvailable, slot.Status)
}

func TestFlightService_PublishScheduleEmptySeatMap(t *testing.T) {
	repo := &MockFlightRepository{}
	svc := NewFlightService(repo, ledger.NewMemory(), nil, nil)

	repo.On("SeatMap", mock.Anything, int64(1)).Return([]string{}, nil)
	assert.Error(t, svc.PublishSchedule(context.Background(), 1))
}
