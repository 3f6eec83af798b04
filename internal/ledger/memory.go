package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zosh-air/airline-reservation/internal/domain"
)

// Memory is an in-process SeatLedger backed by a map. It carries the same
// compare-and-set contract as the postgres implementation and backs the
// coordinator tests.
type Memory struct {
	mu    sync.Mutex
	slots map[string]*domain.SeatSlot
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[string]*domain.SeatSlot)}
}

func slotKey(flightID int64, seatID string) string {
	return fmt.Sprintf("%d/%s", flightID, seatID)
}

func (m *Memory) CreateForFlight(ctx context.Context, flightID int64, seatIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, seatID := range seatIDs {
		key := slotKey(flightID, seatID)
		if _, ok := m.slots[key]; ok {
			continue
		}
		m.slots[key] = &domain.SeatSlot{
			FlightID:  flightID,
			SeatID:    seatID,
			Status:    domain.SeatStatusAvailable,
			Version:   0,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, flightID int64, seatID string) (*domain.SeatSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotKey(flightID, seatID)]
	if !ok {
		return nil, ErrSeatNotFound
	}
	copied := *slot
	return &copied, nil
}

func (m *Memory) CompareAndSet(ctx context.Context, flightID int64, seatID string, expectedVersion int64, change Change) (*domain.SeatSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotKey(flightID, seatID)]
	if !ok {
		return nil, ErrSeatNotFound
	}
	if slot.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	slot.Status = change.Status
	slot.HolderBookingID = change.HolderBookingID
	slot.HoldExpiresAt = change.HoldExpiresAt
	slot.Version++
	slot.UpdatedAt = time.Now()

	copied := *slot
	return &copied, nil
}

func (m *Memory) ListAvailable(ctx context.Context, flightID int64) ([]domain.SeatSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var out []domain.SeatSlot
	for _, slot := range m.slots {
		if slot.FlightID != flightID {
			continue
		}
		if slot.Status == domain.SeatStatusAvailable || slot.HoldExpired(now) {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

func (m *Memory) ListHeld(ctx context.Context, flightID int64) ([]domain.SeatSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.SeatSlot
	for _, slot := range m.slots {
		if slot.FlightID == flightID && slot.Status == domain.SeatStatusHeld {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

var _ SeatLedger = (*Memory)(nil)
