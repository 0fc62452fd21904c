package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlight(ctx context.Context, f *domain.Flight) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func testFlight() *domain.Flight {
	dep := time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC)
	return &domain.Flight{
		ID:           "FL-1",
		FlightNumber: "SU100",
		Route: domain.Route{
			DepartureAirport: "SVO",
			ArrivalAirport:   "LED",
			DepartureTime:    dep,
			ArrivalTime:      dep.Add(90 * time.Minute),
		},
	}
}

func TestFlightService_GetByID_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, logging.Discard())
	ctx := context.Background()
	flight := testFlight()

	// Кэш пустой
	mockCache.On("GetFlight", ctx, "FL-1").Return(nil, nil).Once()
	mockRepo.On("GetByID", ctx, "FL-1").Return(flight, nil).Once()
	mockCache.On("SetFlight", ctx, flight).Return(nil).Once()

	result, err := service.GetByID(ctx, "FL-1")

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetByID_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, logging.Discard())
	ctx := context.Background()
	flight := testFlight()

	mockCache.On("GetFlight", ctx, "FL-1").Return(flight, nil).Once()

	result, err := service.GetByID(ctx, "FL-1")

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockRepo.AssertNotCalled(t, "GetByID")
	mockCache.AssertNotCalled(t, "SetFlight")
}

func TestFlightService_GetByID_CacheError(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, logging.Discard())
	ctx := context.Background()
	flight := testFlight()

	// Ошибка кэша не должна ломать чтение
	mockCache.On("GetFlight", ctx, "FL-1").Return(nil, errors.New("cache error")).Once()
	mockRepo.On("GetByID", ctx, "FL-1").Return(flight, nil).Once()
	mockCache.On("SetFlight", ctx, flight).Return(errors.New("cache error")).Once()

	result, err := service.GetByID(ctx, "FL-1")

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestFlightService_GetByID_NotFound(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, logging.Discard())
	ctx := context.Background()

	mockCache.On("GetFlight", ctx, "nope").Return(nil, nil).Once()
	mockRepo.On("GetByID", ctx, "nope").Return(nil, domain.ErrFlightNotFound).Once()

	result, err := service.GetByID(ctx, "nope")

	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
	assert.Nil(t, result)
	mockCache.AssertNotCalled(t, "SetFlight")
}

func TestFlightService_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)
	ctx := context.Background()
	flight := testFlight()

	// Должен вызываться только репозиторий
	mockRepo.On("GetByID", ctx, "FL-1").Return(flight, nil).Once()

	result, err := service.GetByID(ctx, "FL-1")

	assert.NoError(t, err)
	assert.Equal(t, flight, result)
	mockRepo.AssertExpectations(t)
}
