package seats

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSeatMapCache struct {
	mock.Mock
}

func (m *MockSeatMapCache) GetSeatMap(ctx context.Context, flightID string) (*domain.SeatMap, int64, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).(*domain.SeatMap), args.Get(1).(int64), args.Error(2)
}

func (m *MockSeatMapCache) SetSeatMap(ctx context.Context, sm *domain.SeatMap, generation int64) error {
	return m.Called(ctx, sm, generation).Error(0)
}

func (m *MockSeatMapCache) InvalidateSeatMap(ctx context.Context, flightID string) error {
	return m.Called(ctx, flightID).Error(0)
}

func TestComputeOccupancy_OnlyActivePaidBookings(t *testing.T) {
	e := newEnv(t, testFlight(),
		activeBooking("B1", pax("P1", "12A", domain.SeatClassEconomy)),
		booking("B2", domain.BookingStatusCheckedIn, domain.PaymentStatusPaid, pax("P2", "12B", domain.SeatClassEconomy)),
		booking("B3", domain.BookingStatusCancelled, domain.PaymentStatusPaid, pax("P3", "12C", domain.SeatClassEconomy)),
		booking("B4", domain.BookingStatusConfirmed, domain.PaymentStatusUnpaid, pax("P4", "12D", domain.SeatClassEconomy)),
		booking("B5", domain.BookingStatusExpired, domain.PaymentStatusPaid, pax("P5", "12E", domain.SeatClassEconomy)),
	)

	occ, err := e.inventory.ComputeOccupancy(context.Background(), flightID, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"12A": {}, "12B": {}}, occ)

	occ, err = e.inventory.ComputeOccupancy(context.Background(), flightID, "B1")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"12B": {}}, occ)
}

func TestSeatMap_Availability(t *testing.T) {
	f := testFlight()
	f.SeatMap[2].Seats[1].Status = domain.SeatStatusBlocked // 13B
	e := newEnv(t, f, activeBooking("B1", pax("P1", "12A", domain.SeatClassEconomy)))

	m, err := e.inventory.SeatMap(context.Background(), flightID)
	require.NoError(t, err)
	require.Len(t, m.Rows, 3)

	avail := map[string]bool{}
	for _, row := range m.Rows {
		for _, s := range row.Seats {
			avail[s.SeatNumber] = s.Available
		}
	}
	assert.False(t, avail["12A"])
	assert.False(t, avail["13B"])
	assert.True(t, avail["12B"])
	assert.True(t, avail["1A"])

	eco := m.Summary[domain.SeatClassEconomy]
	assert.Equal(t, 12, eco.Total)
	assert.Equal(t, 10, eco.Available)
	biz := m.Summary[domain.SeatClassBusiness]
	assert.Equal(t, 2, biz.Available)
	assert.True(t, biz.MinPrice.Equal(decimal.NewFromInt(120)))
}

func TestSeatMap_FlightNotFound(t *testing.T) {
	e := newEnv(t, testFlight())
	_, err := e.inventory.SeatMap(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}

func TestSeatMap_CacheHit(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	cache := &MockSeatMapCache{}
	inv := NewInventory(store.Flights(), store, cache, logging.Discard())
	ctx := context.Background()
	cached := &domain.SeatMap{FlightID: flightID}

	cache.On("GetSeatMap", ctx, flightID).Return(cached, int64(0), nil).Once()

	m, err := inv.SeatMap(ctx, flightID)
	require.NoError(t, err)
	assert.Same(t, cached, m)
	cache.AssertNotCalled(t, "SetSeatMap")
}

func TestSeatMap_CacheMissStores(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	store.PutFlight(testFlight())
	cache := &MockSeatMapCache{}
	inv := NewInventory(store.Flights(), store, cache, logging.Discard())
	ctx := context.Background()

	cache.On("GetSeatMap", ctx, flightID).Return(nil, int64(4), nil).Once()
	cache.On("SetSeatMap", ctx, mock.AnythingOfType("*domain.SeatMap"), int64(4)).Return(nil).Once()

	m, err := inv.SeatMap(ctx, flightID)
	require.NoError(t, err)
	assert.Equal(t, "SU100", m.FlightNumber)
	cache.AssertExpectations(t)
}

func TestSeatMap_CacheReadErrorSkipsStore(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	store.PutFlight(testFlight())
	cache := &MockSeatMapCache{}
	inv := NewInventory(store.Flights(), store, cache, logging.Discard())
	ctx := context.Background()

	cache.On("GetSeatMap", ctx, flightID).Return(nil, int64(0), errors.New("redis down")).Once()

	_, err := inv.SeatMap(ctx, flightID)
	require.NoError(t, err)
	cache.AssertNotCalled(t, "SetSeatMap")
}

// generationCache mimics the redis layout: maps are keyed by flight and
// generation. beforeSet runs right before a map is stored.
type generationCache struct {
	mu        sync.Mutex
	gen       map[string]int64
	maps      map[string]map[int64]*domain.SeatMap
	beforeSet func()
}

func newGenerationCache() *generationCache {
	return &generationCache{gen: map[string]int64{}, maps: map[string]map[int64]*domain.SeatMap{}}
}

func (c *generationCache) GetSeatMap(_ context.Context, flightID string) (*domain.SeatMap, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gen[flightID]
	return c.maps[flightID][gen], gen, nil
}

func (c *generationCache) SetSeatMap(_ context.Context, m *domain.SeatMap, generation int64) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maps[m.FlightID] == nil {
		c.maps[m.FlightID] = map[int64]*domain.SeatMap{}
	}
	c.maps[m.FlightID][generation] = m
	return nil
}

func (c *generationCache) InvalidateSeatMap(_ context.Context, flightID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen[flightID]++
	return nil
}

// A map built before a seat commit and stored after its invalidation must
// not be served afterwards.
func TestSeatMap_StaleBuildNotServedAfterCommit(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	store.PutFlight(testFlight())
	b := activeBooking("B1", pax("P1", "", domain.SeatClassEconomy))
	store.PutBooking(b)
	cache := newGenerationCache()
	inv := NewInventory(store.Flights(), store, cache, logging.Discard())
	svc := NewReservationService(store, store.Flights(), inv, logging.Discard())
	ctx := context.Background()

	cache.beforeSet = func() {
		_, err := svc.SelectSeat(ctx, ownerOf(b), SelectSeatInput{BookingID: "B1", FlightID: flightID, PassengerID: "P1", SeatNumber: "12C"})
		require.NoError(t, err)
	}
	stale, err := inv.SeatMap(ctx, flightID)
	require.NoError(t, err)
	require.True(t, seatAvailable(stale, "12C"), "built before the commit")

	m, err := inv.SeatMap(ctx, flightID)
	require.NoError(t, err)
	assert.False(t, seatAvailable(m, "12C"))

	cached, err := inv.SeatMap(ctx, flightID)
	require.NoError(t, err)
	assert.Same(t, m, cached)
}

func seatAvailable(m *domain.SeatMap, number string) bool {
	for _, row := range m.Rows {
		for _, s := range row.Seats {
			if s.SeatNumber == number {
				return s.Available
			}
		}
	}
	return false
}

func TestSeatSelection_InvalidatesCache(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	store.PutFlight(testFlight())
	b := activeBooking("B1", pax("P1", "", domain.SeatClassEconomy))
	store.PutBooking(b)
	cache := &MockSeatMapCache{}
	inv := NewInventory(store.Flights(), store, cache, logging.Discard())
	svc := NewReservationService(store, store.Flights(), inv, logging.Discard())
	ctx := context.Background()

	cache.On("InvalidateSeatMap", ctx, flightID).Return(nil).Once()

	_, err := svc.SelectSeat(ctx, ownerOf(b), SelectSeatInput{BookingID: "B1", FlightID: flightID, PassengerID: "P1", SeatNumber: "12B"})
	require.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestRecommend_SinglePrefersType(t *testing.T) {
	e := newEnv(t, testFlight(), activeBooking("B1", pax("P1", "12A", domain.SeatClassEconomy)))

	rec, err := e.inventory.Recommend(context.Background(), flightID, RecommendInput{SeatClass: domain.SeatClassEconomy, Preference: PreferWindow})
	require.NoError(t, err)
	require.NotEmpty(t, rec.Seats)
	assert.Equal(t, "12F", rec.Seats[0].SeatNumber)
	assert.Equal(t, "13A", rec.Seats[1].SeatNumber)
	assert.LessOrEqual(t, len(rec.Seats), 5)
	for _, s := range rec.Seats {
		assert.Equal(t, domain.SeatClassEconomy, s.Class)
		assert.NotEqual(t, "12A", s.SeatNumber)
	}
}

func TestRecommend_AdjacentBlock(t *testing.T) {
	// 12B занято: блок из трёх в 12-м ряду только D-E-F, но C|D разделены проходом.
	e := newEnv(t, testFlight(), activeBooking("B1", pax("P1", "12B", domain.SeatClassEconomy)))

	rec, err := e.inventory.Recommend(context.Background(), flightID, RecommendInput{SeatClass: domain.SeatClassEconomy, Preference: PreferAisle, PassengerCount: 3})
	require.NoError(t, err)
	assert.True(t, rec.Adjacent)
	var numbers []string
	for _, s := range rec.Seats {
		numbers = append(numbers, s.SeatNumber)
	}
	assert.Equal(t, []string{"12D", "12E", "12F"}, numbers)
	assert.True(t, rec.Total.IsZero())
}

func TestRecommend_NoBlock(t *testing.T) {
	e := newEnv(t, testFlight())

	rec, err := e.inventory.Recommend(context.Background(), flightID, RecommendInput{SeatClass: domain.SeatClassBusiness, PassengerCount: 3})
	require.NoError(t, err)
	assert.False(t, rec.Adjacent)
	assert.Empty(t, rec.Seats)
}

func TestRecommend_Validation(t *testing.T) {
	e := newEnv(t, testFlight())
	ctx := context.Background()

	_, err := e.inventory.Recommend(ctx, flightID, RecommendInput{SeatClass: "galley"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = e.inventory.Recommend(ctx, flightID, RecommendInput{SeatClass: domain.SeatClassEconomy, Preference: "exit_row"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = e.inventory.Recommend(ctx, flightID, RecommendInput{SeatClass: domain.SeatClassEconomy, PassengerCount: 10})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
