package seats

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/shopspring/decimal"
)

type FlightReader interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
}

// SeatMapCache keeps seat maps per invalidation generation. GetSeatMap
// returns a nil map on a miss along with the current generation;
// InvalidateSeatMap advances it.
type SeatMapCache interface {
	GetSeatMap(ctx context.Context, flightID string) (*domain.SeatMap, int64, error)
	SetSeatMap(ctx context.Context, m *domain.SeatMap, generation int64) error
	InvalidateSeatMap(ctx context.Context, flightID string) error
}

type InventoryUseCase interface {
	SeatMap(ctx context.Context, flightID string) (*domain.SeatMap, error)
	Recommend(ctx context.Context, flightID string, in RecommendInput) (*Recommendation, error)
}

type Inventory struct {
	flights FlightReader
	ledger  repository.SeatLedger
	cache   SeatMapCache
	log     *slog.Logger
}

// cache may be nil.
func NewInventory(flights FlightReader, ledger repository.SeatLedger, cache SeatMapCache, log *slog.Logger) *Inventory {
	if log == nil {
		log = slog.Default()
	}
	return &Inventory{flights: flights, ledger: ledger, cache: cache, log: log}
}

// ComputeOccupancy returns the seats of flightID held by active bookings
// other than excludeBookingID.
func (inv *Inventory) ComputeOccupancy(ctx context.Context, flightID, excludeBookingID string) (map[string]struct{}, error) {
	claims, err := inv.ledger.Occupancy(ctx, flightID, excludeBookingID)
	if err != nil {
		return nil, err
	}
	occupied := make(map[string]struct{}, len(claims))
	for seat := range claims {
		occupied[seat] = struct{}{}
	}
	return occupied, nil
}

// SeatMap serves the cached map when there is one. A freshly built map is
// cached under the generation read before building, so a seat change
// committed in between leaves it unreachable.
func (inv *Inventory) SeatMap(ctx context.Context, flightID string) (*domain.SeatMap, error) {
	var (
		generation int64
		cacheable  bool
	)
	if inv.cache != nil {
		cached, gen, err := inv.cache.GetSeatMap(ctx, flightID)
		switch {
		case err != nil:
			inv.log.WarnContext(ctx, "seat map cache read failed", "flight_id", flightID, "error", err)
		case cached != nil:
			return cached, nil
		default:
			generation, cacheable = gen, true
		}
	}

	flight, err := inv.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	occupied, err := inv.ComputeOccupancy(ctx, flightID, "")
	if err != nil {
		return nil, err
	}
	m := BuildSeatMap(flight, occupied)

	if cacheable {
		if err := inv.cache.SetSeatMap(ctx, m, generation); err != nil {
			inv.log.WarnContext(ctx, "seat map cache write failed", "flight_id", flightID, "error", err)
		}
	}
	return m, nil
}

// Invalidate drops the cached seat map after a committed seat change.
func (inv *Inventory) Invalidate(ctx context.Context, flightID string) {
	if inv.cache == nil {
		return
	}
	if err := inv.cache.InvalidateSeatMap(ctx, flightID); err != nil {
		inv.log.WarnContext(ctx, "seat map cache invalidation failed", "flight_id", flightID, "error", err)
	}
}

// BuildSeatMap overlays occupancy on the flight's static rows.
func BuildSeatMap(flight *domain.Flight, occupied map[string]struct{}) *domain.SeatMap {
	m := &domain.SeatMap{
		FlightID:     flight.ID,
		FlightNumber: flight.FlightNumber,
		Rows:         make([]domain.SeatMapRow, 0, len(flight.SeatMap)),
		Summary:      make(map[domain.SeatClass]domain.ClassSummary),
	}
	for _, row := range flight.SeatMap {
		out := domain.SeatMapRow{RowNumber: row.RowNumber, Seats: make([]domain.SeatView, 0, len(row.Seats))}
		for _, s := range row.Seats {
			available := isFree(s, occupied)
			out.Seats = append(out.Seats, domain.SeatView{Seat: s, Available: available})

			sum := m.Summary[s.Class]
			sum.Total++
			if available {
				if sum.Available == 0 || s.Price.LessThan(sum.MinPrice) {
					sum.MinPrice = s.Price
				}
				sum.Available++
			}
			m.Summary[s.Class] = sum
		}
		m.Rows = append(m.Rows, out)
	}
	return m
}

func isFree(s domain.Seat, occupied map[string]struct{}) bool {
	if s.Status != domain.SeatStatusAvailable {
		return false
	}
	_, taken := occupied[s.SeatNumber]
	return !taken
}

type Preference string

const (
	PreferAny    Preference = "any"
	PreferWindow Preference = "window"
	PreferAisle  Preference = "aisle"
	PreferMiddle Preference = "middle"
)

const (
	maxPartySize       = 9
	singleRecommendMax = 5
)

type RecommendInput struct {
	SeatClass      domain.SeatClass
	Preference     Preference
	PassengerCount int
}

type Recommendation struct {
	FlightID string           `json:"flight_id"`
	Seats    []domain.Seat    `json:"seats"`
	Adjacent bool             `json:"adjacent"`
	Total    decimal.Decimal  `json:"total_price"`
	Class    domain.SeatClass `json:"seat_class"`
}

// Recommend suggests free seats of the requested class. A party of one gets
// up to five seats, preferred type first. A larger party gets the first
// block of adjacent free seats, favouring blocks that contain the preferred
// type; seats either side of an aisle are not adjacent.
func (inv *Inventory) Recommend(ctx context.Context, flightID string, in RecommendInput) (*Recommendation, error) {
	if in.Preference == "" {
		in.Preference = PreferAny
	}
	if in.PassengerCount == 0 {
		in.PassengerCount = 1
	}
	if !in.SeatClass.Valid() {
		return nil, domain.Validation("invalid seat class: " + string(in.SeatClass))
	}
	switch in.Preference {
	case PreferAny, PreferWindow, PreferAisle, PreferMiddle:
	default:
		return nil, domain.Validation("invalid seat preference: " + string(in.Preference))
	}
	if in.PassengerCount < 1 || in.PassengerCount > maxPartySize {
		return nil, domain.Validation("passenger count must be between 1 and 9")
	}

	flight, err := inv.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	occupied, err := inv.ComputeOccupancy(ctx, flightID, "")
	if err != nil {
		return nil, err
	}

	rec := &Recommendation{FlightID: flightID, Class: in.SeatClass, Seats: []domain.Seat{}}
	if in.PassengerCount == 1 {
		rec.Seats = recommendSingle(flight, in, occupied)
	} else if block := recommendBlock(flight, in, occupied); block != nil {
		rec.Seats = block
		rec.Adjacent = true
	}
	for _, s := range rec.Seats {
		rec.Total = rec.Total.Add(s.Price)
	}
	return rec, nil
}

func (p Preference) matches(t domain.SeatType) bool {
	return p == PreferAny || string(p) == string(t)
}

func recommendSingle(flight *domain.Flight, in RecommendInput, occupied map[string]struct{}) []domain.Seat {
	var free []domain.Seat
	for _, row := range flight.SeatMap {
		for _, s := range row.Seats {
			if s.Class == in.SeatClass && isFree(s, occupied) {
				free = append(free, s)
			}
		}
	}
	sort.SliceStable(free, func(i, j int) bool {
		return in.Preference.matches(free[i].Type) && !in.Preference.matches(free[j].Type)
	})
	if len(free) > singleRecommendMax {
		free = free[:singleRecommendMax]
	}
	return free
}

func recommendBlock(flight *domain.Flight, in RecommendInput, occupied map[string]struct{}) []domain.Seat {
	var fallback []domain.Seat
	for _, row := range flight.SeatMap {
		seats := row.Seats
		for start := 0; start+in.PassengerCount <= len(seats); start++ {
			block := seats[start : start+in.PassengerCount]
			if !adjacentFree(block, in.SeatClass, occupied) {
				continue
			}
			for _, s := range block {
				if in.Preference.matches(s.Type) {
					return append([]domain.Seat(nil), block...)
				}
			}
			if fallback == nil {
				fallback = append([]domain.Seat(nil), block...)
			}
		}
	}
	return fallback
}

func adjacentFree(block []domain.Seat, class domain.SeatClass, occupied map[string]struct{}) bool {
	for i, s := range block {
		if s.Class != class || !isFree(s, occupied) {
			return false
		}
		if i > 0 && s.Type == domain.SeatTypeAisle && block[i-1].Type == domain.SeatTypeAisle {
			return false
		}
	}
	return true
}

var _ InventoryUseCase = (*Inventory)(nil)
