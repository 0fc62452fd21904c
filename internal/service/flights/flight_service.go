package flights

import (
	"context"
	"log/slog"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/repository"
)

type FlightUseCase interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
}

// FlightCache returns nil, nil on a miss.
type FlightCache interface {
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	SetFlight(ctx context.Context, f *domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   *slog.Logger
}

// cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, log *slog.Logger) *FlightService {
	if log == nil {
		log = slog.Default()
	}
	return &FlightService{repo: repo, cache: cache, log: log}
}

func (s *FlightService) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlight(ctx, id)
		if err != nil {
			s.log.WarnContext(ctx, "flight cache read failed", "flight_id", id, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, f); err != nil {
			s.log.WarnContext(ctx, "flight cache write failed", "flight_id", id, "error", err)
		}
	}
	return f, nil
}

var _ FlightUseCase = (*FlightService)(nil)
