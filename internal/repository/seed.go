package repository

import (
	"fmt"
	"os"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Flights  []domain.Flight  `yaml:"flights"`
	Bookings []domain.Booking `yaml:"bookings"`
}

// LoadSeed reads a YAML fixture of flights and bookings into the store.
func (s *MemoryStore) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed: %w", err)
	}
	return s.loadSeed(data)
}

func (s *MemoryStore) loadSeed(data []byte) error {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed: %w", err)
	}
	now := s.clock.Now()
	for i := range seed.Flights {
		f := &seed.Flights[i]
		for r, row := range f.SeatMap {
			for j, st := range row.Seats {
				seat, err := domain.NewSeat(st.SeatNumber, st.Class, st.Type, st.Status, st.Price, st.Features...)
				if err != nil {
					return fmt.Errorf("flight %s: %w", f.ID, err)
				}
				f.SeatMap[r].Seats[j] = seat
			}
		}
		f.CreatedAt, f.UpdatedAt = now, now
		s.PutFlight(f)
	}
	for i := range seed.Bookings {
		b := &seed.Bookings[i]
		for si, seg := range b.Segments {
			for pi, p := range seg.Passengers {
				np, err := domain.NewPassenger(p.ID, p.FirstName, p.LastName, p.Ticket)
				if err != nil {
					return fmt.Errorf("booking %s: %w", b.Reference, err)
				}
				np.CheckIn = p.CheckIn
				b.Segments[si].Passengers[pi] = np
			}
		}
		b.Version = 1
		b.CreatedAt, b.UpdatedAt = now, now
		s.PutBooking(b)
	}
	return nil
}
