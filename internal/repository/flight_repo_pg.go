package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT id, flight_number, airline, departure_airport, arrival_airport, departure_time, arrival_time, gate, terminal, created_at, updated_at FROM flights WHERE id=$1`, id)
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.Route.DepartureAirport, &f.Route.ArrivalAirport, &f.Route.DepartureTime, &f.Route.ArrivalTime, &f.Route.Gate, &f.Route.Terminal, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, fmt.Errorf("get flight %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, `SELECT row_number, seat_number, class, seat_type, status, price::text, features FROM flight_seats WHERE flight_id=$1 ORDER BY row_number, position`, id)
	if err != nil {
		return nil, fmt.Errorf("list seats of flight %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rowNumber int
			price     string
			s         domain.Seat
		)
		if err := rows.Scan(&rowNumber, &s.SeatNumber, &s.Class, &s.Type, &s.Status, &price, &s.Features); err != nil {
			return nil, err
		}
		if s.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("seat %s price %q: %w", s.SeatNumber, price, err)
		}
		if n := len(f.SeatMap); n == 0 || f.SeatMap[n-1].RowNumber != rowNumber {
			f.SeatMap = append(f.SeatMap, domain.SeatRow{RowNumber: rowNumber})
		}
		last := &f.SeatMap[len(f.SeatMap)-1]
		last.Seats = append(last.Seats, s)
	}
	return &f, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
