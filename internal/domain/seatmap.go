package domain

import "github.com/shopspring/decimal"

// SeatView is a catalog seat together with its live availability.
type SeatView struct {
	Seat
	Available bool `json:"available"`
}

type SeatMapRow struct {
	RowNumber int        `json:"row_number"`
	Seats     []SeatView `json:"seats"`
}

type ClassSummary struct {
	Total     int             `json:"total"`
	Available int             `json:"available"`
	MinPrice  decimal.Decimal `json:"min_price"`
}

// SeatMap is the read model served to clients and cached per flight.
type SeatMap struct {
	FlightID     string                     `json:"flight_id"`
	FlightNumber string                     `json:"flight_number"`
	Rows         []SeatMapRow               `json:"rows"`
	Summary      map[SeatClass]ClassSummary `json:"summary"`
}
