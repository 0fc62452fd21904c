package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	CheckIn  *CheckInHandler
	Seats    *SeatHandler
	Flights  *FlightHandler
	Verifier TokenVerifier
	// Limiter is optional; check-in routes are unthrottled without it.
	Limiter Limiter
	Log     *slog.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(d.Log))

	checkinGroup := r.Group("/checkin")
	if d.Limiter != nil {
		checkinGroup.Use(RateLimit(d.Limiter, d.Log))
	}
	d.CheckIn.Register(checkinGroup)

	seatsGroup := r.Group("/seats")
	d.Seats.Register(seatsGroup, seatsGroup.Group("", Authenticate(d.Verifier)))

	d.Flights.Register(r.Group("/flights"))
	return r
}
