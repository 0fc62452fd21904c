package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/aircheckin/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
}

type flightResponse struct {
	flightSummaryResponse
	ArrivalTime string `json:"arrivalTime,omitempty"`
	TotalSeats  int    `json:"totalSeats"`
}

func (h *FlightHandler) get(c *gin.Context) {
	f, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := flightResponse{
		flightSummaryResponse: flightSummaryResponse{
			FlightID:         f.ID,
			FlightNumber:     f.FlightNumber,
			Airline:          f.Airline,
			DepartureAirport: f.Route.DepartureAirport,
			ArrivalAirport:   f.Route.ArrivalAirport,
			DepartureTime:    f.Route.DepartureTime.Format(time.RFC3339),
			Gate:             f.Route.Gate,
			Terminal:         f.Route.Terminal,
		},
		TotalSeats: f.SeatCount(),
	}
	if !f.Route.ArrivalTime.IsZero() {
		resp.ArrivalTime = f.Route.ArrivalTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
