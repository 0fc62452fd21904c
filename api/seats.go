package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/service/seats"
	"github.com/gin-gonic/gin"
)

type SeatHandler struct {
	inventory   seats.InventoryUseCase
	reservation seats.ReservationUseCase
}

func NewSeatHandler(inventory seats.InventoryUseCase, reservation seats.ReservationUseCase) *SeatHandler {
	return &SeatHandler{inventory: inventory, reservation: reservation}
}

// Register mounts the read routes on router and the booking routes on
// protected, which must carry Authenticate.
func (h *SeatHandler) Register(router, protected *gin.RouterGroup) {
	router.GET("/flight/:flightId/map", h.seatMap)
	router.GET("/flight/:flightId/recommended", h.recommended)
	protected.POST("/booking/:bookingId/select", h.selectSeat)
	protected.POST("/booking/:bookingId/unselect", h.unselectSeat)
}

type seatResponse struct {
	SeatNumber string   `json:"seatNumber"`
	Class      string   `json:"class"`
	Type       string   `json:"type"`
	Status     string   `json:"status"`
	Price      string   `json:"price"`
	Features   []string `json:"features,omitempty"`
	Available  *bool    `json:"isAvailable,omitempty"`
}

func toSeatResponse(s domain.Seat) seatResponse {
	return seatResponse{
		SeatNumber: s.SeatNumber,
		Class:      string(s.Class),
		Type:       string(s.Type),
		Status:     string(s.Status),
		Price:      s.Price.StringFixed(2),
		Features:   s.Features,
	}
}

type seatRowResponse struct {
	RowNumber int            `json:"rowNumber"`
	Seats     []seatResponse `json:"seats"`
}

type classSummaryResponse struct {
	Total     int    `json:"total"`
	Available int    `json:"available"`
	MinPrice  string `json:"minPrice"`
}

type seatMapResponse struct {
	FlightID     string                          `json:"flightId"`
	FlightNumber string                          `json:"flightNumber"`
	Rows         []seatRowResponse               `json:"seatMap"`
	Summary      map[string]classSummaryResponse `json:"summary"`
}

func (h *SeatHandler) seatMap(c *gin.Context) {
	m, err := h.inventory.SeatMap(c.Request.Context(), c.Param("flightId"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := seatMapResponse{
		FlightID:     m.FlightID,
		FlightNumber: m.FlightNumber,
		Rows:         make([]seatRowResponse, 0, len(m.Rows)),
		Summary:      make(map[string]classSummaryResponse, len(m.Summary)),
	}
	for _, row := range m.Rows {
		r := seatRowResponse{RowNumber: row.RowNumber, Seats: make([]seatResponse, 0, len(row.Seats))}
		for _, s := range row.Seats {
			sr := toSeatResponse(s.Seat)
			available := s.Available
			sr.Available = &available
			r.Seats = append(r.Seats, sr)
		}
		resp.Rows = append(resp.Rows, r)
	}
	for class, sum := range m.Summary {
		resp.Summary[string(class)] = classSummaryResponse{Total: sum.Total, Available: sum.Available, MinPrice: sum.MinPrice.StringFixed(2)}
	}
	c.JSON(http.StatusOK, resp)
}

type recommendationResponse struct {
	FlightID   string         `json:"flightId"`
	SeatClass  string         `json:"seatClass"`
	Adjacent   bool           `json:"adjacent"`
	TotalPrice string         `json:"totalPrice"`
	Seats      []seatResponse `json:"seats"`
}

func (h *SeatHandler) recommended(c *gin.Context) {
	in := seats.RecommendInput{
		SeatClass:  domain.SeatClass(c.DefaultQuery("seatClass", string(domain.SeatClassEconomy))),
		Preference: seats.Preference(c.DefaultQuery("preference", string(seats.PreferAny))),
	}
	if raw := c.Query("passengerCount"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid passengerCount")
			return
		}
		in.PassengerCount = n
	}

	rec, err := h.inventory.Recommend(c.Request.Context(), c.Param("flightId"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := recommendationResponse{
		FlightID:   rec.FlightID,
		SeatClass:  string(rec.Class),
		Adjacent:   rec.Adjacent,
		TotalPrice: rec.Total.StringFixed(2),
		Seats:      make([]seatResponse, 0, len(rec.Seats)),
	}
	for _, s := range rec.Seats {
		resp.Seats = append(resp.Seats, toSeatResponse(s))
	}
	c.JSON(http.StatusOK, resp)
}

type selectSeatRequest struct {
	FlightID      string `json:"flightId"`
	PassengerID   string `json:"passengerId"`
	SeatNumber    string `json:"seatNumber"`
	AcceptUpgrade bool   `json:"acceptUpgrade"`
}

type unselectSeatRequest struct {
	FlightID    string `json:"flightId"`
	PassengerID string `json:"passengerId"`
}

type seatResultResponse struct {
	BookingID    string        `json:"bookingId"`
	FlightID     string        `json:"flightId"`
	PassengerID  string        `json:"passengerId"`
	Seat         *seatResponse `json:"seat,omitempty"`
	PreviousSeat string        `json:"previousSeat,omitempty"`
	Fee          string        `json:"seatFee"`
	Upgrade      bool          `json:"upgrade"`
	TotalAmount  string        `json:"totalAmount"`
	Currency     string        `json:"currency"`
}

func toSeatResult(res *seats.SeatResult, flightID, passengerID string) seatResultResponse {
	out := seatResultResponse{
		BookingID:    res.Booking.ID,
		FlightID:     flightID,
		PassengerID:  passengerID,
		PreviousSeat: res.PreviousSeat,
		Fee:          res.Fee.StringFixed(2),
		Upgrade:      res.Upgrade,
		TotalAmount:  res.Booking.TotalAmount.StringFixed(2),
		Currency:     res.Booking.Currency,
	}
	if res.Seat != nil {
		s := toSeatResponse(*res.Seat)
		out.Seat = &s
	}
	return out
}

func (h *SeatHandler) selectSeat(c *gin.Context) {
	var req selectSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.reservation.SelectSeat(c.Request.Context(), callerFrom(c), seats.SelectSeatInput{
		BookingID:     c.Param("bookingId"),
		FlightID:      req.FlightID,
		PassengerID:   req.PassengerID,
		SeatNumber:    req.SeatNumber,
		AcceptUpgrade: req.AcceptUpgrade,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSeatResult(res, req.FlightID, req.PassengerID))
}

func (h *SeatHandler) unselectSeat(c *gin.Context) {
	var req unselectSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.reservation.UnselectSeat(c.Request.Context(), callerFrom(c), seats.UnselectSeatInput{
		BookingID:   c.Param("bookingId"),
		FlightID:    req.FlightID,
		PassengerID: req.PassengerID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSeatResult(res, req.FlightID, req.PassengerID))
}
