package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/Domenick1991/aircheckin/internal/service/checkin"
	"github.com/gin-gonic/gin"
)

type CheckInHandler struct {
	service checkin.UseCase
}

func NewCheckInHandler(service checkin.UseCase) *CheckInHandler {
	return &CheckInHandler{service: service}
}

func (h *CheckInHandler) Register(router *gin.RouterGroup) {
	router.POST("/eligibility", h.eligibility)
	router.POST("/perform", h.perform)
	router.GET("/status/:reference", h.status)
	router.GET("/boarding-pass/:reference/:passengerId", h.boardingPass)
	router.GET("/mobile-boarding-pass/:reference/:passengerId", h.mobileBoardingPass)
}

type eligibilityRequest struct {
	BookingReference string `json:"bookingReference"`
	LastName         string `json:"lastName"`
}

type segmentEligibilityResponse struct {
	FlightID        string `json:"flightId"`
	FlightNumber    string `json:"flightNumber"`
	DepartureTime   string `json:"departureTime"`
	Status          string `json:"status"`
	OpensAt         string `json:"checkInOpensAt"`
	ClosesAt        string `json:"checkInClosesAt"`
	TotalPassengers int    `json:"totalPassengers"`
	CheckedIn       int    `json:"checkedInPassengers"`
	CanCheckIn      bool   `json:"canCheckIn"`
}

type eligibilityResponse struct {
	BookingReference string                       `json:"bookingReference"`
	Flights          []segmentEligibilityResponse `json:"flights"`
}

func (h *CheckInHandler) eligibility(c *gin.Context) {
	var req eligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.service.Eligibility(c.Request.Context(), req.BookingReference, req.LastName)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := eligibilityResponse{BookingReference: res.BookingReference, Flights: make([]segmentEligibilityResponse, 0, len(res.Segments))}
	for _, s := range res.Segments {
		resp.Flights = append(resp.Flights, segmentEligibilityResponse{
			FlightID:        s.FlightID,
			FlightNumber:    s.FlightNumber,
			DepartureTime:   s.DepartureTime.Format(time.RFC3339),
			Status:          string(s.Status),
			OpensAt:         s.OpensAt.Format(time.RFC3339),
			ClosesAt:        s.ClosesAt.Format(time.RFC3339),
			TotalPassengers: s.TotalPassengers,
			CheckedIn:       s.CheckedIn,
			CanCheckIn:      s.CanCheckIn,
		})
	}
	c.JSON(http.StatusOK, resp)
}

type passengerSelectionRequest struct {
	PassengerID    string `json:"passengerId"`
	AutoAssignSeat *bool  `json:"autoAssignSeat"`
}

type performRequest struct {
	BookingReference string                      `json:"bookingReference"`
	FlightID         string                      `json:"flightId"`
	Passengers       []passengerSelectionRequest `json:"passengers"`
}

type boardingPassResponse struct {
	BarcodeData    string `json:"barcodeData"`
	QRCodeData     string `json:"qrCodeData"`
	Gate           string `json:"gate"`
	BoardingTime   string `json:"boardingTime"`
	Priority       int    `json:"priority"`
	SequenceNumber int    `json:"sequenceNumber"`
	IssuedAt       string `json:"issuedAt"`
}

func toBoardingPassResponse(p *domain.BoardingPass) *boardingPassResponse {
	if p == nil {
		return nil
	}
	return &boardingPassResponse{
		BarcodeData:    p.BarcodeData,
		QRCodeData:     p.QRCodeData,
		Gate:           p.Gate,
		BoardingTime:   p.BoardingTime.Format(time.RFC3339),
		Priority:       p.Priority,
		SequenceNumber: p.SequenceNumber,
		IssuedAt:       p.IssuedAt.Format(time.RFC3339Nano),
	}
}

type passengerResultResponse struct {
	PassengerID   string                `json:"passengerId"`
	Name          string                `json:"name,omitempty"`
	Status        string                `json:"status"`
	SeatNumber    string                `json:"seatNumber,omitempty"`
	SeatAssigned  bool                  `json:"seatAutoAssigned"`
	BoardingGroup string                `json:"boardingGroup,omitempty"`
	BoardingPass  *boardingPassResponse `json:"boardingPass,omitempty"`
}

type performResponse struct {
	BookingReference string                    `json:"bookingReference"`
	FlightID         string                    `json:"flightId"`
	FlightNumber     string                    `json:"flightNumber"`
	Gate             string                    `json:"gate"`
	Terminal         string                    `json:"terminal"`
	DepartureTime    string                    `json:"departureTime"`
	CheckedIn        int                       `json:"checkedInCount"`
	Passengers       []passengerResultResponse `json:"results"`
	Error            string                    `json:"error,omitempty"`
	Code             string                    `json:"code,omitempty"`
}

func (h *CheckInHandler) perform(c *gin.Context) {
	var req performRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	in := checkin.PerformInput{Reference: req.BookingReference, FlightID: req.FlightID}
	for _, p := range req.Passengers {
		in.Passengers = append(in.Passengers, checkin.PassengerSelection{PassengerID: p.PassengerID, AutoAssignSeat: p.AutoAssignSeat})
	}

	res, err := h.service.PerformCheckIn(c.Request.Context(), in)
	if err != nil && !(errors.Is(err, domain.ErrAllSkipped) && res != nil) {
		writeError(c, err)
		return
	}

	resp := performResponse{
		BookingReference: res.BookingReference,
		FlightID:         res.FlightID,
		FlightNumber:     res.FlightNumber,
		Gate:             res.Gate,
		Terminal:         res.Terminal,
		DepartureTime:    res.DepartureTime.Format(time.RFC3339),
		CheckedIn:        res.CheckedIn,
		Passengers:       make([]passengerResultResponse, 0, len(res.Passengers)),
	}
	for _, p := range res.Passengers {
		resp.Passengers = append(resp.Passengers, passengerResultResponse{
			PassengerID:   p.PassengerID,
			Name:          p.Name,
			Status:        string(p.Outcome),
			SeatNumber:    p.SeatNumber,
			SeatAssigned:  p.SeatAssigned,
			BoardingGroup: p.BoardingGroup,
			BoardingPass:  toBoardingPassResponse(p.BoardingPass),
		})
	}
	if err != nil {
		// Nobody was checked in; the per-passenger outcomes explain why.
		status, body := newErrorResponse(err)
		resp.Error, resp.Code = body.Error, body.Code
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type rosterEntryResponse struct {
	PassengerID   string `json:"passengerId"`
	Name          string `json:"name"`
	SeatNumber    string `json:"seatNumber,omitempty"`
	SeatClass     string `json:"seatClass"`
	BoardingGroup string `json:"boardingGroup"`
	CheckedIn     bool   `json:"isCheckedIn"`
	CheckedInAt   string `json:"checkedInAt,omitempty"`
	CheckedInBy   string `json:"checkedInBy,omitempty"`
}

type segmentStatusResponse struct {
	FlightID      string                `json:"flightId"`
	FlightNumber  string                `json:"flightNumber"`
	DepartureTime string                `json:"departureTime"`
	Window        string                `json:"checkInStatus"`
	Total         int                   `json:"totalPassengers"`
	CheckedIn     int                   `json:"checkedInPassengers"`
	Passengers    []rosterEntryResponse `json:"passengers"`
}

type statusResponse struct {
	BookingReference string                  `json:"bookingReference"`
	BookingStatus    string                  `json:"bookingStatus"`
	Flights          []segmentStatusResponse `json:"flights"`
}

func (h *CheckInHandler) status(c *gin.Context) {
	res, err := h.service.Status(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	resp := statusResponse{BookingReference: res.BookingReference, BookingStatus: string(res.BookingStatus), Flights: []segmentStatusResponse{}}
	for _, s := range res.Segments {
		seg := segmentStatusResponse{
			FlightID:      s.FlightID,
			FlightNumber:  s.FlightNumber,
			DepartureTime: s.DepartureTime.Format(time.RFC3339),
			Window:        string(s.Window),
			Total:         s.Total,
			CheckedIn:     s.CheckedIn,
			Passengers:    make([]rosterEntryResponse, 0, len(s.Passengers)),
		}
		for _, p := range s.Passengers {
			e := rosterEntryResponse{
				PassengerID:   p.PassengerID,
				Name:          p.Name,
				SeatNumber:    p.SeatNumber,
				SeatClass:     string(p.SeatClass),
				BoardingGroup: p.BoardingGroup,
				CheckedIn:     p.CheckedIn,
				CheckedInBy:   p.CheckedInBy,
			}
			if !p.CheckedInAt.IsZero() {
				e.CheckedInAt = p.CheckedInAt.Format(time.RFC3339)
			}
			seg.Passengers = append(seg.Passengers, e)
		}
		resp.Flights = append(resp.Flights, seg)
	}
	c.JSON(http.StatusOK, resp)
}

type flightSummaryResponse struct {
	FlightID         string `json:"flightId"`
	FlightNumber     string `json:"flightNumber"`
	Airline          string `json:"airline,omitempty"`
	DepartureAirport string `json:"departureAirport"`
	ArrivalAirport   string `json:"arrivalAirport"`
	DepartureTime    string `json:"departureTime"`
	Gate             string `json:"gate"`
	Terminal         string `json:"terminal"`
}

type boardingPassViewResponse struct {
	BookingReference string                `json:"bookingReference"`
	PassengerID      string                `json:"passengerId"`
	PassengerName    string                `json:"passengerName"`
	SeatNumber       string                `json:"seatNumber,omitempty"`
	SeatClass        string                `json:"seatClass"`
	BoardingGroup    string                `json:"boardingGroup"`
	Flight           flightSummaryResponse `json:"flight"`
	BoardingPass     *boardingPassResponse `json:"boardingPass"`
	QRCodeImage      string                `json:"qrCodeImage,omitempty"`
}

func toBoardingPassView(v *checkin.BoardingPassView) boardingPassViewResponse {
	return boardingPassViewResponse{
		BookingReference: v.BookingReference,
		PassengerID:      v.PassengerID,
		PassengerName:    v.PassengerName,
		SeatNumber:       v.SeatNumber,
		SeatClass:        string(v.SeatClass),
		BoardingGroup:    v.BoardingGroup,
		Flight: flightSummaryResponse{
			FlightID:         v.Flight.ID,
			FlightNumber:     v.Flight.FlightNumber,
			Airline:          v.Flight.Airline,
			DepartureAirport: v.Flight.Route.DepartureAirport,
			ArrivalAirport:   v.Flight.Route.ArrivalAirport,
			DepartureTime:    v.Flight.Route.DepartureTime.Format(time.RFC3339),
			Gate:             v.Flight.Route.Gate,
			Terminal:         v.Flight.Route.Terminal,
		},
		BoardingPass: toBoardingPassResponse(&v.Pass),
	}
}

func (h *CheckInHandler) boardingPass(c *gin.Context) {
	view, err := h.service.BoardingPass(c.Request.Context(), c.Param("reference"), c.Param("passengerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardingPassView(view))
}

func (h *CheckInHandler) mobileBoardingPass(c *gin.Context) {
	mobile, err := h.service.MobileBoardingPass(c.Request.Context(), c.Param("reference"), c.Param("passengerId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if c.Query("format") == "png" {
		c.Data(http.StatusOK, "image/png", mobile.PNG)
		return
	}
	resp := toBoardingPassView(mobile.BoardingPassView)
	resp.QRCodeImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(mobile.PNG)
	c.JSON(http.StatusOK, resp)
}
