package api

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/aircheckin/internal/auth"
	"github.com/Domenick1991/aircheckin/internal/cache"
	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/logging"
	"github.com/Domenick1991/aircheckin/internal/repository"
	"github.com/Domenick1991/aircheckin/internal/service/checkin"
	"github.com/Domenick1991/aircheckin/internal/service/flights"
	"github.com/Domenick1991/aircheckin/internal/service/seats"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	decision cache.Decision
	err      error
}

func (l stubLimiter) Allow(context.Context, string) (cache.Decision, error) {
	return l.decision, l.err
}

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	clock  *clock.Fake
}

// newTestServer wires the real services over the seed data in testdata.
func newTestServer(t *testing.T, limiter Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewFake(time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC))
	store := repository.NewMemoryStore(clk)
	require.NoError(t, store.LoadSeed("../testdata/seed.yaml"))

	log := logging.Discard()
	inv := seats.NewInventory(store.Flights(), store, nil, log)
	svc := checkin.NewService(store, store.Flights(), seats.NewAutoAssigner(store, inv, 3, log),
		checkin.NewIssuer(clk, rand.New(rand.NewPCG(3, 4)), 30*time.Minute), nil, checkin.Options{Clock: clk}, log)
	verifier := auth.NewVerifier(testSecret, clk)

	return &testServer{
		clock: clk,
		router: NewRouter(RouterDeps{
			CheckIn:  NewCheckInHandler(svc),
			Seats:    NewSeatHandler(inv, seats.NewReservationService(store, store.Flights(), inv, log)),
			Flights:  NewFlightHandler(flights.NewFlightService(store.Flights(), nil, log)),
			Verifier: verifier,
			Limiter:  limiter,
			Log:      log,
		}),
	}
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	now := s.clock.Now()
	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestRouter_SeatMap(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, httptest.NewRequest("GET", "/seats/flight/FL-100/map", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp seatMapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SU100", resp.FlightNumber)

	avail := map[string]bool{}
	for _, row := range resp.Rows {
		for _, seat := range row.Seats {
			avail[seat.SeatNumber] = *seat.Available
		}
	}
	assert.False(t, avail["12C"], "held by a paid booking")
	assert.True(t, avail["12A"], "held only by an unpaid booking")
	assert.False(t, avail["13B"], "blocked")

	w = s.do(t, httptest.NewRequest("GET", "/seats/flight/nope/map", nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SelectSeat(t *testing.T) {
	s := newTestServer(t, nil)
	body := selectSeatRequest{FlightID: "FL-100", PassengerID: "P2", SeatNumber: "12A"}

	w := s.do(t, jsonRequest("POST", "/seats/booking/BK-1/select", body), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, jsonRequest("POST", "/seats/booking/BK-1/select", body), s.token(t, "someone-else"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, jsonRequest("POST", "/seats/booking/BK-1/select", body), s.token(t, "user-1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp seatResultResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "12A", resp.Seat.SeatNumber)
	assert.Equal(t, "15.00", resp.Fee)

	w = s.do(t, jsonRequest("POST", "/seats/booking/BK-1/select", selectSeatRequest{FlightID: "FL-100", PassengerID: "P2", SeatNumber: "12C"}), s.token(t, "user-1"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, jsonRequest("POST", "/seats/booking/BK-1/unselect", unselectSeatRequest{FlightID: "FL-100", PassengerID: "P2"}), s.token(t, "user-1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "-15.00", resp.Fee)
}

func TestRouter_ConcurrentSelect(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token(t, "user-1")

	// Оба пассажира одного бронирования нацелены на одно место.
	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, pid := range []string{"P1", "P2"} {
		wg.Add(1)
		go func(i int, pid string) {
			defer wg.Done()
			w := s.do(t, jsonRequest("POST", "/seats/booking/BK-1/select", selectSeatRequest{FlightID: "FL-100", PassengerID: pid, SeatNumber: "12D"}), tok)
			codes[i] = w.Code
		}(i, pid)
	}
	wg.Wait()
	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)
}

func TestRouter_CheckInFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, jsonRequest("POST", "/checkin/eligibility", eligibilityRequest{BookingReference: "abc123", LastName: "petrova"}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, jsonRequest("POST", "/checkin/perform", performRequest{
		BookingReference: "ABC123",
		FlightID:         "FL-100",
		Passengers:       []passengerSelectionRequest{{PassengerID: "P1"}, {PassengerID: "P2"}},
	}), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var perf performResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &perf))
	assert.Equal(t, 2, perf.CheckedIn)
	assert.Equal(t, "B12", perf.Gate)
	assert.Equal(t, "12C", perf.Passengers[0].SeatNumber)
	assert.NotEmpty(t, perf.Passengers[1].SeatNumber)
	assert.True(t, perf.Passengers[1].SeatAssigned)

	w = s.do(t, httptest.NewRequest("GET", "/checkin/status/ABC123", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var st statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Flights[0].CheckedIn)

	w = s.do(t, httptest.NewRequest("GET", "/checkin/boarding-pass/ABC123/P1", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var bp boardingPassViewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bp))
	assert.Equal(t, perf.Passengers[0].BoardingPass.QRCodeData, bp.BoardingPass.QRCodeData)

	w = s.do(t, httptest.NewRequest("GET", "/checkin/mobile-boarding-pass/ABC123/P1?format=png", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestRouter_RateLimited(t *testing.T) {
	s := newTestServer(t, stubLimiter{decision: cache.Decision{Allowed: false, RetryAfter: 2500 * time.Millisecond}})

	w := s.do(t, httptest.NewRequest("GET", "/checkin/status/ABC123", nil), "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))

	// Карта мест не ограничивается.
	w = s.do(t, httptest.NewRequest("GET", "/seats/flight/FL-100/map", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RateLimiterDownFailsOpen(t *testing.T) {
	s := newTestServer(t, stubLimiter{err: errors.New("redis down")})

	w := s.do(t, httptest.NewRequest("GET", "/checkin/status/ABC123", nil), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Flight(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, httptest.NewRequest("GET", "/flights/FL-100", nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp flightResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "SVO", resp.DepartureAirport)
}
