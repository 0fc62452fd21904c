package checkin

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardingPriority(t *testing.T) {
	// Класс и группа сравниваются через min, как есть.
	assert.Equal(t, 1, BoardingPriority(domain.SeatClassBusiness, "A"))
	assert.Equal(t, 1, BoardingPriority(domain.SeatClassEconomy, "A"))
	assert.Equal(t, 2, BoardingPriority(domain.SeatClassBusiness, "D"))
	assert.Equal(t, 3, BoardingPriority(domain.SeatClassPremiumEconomy, "c"))
	assert.Equal(t, 4, BoardingPriority(domain.SeatClassEconomy, ""))
	assert.Equal(t, 1, BoardingPriority(domain.SeatClassFirst, "Z"))
}

func TestBarcode(t *testing.T) {
	f := testFlight()
	p := domain.Passenger{ID: "P1", FirstName: "ivan", LastName: "Petrov"}

	assert.Equal(t, "M1IPABC123SVOLEDSU100  012C", Barcode(p, "abc123", f, "12c"))
	assert.Equal(t, "M1IPABC123SVOLEDSU100      ", Barcode(p, "ABC123", f, ""))
	assert.Len(t, Barcode(domain.Passenger{LastName: "X"}, "LONGREFERENCE", f, "123ABC"), 27)
}

func TestQRToken(t *testing.T) {
	at := time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC)
	a := QRToken("ABC123", "P1", "FL-1", at)
	assert.Len(t, a, 64)
	assert.Equal(t, a, QRToken("ABC123", "P1", "FL-1", at))
	assert.NotEqual(t, a, QRToken("ABC123", "P1", "FL-1", at.Add(time.Nanosecond)))
	assert.NotEqual(t, a, QRToken("ABC123", "P2", "FL-1", at))
}

func TestIssuer_Issue(t *testing.T) {
	now := time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	f := testFlight()
	b := &domain.Booking{Reference: "ABC123"}
	p := domain.Passenger{ID: "P1", FirstName: "Ivan", LastName: "Petrov", Ticket: domain.Ticket{SeatClass: domain.SeatClassBusiness, BoardingGroup: "A"}}

	iss := NewIssuer(clk, rand.New(rand.NewPCG(1, 2)), 30*time.Minute)
	pass := iss.Issue(b, f, p, "1A")

	assert.Equal(t, f.Route.DepartureTime.Add(-30*time.Minute), pass.BoardingTime)
	assert.Equal(t, "B12", pass.Gate)
	assert.Equal(t, 1, pass.Priority)
	assert.Equal(t, now, pass.IssuedAt)
	assert.Equal(t, QRToken("ABC123", "P1", f.ID, now), pass.QRCodeData)
	assert.GreaterOrEqual(t, pass.SequenceNumber, 1)
	assert.LessOrEqual(t, pass.SequenceNumber, 999)

	clk.Advance(time.Second)
	again := iss.Issue(b, f, p, "1A")
	assert.NotEqual(t, pass.QRCodeData, again.QRCodeData, "re-issue yields a new token")
}

func TestIssuer_SeededSequence(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 11, 30, 12, 0, 0, 0, time.UTC))
	f := testFlight()
	b := &domain.Booking{Reference: "ABC123"}
	p := domain.Passenger{ID: "P1", LastName: "Petrov", Ticket: domain.Ticket{SeatClass: domain.SeatClassEconomy}}

	a := NewIssuer(clk, rand.New(rand.NewPCG(7, 7)), 30*time.Minute)
	c := NewIssuer(clk, rand.New(rand.NewPCG(7, 7)), 30*time.Minute)
	for i := 0; i < 5; i++ {
		require.Equal(t, a.Issue(b, f, p, "").SequenceNumber, c.Issue(b, f, p, "").SequenceNumber)
	}
}
