package checkin

import (
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Domenick1991/aircheckin/internal/clock"
	"github.com/Domenick1991/aircheckin/internal/domain"
	"golang.org/x/crypto/blake2b"
)

var classRank = map[domain.SeatClass]int{
	domain.SeatClassFirst:          1,
	domain.SeatClassBusiness:       2,
	domain.SeatClassPremiumEconomy: 3,
	domain.SeatClassEconomy:        4,
}

var groupRank = map[string]int{"A": 1, "B": 2, "C": 3, "D": 4}

const unknownGroupRank = 5

// BoardingPriority is the lower of the class and group ranks. Lower boards
// first.
func BoardingPriority(class domain.SeatClass, group string) int {
	c, ok := classRank[class]
	if !ok {
		c = classRank[domain.SeatClassEconomy]
	}
	g, ok := groupRank[strings.ToUpper(strings.TrimSpace(group))]
	if !ok {
		g = unknownGroupRank
	}
	return min(c, g)
}

// Issuer builds boarding passes. Issue is safe for concurrent use.
type Issuer struct {
	clock          clock.Clock
	boardingBefore time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewIssuer uses rnd for display sequence numbers; pass a seeded source in
// tests.
func NewIssuer(c clock.Clock, rnd *rand.Rand, boardingBefore time.Duration) *Issuer {
	if c == nil {
		c = clock.Real()
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Issuer{clock: c, rnd: rnd, boardingBefore: boardingBefore}
}

func (i *Issuer) Issue(b *domain.Booking, f *domain.Flight, p domain.Passenger, seatNumber string) domain.BoardingPass {
	issuedAt := i.clock.Now()
	return domain.BoardingPass{
		BarcodeData:    Barcode(p, b.Reference, f, seatNumber),
		QRCodeData:     QRToken(b.Reference, p.ID, f.ID, issuedAt),
		Gate:           f.Route.Gate,
		BoardingTime:   f.Route.DepartureTime.Add(-i.boardingBefore),
		Priority:       BoardingPriority(p.Ticket.SeatClass, p.Ticket.BoardingGroup),
		SequenceNumber: i.sequence(),
		IssuedAt:       issuedAt,
	}
}

func (i *Issuer) sequence() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rnd.IntN(999) + 1
}

// Barcode renders the fixed width pass string:
// M1, initials(2), PNR(6), origin(3), destination(3), flight(7), seat(4).
func Barcode(p domain.Passenger, reference string, f *domain.Flight, seatNumber string) string {
	var sb strings.Builder
	sb.WriteString("M1")
	sb.WriteString(fixed(initial(p.FirstName)+initial(p.LastName), 2))
	sb.WriteString(fixed(reference, 6))
	sb.WriteString(fixed(f.Route.DepartureAirport, 3))
	sb.WriteString(fixed(f.Route.ArrivalAirport, 3))
	sb.WriteString(fixed(f.FlightNumber, 7))
	seat := strings.ToUpper(strings.TrimSpace(seatNumber))
	if seat == "" {
		sb.WriteString(strings.Repeat(" ", 4))
	} else {
		if len(seat) < 4 {
			seat = strings.Repeat("0", 4-len(seat)) + seat
		}
		sb.WriteString(seat[:4])
	}
	return sb.String()
}

func initial(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}

// fixed upper-cases s and pads or cuts it to n runes.
func fixed(s string, n int) string {
	r := []rune(strings.ToUpper(strings.TrimSpace(s)))
	if len(r) >= n {
		return string(r[:n])
	}
	return string(r) + strings.Repeat(" ", n-len(r))
}

// QRToken is an opaque scan payload. It changes with every issuance.
func QRToken(reference, passengerID, flightID string, issuedAt time.Time) string {
	sum := blake2b.Sum256([]byte(strings.Join([]string{
		reference, passengerID, flightID, issuedAt.UTC().Format(time.RFC3339Nano),
	}, "|")))
	return hex.EncodeToString(sum[:])
}
