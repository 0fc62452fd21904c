package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/aircheckin/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

const selectBooking = `SELECT id, reference, coalesce(user_id, ''), status, payment_status, contact_email, coalesce(contact_phone, ''), total_amount::text, currency, version, created_at, updated_at FROM bookings`

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return loadBooking(ctx, r.db, selectBooking+` WHERE id=$1`, id)
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return loadBooking(ctx, r.db, selectBooking+` WHERE reference=$1`, strings.ToUpper(strings.TrimSpace(reference)))
}

func (r *PGBookingRepository) AssignSeat(ctx context.Context, a SeatAssignment) (*domain.Booking, domain.SeatChange, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	defer tx.Rollback(ctx)

	b, err := loadBooking(ctx, tx, selectBooking+` WHERE id=$1 FOR UPDATE`, a.BookingID)
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	if !b.AllowsSeatChange() {
		return nil, domain.SeatChange{}, domain.ErrBookingNotModifiable
	}
	if err := a.check(b); err != nil {
		return nil, domain.SeatChange{}, err
	}
	change, err := b.SetSeat(a.FlightID, a.PassengerID, a.SeatNumber, a.Fee)
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	if !change.Changed {
		return b, change, tx.Commit(ctx)
	}
	seat := strings.ToUpper(strings.TrimSpace(a.SeatNumber))

	// The holder index allows one claim per passenger and flight; drop the
	// old claim first. A lost race below rolls this back too.
	if change.PreviousSeat != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM seat_reservations WHERE flight_id=$1 AND seat_number=$2 AND booking_id=$3 AND passenger_id=$4`,
			a.FlightID, change.PreviousSeat, a.BookingID, a.PassengerID); err != nil {
			return nil, domain.SeatChange{}, fmt.Errorf("release previous seat: %w", err)
		}
	}

	var holder string
	err = tx.QueryRow(ctx, `INSERT INTO seat_reservations (flight_id, seat_number, booking_id, passenger_id, claimed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (flight_id, seat_number) DO UPDATE
		SET booking_id = EXCLUDED.booking_id, passenger_id = EXCLUDED.passenger_id, claimed_at = EXCLUDED.claimed_at
		WHERE NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.id = seat_reservations.booking_id
			  AND b.status IN ('confirmed', 'checked_in')
			  AND b.payment_status = 'paid')
		RETURNING booking_id`, a.FlightID, seat, a.BookingID, a.PassengerID).Scan(&holder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.SeatChange{}, domain.ErrSeatAlreadyTaken
		}
		return nil, domain.SeatChange{}, fmt.Errorf("claim seat %s: %w", seat, err)
	}

	if err := writeSeat(ctx, tx, b, a.FlightID, a.PassengerID, seat, a.Fee); err != nil {
		return nil, domain.SeatChange{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.SeatChange{}, err
	}
	return b, change, nil
}

func (r *PGBookingRepository) ClearSeat(ctx context.Context, rel SeatRelease) (*domain.Booking, domain.SeatChange, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	defer tx.Rollback(ctx)

	b, err := loadBooking(ctx, tx, selectBooking+` WHERE id=$1 FOR UPDATE`, rel.BookingID)
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	if !b.AllowsSeatChange() {
		return nil, domain.SeatChange{}, domain.ErrBookingNotModifiable
	}
	change, err := b.ClearSeat(rel.FlightID, rel.PassengerID)
	if err != nil {
		return nil, domain.SeatChange{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM seat_reservations WHERE flight_id=$1 AND seat_number=$2 AND booking_id=$3 AND passenger_id=$4`,
		rel.FlightID, change.PreviousSeat, rel.BookingID, rel.PassengerID); err != nil {
		return nil, domain.SeatChange{}, fmt.Errorf("release seat: %w", err)
	}
	if err := writeSeat(ctx, tx, b, rel.FlightID, rel.PassengerID, "", decimal.Zero); err != nil {
		return nil, domain.SeatChange{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.SeatChange{}, err
	}
	return b, change, nil
}

// writeSeat stores the ticket seat and the new booking total, refusing to
// touch a passenger that got checked in meanwhile.
func writeSeat(ctx context.Context, tx pgx.Tx, b *domain.Booking, flightID, passengerID, seat string, fee decimal.Decimal) error {
	var seatArg any
	if seat != "" {
		seatArg = seat
	}
	tag, err := tx.Exec(ctx, `UPDATE booking_passengers SET seat_number=$1, seat_fee=$2::numeric
		WHERE booking_id=$3 AND flight_id=$4 AND passenger_id=$5 AND NOT checked_in`,
		seatArg, fee.String(), b.ID, flightID, passengerID)
	if err != nil {
		return fmt.Errorf("update ticket seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyCheckedIn
	}
	if err := tx.QueryRow(ctx, `UPDATE bookings SET total_amount=$1::numeric, version=version+1, updated_at=now() WHERE id=$2 RETURNING version, updated_at`,
		b.TotalAmount.String(), b.ID).Scan(&b.Version, &b.UpdatedAt); err != nil {
		return fmt.Errorf("update booking total: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) Save(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var (
		version   int64
		updatedAt time.Time
	)
	err = tx.QueryRow(ctx, `UPDATE bookings SET status=$1, version=version+1, updated_at=now() WHERE id=$2 AND version=$3 RETURNING version, updated_at`,
		b.Status, b.ID, b.Version).Scan(&version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConcurrentUpdate
		}
		return fmt.Errorf("save booking %s: %w", b.ID, err)
	}

	for _, seg := range b.Segments {
		for _, p := range seg.Passengers {
			if !p.CheckIn.IsCheckedIn {
				continue
			}
			pass, err := json.Marshal(p.CheckIn.BoardingPass)
			if err != nil {
				return err
			}
			// checked_in only ever flips from false to true.
			if _, err := tx.Exec(ctx, `UPDATE booking_passengers SET checked_in=true, checked_in_at=$1, checked_in_by=$2, boarding_pass=$3
				WHERE booking_id=$4 AND flight_id=$5 AND passenger_id=$6 AND NOT checked_in`,
				p.CheckIn.CheckedInAt, p.CheckIn.CheckedInBy, pass, b.ID, seg.FlightID, p.ID); err != nil {
				return fmt.Errorf("save check-in of passenger %s: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	b.Version = version
	b.UpdatedAt = updatedAt
	return nil
}

func loadBooking(ctx context.Context, q querier, query string, arg any) (*domain.Booking, error) {
	var (
		b     domain.Booking
		total string
	)
	err := q.QueryRow(ctx, query, arg).Scan(&b.ID, &b.Reference, &b.UserID, &b.Status, &b.PaymentStatus,
		&b.Contact.Email, &b.Contact.Phone, &total, &b.Currency, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("booking %s total %q: %w", b.ID, total, err)
	}

	rows, err := q.Query(ctx, `SELECT segment_index, flight_id, passenger_id, first_name, last_name, coalesce(seat_number, ''), seat_class, boarding_group, seat_fee::text,
		checked_in, checked_in_at, coalesce(checked_in_by, ''), boarding_pass
		FROM booking_passengers WHERE booking_id=$1 ORDER BY segment_index, position`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("load passengers of booking %s: %w", b.ID, err)
	}
	defer rows.Close()

	segment := -1
	for rows.Next() {
		var (
			idx         int
			flightID    string
			fee         string
			checkedInAt *time.Time
			pass        []byte
			p           domain.Passenger
		)
		if err := rows.Scan(&idx, &flightID, &p.ID, &p.FirstName, &p.LastName, &p.Ticket.SeatNumber, &p.Ticket.SeatClass,
			&p.Ticket.BoardingGroup, &fee, &p.CheckIn.IsCheckedIn, &checkedInAt, &p.CheckIn.CheckedInBy, &pass); err != nil {
			return nil, err
		}
		if p.Ticket.SeatFee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("passenger %s seat fee %q: %w", p.ID, fee, err)
		}
		if checkedInAt != nil {
			p.CheckIn.CheckedInAt = *checkedInAt
		}
		if len(pass) > 0 {
			var bp domain.BoardingPass
			if err := json.Unmarshal(pass, &bp); err != nil {
				return nil, fmt.Errorf("passenger %s boarding pass: %w", p.ID, err)
			}
			p.CheckIn.BoardingPass = &bp
		}
		if idx != segment {
			b.Segments = append(b.Segments, domain.Segment{FlightID: flightID})
			segment = idx
		}
		last := &b.Segments[len(b.Segments)-1]
		last.Passengers = append(last.Passengers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) Occupancy(ctx context.Context, flightID, excludeBookingID string) (map[string]SeatClaim, error) {
	rows, err := r.db.Query(ctx, `SELECT sr.seat_number, sr.booking_id, sr.passenger_id, sr.claimed_at
		FROM seat_reservations sr
		JOIN bookings b ON b.id = sr.booking_id
		WHERE sr.flight_id=$1 AND sr.booking_id <> $2
		  AND b.status IN ('confirmed', 'checked_in') AND b.payment_status = 'paid'`, flightID, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("occupancy of flight %s: %w", flightID, err)
	}
	defer rows.Close()

	claims := make(map[string]SeatClaim)
	for rows.Next() {
		c := SeatClaim{FlightID: flightID}
		if err := rows.Scan(&c.SeatNumber, &c.BookingID, &c.PassengerID, &c.ClaimedAt); err != nil {
			return nil, err
		}
		claims[c.SeatNumber] = c
	}
	return claims, rows.Err()
}

var (
	_ BookingRepository = (*PGBookingRepository)(nil)
	_ SeatLedger        = (*PGBookingRepository)(nil)
)
