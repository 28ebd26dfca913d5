package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

type bookingRow struct {
	ID               string          `db:"id"`
	CustomerID       string          `db:"customer_id"`
	TrainNumber      int             `db:"train_number"`
	DepartureAt      time.Time       `db:"departure_at"`
	TravelDate       time.Time       `db:"travel_date"`
	Period           string          `db:"period"`
	DepartureStation string          `db:"departure_station"`
	ArrivalStation   string          `db:"arrival_station"`
	TravelClass      string          `db:"travel_class"`
	PassengerCount   int             `db:"passenger_count"`
	TotalPrice       decimal.Decimal `db:"total_price"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r *bookingRow) toEntity() (*booking.Booking, error) {
	p, err := period.ParsePeriod(r.Period)
	if err != nil {
		return nil, err
	}
	c, err := fare.ParseTravelClass(r.TravelClass)
	if err != nil {
		return nil, err
	}
	return &booking.Booking{
		ID:               strings.TrimSpace(r.ID),
		CustomerID:       r.CustomerID,
		TrainNumber:      r.TrainNumber,
		DepartureAt:      r.DepartureAt,
		TravelDate:       r.TravelDate,
		Period:           p,
		DepartureStation: r.DepartureStation,
		ArrivalStation:   r.ArrivalStation,
		Class:            c,
		PassengerCount:   r.PassengerCount,
		TotalPrice:       r.TotalPrice,
		CreatedAt:        r.CreatedAt,
	}, nil
}

const bookingColumns = `id, customer_id, train_number, departure_at, travel_date, period, departure_station, arrival_station, travel_class, passenger_count, total_price, created_at`

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository { return &BookingRepository{db: db} }

// Insert は予約行を登録する
// IDの一意性はストア側で保証し、既存IDとの衝突時は何も書き込まない
func (r *BookingRepository) Insert(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return fmt.Errorf("予約の登録にはトランザクションが必要です")
	}
	query := `INSERT INTO bookings (id, customer_id, train_number, departure_at, travel_date, period, departure_station, arrival_station, travel_class, passenger_count, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`
	result, err := sqlTx.ExecContext(ctx, query,
		b.ID, b.CustomerID, b.TrainNumber, b.DepartureAt, dateParam(b.Day()), b.Period.String(),
		b.DepartureStation, b.ArrivalStation, b.Class.String(), b.PassengerCount, b.TotalPrice, b.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return booking.ErrIDCollision
		}
		return classify(err, "予約の登録に失敗")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return classify(err, "登録件数の取得に失敗")
	}
	if n == 0 {
		return booking.ErrIDCollision
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	var row bookingRow
	if err := pick(r.db, tx).GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, classify(err, "予約の取得に失敗")
	}
	return row.toEntity()
}

func (r *BookingRepository) ExistsForCustomer(ctx context.Context, tx transaction.Tx, id, customerID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1 AND customer_id = $2)`
	if err := pick(r.db, tx).GetContext(ctx, &exists, query, id, customerID); err != nil {
		return false, classify(err, "予約の確認に失敗")
	}
	return exists, nil
}

// ListByCustomer は顧客の予約を座席付きで返す
func (r *BookingRepository) ListByCustomer(ctx context.Context, tx transaction.Tx, customerID string, limit, offset int) ([]*booking.Booking, error) {
	q := pick(r.db, tx)

	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &rows, query, customerID, limit, offset); err != nil {
		return nil, classify(err, "予約一覧の取得に失敗")
	}
	if len(rows) == 0 {
		return []*booking.Booking{}, nil
	}

	bookings := make([]*booking.Booking, len(rows))
	byID := make(map[string]*booking.Booking, len(rows))
	ids := make([]string, len(rows))
	for i := range rows {
		b, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		bookings[i] = b
		byID[b.ID] = b
		ids[i] = b.ID
	}

	var seatRows []struct {
		BookingID  string `db:"booking_id"`
		CarNumber  int    `db:"car_number"`
		SeatNumber int    `db:"seat_number"`
	}
	seatQuery := `SELECT booking_id, car_number, seat_number FROM seat_claims WHERE booking_id = ANY($1) ORDER BY booking_id, car_number, seat_number`
	if err := q.SelectContext(ctx, &seatRows, seatQuery, pq.Array(ids)); err != nil {
		return nil, classify(err, "予約座席の取得に失敗")
	}
	for _, row := range seatRows {
		if b, ok := byID[strings.TrimSpace(row.BookingID)]; ok {
			b.Seats = append(b.Seats, seat.Seat{Car: row.CarNumber, Number: row.SeatNumber})
		}
	}
	return bookings, nil
}

func (r *BookingRepository) Delete(ctx context.Context, tx transaction.Tx, id string) (int, error) {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return 0, fmt.Errorf("予約の削除にはトランザクションが必要です")
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return 0, classify(err, "予約の削除に失敗")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, classify(err, "削除件数の取得に失敗")
	}
	return int(n), nil
}

func (r *BookingRepository) PurgeDepartedBefore(ctx context.Context, tx transaction.Tx, cutoff time.Time) (int, error) {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return 0, fmt.Errorf("予約の削除にはトランザクションが必要です")
	}
	if _, err := sqlTx.ExecContext(ctx, `
		DELETE FROM seat_claims
		WHERE booking_id IN (SELECT id FROM bookings WHERE departure_at < $1)`, cutoff); err != nil {
		return 0, classify(err, "出発済み座席確保の削除に失敗")
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM bookings WHERE departure_at < $1`, cutoff)
	if err != nil {
		return 0, classify(err, "出発済み予約の削除に失敗")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, classify(err, "削除件数の取得に失敗")
	}
	return int(n), nil
}

var _ booking.Repository = (*BookingRepository)(nil)
