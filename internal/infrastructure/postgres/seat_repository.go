package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

type carRow struct {
	TrainNumber int    `db:"train_number"`
	Period      string `db:"period"`
	CarNumber   int    `db:"car_number"`
	TravelClass string `db:"travel_class"`
	SeatMin     *int   `db:"seat_min"`
	SeatMax     *int   `db:"seat_max"`
}

func (r *carRow) toEntity() (seat.CarTemplate, error) {
	p, err := period.ParsePeriod(r.Period)
	if err != nil {
		return seat.CarTemplate{}, err
	}
	c, err := fare.ParseTravelClass(r.TravelClass)
	if err != nil {
		return seat.CarTemplate{}, err
	}
	return seat.CarTemplate{
		Train: r.TrainNumber, Period: p, Car: r.CarNumber, Class: c,
		MinSeat: r.SeatMin, MaxSeat: r.SeatMax,
	}, nil
}

type claimRow struct {
	BookingID   string    `db:"booking_id"`
	TrainNumber int       `db:"train_number"`
	TravelDate  time.Time `db:"travel_date"`
	Period      string    `db:"period"`
	CarNumber   int       `db:"car_number"`
	SeatNumber  int       `db:"seat_number"`
	FirstRank   int       `db:"first_rank"`
	LastRank    int       `db:"last_rank"`
}

func (r *claimRow) toEntity() (seat.Claim, error) {
	p, err := period.ParsePeriod(r.Period)
	if err != nil {
		return seat.Claim{}, err
	}
	return seat.Claim{
		BookingID:  strings.TrimSpace(r.BookingID),
		Train:      r.TrainNumber,
		TravelDate: r.TravelDate,
		Period:     p,
		Seat:       seat.Seat{Car: r.CarNumber, Number: r.SeatNumber},
		Span:       seat.Span{FirstRank: r.FirstRank, LastRank: r.LastRank},
	}, nil
}

type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) ListCars(ctx context.Context, tx transaction.Tx, trainNumber int, p period.Period) ([]seat.CarTemplate, error) {
	query := `SELECT train_number, period, car_number, travel_class, seat_min, seat_max FROM cars WHERE train_number = $1 AND period = $2 ORDER BY car_number`
	var rows []carRow
	if err := pick(r.db, tx).SelectContext(ctx, &rows, query, trainNumber, p.String()); err != nil {
		return nil, classify(err, "号車構成の取得に失敗")
	}
	cars := make([]seat.CarTemplate, len(rows))
	for i := range rows {
		c, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		cars[i] = c
	}
	return cars, nil
}

// ListClaims は要求範囲と重なる確保のみを返す
// 一方が他方より完全に前または後にある場合のみ重ならない
func (r *SeatRepository) ListClaims(ctx context.Context, tx transaction.Tx, trainNumber int, date time.Time, span seat.Span) ([]seat.Claim, error) {
	query := `SELECT booking_id, train_number, travel_date, period, car_number, seat_number, first_rank, last_rank
		FROM seat_claims
		WHERE train_number = $1 AND travel_date = $2
		  AND NOT (last_rank < $3 OR first_rank > $4)
		ORDER BY car_number, seat_number`
	var rows []claimRow
	if err := pick(r.db, tx).SelectContext(ctx, &rows, query, trainNumber, dateParam(date), span.FirstRank, span.LastRank); err != nil {
		return nil, classify(err, "座席確保の取得に失敗")
	}
	claims := make([]seat.Claim, len(rows))
	for i := range rows {
		c, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		claims[i] = c
	}
	return claims, nil
}

func (r *SeatRepository) InsertClaims(ctx context.Context, tx transaction.Tx, claims []seat.Claim) error {
	if len(claims) == 0 {
		return nil
	}
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return fmt.Errorf("座席確保の登録にはトランザクションが必要です")
	}

	// バッチサイズごとに分割してマルチバリューINSERTを実行
	const batchSize = 500
	for i := 0; i < len(claims); i += batchSize {
		end := i + batchSize
		if end > len(claims) {
			end = len(claims)
		}
		if err := insertClaimBatch(ctx, sqlTx, claims[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// insertClaimBatch はバッチ単位でマルチバリューINSERTを実行
func insertClaimBatch(ctx context.Context, tx *sqlx.Tx, claims []seat.Claim) error {
	const cols = 8
	query := `INSERT INTO seat_claims (booking_id, train_number, travel_date, period, car_number, seat_number, first_rank, last_rank) VALUES `
	args := make([]interface{}, 0, len(claims)*cols)
	placeholders := make([]string, 0, len(claims))

	for i, c := range claims {
		if err := c.Validate(); err != nil {
			return err
		}
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, c.BookingID, c.Train, dateParam(c.TravelDate), c.Period.String(),
			c.Seat.Car, c.Seat.Number, c.Span.FirstRank, c.Span.LastRank)
	}

	query += strings.Join(placeholders, ", ")
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return classify(err, "座席確保の登録に失敗")
	}
	return nil
}

func (r *SeatRepository) DeleteClaimsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	sqlTx := UnwrapTx(tx)
	if sqlTx == nil {
		return 0, fmt.Errorf("座席確保の削除にはトランザクションが必要です")
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM seat_claims WHERE booking_id = $1`, bookingID)
	if err != nil {
		return 0, classify(err, "座席確保の削除に失敗")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, classify(err, "削除件数の取得に失敗")
	}
	return int(n), nil
}

func (r *SeatRepository) CountClaimsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	var count int
	if err := pick(r.db, tx).GetContext(ctx, &count, `SELECT COUNT(*) FROM seat_claims WHERE booking_id = $1`, bookingID); err != nil {
		return 0, classify(err, "座席確保数の取得に失敗")
	}
	return count, nil
}

func (r *SeatRepository) ListSeatsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) ([]seat.Seat, error) {
	var rows []struct {
		CarNumber  int `db:"car_number"`
		SeatNumber int `db:"seat_number"`
	}
	query := `SELECT car_number, seat_number FROM seat_claims WHERE booking_id = $1 ORDER BY car_number, seat_number`
	if err := pick(r.db, tx).SelectContext(ctx, &rows, query, bookingID); err != nil {
		return nil, classify(err, "予約座席の取得に失敗")
	}
	seats := make([]seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = seat.Seat{Car: row.CarNumber, Number: row.SeatNumber}
	}
	return seats, nil
}

var _ seat.Repository = (*SeatRepository)(nil)
