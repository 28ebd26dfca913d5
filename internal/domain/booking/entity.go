package booking

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
)

// IDLength は予約IDの文字数
const IDLength = 6

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Booking は座席予約エンティティを表す
type Booking struct {
	ID               string
	CustomerID       string
	TrainNumber      int
	DepartureAt      time.Time
	// TravelDate は座席確保の運行日（予約者の暦日）
	TravelDate       time.Time
	Period           period.Period
	DepartureStation string
	ArrivalStation   string
	Class            fare.TravelClass
	PassengerCount   int
	TotalPrice       decimal.Decimal
	CreatedAt        time.Time
	Seats            []seat.Seat
}

// NewBooking は新しい予約を作成する（IDは保存時に採番する）
func NewBooking(customerID string, trainNumber int, departureAt time.Time, p period.Period,
	dep, arr string, class fare.TravelClass, seats []seat.Seat, total decimal.Decimal) *Booking {
	return &Booking{
		CustomerID:       customerID,
		TrainNumber:      trainNumber,
		DepartureAt:      departureAt,
		TravelDate:       period.DayOf(departureAt),
		Period:           p,
		DepartureStation: dep,
		ArrivalStation:   arr,
		Class:            class,
		PassengerCount:   len(seats),
		TotalPrice:       total,
		CreatedAt:        time.Now(),
		Seats:            seats,
	}
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.CustomerID == "" {
		return ErrCustomerIDRequired
	}
	if len(b.Seats) == 0 {
		return ErrSeatsRequired
	}
	if b.PassengerCount != len(b.Seats) {
		return ErrSeatCountMismatch
	}
	if b.TotalPrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}

// Day は運行日を返す（未設定なら出発時刻の暦日）
func (b *Booking) Day() time.Time {
	if b.TravelDate.IsZero() {
		return period.DayOf(b.DepartureAt)
	}
	return b.TravelDate
}

// Claims は予約の座席確保を返す
func (b *Booking) Claims(span seat.Span) []seat.Claim {
	claims := make([]seat.Claim, len(b.Seats))
	for i, s := range b.Seats {
		claims[i] = seat.Claim{
			BookingID:  b.ID,
			Train:      b.TrainNumber,
			TravelDate: b.Day(),
			Period:     b.Period,
			Seat:       s,
			Span:       span,
		}
	}
	return claims
}

// IDGenerator は予約IDを生成する関数
type IDGenerator func() (string, error)

// NewID は A〜Z の6文字の予約IDを生成する
func NewID() (string, error) {
	max := big.NewInt(int64(len(idAlphabet)))
	b := make([]byte, IDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = idAlphabet[n.Int64()]
	}
	return string(b), nil
}

// IsValidID は予約IDの形式を検証する
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 'A' || id[i] > 'Z' {
			return false
		}
	}
	return true
}
