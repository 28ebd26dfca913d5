package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
)

// JourneyServiceInterface は時刻表・運賃サービスのインターフェース
type JourneyServiceInterface interface {
	ResolvePeriod(ctx context.Context, date time.Time) (period.Period, error)
	BuildTimetable(ctx context.Context, trainNumber int, date time.Time) (*train.Timetable, error)
	MatchTrains(ctx context.Context, dep, arr string, p *period.Period) ([]int, error)
	GetTrainTimes(ctx context.Context, dep, arr string, from, to time.Time) ([]train.Journey, error)
	BuyTicket(ctx context.Context, input application.BuyTicketInput) (*fare.Ticket, error)
}

// SeatServiceInterface は座席サービスのインターフェース
type SeatServiceInterface interface {
	AvailableSeats(ctx context.Context, q application.SeatQuery) ([]seat.Seat, error)
	CountAvailableSeats(ctx context.Context, q application.SeatQuery) (int, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	BuyTicketAndBook(ctx context.Context, input application.BookInput) (*application.BookingOutcome, error)
	CancelBooking(ctx context.Context, bookingID, customerID string) (bool, error)
	GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID string, limit, offset int) ([]*booking.Booking, error)
}
