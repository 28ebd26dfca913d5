package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
)

// MockJourneyService はJourneyServiceInterfaceのモック
type MockJourneyService struct {
	mock.Mock
}

func (m *MockJourneyService) ResolvePeriod(ctx context.Context, date time.Time) (period.Period, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(period.Period), args.Error(1)
}

func (m *MockJourneyService) BuildTimetable(ctx context.Context, trainNumber int, date time.Time) (*train.Timetable, error) {
	args := m.Called(ctx, trainNumber, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*train.Timetable), args.Error(1)
}

func (m *MockJourneyService) MatchTrains(ctx context.Context, dep, arr string, p *period.Period) ([]int, error) {
	args := m.Called(ctx, dep, arr, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *MockJourneyService) GetTrainTimes(ctx context.Context, dep, arr string, from, to time.Time) ([]train.Journey, error) {
	args := m.Called(ctx, dep, arr, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]train.Journey), args.Error(1)
}

func (m *MockJourneyService) BuyTicket(ctx context.Context, input application.BuyTicketInput) (*fare.Ticket, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fare.Ticket), args.Error(1)
}

// MockSeatService はSeatServiceInterfaceのモック
type MockSeatService struct {
	mock.Mock
}

func (m *MockSeatService) AvailableSeats(ctx context.Context, q application.SeatQuery) ([]seat.Seat, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.Seat), args.Error(1)
}

func (m *MockSeatService) CountAvailableSeats(ctx context.Context, q application.SeatQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

// MockBookingService はBookingServiceInterfaceのモック
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) BuyTicketAndBook(ctx context.Context, input application.BookInput) (*application.BookingOutcome, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.BookingOutcome), args.Error(1)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, bookingID, customerID string) (bool, error) {
	args := m.Called(ctx, bookingID, customerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingService) ListCustomerBookings(ctx context.Context, customerID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}
