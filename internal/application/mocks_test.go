package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
)

// === Mock implementations ===

// MockTxManager implements transaction.Manager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Begin(ctx context.Context, opts transaction.Options) (transaction.Tx, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(transaction.Tx), args.Error(1)
}

// MockTx implements transaction.Tx
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockPeriodRepository implements period.Repository
type MockPeriodRepository struct {
	mock.Mock
}

func (m *MockPeriodRepository) ListRanges(ctx context.Context, tx transaction.Tx) ([]period.Range, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]period.Range), args.Error(1)
}

// MockTrainRepository implements train.Repository
type MockTrainRepository struct {
	mock.Mock
}

func (m *MockTrainRepository) GetRoute(ctx context.Context, tx transaction.Tx, trainNumber int, p period.Period) (*train.Route, error) {
	args := m.Called(ctx, tx, trainNumber, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*train.Route), args.Error(1)
}

func (m *MockTrainRepository) GetSegments(ctx context.Context, tx transaction.Tx, trainNumber int) (*train.Route, error) {
	args := m.Called(ctx, tx, trainNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*train.Route), args.Error(1)
}

func (m *MockTrainRepository) MatchTrains(ctx context.Context, tx transaction.Tx, dep, arr string, p *period.Period) ([]int, error) {
	args := m.Called(ctx, tx, dep, arr, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

// MockSeatRepository implements seat.Repository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) ListCars(ctx context.Context, tx transaction.Tx, trainNumber int, p period.Period) ([]seat.CarTemplate, error) {
	args := m.Called(ctx, tx, trainNumber, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.CarTemplate), args.Error(1)
}

func (m *MockSeatRepository) ListClaims(ctx context.Context, tx transaction.Tx, trainNumber int, date time.Time, span seat.Span) ([]seat.Claim, error) {
	args := m.Called(ctx, tx, trainNumber, date, span)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.Claim), args.Error(1)
}

func (m *MockSeatRepository) InsertClaims(ctx context.Context, tx transaction.Tx, claims []seat.Claim) error {
	args := m.Called(ctx, tx, claims)
	return args.Error(0)
}

func (m *MockSeatRepository) DeleteClaimsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	args := m.Called(ctx, tx, bookingID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) CountClaimsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (int, error) {
	args := m.Called(ctx, tx, bookingID)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatRepository) ListSeatsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) ([]seat.Seat, error) {
	args := m.Called(ctx, tx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seat.Seat), args.Error(1)
}

// MockBookingRepository implements booking.Repository
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Insert(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	args := m.Called(ctx, tx, b)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) ExistsForCustomer(ctx context.Context, tx transaction.Tx, id, customerID string) (bool, error) {
	args := m.Called(ctx, tx, id, customerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookingRepository) ListByCustomer(ctx context.Context, tx transaction.Tx, customerID string, limit, offset int) ([]*booking.Booking, error) {
	args := m.Called(ctx, tx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, tx transaction.Tx, id string) (int, error) {
	args := m.Called(ctx, tx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) PurgeDepartedBefore(ctx context.Context, tx transaction.Tx, cutoff time.Time) (int, error) {
	args := m.Called(ctx, tx, cutoff)
	return args.Int(0), args.Error(1)
}

// MockFareRepository implements fare.Repository
type MockFareRepository struct {
	mock.Mock
}

func (m *MockFareRepository) GetTariff(ctx context.Context, tx transaction.Tx) (*fare.Tariff, error) {
	args := m.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fare.Tariff), args.Error(1)
}

// MockLockManager implements redisinfra.LockManagerInterface
type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

func (m *MockLockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryInterval time.Duration) (redisinfra.Lock, error) {
	args := m.Called(ctx, key, ttl, maxRetries, retryInterval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(redisinfra.Lock), args.Error(1)
}

// MockLock implements redisinfra.Lock
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLock) Extend(ctx context.Context, ttl time.Duration) error {
	args := m.Called(ctx, ttl)
	return args.Error(0)
}

// MockSeatCache implements redisinfra.SeatCacheInterface
type MockSeatCache struct {
	mock.Mock
}

func (m *MockSeatCache) GetAvailableCount(ctx context.Context, trainNumber int, date time.Time, field string) (int, error) {
	args := m.Called(ctx, trainNumber, date, field)
	return args.Int(0), args.Error(1)
}

func (m *MockSeatCache) SetAvailableCount(ctx context.Context, trainNumber int, date time.Time, field string, count int, ttl time.Duration) error {
	args := m.Called(ctx, trainNumber, date, field, count, ttl)
	return args.Error(0)
}

func (m *MockSeatCache) Invalidate(ctx context.Context, trainNumber int, date time.Time) error {
	args := m.Called(ctx, trainNumber, date)
	return args.Error(0)
}

// MockPublisher implements booking.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBooked(ctx context.Context, b *booking.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockPublisher) PublishCancelled(ctx context.Context, bookingID, customerID string) error {
	args := m.Called(ctx, bookingID, customerID)
	return args.Error(0)
}

// === Test fixtures ===

func intPtr(v int) *int { return &v }

// blueRanges は2017年を通して BLUE の期間表
func blueRanges() []period.Range {
	return []period.Range{{
		Start:  time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2017, 12, 31, 0, 0, 0, 0, time.UTC),
		Period: period.Blue,
	}}
}

// route6607 は Paris→Lyon→Avignon を走る 6607 列車（BLUE、8:00 発）
// Paris→Lyon 465km を 270km/h、Lyon→Avignon 228km を 200km/h
func route6607() *train.Route {
	return &train.Route{
		Train:         6607,
		Period:        period.Blue,
		DepartureTime: 8 * time.Hour,
		Segments: []train.Segment{
			{Rank: 1, Departure: "Paris", Arrival: "Lyon", LengthKm: 465, SpeedKmh: 270},
			{Rank: 2, Departure: "Lyon", Arrival: "Avignon", LengthKm: 228, SpeedKmh: 200},
		},
	}
}

// cars6607 は1号車が FIRST 1〜2番、2号車が SECOND 1〜3番、3号車が食堂車
func cars6607() []seat.CarTemplate {
	return []seat.CarTemplate{
		{Train: 6607, Period: period.Blue, Car: 1, Class: fare.First, MinSeat: intPtr(1), MaxSeat: intPtr(2)},
		{Train: 6607, Period: period.Blue, Car: 2, Class: fare.Second, MinSeat: intPtr(1), MaxSeat: intPtr(3)},
		{Train: 6607, Period: period.Blue, Car: 3, Class: fare.Second},
	}
}

// tariff は SECOND 0.10/km、FIRST 0.20/km、BLUE 係数 1
func tariff() *fare.Tariff {
	return &fare.Tariff{
		ClassRates: map[fare.TravelClass]decimal.Decimal{
			fare.First:  decimal.RequireFromString("0.20"),
			fare.Second: decimal.RequireFromString("0.10"),
		},
		PeriodMultipliers: map[period.Period]decimal.Decimal{
			period.Blue: decimal.NewFromInt(1),
		},
	}
}
