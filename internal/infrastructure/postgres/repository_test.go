//go:build integration
// +build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-train-seat-reservation/internal/config"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := config.Load()

	db, err := NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}
	require.NoError(t, RunMigrations(db.DB, "migrations"))

	ctx := context.Background()
	require.NoError(t, TruncateAll(ctx, db))
	require.NoError(t, SeedSampleNetwork(ctx, db))

	t.Cleanup(func() {
		TruncateAll(context.Background(), db)
		db.Close()
	})
	return db
}

var travelDay = time.Date(2017, 10, 29, 0, 0, 0, 0, time.UTC)

func TestPeriodRepository_ListRanges(t *testing.T) {
	db := setupTestDB(t)

	ranges, err := NewPeriodRepository(db).ListRanges(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	cal, err := period.NewCalendar(ranges)
	require.NoError(t, err)
	p, err := cal.Resolve(travelDay)
	require.NoError(t, err)
	assert.Equal(t, period.Blue, p)
	p, err = cal.Resolve(time.Date(2017, 12, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, period.Red, p)
}

func TestPeriodRepository_OverlappingRangesRejected(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec(`INSERT INTO period_ranges (start_date, end_date, period) VALUES ('2017-11-30', '2017-12-02', 'WHITE')`)
	assert.Error(t, err)
}

func TestFareRepository_GetTariff(t *testing.T) {
	db := setupTestDB(t)

	tariff, err := NewFareRepository(db).GetTariff(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "0.1", tariff.ClassRates[fare.Second].String())
	assert.Equal(t, "1.5", tariff.PeriodMultipliers[period.Red].String())
}

func TestTrainRepository_GetRoute(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrainRepository(db)
	ctx := context.Background()

	t.Run("期間の発車時刻と速度", func(t *testing.T) {
		route, err := repo.GetRoute(ctx, nil, 6607, period.Blue)
		require.NoError(t, err)
		assert.Equal(t, 8*time.Hour, route.DepartureTime)
		require.Len(t, route.Segments, 2)
		assert.Equal(t, train.Segment{Rank: 2, Departure: "Lyon", Arrival: "Avignon", LengthKm: 228, SpeedKmh: 200}, route.Segments[1])
	})

	t.Run("逆向きに登録された物理区間の距離", func(t *testing.T) {
		route, err := repo.GetRoute(ctx, nil, 6611, period.Blue)
		require.NoError(t, err)
		assert.Equal(t, 100.0, route.Segments[1].LengthKm)
	})

	t.Run("期間に運行しない", func(t *testing.T) {
		_, err := repo.GetRoute(ctx, nil, 6611, period.Red)
		assert.ErrorIs(t, err, train.ErrTrainNotRunning)
	})
}

func TestTrainRepository_GetSegments(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrainRepository(db)

	route, err := repo.GetSegments(context.Background(), nil, 6607)
	require.NoError(t, err)
	km, err := route.Distance("Paris", "Avignon")
	require.NoError(t, err)
	assert.Equal(t, 693.0, km)

	_, err = repo.GetSegments(context.Background(), nil, 9999)
	assert.ErrorIs(t, err, train.ErrRouteNotServed)
}

func TestTrainRepository_MatchTrains(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTrainRepository(db)
	ctx := context.Background()
	blue, red := period.Blue, period.Red

	tests := []struct {
		name     string
		dep, arr string
		p        *period.Period
		expected []int
	}{
		{"両方の列車", "Lyon", "Avignon", nil, []int{6607, 6611}},
		{"複数区間", "Paris", "Avignon", nil, []int{6607}},
		{"期間指定", "Lyon", "Avignon", &red, []int{6607}},
		{"期間指定（BLUE）", "Lyon", "Avignon", &blue, []int{6607, 6611}},
		{"逆方向", "Avignon", "Lyon", nil, []int{}},
		{"存在しない駅", "Nice", "Lyon", nil, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trains, err := repo.MatchTrains(ctx, nil, tt.dep, tt.arr, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, trains)
		})
	}
}

func TestSeatAndBookingRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	txm := NewTxManager(db)
	seats := NewSeatRepository(db)
	bookings := NewBookingRepository(db)

	cars, err := seats.ListCars(ctx, nil, 6607, period.Blue)
	require.NoError(t, err)
	require.Len(t, cars, 3)
	assert.Nil(t, cars[2].MinSeat)

	departure := time.Date(2017, 10, 29, 9, 43, 20, 0, time.UTC)
	b := booking.NewBooking("alice@example.com", 6607, departure, period.Blue, "Lyon", "Avignon", fare.Second,
		[]seat.Seat{{Car: 2, Number: 1}}, decimal.RequireFromString("42.80"))
	b.ID = "ABCDEF"
	span := seat.Span{FirstRank: 2, LastRank: 2}

	t.Run("予約と座席確保の登録", func(t *testing.T) {
		tx, err := txm.Begin(ctx, transaction.Options{Isolation: transaction.Serializable})
		require.NoError(t, err)
		require.NoError(t, bookings.Insert(ctx, tx, b))
		require.NoError(t, seats.InsertClaims(ctx, tx, b.Claims(span)))
		require.NoError(t, tx.Commit())
	})

	t.Run("ID衝突", func(t *testing.T) {
		tx, err := txm.Begin(ctx, transaction.Options{Isolation: transaction.Serializable})
		require.NoError(t, err)
		defer tx.Rollback()

		dup := *b
		dup.CustomerID = "bob@example.com"
		assert.ErrorIs(t, bookings.Insert(ctx, tx, &dup), booking.ErrIDCollision)
	})

	t.Run("重なる確保は排他制約で競合", func(t *testing.T) {
		other := booking.NewBooking("bob@example.com", 6607, departure, period.Blue, "Paris", "Avignon", fare.Second,
			[]seat.Seat{{Car: 2, Number: 1}}, decimal.RequireFromString("89.30"))
		other.ID = "BCDEFG"

		tx, err := txm.Begin(ctx, transaction.Options{Isolation: transaction.Serializable})
		require.NoError(t, err)
		defer tx.Rollback()
		require.NoError(t, bookings.Insert(ctx, tx, other))
		err = seats.InsertClaims(ctx, tx, other.Claims(seat.Span{FirstRank: 1, LastRank: 2}))
		assert.ErrorIs(t, err, transaction.ErrConflict)
	})

	t.Run("重ならない区間の確保", func(t *testing.T) {
		claims, err := seats.ListClaims(ctx, nil, 6607, travelDay, seat.Span{FirstRank: 1, LastRank: 1})
		require.NoError(t, err)
		assert.Empty(t, claims)

		claims, err = seats.ListClaims(ctx, nil, 6607, travelDay, seat.Span{FirstRank: 1, LastRank: 2})
		require.NoError(t, err)
		require.Len(t, claims, 1)
		assert.Equal(t, "ABCDEF", claims[0].BookingID)
		assert.Equal(t, seat.Seat{Car: 2, Number: 1}, claims[0].Seat)
	})

	t.Run("取得", func(t *testing.T) {
		got, err := bookings.GetByID(ctx, nil, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.CustomerID)
		assert.True(t, got.DepartureAt.Equal(departure))
		assert.Equal(t, "2017-10-29", got.TravelDate.Format("2006-01-02"))
		assert.Equal(t, "42.80", got.TotalPrice.StringFixed(2))

		list, err := bookings.ListByCustomer(ctx, nil, "alice@example.com", 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, []seat.Seat{{Car: 2, Number: 1}}, list[0].Seats)

		owned, err := bookings.ExistsForCustomer(ctx, nil, "ABCDEF", "bob@example.com")
		require.NoError(t, err)
		assert.False(t, owned)

		_, err = bookings.GetByID(ctx, nil, "ZZZZZZ")
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})

	t.Run("削除", func(t *testing.T) {
		tx, err := txm.Begin(ctx, transaction.Options{Isolation: transaction.Serializable})
		require.NoError(t, err)
		n, err := seats.DeleteClaimsByBooking(ctx, tx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		n, err = bookings.Delete(ctx, tx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		require.NoError(t, tx.Commit())

		count, err := seats.CountClaimsByBooking(ctx, nil, "ABCDEF")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("トランザクションなしの書き込みはエラー", func(t *testing.T) {
		assert.Error(t, bookings.Insert(ctx, nil, b))
		assert.Error(t, seats.InsertClaims(ctx, nil, b.Claims(span)))
	})
}

func TestBookingRepository_PurgeDepartedBefore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	txm := NewTxManager(db)
	seats := NewSeatRepository(db)
	bookings := NewBookingRepository(db)

	october := time.Date(2017, 10, 29, 9, 43, 20, 0, time.UTC)
	december := time.Date(2017, 12, 24, 10, 43, 20, 0, time.UTC)
	old := booking.NewBooking("alice@example.com", 6607, october, period.Blue, "Lyon", "Avignon", fare.Second,
		[]seat.Seat{{Car: 2, Number: 1}}, decimal.RequireFromString("42.80"))
	old.ID = "OLDAAA"
	upcoming := booking.NewBooking("alice@example.com", 6607, december, period.Red, "Lyon", "Avignon", fare.Second,
		[]seat.Seat{{Car: 1, Number: 1}}, decimal.RequireFromString("54.20"))
	upcoming.ID = "NEWAAA"

	tx, err := txm.Begin(ctx, transaction.Options{Isolation: transaction.Serializable})
	require.NoError(t, err)
	for _, b := range []*booking.Booking{old, upcoming} {
		require.NoError(t, bookings.Insert(ctx, tx, b))
		require.NoError(t, seats.InsertClaims(ctx, tx, b.Claims(seat.Span{FirstRank: 2, LastRank: 2})))
	}
	require.NoError(t, tx.Commit())

	tx, err = txm.Begin(ctx, transaction.Options{Isolation: transaction.Serializable})
	require.NoError(t, err)
	n, err := bookings.PurgeDepartedBefore(ctx, tx, time.Date(2017, 11, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 1, n)

	_, err = bookings.GetByID(ctx, nil, "OLDAAA")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	count, err := seats.CountClaimsByBooking(ctx, nil, "OLDAAA")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = bookings.GetByID(ctx, nil, "NEWAAA")
	assert.NoError(t, err)
}
