package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
)

const (
	maxIDAttempts = 10

	lockRetries    = 3
	lockRetryDelay = 100 * time.Millisecond

	defaultListLimit = 20
	maxListLimit     = 100
)

// BookingOptions は予約処理の設定
type BookingOptions struct {
	Retry RetryPolicy
	// LockTTL は列車・運行日単位の分散ロックの有効期限
	LockTTL time.Duration
	// Surcharge は乗客1人あたりの予約手数料
	Surcharge decimal.Decimal
	// NewID は予約IDの採番関数（nil の場合は booking.NewID）
	NewID booking.IDGenerator
}

// DefaultBookingOptions は既定の設定を返す
func DefaultBookingOptions() BookingOptions {
	return BookingOptions{
		Retry:     DefaultRetryPolicy(),
		LockTTL:   10 * time.Second,
		Surcharge: decimal.NewFromInt(20),
		NewID:     booking.NewID,
	}
}

// BookingService は座席予約とキャンセルを行う
type BookingService struct {
	txm         transaction.Manager
	periodRepo  period.Repository
	trainRepo   train.Repository
	seatRepo    seat.Repository
	bookingRepo booking.Repository
	fareRepo    fare.Repository
	seats       *SeatService
	lockManager redisinfra.LockManagerInterface
	publisher   booking.EventPublisher
	opts        BookingOptions
}

// NewBookingService は BookingService を作成する
// lockManager と publisher は nil でもよい
func NewBookingService(
	txm transaction.Manager,
	pr period.Repository,
	tr train.Repository,
	sr seat.Repository,
	br booking.Repository,
	fr fare.Repository,
	seats *SeatService,
	lm redisinfra.LockManagerInterface,
	publisher booking.EventPublisher,
	opts BookingOptions,
) *BookingService {
	if opts.NewID == nil {
		opts.NewID = booking.NewID
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	return &BookingService{
		txm:         txm,
		periodRepo:  pr,
		trainRepo:   tr,
		seatRepo:    sr,
		bookingRepo: br,
		fareRepo:    fr,
		seats:       seats,
		lockManager: lm,
		publisher:   publisher,
		opts:        opts,
	}
}

// BookInput は予約の入力
type BookInput struct {
	TrainNumber int
	// DepartureAt は出発駅の発車日時（時刻表と完全に一致する必要がある）
	DepartureAt time.Time
	From        string
	To          string
	Passengers  int
	Class       fare.TravelClass
	CustomerID  string
}

// BookingOutcome は予約の結果
// 業務ルールで受け付けなかった場合は Rejection が設定される
type BookingOutcome struct {
	Booking   *booking.Booking
	Rejection booking.Rejection
}

// Accepted は予約が成立したかを返す
func (o *BookingOutcome) Accepted() bool {
	return o.Booking != nil
}

func rejected(r booking.Rejection) *BookingOutcome {
	return &BookingOutcome{Rejection: r}
}

// BuyTicketAndBook は運賃を計算し座席を確保して予約を登録する
// 競合した場合は設定回数まで再試行し、それでも失敗すれば transaction.ErrConflict を返す
func (s *BookingService) BuyTicketAndBook(ctx context.Context, input BookInput) (*BookingOutcome, error) {
	if input.Passengers <= 0 {
		metrics.Get().ObserveBooking(metrics.StatusRejected)
		return rejected(booking.RejectInvalidPassengerCount), nil
	}
	if input.CustomerID == "" {
		return nil, booking.ErrCustomerIDRequired
	}

	held, err := s.lock(ctx, input.TrainNumber, input.DepartureAt)
	if err != nil {
		metrics.Get().ObserveBooking(metrics.StatusConflict)
		return nil, err
	}
	defer held.release(ctx)

	var outcome *BookingOutcome
	attempt := 0
	err = s.opts.Retry.run(ctx, "book", func() (err error) {
		attempt++
		if attempt > 1 {
			// 再試行の待ち時間でロックが切れないよう延長する
			held.extend(ctx)
		}
		outcome, err = s.bookOnce(ctx, input)
		return err
	})
	if err != nil {
		if transaction.IsRetryable(err) {
			metrics.Get().ObserveBooking(metrics.StatusConflict)
		} else {
			metrics.Get().ObserveBooking(metrics.StatusError)
		}
		logger.Error("予約に失敗しました",
			zap.Int("train", input.TrainNumber),
			zap.Time("departure_at", input.DepartureAt),
			zap.Error(err),
		)
		return nil, err
	}

	if !outcome.Accepted() {
		metrics.Get().ObserveBooking(metrics.StatusRejected)
		logger.Info("予約を受け付けませんでした",
			zap.Int("train", input.TrainNumber),
			zap.String("reason", string(outcome.Rejection)),
		)
		return outcome, nil
	}

	b := outcome.Booking
	s.seats.InvalidateCache(ctx, b.TrainNumber, b.Day())
	if s.publisher != nil {
		if pubErr := s.publisher.PublishBooked(ctx, b); pubErr != nil {
			logger.Warn("予約イベントの送信に失敗", zap.String("booking_id", b.ID), zap.Error(pubErr))
		}
	}
	metrics.Get().ObserveBooking(metrics.StatusSuccess)
	logger.Info("予約を登録しました",
		zap.String("booking_id", b.ID),
		zap.Int("train", b.TrainNumber),
		zap.Int("passengers", b.PassengerCount),
		zap.String("total", b.TotalPrice.StringFixed(2)),
	)
	return outcome, nil
}

// heldLock は予約処理中に保持する分散ロック
// nil はロックなしで処理していることを表す
type heldLock struct {
	lock redisinfra.Lock
	key  string
	ttl  time.Duration
}

func (h *heldLock) release(ctx context.Context) {
	if h == nil {
		return
	}
	if err := h.lock.Release(ctx); err != nil {
		logger.Warn("分散ロックの解放に失敗", zap.String("key", h.key), zap.Error(err))
	}
}

// extend はロックの有効期限を延長する
// 延長できなくても予約は続行する（整合性はDBの直列化で保証される）
func (h *heldLock) extend(ctx context.Context) {
	if h == nil {
		return
	}
	start := time.Now()
	err := h.lock.Extend(ctx, h.ttl)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		status := metrics.StatusError
		if errors.Is(err, redisinfra.ErrLockNotOwned) {
			status = metrics.StatusConflict
		}
		metrics.Get().ObserveLock("extend", status, elapsed)
		logger.Warn("分散ロックの延長に失敗", zap.String("key", h.key), zap.Error(err))
		return
	}
	metrics.Get().ObserveLock("extend", metrics.StatusSuccess, elapsed)
}

// lock は列車・運行日単位の分散ロックを取得する
// Redis 障害時はロックなしで続行する（整合性はDBの直列化で保証される）
func (s *BookingService) lock(ctx context.Context, trainNumber int, departureAt time.Time) (*heldLock, error) {
	if s.lockManager == nil {
		return nil, nil
	}

	key := redisinfra.TrainDateKey(trainNumber, period.DayOf(departureAt))
	start := time.Now()
	l, err := s.lockManager.AcquireLockWithRetry(ctx, key, s.opts.LockTTL, lockRetries, lockRetryDelay)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			metrics.Get().ObserveLock("acquire", metrics.StatusConflict, elapsed)
			return nil, fmt.Errorf("%w: 同じ列車・運行日の予約を処理中です", transaction.ErrConflict)
		}
		metrics.Get().ObserveLock("acquire", metrics.StatusError, elapsed)
		logger.Warn("分散ロックを取得できないためロックなしで続行します", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	metrics.Get().ObserveLock("acquire", metrics.StatusSuccess, elapsed)
	return &heldLock{lock: l, key: key, ttl: s.opts.LockTTL}, nil
}

// bookOnce は1回分の予約トランザクションを実行する
func (s *BookingService) bookOnce(ctx context.Context, input BookInput) (*BookingOutcome, error) {
	var outcome *BookingOutcome
	err := runInTx(ctx, s.txm, serializableTx, func(tx transaction.Tx) error {
		cal, err := loadCalendar(ctx, tx, s.periodRepo)
		if err != nil {
			return err
		}
		p, err := cal.Resolve(input.DepartureAt)
		if err != nil {
			if errors.Is(err, period.ErrPeriodNotFound) {
				outcome = rejected(booking.RejectNoTimetable)
				return nil
			}
			return err
		}
		route, err := s.trainRepo.GetRoute(ctx, tx, input.TrainNumber, p)
		if err != nil {
			if errors.Is(err, train.ErrTrainNotRunning) {
				outcome = rejected(booking.RejectNoTimetable)
				return nil
			}
			return err
		}
		tt, err := train.BuildTimetable(route, input.DepartureAt)
		if err != nil {
			return err
		}

		// 出発駅は発車時刻まで一致、到着駅は停車のみ確認する
		depAt, ok := tt.At(input.From)
		if !ok || !depAt.Equal(input.DepartureAt) {
			outcome = rejected(booking.RejectStationNotServed)
			return nil
		}
		if _, ok := tt.At(input.To); !ok {
			outcome = rejected(booking.RejectStationNotServed)
			return nil
		}
		span, ok := requestSpan(route, input.From, input.To)
		if !ok {
			outcome = rejected(booking.RejectStationNotServed)
			return nil
		}

		class := input.Class
		available, err := s.seats.availableOnRoute(ctx, tx, route, p, SeatQuery{
			TrainNumber:      input.TrainNumber,
			Date:             input.DepartureAt,
			DepartureStation: input.From,
			ArrivalStation:   input.To,
			Class:            &class,
		})
		if err != nil {
			return err
		}
		if len(available) < input.Passengers {
			outcome = rejected(booking.RejectInsufficientSeats)
			return nil
		}

		km, err := route.Distance(input.From, input.To)
		if err != nil {
			return err
		}
		calc, err := loadCalculator(ctx, tx, s.fareRepo)
		if err != nil {
			return err
		}
		price, err := calc.Price(p, input.Class, distanceKm(km), input.Passengers)
		if err != nil {
			if errors.Is(err, fare.ErrRateNotFound) {
				outcome = rejected(booking.RejectFareUnavailable)
				return nil
			}
			return err
		}
		total := price.Add(fare.Surcharge(s.opts.Surcharge, input.Passengers))

		chosen := make([]seat.Seat, input.Passengers)
		copy(chosen, available)
		b := booking.NewBooking(input.CustomerID, input.TrainNumber, input.DepartureAt, p,
			input.From, input.To, input.Class, chosen, total)
		if err := b.Validate(); err != nil {
			return err
		}
		if err := s.insertWithNewID(ctx, tx, b); err != nil {
			return err
		}
		if err := s.seatRepo.InsertClaims(ctx, tx, b.Claims(span)); err != nil {
			return err
		}
		outcome = &BookingOutcome{Booking: b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// insertWithNewID は予約IDを採番して登録する。IDが衝突した場合は採番し直す
func (s *BookingService) insertWithNewID(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.opts.NewID()
		if err != nil {
			return fmt.Errorf("予約IDの生成に失敗: %w", err)
		}
		b.ID = id
		err = s.bookingRepo.Insert(ctx, tx, b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, booking.ErrIDCollision) {
			return err
		}
		logger.Debug("予約IDが衝突したため採番し直します", zap.String("booking_id", id))
	}
	b.ID = ""
	return booking.ErrIDSpaceExhausted
}

// CancelBooking は顧客の予約を取り消し、確保していた座席を解放する
// 予約が存在しない・顧客のものでない・座席を確保していない場合は false を返す
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, customerID string) (bool, error) {
	if !booking.IsValidID(bookingID) || customerID == "" {
		metrics.Get().ObserveCancellation(metrics.StatusNotFound)
		return false, nil
	}

	var cancelled *booking.Booking
	err := s.opts.Retry.run(ctx, "cancel", func() error {
		cancelled = nil
		return runInTx(ctx, s.txm, serializableTx, func(tx transaction.Tx) error {
			owned, err := s.bookingRepo.ExistsForCustomer(ctx, tx, bookingID, customerID)
			if err != nil || !owned {
				return err
			}
			claims, err := s.seatRepo.CountClaimsByBooking(ctx, tx, bookingID)
			if err != nil || claims == 0 {
				return err
			}
			b, err := s.bookingRepo.GetByID(ctx, tx, bookingID)
			if err != nil {
				return err
			}

			if _, err := s.seatRepo.DeleteClaimsByBooking(ctx, tx, bookingID); err != nil {
				return err
			}
			if _, err := s.bookingRepo.Delete(ctx, tx, bookingID); err != nil {
				return err
			}

			// 削除後に確保と予約が残っていないことを確認する
			remaining, err := s.seatRepo.CountClaimsByBooking(ctx, tx, bookingID)
			if err != nil {
				return err
			}
			stillOwned, err := s.bookingRepo.ExistsForCustomer(ctx, tx, bookingID, customerID)
			if err != nil {
				return err
			}
			if remaining > 0 || stillOwned {
				return booking.ErrPartialCancellation
			}
			cancelled = b
			return nil
		})
	})
	if err != nil {
		if transaction.IsRetryable(err) {
			metrics.Get().ObserveCancellation(metrics.StatusConflict)
		} else {
			metrics.Get().ObserveCancellation(metrics.StatusError)
		}
		logger.Error("予約の取り消しに失敗しました", zap.String("booking_id", bookingID), zap.Error(err))
		return false, err
	}
	if cancelled == nil {
		metrics.Get().ObserveCancellation(metrics.StatusNotFound)
		return false, nil
	}

	// 再読込した出発時刻はセッションのタイムゾーンになるため、保存済みの運行日で無効化する
	s.seats.InvalidateCache(ctx, cancelled.TrainNumber, cancelled.Day())
	if s.publisher != nil {
		if pubErr := s.publisher.PublishCancelled(ctx, bookingID, customerID); pubErr != nil {
			logger.Warn("取消イベントの送信に失敗", zap.String("booking_id", bookingID), zap.Error(pubErr))
		}
	}
	metrics.Get().ObserveCancellation(metrics.StatusSuccess)
	logger.Info("予約を取り消しました", zap.String("booking_id", bookingID))
	return true, nil
}

// GetBooking は座席を含めて予約を取得する
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*booking.Booking, error) {
	if !booking.IsValidID(bookingID) {
		return nil, booking.ErrBookingNotFound
	}
	var b *booking.Booking
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		found, err := s.bookingRepo.GetByID(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		seats, err := s.seatRepo.ListSeatsByBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		found.Seats = seats
		b = found
		return nil
	})
	return b, err
}

// ListCustomerBookings は顧客の予約一覧を新しい順に返す
func (s *BookingService) ListCustomerBookings(ctx context.Context, customerID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	var bookings []*booking.Booking
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) (err error) {
		bookings, err = s.bookingRepo.ListByCustomer(ctx, tx, customerID, limit, offset)
		return err
	})
	return bookings, err
}

// PurgeDeparted は出発時刻が cutoff より前の予約と座席確保を削除する
// 出発済みの列車は空席照会の対象にならないのでキャッシュは無効化しない
func (s *BookingService) PurgeDeparted(ctx context.Context, cutoff time.Time) (int, error) {
	var purged int
	err := s.opts.Retry.run(ctx, "purge", func() error {
		return runInTx(ctx, s.txm, serializableTx, func(tx transaction.Tx) (err error) {
			purged, err = s.bookingRepo.PurgeDepartedBefore(ctx, tx, cutoff)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}
