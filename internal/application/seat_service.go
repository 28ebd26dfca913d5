package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
)

const defaultSeatCacheTTL = 30 * time.Second

// SeatService は座席在庫（総座席・確保済み・空席）を計算する
type SeatService struct {
	txm        transaction.Manager
	periodRepo period.Repository
	trainRepo  train.Repository
	seatRepo   seat.Repository
	cache      redisinfra.SeatCacheInterface
	cacheTTL   time.Duration
}

// NewSeatService は SeatService を作成する。cache は nil でもよい
func NewSeatService(txm transaction.Manager, pr period.Repository, tr train.Repository, sr seat.Repository, cache redisinfra.SeatCacheInterface, cacheTTL time.Duration) *SeatService {
	if cacheTTL <= 0 {
		cacheTTL = defaultSeatCacheTTL
	}
	return &SeatService{txm: txm, periodRepo: pr, trainRepo: tr, seatRepo: sr, cache: cache, cacheTTL: cacheTTL}
}

// SeatQuery は区間指定の座席照会
type SeatQuery struct {
	TrainNumber      int
	Date             time.Time
	DepartureStation string
	ArrivalStation   string
	// Class が nil の場合は全クラス
	Class *fare.TravelClass
}

// TotalSeats は列車・期間の全座席を号車・座席番号順に返す
func (s *SeatService) TotalSeats(ctx context.Context, trainNumber int, p period.Period, class *fare.TravelClass) ([]seat.Seat, error) {
	var seats []seat.Seat
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		cars, err := s.seatRepo.ListCars(ctx, tx, trainNumber, p)
		if err != nil {
			return err
		}
		seats = seat.Expand(cars, class)
		return nil
	})
	return seats, err
}

// UnavailableSeats は指定日の区間と重なる確保済み座席を返す
// 列車が区間を運行しない場合は空
func (s *SeatService) UnavailableSeats(ctx context.Context, trainNumber int, date time.Time, dep, arr string) ([]seat.Seat, error) {
	seats := []seat.Seat{}
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		route, err := s.trainRepo.GetSegments(ctx, tx, trainNumber)
		if err != nil {
			if errors.Is(err, train.ErrRouteNotServed) {
				return nil
			}
			return err
		}
		span, ok := requestSpan(route, dep, arr)
		if !ok {
			return nil
		}
		claims, err := s.seatRepo.ListClaims(ctx, tx, trainNumber, date, span)
		if err != nil {
			return err
		}
		seats = append(seats, seat.Unavailable(claims, span)...)
		return nil
	})
	return seats, err
}

// AvailableSeats は総座席から確保済み座席を除いた空席を返す
// 列車が指定日の期間に区間を運行しない場合は空
func (s *SeatService) AvailableSeats(ctx context.Context, q SeatQuery) ([]seat.Seat, error) {
	var seats []seat.Seat
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) (err error) {
		seats, err = s.availableIn(ctx, tx, q)
		return err
	})
	return seats, err
}

// CountAvailableSeats は空席数を返す
// 表示用のためキャッシュを使う。予約の判定には使わない
func (s *SeatService) CountAvailableSeats(ctx context.Context, q SeatQuery) (int, error) {
	field := redisinfra.CountField(q.DepartureStation, q.ArrivalStation, classCode(q.Class))
	day := period.DayOf(q.Date)

	// キャッシュから取得を試みる
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, q.TrainNumber, day, field)
		if err == nil {
			metrics.Get().ObserveCache("hit")
			logger.Debug("キャッシュヒット", zap.Int("train", q.TrainNumber), zap.String("field", field), zap.Int("count", count))
			return count, nil
		}
		if errors.Is(err, redisinfra.ErrCacheMiss) {
			metrics.Get().ObserveCache("miss")
		} else {
			metrics.Get().ObserveCache("error")
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	seats, err := s.AvailableSeats(ctx, q)
	if err != nil {
		return 0, err
	}
	count := len(seats)

	// キャッシュに保存
	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableCount(ctx, q.TrainNumber, day, field, count, s.cacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return count, nil
}

// InvalidateCache は列車・運行日の空席数キャッシュを無効化する
func (s *SeatService) InvalidateCache(ctx context.Context, trainNumber int, date time.Time) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, trainNumber, period.DayOf(date)); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Int("train", trainNumber), zap.Error(err))
		}
	}
}

// availableIn はトランザクション内で空席を計算する
func (s *SeatService) availableIn(ctx context.Context, tx transaction.Tx, q SeatQuery) ([]seat.Seat, error) {
	cal, err := loadCalendar(ctx, tx, s.periodRepo)
	if err != nil {
		return nil, err
	}
	p, err := cal.Resolve(q.Date)
	if err != nil {
		if errors.Is(err, period.ErrPeriodNotFound) {
			return []seat.Seat{}, nil
		}
		return nil, err
	}

	trains, err := s.trainRepo.MatchTrains(ctx, tx, q.DepartureStation, q.ArrivalStation, &p)
	if err != nil {
		return nil, err
	}
	if !containsTrain(trains, q.TrainNumber) {
		return []seat.Seat{}, nil
	}

	route, err := s.trainRepo.GetSegments(ctx, tx, q.TrainNumber)
	if err != nil {
		return nil, err
	}
	return s.availableOnRoute(ctx, tx, route, p, q)
}

// availableOnRoute は経路が区間を運行することが分かっている前提で空席を計算する
func (s *SeatService) availableOnRoute(ctx context.Context, tx transaction.Tx, route *train.Route, p period.Period, q SeatQuery) ([]seat.Seat, error) {
	span, ok := requestSpan(route, q.DepartureStation, q.ArrivalStation)
	if !ok {
		return []seat.Seat{}, nil
	}
	cars, err := s.seatRepo.ListCars(ctx, tx, q.TrainNumber, p)
	if err != nil {
		return nil, err
	}
	claims, err := s.seatRepo.ListClaims(ctx, tx, q.TrainNumber, q.Date, span)
	if err != nil {
		return nil, err
	}
	total := seat.Expand(cars, q.Class)
	return seat.Subtract(total, seat.Unavailable(claims, span)), nil
}

func requestSpan(route *train.Route, dep, arr string) (seat.Span, bool) {
	span, ok := route.Span(dep, arr)
	if !ok {
		return seat.Span{}, false
	}
	return seat.Span{FirstRank: span.FirstRank, LastRank: span.LastRank}, true
}

func containsTrain(trains []int, n int) bool {
	for _, t := range trains {
		if t == n {
			return true
		}
	}
	return false
}

func classCode(class *fare.TravelClass) string {
	if class == nil {
		return "ALL"
	}
	return class.String()
}
