package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// JourneyService は期間解決・時刻表・行程検索・運賃見積もりを提供する
type JourneyService struct {
	txm        transaction.Manager
	periodRepo period.Repository
	trainRepo  train.Repository
	fareRepo   fare.Repository
}

func NewJourneyService(txm transaction.Manager, pr period.Repository, tr train.Repository, fr fare.Repository) *JourneyService {
	return &JourneyService{txm: txm, periodRepo: pr, trainRepo: tr, fareRepo: fr}
}

// ResolvePeriod は日付の属する期間を返す
func (s *JourneyService) ResolvePeriod(ctx context.Context, date time.Time) (period.Period, error) {
	var p period.Period
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		cal, err := loadCalendar(ctx, tx, s.periodRepo)
		if err != nil {
			return err
		}
		p, err = cal.Resolve(date)
		return err
	})
	return p, err
}

// BuildTimetable は列車の指定日の駅ごとの時刻を組み立てる
func (s *JourneyService) BuildTimetable(ctx context.Context, trainNumber int, date time.Time) (*train.Timetable, error) {
	var tt *train.Timetable
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		cal, err := loadCalendar(ctx, tx, s.periodRepo)
		if err != nil {
			return err
		}
		route, err := routeFor(ctx, tx, s.trainRepo, cal, trainNumber, date)
		if err != nil {
			return err
		}
		tt, err = train.BuildTimetable(route, date)
		return err
	})
	return tt, err
}

// MatchTrains は dep から arr へ順方向に運行する列車番号を返す
func (s *JourneyService) MatchTrains(ctx context.Context, dep, arr string, p *period.Period) ([]int, error) {
	var trains []int
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) (err error) {
		trains, err = s.trainRepo.MatchTrains(ctx, tx, dep, arr, p)
		return err
	})
	return trains, err
}

type routeKey struct {
	train  int
	period period.Period
}

// GetTrainTimes は from〜to の各日について dep→arr の行程を列挙する
// 出発が from より後、到着が to より前の行程のみを日付順・列車番号順で返す
func (s *JourneyService) GetTrainTimes(ctx context.Context, dep, arr string, from, to time.Time) ([]train.Journey, error) {
	journeys := []train.Journey{}
	if to.Before(from) {
		return journeys, nil
	}

	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		cal, err := loadCalendar(ctx, tx, s.periodRepo)
		if err != nil {
			return err
		}
		trains, err := s.trainRepo.MatchTrains(ctx, tx, dep, arr, nil)
		if err != nil {
			return err
		}

		// 同じ列車・期間の経路は日をまたいで使い回す（nil は運行なし）
		routes := make(map[routeKey]*train.Route)
		last := period.DayOf(to)
		for day := period.DayOf(from); !day.After(last); day = day.AddDate(0, 0, 1) {
			p, err := cal.Resolve(day)
			if err != nil {
				continue
			}
			for _, n := range trains {
				key := routeKey{train: n, period: p}
				route, seen := routes[key]
				if !seen {
					route, err = s.trainRepo.GetRoute(ctx, tx, n, p)
					if err != nil && !errors.Is(err, train.ErrTrainNotRunning) {
						return err
					}
					routes[key] = route
				}
				if route == nil {
					continue
				}

				tt, err := train.BuildTimetable(route, day)
				if err != nil {
					return fmt.Errorf("列車%dの時刻表作成に失敗: %w", n, err)
				}
				depAt, okDep := tt.At(dep)
				arrAt, okArr := tt.At(arr)
				if !okDep || !okArr {
					continue
				}
				if depAt.After(from) && arrAt.Before(to) {
					journeys = append(journeys, train.Journey{
						DepartureStation: dep,
						ArrivalStation:   arr,
						TrainNumber:      n,
						DepartureAt:      depAt,
						ArrivalAt:        arrAt,
					})
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return journeys, nil
}

// Distance は列車の dep から arr までの距離（km）を返す
func (s *JourneyService) Distance(ctx context.Context, trainNumber int, dep, arr string) (float64, error) {
	var km float64
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		route, err := s.trainRepo.GetSegments(ctx, tx, trainNumber)
		if err != nil {
			return err
		}
		km, err = route.Distance(dep, arr)
		return err
	})
	return km, err
}

// BuyTicketInput は運賃見積もりの入力
type BuyTicketInput struct {
	DepartureStation string
	ArrivalStation   string
	Period           period.Period
	PassengerCount   int
	Class            fare.TravelClass
}

// BuyTicket は期間に運行する最初の列車の距離で運賃を見積もる
func (s *JourneyService) BuyTicket(ctx context.Context, input BuyTicketInput) (*fare.Ticket, error) {
	if input.PassengerCount <= 0 {
		return nil, fare.ErrInvalidPassengerCount
	}

	var ticket *fare.Ticket
	err := runInTx(ctx, s.txm, readOnlyTx, func(tx transaction.Tx) error {
		p := input.Period
		trains, err := s.trainRepo.MatchTrains(ctx, tx, input.DepartureStation, input.ArrivalStation, &p)
		if err != nil {
			return err
		}
		if len(trains) == 0 {
			return train.ErrNoTrain
		}
		route, err := s.trainRepo.GetSegments(ctx, tx, trains[0])
		if err != nil {
			return err
		}
		km, err := route.Distance(input.DepartureStation, input.ArrivalStation)
		if err != nil {
			return err
		}
		calc, err := loadCalculator(ctx, tx, s.fareRepo)
		if err != nil {
			return err
		}
		price, err := calc.Price(input.Period, input.Class, distanceKm(km), input.PassengerCount)
		if err != nil {
			return err
		}
		ticket = &fare.Ticket{
			DepartureStation: input.DepartureStation,
			ArrivalStation:   input.ArrivalStation,
			Period:           input.Period,
			PassengerCount:   input.PassengerCount,
			Class:            input.Class,
			Price:            price,
		}
		return nil
	})
	return ticket, err
}

// distanceKm は区間距離の合計を金額計算用の10進数に変換する
// 区間距離は小数第2位までで保存されているため、浮動小数点の誤差を丸めで除く
func distanceKm(km float64) decimal.Decimal {
	return decimal.NewFromFloat(km).Round(2)
}

func loadCalendar(ctx context.Context, tx transaction.Tx, repo period.Repository) (*period.Calendar, error) {
	ranges, err := repo.ListRanges(ctx, tx)
	if err != nil {
		return nil, err
	}
	return period.NewCalendar(ranges)
}

func loadCalculator(ctx context.Context, tx transaction.Tx, repo fare.Repository) (*fare.Calculator, error) {
	tariff, err := repo.GetTariff(ctx, tx)
	if err != nil {
		return nil, err
	}
	return fare.NewCalculator(tariff)
}

// routeFor は日付の期間を解決し、その期間の経路を返す
// 期間がない・列車が運行しない場合は ErrTimetableNotFound
func routeFor(ctx context.Context, tx transaction.Tx, repo train.Repository, cal *period.Calendar, trainNumber int, date time.Time) (*train.Route, error) {
	p, err := cal.Resolve(date)
	if err != nil {
		if errors.Is(err, period.ErrPeriodNotFound) {
			return nil, fmt.Errorf("%w: %v", train.ErrTimetableNotFound, err)
		}
		return nil, err
	}
	route, err := repo.GetRoute(ctx, tx, trainNumber, p)
	if err != nil {
		if errors.Is(err, train.ErrTrainNotRunning) {
			return nil, fmt.Errorf("%w: %v", train.ErrTimetableNotFound, err)
		}
		return nil, err
	}
	return route, nil
}
