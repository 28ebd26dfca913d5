package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

type rateRow struct {
	Code string          `db:"code"`
	Rate decimal.Decimal `db:"rate"`
}

type FareRepository struct{ db *sqlx.DB }

func NewFareRepository(db *sqlx.DB) *FareRepository { return &FareRepository{db: db} }

// GetTariff はクラス単価と期間係数を読み込む
// 未知のコードが含まれる場合はエラーとする
func (r *FareRepository) GetTariff(ctx context.Context, tx transaction.Tx) (*fare.Tariff, error) {
	q := pick(r.db, tx)

	var classRows []rateRow
	if err := q.SelectContext(ctx, &classRows, `SELECT code, rate_per_km AS rate FROM travel_classes`); err != nil {
		return nil, classify(err, "クラス単価の取得に失敗")
	}
	var periodRows []rateRow
	if err := q.SelectContext(ctx, &periodRows, `SELECT code, price_multiplier AS rate FROM periods`); err != nil {
		return nil, classify(err, "期間係数の取得に失敗")
	}

	t := &fare.Tariff{
		ClassRates:        make(map[fare.TravelClass]decimal.Decimal, len(classRows)),
		PeriodMultipliers: make(map[period.Period]decimal.Decimal, len(periodRows)),
	}
	for _, row := range classRows {
		c, err := fare.ParseTravelClass(row.Code)
		if err != nil {
			return nil, err
		}
		t.ClassRates[c] = row.Rate
	}
	for _, row := range periodRows {
		p, err := period.ParsePeriod(row.Code)
		if err != nil {
			return nil, err
		}
		t.PeriodMultipliers[p] = row.Rate
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

var _ fare.Repository = (*FareRepository)(nil)
