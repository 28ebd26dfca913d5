package fare

import (
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
)

// Tariff はクラス別のキロ単価と期間別の係数
type Tariff struct {
	ClassRates        map[TravelClass]decimal.Decimal
	PeriodMultipliers map[period.Period]decimal.Decimal
}

// Validate は料金表の検証を行う
func (t *Tariff) Validate() error {
	for c, rate := range t.ClassRates {
		if !c.IsValid() {
			return ErrUnknownClass
		}
		if rate.IsNegative() {
			return ErrNegativeRate
		}
	}
	for p, m := range t.PeriodMultipliers {
		if !p.IsValid() {
			return period.ErrUnknownPeriod
		}
		if m.IsNegative() {
			return ErrNegativeRate
		}
	}
	return nil
}

// Calculator は運賃を計算する
type Calculator struct {
	tariff *Tariff
}

// NewCalculator は料金表を検証して Calculator を作成する
func NewCalculator(t *Tariff) (*Calculator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{tariff: t}, nil
}

// Price は 人数 × 距離 × キロ単価 × 期間係数 を小数第2位で四捨五入した運賃を返す
// 人数の検証は呼び出し側で行う
func (c *Calculator) Price(p period.Period, class TravelClass, distanceKm decimal.Decimal, passengers int) (decimal.Decimal, error) {
	rate, ok := c.tariff.ClassRates[class]
	if !ok {
		return decimal.Zero, ErrRateNotFound
	}
	multiplier, ok := c.tariff.PeriodMultipliers[p]
	if !ok {
		return decimal.Zero, ErrRateNotFound
	}
	price := decimal.NewFromInt(int64(passengers)).
		Mul(distanceKm).
		Mul(rate).
		Mul(multiplier)
	return price.Round(2), nil
}

// Surcharge は予約手数料（1人あたりの固定額 × 人数）を返す
func Surcharge(perPassenger decimal.Decimal, passengers int) decimal.Decimal {
	return perPassenger.Mul(decimal.NewFromInt(int64(passengers)))
}
