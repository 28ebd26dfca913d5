package fare

import (
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
)

// TravelClass は座席クラスを表す
type TravelClass int

const (
	First TravelClass = iota + 1
	Second
)

var classCodes = map[TravelClass]string{
	First:  "FIRST",
	Second: "SECOND",
}

var classByCode = func() map[string]TravelClass {
	m := make(map[string]TravelClass, len(classCodes))
	for c, code := range classCodes {
		m[code] = c
	}
	return m
}()

// ParseTravelClass はコードからクラスを取得する
func ParseTravelClass(code string) (TravelClass, error) {
	c, ok := classByCode[code]
	if !ok {
		return 0, ErrUnknownClass
	}
	return c, nil
}

func (c TravelClass) String() string {
	if code, ok := classCodes[c]; ok {
		return code
	}
	return "UNKNOWN"
}

// IsValid は定義済みのクラスかを返す
func (c TravelClass) IsValid() bool {
	_, ok := classCodes[c]
	return ok
}

// MarshalText はクラスをコード文字列に変換する
func (c TravelClass) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, ErrUnknownClass
	}
	return []byte(c.String()), nil
}

// UnmarshalText はコード文字列からクラスを復元する
func (c *TravelClass) UnmarshalText(b []byte) error {
	v, err := ParseTravelClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Ticket は予約前の運賃見積もり
type Ticket struct {
	DepartureStation string
	ArrivalStation   string
	Period           period.Period
	PassengerCount   int
	Class            TravelClass
	Price            decimal.Decimal
}
