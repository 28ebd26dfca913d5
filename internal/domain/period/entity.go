package period

import (
	"sort"
	"time"
)

// Period は料金期間（BLUE / WHITE / RED）を表す
type Period int

const (
	Blue Period = iota + 1
	White
	Red
)

// codes は期間とストア上のコードの対応表
var codes = map[Period]string{
	Blue:  "BLUE",
	White: "WHITE",
	Red:   "RED",
}

var byCode = func() map[string]Period {
	m := make(map[string]Period, len(codes))
	for p, c := range codes {
		m[c] = p
	}
	return m
}()

// ParsePeriod はコードから期間を取得する
func ParsePeriod(code string) (Period, error) {
	p, ok := byCode[code]
	if !ok {
		return 0, ErrUnknownPeriod
	}
	return p, nil
}

// All は定義済みの期間をコード順で返す
func All() []Period {
	return []Period{Blue, White, Red}
}

func (p Period) String() string {
	if c, ok := codes[p]; ok {
		return c
	}
	return "UNKNOWN"
}

// IsValid は定義済みの期間かを返す
func (p Period) IsValid() bool {
	_, ok := codes[p]
	return ok
}

// MarshalText は期間をコード文字列に変換する
func (p Period) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, ErrUnknownPeriod
	}
	return []byte(p.String()), nil
}

// UnmarshalText はコード文字列から期間を復元する
func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Range は期間が適用される日付範囲（両端を含む、日単位）
type Range struct {
	Start  time.Time
	End    time.Time
	Period Period
}

// Contains は日付が範囲内かを返す（時刻は無視する）
func (r Range) Contains(date time.Time) bool {
	d := dayKey(date)
	return d >= dayKey(r.Start) && d <= dayKey(r.End)
}

func (r Range) overlaps(o Range) bool {
	return dayKey(r.End) >= dayKey(o.Start) && dayKey(o.End) >= dayKey(r.Start)
}

// Validate は範囲の検証を行う
func (r Range) Validate() error {
	if !r.Period.IsValid() {
		return ErrUnknownPeriod
	}
	if dayKey(r.End) < dayKey(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Calendar は日付範囲表から期間を解決する
type Calendar struct {
	ranges []Range
}

// NewCalendar は範囲表を検証してカレンダーを作成する
// 範囲が重なっている場合はエラーを返す
func NewCalendar(ranges []Range) (*Calendar, error) {
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return dayKey(sorted[i].Start) < dayKey(sorted[j].Start)
	})
	for i, r := range sorted {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if i > 0 && sorted[i-1].overlaps(r) {
			return nil, ErrOverlappingRanges
		}
	}
	return &Calendar{ranges: sorted}, nil
}

// Resolve は日付を含む範囲の期間を返す
func (c *Calendar) Resolve(date time.Time) (Period, error) {
	d := dayKey(date)
	i := sort.Search(len(c.ranges), func(i int) bool {
		return dayKey(c.ranges[i].End) >= d
	})
	if i < len(c.ranges) && c.ranges[i].Contains(date) {
		return c.ranges[i].Period, nil
	}
	return 0, ErrPeriodNotFound
}

// Ranges は登録済みの範囲を開始日順で返す
func (c *Calendar) Ranges() []Range {
	out := make([]Range, len(c.ranges))
	copy(out, c.ranges)
	return out
}

// DayOf は日付部分のみを残した時刻を返す（ロケーションは維持）
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay は2つの時刻が同じ暦日かを返す（ロケーションの違いは無視する）
func SameDay(a, b time.Time) bool {
	return dayKey(a) == dayKey(b)
}

// dayKey は暦日を yyyymmdd の整数で表す
func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
