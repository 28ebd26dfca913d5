package seat

import (
	"sort"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
)

// Seat は号車番号と座席番号の組
type Seat struct {
	Car    int
	Number int
}

// Less は号車→座席番号の順序で比較する
func (s Seat) Less(o Seat) bool {
	if s.Car != o.Car {
		return s.Car < o.Car
	}
	return s.Number < o.Number
}

// CarTemplate は列車・期間ごとの号車構成
// MinSeat が nil の号車（食堂車など）は座席を持たない
type CarTemplate struct {
	Train   int
	Period  period.Period
	Car     int
	Class   fare.TravelClass
	MinSeat *int
	MaxSeat *int
}

// Seats は号車の座席を番号順に展開する
func (c CarTemplate) Seats() []Seat {
	if c.MinSeat == nil || c.MaxSeat == nil {
		return nil
	}
	seats := make([]Seat, 0, *c.MaxSeat-*c.MinSeat+1)
	for n := *c.MinSeat; n <= *c.MaxSeat; n++ {
		seats = append(seats, Seat{Car: c.Car, Number: n})
	}
	return seats
}

// Span は座席確保の区間ランク範囲（両端を含む）
type Span struct {
	FirstRank int
	LastRank  int
}

// Overlaps は2つの範囲が重なるかを返す
// 一方が他方より完全に前または後にある場合のみ重ならない
func (s Span) Overlaps(o Span) bool {
	return !(s.LastRank < o.FirstRank || s.FirstRank > o.LastRank)
}

// Claim は予約による座席の確保
type Claim struct {
	BookingID  string
	Train      int
	TravelDate time.Time
	Period     period.Period
	Seat       Seat
	Span       Span
}

// Validate は座席確保の検証を行う
func (c *Claim) Validate() error {
	if c.BookingID == "" {
		return ErrBookingIDRequired
	}
	if c.Span.FirstRank > c.Span.LastRank {
		return ErrInvalidSpan
	}
	return nil
}

// Expand は号車構成から座席一覧を号車・座席番号順に返す
// class が nil でなければそのクラスの号車のみを対象とする
func Expand(cars []CarTemplate, class *fare.TravelClass) []Seat {
	sorted := make([]CarTemplate, len(cars))
	copy(sorted, cars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Car < sorted[j].Car })

	var seats []Seat
	for _, c := range sorted {
		if class != nil && c.Class != *class {
			continue
		}
		seats = append(seats, c.Seats()...)
	}
	return seats
}

// Subtract は total から taken に含まれる座席を除いた一覧を返す（順序は維持）
func Subtract(total, taken []Seat) []Seat {
	if len(taken) == 0 {
		out := make([]Seat, len(total))
		copy(out, total)
		return out
	}
	takenSet := make(map[Seat]struct{}, len(taken))
	for _, s := range taken {
		takenSet[s] = struct{}{}
	}
	out := make([]Seat, 0, len(total))
	for _, s := range total {
		if _, ok := takenSet[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// Unavailable は日付の確保一覧のうち要求範囲と重なる座席を返す
func Unavailable(claims []Claim, req Span) []Seat {
	seen := make(map[Seat]struct{})
	var seats []Seat
	for _, c := range claims {
		if !c.Span.Overlaps(req) {
			continue
		}
		if _, ok := seen[c.Seat]; ok {
			continue
		}
		seen[c.Seat] = struct{}{}
		seats = append(seats, c.Seat)
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Less(seats[j]) })
	return seats
}
