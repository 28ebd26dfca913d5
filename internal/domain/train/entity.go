package train

import (
	"math"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
)

// Segment は列車経路上の区間（隣接2駅間）
// LengthKm は物理区間の距離、SpeedKmh は期間ごとの走行速度
type Segment struct {
	Rank      int
	Departure string
	Arrival   string
	LengthKm  float64
	SpeedKmh  float64
}

// Duration は区間の所要時間を返す
// 時・分は切り捨て、秒は四捨五入する
func (s Segment) Duration() time.Duration {
	return TravelDuration(s.LengthKm, s.SpeedKmh)
}

// TravelDuration は距離と速度から所要時間を計算する
func TravelDuration(distanceKm, speedKmh float64) time.Duration {
	raw := distanceKm / speedKmh
	hours := math.Trunc(raw)
	rawMinutes := (raw - hours) * 60
	minutes := math.Trunc(rawMinutes)
	seconds := math.Round((rawMinutes - minutes) * 60)
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
}

// Span は経路上の区間ランクの範囲（両端を含む）
type Span struct {
	FirstRank int
	LastRank  int
}

// Route は列車の経路（ランク昇順の区間列）
// Period と DepartureTime は期間指定で取得した場合のみ設定される
type Route struct {
	Train         int
	Period        period.Period
	DepartureTime time.Duration // 始発駅の発車時刻（0時からの経過時間）
	Segments      []Segment
}

// Validate はランクが狭義単調増加であることを検証する
func (r *Route) Validate() error {
	for i := 1; i < len(r.Segments); i++ {
		if r.Segments[i].Rank <= r.Segments[i-1].Rank {
			return ErrInvalidRankOrder
		}
	}
	return nil
}

// Span は dep を出発する区間から arr に到着する区間までのランク範囲を返す
// 逆方向の通過は一致とみなさない
func (r *Route) Span(dep, arr string) (Span, bool) {
	first, last, ok := r.spanIndexes(dep, arr)
	if !ok {
		return Span{}, false
	}
	return Span{FirstRank: r.Segments[first].Rank, LastRank: r.Segments[last].Rank}, true
}

// Distance は dep から arr までの区間距離の合計を返す
func (r *Route) Distance(dep, arr string) (float64, error) {
	first, last, ok := r.spanIndexes(dep, arr)
	if !ok {
		return 0, ErrRouteNotServed
	}
	var km float64
	for _, s := range r.Segments[first : last+1] {
		km += s.LengthKm
	}
	return km, nil
}

func (r *Route) spanIndexes(dep, arr string) (int, int, bool) {
	first := -1
	for i, s := range r.Segments {
		if s.Departure == dep {
			first = i
			break
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	for j := first; j < len(r.Segments); j++ {
		if r.Segments[j].Arrival == arr {
			return first, j, true
		}
	}
	return 0, 0, false
}

// Timetable は1日分の列車の駅ごとの時刻表
type Timetable struct {
	Train int
	Date  time.Time
	Order []string
	Stops map[string]time.Time
}

// At は駅の時刻を返す
func (t *Timetable) At(station string) (time.Time, bool) {
	at, ok := t.Stops[station]
	return at, ok
}

// Journey は検索結果の1行程
type Journey struct {
	DepartureStation string
	ArrivalStation   string
	TrainNumber      int
	DepartureAt      time.Time
	ArrivalAt        time.Time
}

// BuildTimetable は経路から指定日の時刻表を組み立てる
// 区間がない経路は整合性エラーとする
func BuildTimetable(route *Route, date time.Time) (*Timetable, error) {
	if len(route.Segments) == 0 {
		return nil, ErrInconsistentRoute
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}

	at := departureOn(date, route.DepartureTime)
	tt := &Timetable{
		Train: route.Train,
		Date:  period.DayOf(date),
		Order: make([]string, 0, len(route.Segments)+1),
		Stops: make(map[string]time.Time, len(route.Segments)+1),
	}
	tt.add(route.Segments[0].Departure, at)

	for _, s := range route.Segments {
		if s.SpeedKmh <= 0 {
			return nil, ErrInvalidSpeed
		}
		at = at.Add(s.Duration())
		tt.add(s.Arrival, at)
	}
	return tt, nil
}

// departureOn は暦日に時・分・秒を設定する（夏時間の切替日でも壁時計の時刻を保つ）
func departureOn(date time.Time, timeOfDay time.Duration) time.Time {
	h := int(timeOfDay / time.Hour)
	m := int(timeOfDay % time.Hour / time.Minute)
	sec := int(timeOfDay % time.Minute / time.Second)
	y, mo, d := date.Date()
	return time.Date(y, mo, d, h, m, sec, 0, date.Location())
}

func (t *Timetable) add(station string, at time.Time) {
	if _, ok := t.Stops[station]; !ok {
		t.Order = append(t.Order, station)
	}
	t.Stops[station] = at
}
