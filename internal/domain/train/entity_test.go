package train

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
)

func parisLyonMarseille() *Route {
	return &Route{
		Train:         6607,
		Period:        period.Blue,
		DepartureTime: 7*time.Hour + 30*time.Minute,
		Segments: []Segment{
			{Rank: 1, Departure: "Paris", Arrival: "Lyon", LengthKm: 430, SpeedKmh: 300},
			{Rank: 2, Departure: "Lyon", Arrival: "Avignon", LengthKm: 228, SpeedKmh: 200},
			{Rank: 3, Departure: "Avignon", Arrival: "Marseille", LengthKm: 100, SpeedKmh: 160},
		},
	}
}

func TestTravelDuration(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		speed    float64
		expected time.Duration
	}{
		{"228km / 200km/h = 1h08m24s", 228, 200, time.Hour + 8*time.Minute + 24*time.Second},
		{"ちょうど1時間", 300, 300, time.Hour},
		{"430km / 300km/h = 1h26m", 430, 300, time.Hour + 26*time.Minute},
		{"秒は四捨五入", 1, 7, 8*time.Minute + 34*time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TravelDuration(tt.distance, tt.speed))
		})
	}
}

func TestBuildTimetable(t *testing.T) {
	t.Run("各駅の時刻を積み上げる", func(t *testing.T) {
		date := time.Date(2017, 10, 29, 15, 0, 0, 0, time.UTC)

		tt, err := BuildTimetable(parisLyonMarseille(), date)
		require.NoError(t, err)

		assert.Equal(t, []string{"Paris", "Lyon", "Avignon", "Marseille"}, tt.Order)

		paris, ok := tt.At("Paris")
		require.True(t, ok)
		assert.Equal(t, time.Date(2017, 10, 29, 7, 30, 0, 0, time.UTC), paris)

		lyon, _ := tt.At("Lyon")
		assert.Equal(t, time.Date(2017, 10, 29, 8, 56, 0, 0, time.UTC), lyon)

		avignon, _ := tt.At("Avignon")
		assert.Equal(t, lyon.Add(time.Hour+8*time.Minute+24*time.Second), avignon)
	})

	t.Run("時刻はランク順に狭義単調増加", func(t *testing.T) {
		tt, err := BuildTimetable(parisLyonMarseille(), time.Date(2017, 10, 29, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		for i := 1; i < len(tt.Order); i++ {
			prev := tt.Stops[tt.Order[i-1]]
			cur := tt.Stops[tt.Order[i]]
			assert.True(t, cur.After(prev), "%s -> %s", tt.Order[i-1], tt.Order[i])
		}
	})

	t.Run("夏時間の切替日も発車時刻は壁時計どおり", func(t *testing.T) {
		paris, err := time.LoadLocation("Europe/Paris")
		if err != nil {
			t.Skipf("タイムゾーン情報がありません: %v", err)
		}
		date := time.Date(2017, 3, 26, 12, 0, 0, 0, paris)

		tt, err := BuildTimetable(parisLyonMarseille(), date)
		require.NoError(t, err)

		dep, ok := tt.At("Paris")
		require.True(t, ok)
		assert.Equal(t, time.Date(2017, 3, 26, 7, 30, 0, 0, paris), dep)
		assert.Equal(t, 7, dep.Hour())
		assert.Equal(t, 30, dep.Minute())

		lyon, _ := tt.At("Lyon")
		assert.Equal(t, dep.Add(time.Hour+26*time.Minute), lyon)
	})

	t.Run("区間なしは整合性エラー", func(t *testing.T) {
		_, err := BuildTimetable(&Route{Train: 1, Period: period.Blue}, time.Now())
		assert.ErrorIs(t, err, ErrInconsistentRoute)
	})

	t.Run("ランクが昇順でなければエラー", func(t *testing.T) {
		route := parisLyonMarseille()
		route.Segments[2].Rank = 2
		_, err := BuildTimetable(route, time.Now())
		assert.ErrorIs(t, err, ErrInvalidRankOrder)
	})

	t.Run("速度0はエラー", func(t *testing.T) {
		route := parisLyonMarseille()
		route.Segments[0].SpeedKmh = 0
		_, err := BuildTimetable(route, time.Now())
		assert.ErrorIs(t, err, ErrInvalidSpeed)
	})
}

func TestRoute_Span(t *testing.T) {
	route := parisLyonMarseille()

	tests := []struct {
		name     string
		dep, arr string
		expected Span
		ok       bool
	}{
		{"1区間", "Lyon", "Avignon", Span{2, 2}, true},
		{"複数区間", "Paris", "Marseille", Span{1, 3}, true},
		{"逆方向は不一致", "Avignon", "Lyon", Span{}, false},
		{"経路外の駅", "Lille", "Lyon", Span{}, false},
		{"終着駅からは出発しない", "Marseille", "Marseille", Span{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, ok := route.Span(tt.dep, tt.arr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, span)
		})
	}
}

func TestRoute_Distance(t *testing.T) {
	route := parisLyonMarseille()

	km, err := route.Distance("Lyon", "Avignon")
	require.NoError(t, err)
	assert.Equal(t, 228.0, km)

	km, err = route.Distance("Paris", "Avignon")
	require.NoError(t, err)
	assert.Equal(t, 658.0, km)

	_, err = route.Distance("Marseille", "Paris")
	assert.ErrorIs(t, err, ErrRouteNotServed)
}
