package booking

// Rejection は業務ルールにより予約を受け付けなかった理由
// エラーではなく通常の結果として扱う
type Rejection string

const (
	RejectInvalidPassengerCount Rejection = "invalid_passenger_count"
	RejectNoTimetable           Rejection = "no_timetable"
	RejectStationNotServed      Rejection = "station_not_served"
	RejectInsufficientSeats     Rejection = "insufficient_seats"
	RejectFareUnavailable       Rejection = "fare_unavailable"
)

var rejectionMessages = map[Rejection]string{
	RejectInvalidPassengerCount: "乗客数は1以上である必要があります",
	RejectNoTimetable:           "列車は指定日に運行していません",
	RejectStationNotServed:      "指定の出発時刻・駅に列車は停車しません",
	RejectInsufficientSeats:     "空席が不足しています",
	RejectFareUnavailable:       "運賃が設定されていません",
}

// Message は利用者向けの説明を返す
func (r Rejection) Message() string {
	if m, ok := rejectionMessages[r]; ok {
		return m
	}
	return string(r)
}
