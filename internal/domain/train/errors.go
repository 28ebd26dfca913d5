package train

import "errors"

// Train ドメインのエラー定義
var (
	ErrTimetableNotFound = errors.New("指定日に運行する時刻表がありません")
	ErrTrainNotRunning   = errors.New("列車はこの期間に運行していません")
	ErrRouteNotServed    = errors.New("列車は指定の区間を運行していません")
	ErrInconsistentRoute = errors.New("運行期間に区間が登録されていません")
	ErrInvalidRankOrder  = errors.New("区間ランクが昇順ではありません")
	ErrInvalidSpeed      = errors.New("区間速度は正である必要があります")
	ErrNoTrain           = errors.New("区間を運行する列車がありません")
)
