package period

import "errors"

// Period ドメインのエラー定義
var (
	ErrPeriodNotFound    = errors.New("日付に対応する期間が見つかりません")
	ErrUnknownPeriod     = errors.New("不明な期間コードです")
	ErrInvalidRange      = errors.New("終了日は開始日以降である必要があります")
	ErrOverlappingRanges = errors.New("期間の日付範囲が重なっています")
)
