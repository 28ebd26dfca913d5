package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrBookingIDRequired = errors.New("予約IDは必須です")
	ErrInvalidSpan       = errors.New("区間ランクの範囲が不正です")
	ErrSeatAlreadyTaken  = errors.New("座席は既に重なる区間で予約されています")
)
