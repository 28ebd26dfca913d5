package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound     = errors.New("予約が見つかりません")
	ErrCustomerIDRequired  = errors.New("顧客IDは必須です")
	ErrSeatsRequired       = errors.New("座席は1席以上必要です")
	ErrSeatCountMismatch   = errors.New("乗客数と座席数が一致しません")
	ErrInvalidPrice        = errors.New("料金は0以上である必要があります")
	ErrIDCollision         = errors.New("予約IDが既に使われています")
	ErrIDSpaceExhausted    = errors.New("予約IDの採番に失敗しました")
	ErrPartialCancellation = errors.New("予約の削除が完了していません")
)
