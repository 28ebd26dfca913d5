package fare

import "errors"

// Fare ドメインのエラー定義
var (
	ErrRateNotFound = errors.New("クラスまたは期間の料金が設定されていません")
	ErrUnknownClass = errors.New("不明なクラスコードです")
	ErrNegativeRate = errors.New("料金は0以上である必要があります")

	ErrInvalidPassengerCount = errors.New("乗客数は1以上である必要があります")
)
