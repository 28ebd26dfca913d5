package period

import (
	"context"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// Repository は期間リポジトリのインターフェース
type Repository interface {
	// ListRanges は期間の日付範囲表を取得する
	ListRanges(ctx context.Context, tx transaction.Tx) ([]Range, error)
}
