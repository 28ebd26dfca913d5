package fare

import (
	"context"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// Repository は料金表リポジトリのインターフェース
type Repository interface {
	// GetTariff はクラス単価と期間係数を取得する
	GetTariff(ctx context.Context, tx transaction.Tx) (*Tariff, error)
}
