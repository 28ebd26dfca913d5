package train

import (
	"context"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// Repository は列車経路リポジトリのインターフェース
type Repository interface {
	// GetRoute は期間の発車時刻・速度付きで経路を取得する
	// その期間に運行しない場合は ErrTrainNotRunning を返す
	GetRoute(ctx context.Context, tx transaction.Tx, trainNumber int, p period.Period) (*Route, error)

	// GetSegments は期間に依存しない経路（ランク・距離）を取得する
	GetSegments(ctx context.Context, tx transaction.Tx, trainNumber int) (*Route, error)

	// MatchTrains は dep→arr を順方向に通る列車番号を昇順で返す
	// p が nil でなければその期間に運行する列車に限る
	MatchTrains(ctx context.Context, tx transaction.Tx, dep, arr string, p *period.Period) ([]int, error)
}
