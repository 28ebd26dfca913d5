package seat

import (
	"context"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// Repository は座席リポジトリのインターフェース
type Repository interface {
	// ListCars は列車・期間の号車構成を号車番号順に取得する
	ListCars(ctx context.Context, tx transaction.Tx, trainNumber int, p period.Period) ([]CarTemplate, error)

	// ListClaims は指定日の確保のうちランク範囲と重なるものを取得する
	ListClaims(ctx context.Context, tx transaction.Tx, trainNumber int, date time.Time, span Span) ([]Claim, error)

	// InsertClaims は座席確保を登録する（トランザクション必須）
	InsertClaims(ctx context.Context, tx transaction.Tx, claims []Claim) error

	// DeleteClaimsByBooking は予約の座席確保を削除し件数を返す（トランザクション必須）
	DeleteClaimsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (int, error)

	// CountClaimsByBooking は予約の座席確保数を返す
	CountClaimsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) (int, error)

	// ListSeatsByBooking は予約が確保している座席を返す
	ListSeatsByBooking(ctx context.Context, tx transaction.Tx, bookingID string) ([]Seat, error)
}
