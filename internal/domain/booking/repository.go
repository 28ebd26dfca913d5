package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Insert は予約を登録する（トランザクション必須）
	// IDが既に存在する場合は何も書き込まず ErrIDCollision を返す
	Insert(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する（座席は含まない）
	GetByID(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// ExistsForCustomer は顧客が所有する予約が存在するかを返す
	ExistsForCustomer(ctx context.Context, tx transaction.Tx, id, customerID string) (bool, error)

	// ListByCustomer は顧客の予約一覧を作成日時の降順で取得する
	ListByCustomer(ctx context.Context, tx transaction.Tx, customerID string, limit, offset int) ([]*Booking, error)

	// Delete は予約を削除し件数を返す（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id string) (int, error)

	// PurgeDepartedBefore は出発時刻が cutoff より前の予約を座席確保ごと削除し件数を返す（トランザクション必須）
	PurgeDepartedBefore(ctx context.Context, tx transaction.Tx, cutoff time.Time) (int, error)
}

// EventPublisher は予約イベントの通知先
type EventPublisher interface {
	PublishBooked(ctx context.Context, b *Booking) error
	PublishCancelled(ctx context.Context, bookingID, customerID string) error
}
