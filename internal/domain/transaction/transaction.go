package transaction

import (
	"context"
	"errors"
	"fmt"
)

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする
	Rollback() error
}

// Isolation はトランザクション分離レベル
type Isolation int

const (
	// ReadCommitted は検索・見積もりなど更新を伴わない処理用
	ReadCommitted Isolation = iota
	// Serializable は予約・キャンセル用
	Serializable
)

// Options はトランザクション開始オプション
type Options struct {
	Isolation Isolation
	ReadOnly  bool
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context, opts Options) (Tx, error)
}

var (
	// ErrConflict は並行コミットによりスナップショットが無効になったことを表す（再試行可能）
	ErrConflict = errors.New("トランザクションが競合しました")
	// ErrStoreUnavailable はストアに接続できないことを表す
	ErrStoreUnavailable = errors.New("ストアに接続できません")
)

// RollbackError はロールバック自体が失敗した場合のエラー
// 元のエラーとロールバックのエラーを両方保持する
type RollbackError struct {
	Cause    error
	Rollback error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("ロールバックに失敗: %v（元のエラー: %v）", e.Rollback, e.Cause)
}

func (e *RollbackError) Unwrap() []error {
	return []error{e.Cause, e.Rollback}
}

// IsRetryable は同じ入力で再試行できるエラーかを返す
func IsRetryable(err error) bool {
	var rbErr *RollbackError
	if errors.As(err, &rbErr) {
		return false
	}
	return errors.Is(err, ErrConflict)
}
