package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

// Commit はトランザクションをコミットする
// SERIALIZABLE ではコミット時に直列化失敗が検出されることがある
func (t *TxWrapper) Commit() error {
	return classify(t.Tx.Commit(), "コミットに失敗")
}

// Rollback はトランザクションをロールバックする
func (t *TxWrapper) Rollback() error {
	return t.Tx.Rollback()
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context, opts transaction.Options) (transaction.Tx, error) {
	level := sql.LevelReadCommitted
	if opts.Isolation == transaction.Serializable {
		level = sql.LevelSerializable
	}
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: level, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, classify(err, "トランザクション開始に失敗")
	}
	return &TxWrapper{Tx: tx}, nil
}

// UnwrapTx は transaction.Tx から sqlx.Tx を取り出す
// リポジトリ実装で使用する
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx
	}
	return nil
}

// querier は sqlx.DB と sqlx.Tx の共通操作
type querier interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// pick はトランザクションがあればそれを、なければ DB を返す
func pick(db *sqlx.DB, tx transaction.Tx) querier {
	if t := UnwrapTx(tx); t != nil {
		return t
	}
	return db
}

var _ transaction.Manager = (*TxManager)(nil)
