package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
)

var (
	readOnlyTx     = transaction.Options{Isolation: transaction.ReadCommitted, ReadOnly: true}
	serializableTx = transaction.Options{Isolation: transaction.Serializable}
)

// RetryPolicy は競合時の再試行方針
type RetryPolicy struct {
	// MaxAttempts は初回を含む最大試行回数
	MaxAttempts int
	// Backoff は初回リトライまでの待機時間。以降は試行ごとに倍になる
	Backoff time.Duration
}

// DefaultRetryPolicy は既定の再試行方針を返す
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 50 * time.Millisecond}
}

// run は fn を実行し、競合エラーの間は上限まで再試行する
// 上限に達した場合は最後の競合エラーを返す
func (p RetryPolicy) run(ctx context.Context, operation string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := p.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !transaction.IsRetryable(err) || attempt == attempts {
			return err
		}

		metrics.Get().ObserveRetry(operation)
		logger.Warn("トランザクションが競合したため再試行します",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// runInTx は fn をトランザクション内で実行する
// fn が成功すればコミットし、失敗すればロールバックする
// ロールバック自体が失敗した場合は元のエラーと合わせて RollbackError を返す
func runInTx(ctx context.Context, txm transaction.Manager, opts transaction.Options, fn func(tx transaction.Tx) error) (err error) {
	tx, err := txm.Begin(ctx, opts)
	if err != nil {
		return err
	}

	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			err = &transaction.RollbackError{Cause: err, Rollback: rbErr}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	// コミット失敗後のトランザクションはドライバ側で終了している
	done = true
	return tx.Commit()
}
