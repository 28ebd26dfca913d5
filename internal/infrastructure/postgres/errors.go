package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

// PostgreSQL エラーコード
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeExclusionViolation   = "23P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	classConnectionException = "08"
)

// classify はドライバのエラーをドメインのエラー分類に変換する
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeExclusionViolation, codeLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", msg, transaction.ErrConflict, err)
		}
		if pqErr.Code.Class() == classConnectionException {
			return fmt.Errorf("%s: %w: %w", msg, transaction.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", msg, err)
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", msg, transaction.ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", msg, transaction.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}
