package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

type periodRangeRow struct {
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Period    string    `db:"period"`
}

type PeriodRepository struct{ db *sqlx.DB }

func NewPeriodRepository(db *sqlx.DB) *PeriodRepository { return &PeriodRepository{db: db} }

func (r *PeriodRepository) ListRanges(ctx context.Context, tx transaction.Tx) ([]period.Range, error) {
	query := `SELECT start_date, end_date, period FROM period_ranges ORDER BY start_date`
	var rows []periodRangeRow
	if err := pick(r.db, tx).SelectContext(ctx, &rows, query); err != nil {
		return nil, classify(err, "期間範囲の取得に失敗")
	}
	ranges := make([]period.Range, len(rows))
	for i, row := range rows {
		p, err := period.ParsePeriod(row.Period)
		if err != nil {
			return nil, fmt.Errorf("期間範囲 %s: %w", row.StartDate.Format(dateLayout), err)
		}
		ranges[i] = period.Range{Start: row.StartDate, End: row.EndDate, Period: p}
	}
	return ranges, nil
}

var _ period.Repository = (*PeriodRepository)(nil)
