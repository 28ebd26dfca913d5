package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
)

// BookingPurger は出発済みの予約を削除するインターフェース
type BookingPurger interface {
	PurgeDeparted(ctx context.Context, cutoff time.Time) (int, error)
}

// DepartedBookingPurger は出発から retention 以上経過した予約を定期的に削除するワーカー
// 座席確保が残り続けると空席計算の対象行が増えるため
type DepartedBookingPurger struct {
	bookings  BookingPurger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewDepartedBookingPurger は新しいパージャーを作成
func NewDepartedBookingPurger(bp BookingPurger, interval, retention time.Duration) *DepartedBookingPurger {
	return &DepartedBookingPurger{
		bookings:  bp,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start はパージャーを開始
func (p *DepartedBookingPurger) Start(ctx context.Context) {
	logger.Info("出発済み予約パージャー開始",
		zap.Duration("interval", p.interval),
		zap.Duration("retention", p.retention),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(p.doneCh)

	p.purge(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("出発済み予約パージャー停止（コンテキストキャンセル）")
			return
		case <-p.stopCh:
			logger.Info("出発済み予約パージャー停止（シグナル受信）")
			return
		case <-ticker.C:
			p.purge(ctx)
		}
	}
}

// Stop はパージャーを停止
func (p *DepartedBookingPurger) Stop() {
	close(p.stopCh)
	<-p.doneCh
}

func (p *DepartedBookingPurger) purge(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)
	log := logger.Get()

	count, err := p.bookings.PurgeDeparted(ctx, cutoff)
	if err != nil {
		log.Error("出発済み予約の削除に失敗", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("出発済み予約を削除", zap.Int("count", count), zap.Time("cutoff", cutoff))
	} else {
		log.Debug("削除対象の出発済み予約なし")
	}
}
