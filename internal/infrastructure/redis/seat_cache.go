package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// SeatCache は空席数のキャッシュを管理する
// 列車・運行日ごとに1つのハッシュを持ち、フィールドは "出発駅:到着駅:クラス"
type SeatCache struct {
	client *redis.Client
}

// NewSeatCache は新しいSeatCacheインスタンスを作成する
func NewSeatCache(client *redis.Client) *SeatCache {
	return &SeatCache{client: client}
}

// GetAvailableCount は区間・クラスの空席数をキャッシュから取得する
func (c *SeatCache) GetAvailableCount(ctx context.Context, trainNumber int, date time.Time, field string) (int, error) {
	val, err := c.client.HGet(ctx, c.availableCountKey(trainNumber, date), field).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetAvailableCount は区間・クラスの空席数をキャッシュに保存する
// TTL はハッシュ全体に設定される
func (c *SeatCache) SetAvailableCount(ctx context.Context, trainNumber int, date time.Time, field string, count int, ttl time.Duration) error {
	key := c.availableCountKey(trainNumber, date)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, count)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は列車・運行日のキャッシュを無効化する
func (c *SeatCache) Invalidate(ctx context.Context, trainNumber int, date time.Time) error {
	err := c.client.Del(ctx, c.availableCountKey(trainNumber, date)).Err()
	if err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

// CountField はキャッシュのフィールド名を組み立てる
func CountField(dep, arr, class string) string {
	return dep + ":" + arr + ":" + class
}

func (c *SeatCache) availableCountKey(trainNumber int, date time.Time) string {
	return fmt.Sprintf("seats:available:%d:%s", trainNumber, date.Format("2006-01-02"))
}

// SeatCacheInterface は空席数キャッシュのインターフェース（テストでモック可能）
type SeatCacheInterface interface {
	GetAvailableCount(ctx context.Context, trainNumber int, date time.Time, field string) (int, error)
	SetAvailableCount(ctx context.Context, trainNumber int, date time.Time, field string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, trainNumber int, date time.Time) error
}

var _ SeatCacheInterface = (*SeatCache)(nil)
