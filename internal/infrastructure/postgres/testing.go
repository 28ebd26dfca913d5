package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sampleNetwork は Paris→Lyon→Avignon→Marseille の小さな路線網
//   - 6607: Paris→Lyon→Avignon、BLUE 08:00 発（465km@270、228km@200）、RED 09:00 発
//   - 6611: Lyon→Avignon→Marseille、BLUE 10:00 発
//   - 2017-01-01〜2017-11-30 は BLUE、2017-12-01〜2017-12-31 は RED
//   - 6607 の BLUE 編成は 1号車 FIRST 1〜2、2号車 SECOND 1〜3、3号車 食堂車
var sampleNetwork = []string{
	`INSERT INTO stations (name) VALUES ('Paris'), ('Lyon'), ('Avignon'), ('Marseille')`,
	`INSERT INTO segments (departure_station, arrival_station, length_km) VALUES
		('Paris', 'Lyon', 465), ('Lyon', 'Avignon', 228), ('Marseille', 'Avignon', 100)`,
	`INSERT INTO periods (code, price_multiplier) VALUES ('BLUE', 1.0), ('WHITE', 1.2), ('RED', 1.5)`,
	`INSERT INTO period_ranges (start_date, end_date, period) VALUES
		('2017-01-01', '2017-11-30', 'BLUE'), ('2017-12-01', '2017-12-31', 'RED')`,
	`INSERT INTO travel_classes (code, rate_per_km) VALUES ('FIRST', 0.20), ('SECOND', 0.10)`,
	`INSERT INTO trains (number) VALUES (6607), (6611)`,
	`INSERT INTO train_segments (train_number, rank, departure_station, arrival_station) VALUES
		(6607, 1, 'Paris', 'Lyon'), (6607, 2, 'Lyon', 'Avignon'),
		(6611, 1, 'Lyon', 'Avignon'), (6611, 2, 'Avignon', 'Marseille')`,
	`INSERT INTO train_departures (train_number, period, departure_time) VALUES
		(6607, 'BLUE', '08:00'), (6607, 'RED', '09:00'), (6611, 'BLUE', '10:00')`,
	`INSERT INTO train_segment_speeds (train_number, rank, period, speed_kmh) VALUES
		(6607, 1, 'BLUE', 270), (6607, 2, 'BLUE', 200),
		(6607, 1, 'RED', 250), (6607, 2, 'RED', 190),
		(6611, 1, 'BLUE', 200), (6611, 2, 'BLUE', 150)`,
	`INSERT INTO cars (train_number, period, car_number, travel_class, seat_min, seat_max) VALUES
		(6607, 'BLUE', 1, 'FIRST', 1, 2),
		(6607, 'BLUE', 2, 'SECOND', 1, 3),
		(6607, 'BLUE', 3, 'SECOND', NULL, NULL),
		(6607, 'RED', 1, 'SECOND', 1, 10),
		(6611, 'BLUE', 1, 'SECOND', 1, 20)`,
}

// SeedSampleNetwork はテスト・デモ用の路線網を登録する
// 既存データは TruncateAll で消してから呼ぶこと
func SeedSampleNetwork(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, "トランザクション開始に失敗")
	}
	defer tx.Rollback()

	for i, stmt := range sampleNetwork {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("サンプルデータ登録に失敗 (%d): %w", i, err)
		}
	}
	return classify(tx.Commit(), "コミットに失敗")
}

// TruncateAll は全テーブルを空にする
func TruncateAll(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `TRUNCATE TABLE seat_claims, bookings, cars, train_segment_speeds,
		train_departures, train_segments, trains, travel_classes, period_ranges, periods,
		segments, stations RESTART IDENTITY CASCADE`)
	return classify(err, "テーブルの削除に失敗")
}
