package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/period"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/train"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/transaction"
)

type segmentRow struct {
	Rank      int     `db:"rank"`
	Departure string  `db:"departure_station"`
	Arrival   string  `db:"arrival_station"`
	LengthKm  float64 `db:"length_km"`
	SpeedKmh  float64 `db:"speed_kmh"`
}

func (r *segmentRow) toEntity() train.Segment {
	return train.Segment{
		Rank: r.Rank, Departure: r.Departure, Arrival: r.Arrival,
		LengthKm: r.LengthKm, SpeedKmh: r.SpeedKmh,
	}
}

// 物理区間は向きを持たないため両方向で結合する
const segmentLengthJoin = `JOIN segments s ON (s.departure_station = ts.departure_station AND s.arrival_station = ts.arrival_station)
	OR (s.departure_station = ts.arrival_station AND s.arrival_station = ts.departure_station)`

type TrainRepository struct{ db *sqlx.DB }

func NewTrainRepository(db *sqlx.DB) *TrainRepository { return &TrainRepository{db: db} }

func (r *TrainRepository) GetRoute(ctx context.Context, tx transaction.Tx, trainNumber int, p period.Period) (*train.Route, error) {
	q := pick(r.db, tx)

	var seconds int
	err := q.GetContext(ctx, &seconds,
		`SELECT EXTRACT(EPOCH FROM departure_time)::int FROM train_departures WHERE train_number = $1 AND period = $2`,
		trainNumber, p.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, train.ErrTrainNotRunning
		}
		return nil, classify(err, "発車時刻の取得に失敗")
	}

	query := `SELECT ts.rank, ts.departure_station, ts.arrival_station, s.length_km, sp.speed_kmh
		FROM train_segments ts
		JOIN train_segment_speeds sp ON sp.train_number = ts.train_number AND sp.rank = ts.rank AND sp.period = $2
		` + segmentLengthJoin + `
		WHERE ts.train_number = $1
		ORDER BY ts.rank`
	var rows []segmentRow
	if err := q.SelectContext(ctx, &rows, query, trainNumber, p.String()); err != nil {
		return nil, classify(err, "経路の取得に失敗")
	}

	route := &train.Route{
		Train:         trainNumber,
		Period:        p,
		DepartureTime: time.Duration(seconds) * time.Second,
		Segments:      toSegments(rows),
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return route, nil
}

func (r *TrainRepository) GetSegments(ctx context.Context, tx transaction.Tx, trainNumber int) (*train.Route, error) {
	query := `SELECT ts.rank, ts.departure_station, ts.arrival_station, s.length_km, 0 AS speed_kmh
		FROM train_segments ts
		` + segmentLengthJoin + `
		WHERE ts.train_number = $1
		ORDER BY ts.rank`
	var rows []segmentRow
	if err := pick(r.db, tx).SelectContext(ctx, &rows, query, trainNumber); err != nil {
		return nil, classify(err, "経路の取得に失敗")
	}
	if len(rows) == 0 {
		return nil, train.ErrRouteNotServed
	}
	route := &train.Route{Train: trainNumber, Segments: toSegments(rows)}
	if err := route.Validate(); err != nil {
		return nil, err
	}
	return route, nil
}

func (r *TrainRepository) MatchTrains(ctx context.Context, tx transaction.Tx, dep, arr string, p *period.Period) ([]int, error) {
	query := `SELECT DISTINCT d.train_number
		FROM train_segments d
		JOIN train_segments a ON a.train_number = d.train_number AND d.rank <= a.rank
		WHERE d.departure_station = $1 AND a.arrival_station = $2`
	args := []interface{}{dep, arr}
	if p != nil {
		query += ` AND EXISTS (SELECT 1 FROM train_departures td WHERE td.train_number = d.train_number AND td.period = $3)`
		args = append(args, p.String())
	}
	query += ` ORDER BY d.train_number`

	trains := []int{}
	if err := pick(r.db, tx).SelectContext(ctx, &trains, query, args...); err != nil {
		return nil, classify(err, "列車の検索に失敗")
	}
	return trains, nil
}

func toSegments(rows []segmentRow) []train.Segment {
	segments := make([]train.Segment, len(rows))
	for i := range rows {
		segments[i] = rows[i].toEntity()
	}
	return segments
}

var _ train.Repository = (*TrainRepository)(nil)
