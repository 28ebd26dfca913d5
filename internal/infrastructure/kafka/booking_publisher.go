package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/booking"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

type seatPayload struct {
	Car    int `json:"car"`
	Number int `json:"number"`
}

type bookingEvent struct {
	EventID          string        `json:"event_id"`
	Type             string        `json:"type"`
	OccurredAt       time.Time     `json:"occurred_at"`
	BookingID        string        `json:"booking_id"`
	CustomerID       string        `json:"customer_id"`
	TrainNumber      int           `json:"train_number,omitempty"`
	DepartureAt      *time.Time    `json:"departure_at,omitempty"`
	DepartureStation string        `json:"departure_station,omitempty"`
	ArrivalStation   string        `json:"arrival_station,omitempty"`
	TravelClass      string        `json:"travel_class,omitempty"`
	PassengerCount   int           `json:"passenger_count,omitempty"`
	TotalPrice       string        `json:"total_price,omitempty"`
	Seats            []seatPayload `json:"seats,omitempty"`
}

// BookingPublisher は予約イベントを Kafka に送信する
type BookingPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewBookingPublisher はブローカーに接続して BookingPublisher を作成する
func NewBookingPublisher(brokers []string, topic string) (*BookingPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("Kafkaプロデューサー作成に失敗: %w", err)
	}
	return NewBookingPublisherWithProducer(p, topic), nil
}

// NewBookingPublisherWithProducer は既存のプロデューサーを使って作成する
func NewBookingPublisherWithProducer(p sarama.SyncProducer, topic string) *BookingPublisher {
	return &BookingPublisher{producer: p, topic: topic}
}

// PublishBooked は予約成立イベントを送信する
func (p *BookingPublisher) PublishBooked(ctx context.Context, b *booking.Booking) error {
	departure := b.DepartureAt
	seats := make([]seatPayload, len(b.Seats))
	for i, s := range b.Seats {
		seats[i] = seatPayload{Car: s.Car, Number: s.Number}
	}
	return p.publish(ctx, bookingEvent{
		Type:             EventBookingCreated,
		BookingID:        b.ID,
		CustomerID:       b.CustomerID,
		TrainNumber:      b.TrainNumber,
		DepartureAt:      &departure,
		DepartureStation: b.DepartureStation,
		ArrivalStation:   b.ArrivalStation,
		TravelClass:      b.Class.String(),
		PassengerCount:   b.PassengerCount,
		TotalPrice:       b.TotalPrice.StringFixed(2),
		Seats:            seats,
	})
}

// PublishCancelled は予約取消イベントを送信する
func (p *BookingPublisher) PublishCancelled(ctx context.Context, bookingID, customerID string) error {
	return p.publish(ctx, bookingEvent{
		Type:       EventBookingCancelled,
		BookingID:  bookingID,
		CustomerID: customerID,
	})
}

func (p *BookingPublisher) publish(ctx context.Context, ev bookingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev.EventID = uuid.New().String()
	ev.OccurredAt = time.Now().UTC()

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗: %w", err)
	}

	// 同じ予約のイベントは同じパーティションに送る
	key := ev.BookingID
	if key == "" {
		key = ev.EventID
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(ev.Type)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("イベント送信に失敗: %w", err)
	}
	return nil
}

// Close はプロデューサーを閉じる
func (p *BookingPublisher) Close() error {
	return p.producer.Close()
}

var _ booking.EventPublisher = (*BookingPublisher)(nil)
