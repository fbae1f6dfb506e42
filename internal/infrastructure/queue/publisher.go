package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// MessageWriter kafka.Writer 的最小子集
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 将通过校验的机会写入 Kafka topic
// 消息 key 为机会去重键，同一机会落在同一分区
type Publisher struct {
	writer MessageWriter
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 100 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

func (p *Publisher) Publish(ctx context.Context, opps []model.Opportunity) error {
	if p == nil || p.writer == nil || len(opps) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(opps))
	for _, o := range opps {
		payload, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", o.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(o.Key()),
			Value: payload,
			Time:  o.DiscoveredAt,
		})
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// WaitForBroker 启动时等待 broker 可连接
func WaitForBroker(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastErr error
	for {
		conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for broker: %w (last error: %v)", ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}

var _ port.OpportunityPublisher = (*Publisher)(nil)
