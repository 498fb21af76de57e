package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"parkly/pkg/kafka"
)

// Metrics counts messages flowing through a producer or consumer.
type Metrics struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	publishDuration atomic.Int64

	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	consumeDuration atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

type Snapshot struct {
	Published        int64   `json:"published"`
	PublishFailed    int64   `json:"publish_failed"`
	AvgPublishMillis float64 `json:"avg_publish_ms"`
	Consumed         int64   `json:"consumed"`
	ConsumeFailed    int64   `json:"consume_failed"`
	AvgConsumeMillis float64 `json:"avg_consume_ms"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Published:        m.published.Load(),
		PublishFailed:    m.publishFailed.Load(),
		AvgPublishMillis: avgMillis(m.publishDuration.Load(), m.published.Load()+m.publishFailed.Load()),
		Consumed:         m.consumed.Load(),
		ConsumeFailed:    m.consumeFailed.Load(),
		AvgConsumeMillis: avgMillis(m.consumeDuration.Load(), m.consumed.Load()+m.consumeFailed.Load()),
	}
}

func avgMillis(totalNanos, count int64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}

func (m *Metrics) Producer() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.publishFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

func (m *Metrics) Consumer() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.consumeFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}
