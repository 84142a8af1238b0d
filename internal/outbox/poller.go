package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic    = "storefront-orders"
	defaultBatch    = 100
	defaultInterval = time.Second
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Store is the outbox side of the poller.
type Store interface {
	Unprocessed(ctx context.Context, limit int) ([]Event, error)
	MarkProcessed(ctx context.Context, id string) error
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

type Poller struct {
	store    Store
	writer   MessageWriter
	interval time.Duration
	batch    int
}

func NewPoller(store Store, writer MessageWriter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{store: store, writer: writer, interval: interval, batch: defaultBatch}
}

// Run publishes pending events every interval until ctx is done, then closes
// the writer.
func (p *Poller) Run(ctx context.Context) {
	const op = "Poller.Run"
	log := slog.With("op", op)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer func() {
		if err := p.writer.Close(); err != nil {
			log.Warn("failed to close kafka writer", "error", err)
		}
	}()

	for {
		select {
		case <-ticker.C:
			p.ProcessOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ProcessOnce publishes one batch and returns how many events were marked
// processed. An event that fails to publish stays pending for the next tick.
func (p *Poller) ProcessOnce(ctx context.Context) int {
	const op = "Poller.ProcessOnce"
	log := slog.With("op", op)

	events, err := p.store.Unprocessed(ctx, p.batch)
	if err != nil {
		log.ErrorContext(ctx, "failed to fetch events", "error", err)
		return 0
	}

	done := 0
	for _, e := range events {
		if err := p.writer.WriteMessages(ctx, message(e)); err != nil {
			log.ErrorContext(ctx, "failed to publish event", "event_id", e.ID, "error", err)
			continue
		}
		if err := p.store.MarkProcessed(ctx, e.ID); err != nil {
			log.ErrorContext(ctx, "failed to mark event processed", "event_id", e.ID, "error", err)
			continue
		}
		done++
	}
	return done
}

func message(e Event) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
		Time: e.CreatedAt,
	}
}
