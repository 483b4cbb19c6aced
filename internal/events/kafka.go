package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrBufferFull = errors.New("event buffer full")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer buffers events in memory and writes them from Run, so request
// paths never wait on the broker. Messages are keyed by show id to keep the
// events of one show ordered within a partition.
type KafkaProducer struct {
	w      messageWriter
	inbox  chan kafka.Message
	logger *slog.Logger
}

func NewKafkaProducer(brokers []string, topic string, buf int, logger *slog.Logger) *KafkaProducer {
	return newKafkaProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, logger)
}

func newKafkaProducer(w messageWriter, buf int, logger *slog.Logger) *KafkaProducer {
	if buf <= 0 {
		buf = 1024
	}

	return &KafkaProducer{
		w:      w,
		inbox:  make(chan kafka.Message, buf),
		logger: logger,
	}
}

func (p *KafkaProducer) Publish(_ context.Context, env Envelope) error {
	const op = "events.KafkaProducer.Publish"

	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(env.ShowID, 10)),
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(env.Type)},
		},
	}

	select {
	case p.inbox <- msg:
		return nil
	default:
		return fmt.Errorf("%s:%w", op, ErrBufferFull)
	}
}

// Run writes buffered messages until ctx is done, then flushes what is left
// and closes the writer.
func (p *KafkaProducer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return p.w.Close()
		case m := <-p.inbox:
			p.write(ctx, m)
		}
	}
}

func (p *KafkaProducer) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case m := <-p.inbox:
			p.write(ctx, m)
		default:
			return
		}
	}
}

func (p *KafkaProducer) write(ctx context.Context, m kafka.Message) {
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.logger.Error("kafka write failed",
			slog.String("key", string(m.Key)),
			slog.String("err", err.Error()),
		)
	}
}
