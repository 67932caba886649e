package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Astemirdum/bookish-library/catalog/internal/model"
	cb "github.com/Astemirdum/bookish-library/pkg/circuit_breaker"
	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Type string

const (
	BookAdded    Type = "book.added"
	BookUpdated  Type = "book.updated"
	BookDeleted  Type = "book.deleted"
	BookBorrowed Type = "book.borrowed"
	BookReturned Type = "book.returned"
)

type Event struct {
	Type       Type        `json:"type"`
	BookID     string      `json:"bookId"`
	UserID     string      `json:"userId,omitempty"`
	RecordID   string      `json:"recordId,omitempty"`
	Book       *model.Book `json:"book,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	breaker  cb.CircuitBreaker
	log      *zap.Logger
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, breaker cb.CircuitBreaker, log *zap.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		breaker:  breaker,
		log:      log.Named("events"),
	}
}

// Publish sends the event keyed by book id so one book's events stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.BookID),
		Value: sarama.ByteEncoder(data),
	}
	return p.breaker.Call(func() error {
		partition, offset, err := p.producer.SendMessage(msg)
		if err != nil {
			return errors.Wrap(err, "producer.SendMessage")
		}
		p.log.Debug("event published",
			zap.String("type", string(e.Type)),
			zap.Int32("partition", partition),
			zap.Int64("offset", offset))
		return nil
	})
}

type nopPublisher struct{}

func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
