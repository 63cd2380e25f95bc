package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/publisher"
	"github.com/fjod/go_quote/internal/repository"
)

// MessageReader is the part of *kafka.Reader the consumer needs. Offsets are
// committed explicitly, after the devis status is stored.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type StatusUpdater interface {
	UpdateDevisStatus(ctx context.Context, number string, status domain.DevisStatus) error
}

// DevisSubmittedEvent is the subset of the outbox payload the back office reads.
type DevisSubmittedEvent struct {
	Number string `json:"devisNumber"`
	Total  int    `json:"total"`
}

// Consumer marks devis as sent once their submitted event has gone through the topic.
type Consumer struct {
	repo       StatusUpdater
	reader     MessageReader
	retryDelay time.Duration
	log        *zap.Logger
}

func NewKafkaReader(brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    publisher.Topic,
		GroupID:  "quote-backoffice",
		MaxBytes: 10e6, // 10MB
	})
}

func NewConsumer(repo StatusUpdater, reader MessageReader, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{repo: repo, reader: reader, retryDelay: time.Second, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.log.Warn("error fetching message", zap.Error(err))
		return
	}

	if !c.handle(ctx, m) {
		return
	}
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.log.Warn("error committing message", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

// handle reports whether the message is done with and its offset may be committed.
// A failing status update is retried until it succeeds or ctx ends.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) bool {
	if et := eventType(m); et != "" && et != repository.EventDevisSubmitted {
		c.log.Debug("skipping event", zap.String("event_type", et))
		return true
	}

	var event DevisSubmittedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn("error parsing message", zap.Int64("offset", m.Offset), zap.Error(err))
		return true
	}
	if event.Number == "" {
		event.Number = string(m.Key)
	}
	if event.Number == "" {
		c.log.Warn("message without devis number", zap.Int64("offset", m.Offset))
		return true
	}

	for {
		err := c.repo.UpdateDevisStatus(ctx, event.Number, domain.DevisStatusSent)
		switch {
		case err == nil:
			c.log.Info("devis dispatched", zap.String("devis_number", event.Number), zap.Int("total", event.Total))
			return true
		case errors.Is(err, repository.ErrInvalidStatusTransition):
			c.log.Debug("devis already dispatched, skipping", zap.String("devis_number", event.Number))
			return true
		case errors.Is(err, repository.ErrDevisNotFound):
			c.log.Warn("devis not found, skipping", zap.String("devis_number", event.Number))
			return true
		}

		c.log.Error("failed to mark devis as sent, retrying",
			zap.String("devis_number", event.Number),
			zap.Duration("retry_in", c.retryDelay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.retryDelay):
		}
	}
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
