package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/tuition-lms/config"
	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewWriter builds a writer for the configured brokers. Messages carry their
// own topic.
func NewWriter(cfg config.Kafka, log logrus.FieldLogger) *kafka.Writer {
	l := log.WithField("component", "kafka")

	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafka.LoggerFunc(l.Debugf),
		ErrorLogger:  kafka.LoggerFunc(l.Errorf),
	}
}

type Relay struct {
	db       *sqlx.DB
	w        Writer
	log      logrus.FieldLogger
	interval time.Duration
	batch    int
}

func NewRelay(db *sqlx.DB, w Writer, log logrus.FieldLogger, cfg config.Kafka) *Relay {
	return &Relay{
		db:       db,
		w:        w,
		log:      log.WithField("component", "outbox"),
		interval: cfg.PollInterval,
		batch:    cfg.BatchSize,
	}
}

// Run flushes the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			n, err := r.Flush(ctx)
			if err != nil {
				r.log.WithError(err).Error("flushing outbox")
				continue
			}
			if n > 0 {
				r.log.WithField("count", n).Info("published outbox messages")
			}
		}
	}
}

// Flush publishes one batch of pending messages and reports how many were
// sent. Nothing is marked sent unless the broker accepted the whole batch.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	var sent int

	err := database.Transaction(r.db, func(tx sqlx.ExtContext) error {
		msgs, err := Pending(ctx, tx, r.batch)
		if err != nil {
			return err
		}
		if len(msgs) == 0 {
			return nil
		}

		kms := make([]kafka.Message, 0, len(msgs))
		for _, m := range msgs {
			kms = append(kms, kafka.Message{
				Topic: m.Topic,
				Key:   []byte(m.Key),
				Value: []byte(m.Payload),
				Headers: []kafka.Header{
					{Key: "message_id", Value: []byte(m.ID)},
				},
			})
		}

		if err := r.w.WriteMessages(ctx, kms...); err != nil {
			return fmt.Errorf("writing %d messages: %w", len(kms), err)
		}

		now := time.Now().UTC()
		for _, m := range msgs {
			if err := MarkSent(ctx, tx, m.ID, now); err != nil {
				return err
			}
		}

		sent = len(msgs)
		return nil
	})

	if err != nil {
		return 0, err
	}
	return sent, nil
}
