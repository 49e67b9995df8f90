// Package outbox publishes domain events to Kafka. Events are written to the
// outbox_messages table in the same transaction as the change they
// describe; a Relay later moves them to the broker.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/irsalhamdi/tuition-lms/database"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

type Message struct {
	ID        string     `db:"message_id"`
	Topic     string     `db:"topic"`
	Key       string     `db:"key"`
	Payload   string     `db:"payload"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
	SentAt    *time.Time `db:"sent_at"`
}

// Add stores v as a pending message. Call it with the transaction that
// makes the change v describes.
func Add(ctx context.Context, tx sqlx.ExtContext, topic string, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s message: %w", topic, err)
	}

	msg := Message{
		ID:        validate.GenerateID(),
		Topic:     topic,
		Key:       key,
		Payload:   string(payload),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	const q = `
	INSERT INTO outbox_messages
		(message_id, topic, key, payload, status, created_at)
	VALUES
		(:message_id, :topic, :key, :payload, :status, :created_at)`

	if err := database.NamedExecContext(ctx, tx, q, msg); err != nil {
		return fmt.Errorf("inserting outbox message: %w", err)
	}
	return nil
}

// Pending locks up to limit unsent messages, oldest first. Rows locked by
// another relay are skipped.
func Pending(ctx context.Context, tx sqlx.ExtContext, limit int) ([]Message, error) {
	in := struct {
		Status string `db:"status"`
		Limit  int    `db:"limit"`
	}{StatusPending, limit}

	const q = `
	SELECT *
	FROM outbox_messages
	WHERE status = :status
	ORDER BY created_at
	LIMIT :limit
	FOR UPDATE SKIP LOCKED`

	var msgs []Message
	if err := database.NamedQuerySlice(ctx, tx, q, in, &msgs); err != nil {
		return nil, fmt.Errorf("selecting pending messages: %w", err)
	}
	return msgs, nil
}

func MarkSent(ctx context.Context, tx sqlx.ExtContext, id string, now time.Time) error {
	in := struct {
		ID     string    `db:"message_id"`
		Status string    `db:"status"`
		SentAt time.Time `db:"sent_at"`
	}{id, StatusSent, now}

	const q = `
	UPDATE outbox_messages SET
		status = :status,
		sent_at = :sent_at
	WHERE message_id = :message_id`

	if err := database.NamedExecContext(ctx, tx, q, in); err != nil {
		return fmt.Errorf("marking message[%s] sent: %w", id, err)
	}
	return nil
}
