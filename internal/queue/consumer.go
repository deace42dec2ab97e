package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartImportConsumer connects to RabbitMQ, declares the catalog.imported
// queue (durable) and appends one audit line per event to w.  It runs a
// reconnect loop and only returns when ctx is cancelled.  Malformed
// messages are logged and rejected so the consumer keeps running.
func StartImportConsumer(ctx context.Context, url string, w io.Writer) error {
	if url == "" {
		url = DefaultURL
	}

	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("import-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, w)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("import-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, w io.Writer) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("import-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(ImportedQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(ImportedQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, w); err != nil {
				log.Printf("import-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, w io.Writer) error {
	var ev ImportedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BatchID == "" {
		return errors.New("event without batch_id")
	}
	if _, err := io.WriteString(w, FormatImported(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatImported renders ev as a single human-friendly audit line.
func FormatImported(ev ImportedEvent) string {
	return fmt.Sprintf("[%s] Catalog imported | batch_id=%s | source=%q | total=%d | inserted=%d | skipped=%d | took=%s\n",
		ev.FinishedAt.UTC().Format(time.RFC3339), ev.BatchID, ev.Source, ev.Total, ev.Inserted, ev.Skipped,
		ev.FinishedAt.Sub(ev.StartedAt).Round(time.Millisecond))
}
