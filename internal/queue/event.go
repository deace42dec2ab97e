// Package queue defines the import events exchanged over the message broker
// together with their publisher and audit consumer.
package queue

import "time"

// ImportedQueueName is the durable queue import events are routed to.
const ImportedQueueName = "catalog.imported"

// ImportedEvent is published after an import run.  It carries enough
// information for downstream consumers to audit the run without querying
// the store.
type ImportedEvent struct {
	BatchID    string    `json:"batch_id"`
	Source     string    `json:"source"`
	Total      int       `json:"total"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
