package queue

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestHandleMessageWritesAuditLine(t *testing.T) {
	start := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	ev := ImportedEvent{
		BatchID:    "6f1c2d9e-0000-4000-8000-000000000001",
		Source:     "data/netflix_titles.csv",
		Total:      9,
		Inserted:   7,
		Skipped:    2,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := handleMessage(body, &buf); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	line := buf.String()
	for _, want := range []string{
		"[2024-03-01T10:00:01Z] Catalog imported",
		"batch_id=6f1c2d9e-0000-4000-8000-000000000001",
		`source="data/netflix_titles.csv"`,
		"inserted=7",
		"skipped=2",
		"took=1.5s",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("line %q missing %q", line, want)
		}
	}
	if strings.Count(line, "\n") != 1 || !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected exactly one line, got %q", line)
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	var buf bytes.Buffer
	if err := handleMessage([]byte("not json"), &buf); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := handleMessage([]byte(`{"total":1}`), &buf); err == nil {
		t.Fatal("expected error for missing batch id")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", buf.String())
	}
}

func TestNewPublisherDefaults(t *testing.T) {
	p := NewPublisher("")
	if p.URL != DefaultURL || p.Queue != ImportedQueueName {
		t.Fatalf("unexpected publisher: %+v", p)
	}
}
