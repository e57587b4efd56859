package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/civicdesk/grievance/internal/complaint"
)

func TestProducerWithoutBrokersIsNoop(t *testing.T) {
	p := NewProducer(nil, "complaint-events", zerolog.Nop())
	if p.Enabled() {
		t.Fatalf("producer without brokers should be disabled")
	}
	p.Publish(context.Background(), ComplaintCreated, complaint.Complaint{ID: uuid.New()})
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if NewProducer([]string{"localhost:9092"}, "", zerolog.Nop()).Enabled() {
		t.Fatalf("producer without topic should be disabled")
	}
}

func TestMessageShape(t *testing.T) {
	c := complaint.Complaint{
		ID:         uuid.New(),
		CitizenID:  uuid.New(),
		Department: "Water",
		Severity:   complaint.SeverityA,
		Status:     complaint.StatusInProgress,
	}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))

	raw, err := json.Marshal(NewMessage(ComplaintStatusUpdated, c, at))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["event"] != ComplaintStatusUpdated || decoded["status"] != "In-Progress" || decoded["severity"] != "A" {
		t.Fatalf("unexpected message %v", decoded)
	}
	if decoded["occurred_at"] != "2026-03-01T04:30:00Z" {
		t.Fatalf("expected UTC timestamp got %v", decoded["occurred_at"])
	}
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "complaint-events", zerolog.Nop())
	if !p.writer.Async || p.writer.Completion == nil {
		t.Fatalf("writer must be async with a completion callback")
	}

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	p.Publish(ctx, ComplaintCreated, complaint.Complaint{ID: uuid.New()})
	cancel()

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("publish blocked for %s", elapsed)
	}
}

func TestCompletionLogsFailedBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewProducer(nil, "", zerolog.New(&buf))
	id := uuid.New()

	p.completed([]kafka.Message{{Key: []byte(id.String())}}, nil)
	if buf.Len() != 0 {
		t.Fatalf("successful batch should not log: %s", buf.String())
	}

	p.completed([]kafka.Message{{Key: []byte(id.String())}}, errors.New("leader not available"))
	if !strings.Contains(buf.String(), id.String()) || !strings.Contains(buf.String(), "leader not available") {
		t.Fatalf("expected failure log for %s got %s", id, buf.String())
	}
}
