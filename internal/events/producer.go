package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/civicdesk/grievance/internal/complaint"
)

// Event names written to the topic.
const (
	ComplaintCreated       = "complaint.created"
	ComplaintStatusUpdated = "complaint.status_updated"
)

// Publisher emits complaint lifecycle events. Implementations must not block the request on failure.
type Publisher interface {
	Publish(ctx context.Context, name string, c complaint.Complaint)
}

// Message is the JSON body of each record.
type Message struct {
	Event       string             `json:"event"`
	ComplaintID uuid.UUID          `json:"complaint_id"`
	CitizenID   uuid.UUID          `json:"citizen_id"`
	Department  string             `json:"department"`
	Severity    complaint.Severity `json:"severity"`
	Status      complaint.Status   `json:"status"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// NewMessage builds the record body for c.
func NewMessage(name string, c complaint.Complaint, at time.Time) Message {
	return Message{
		Event:       name,
		ComplaintID: c.ID,
		CitizenID:   c.CitizenID,
		Department:  c.Department,
		Severity:    c.Severity,
		Status:      c.Status,
		OccurredAt:  at.UTC(),
	}
}

// Producer writes events to Kafka on a best-effort basis.
// With no brokers or topic configured every call is a no-op.
type Producer struct {
	writer *kafka.Writer
	logger zerolog.Logger
	now    func() time.Time
}

// NewProducer creates a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string, logger zerolog.Logger) *Producer {
	p := &Producer{logger: logger, now: time.Now}
	if len(brokers) == 0 || topic == "" {
		return p
	}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  3,
		Async:        true,
		Completion:   p.completed,
	}
	return p
}

// completed runs on the writer's goroutine once a batch settles.
func (p *Producer) completed(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range messages {
		p.logger.Warn().Err(err).Str("complaint_id", string(msg.Key)).Msg("events: write failed")
	}
}

// Enabled reports whether a writer is configured.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// Publish queues the record and returns without waiting for the broker.
// Records are keyed by complaint id so per-complaint ordering holds within a partition.
func (p *Producer) Publish(ctx context.Context, name string, c complaint.Complaint) {
	if p.writer == nil {
		return
	}
	body, err := json.Marshal(NewMessage(name, c, p.now()))
	if err != nil {
		p.logger.Error().Err(err).Str("event", name).Msg("events: marshal failed")
		return
	}
	msg := kafka.Message{Key: []byte(c.ID.String()), Value: body}
	if err := p.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		p.logger.Warn().Err(err).Str("event", name).Str("complaint_id", c.ID.String()).Msg("events: enqueue failed")
	}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
