package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// IngestPublisher writes ingest requests and dead letters to Kafka.
type IngestPublisher struct {
	writer    MessageWriter
	topic     string
	deadTopic string
	logger    *logger.Logger
}

// NewIngestPublisher creates a new IngestPublisher. The writer must not be
// bound to a topic; each message names its own.
func NewIngestPublisher(writer MessageWriter, topic, deadTopic string, logger *logger.Logger) *IngestPublisher {
	return &IngestPublisher{writer: writer, topic: topic, deadTopic: deadTopic, logger: logger}
}

// Publish enqueues a request. Messages are keyed by tenant so one tenant's
// jobs stay on a single partition.
func (p *IngestPublisher) Publish(ctx context.Context, req IngestRequest) error {
	if err := req.validate(); err != nil {
		return err
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	return p.write(ctx, p.topic, req.TenantID, req)
}

// PublishDeadLetter records an unprocessable request.
func (p *IngestPublisher) PublishDeadLetter(ctx context.Context, dl DeadLetter) error {
	if p.deadTopic == "" {
		p.logger.WithPayload(map[string]interface{}{"job_id": dl.Request.JobID, "error": dl.Error}).Warn("no dead letter topic configured, dropping message")
		return nil
	}
	if dl.FailedAt.IsZero() {
		dl.FailedAt = time.Now().UTC()
	}
	return p.write(ctx, p.deadTopic, dl.Request.TenantID, dl)
}

func (p *IngestPublisher) write(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal message for Kafka")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": topic}).Error("Failed to write message to Kafka")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
