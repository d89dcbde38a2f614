package events

import (
	"context"
	"errors"
	"fmt"

	"Aethena/backend/go/internal/models"
	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// DefaultMaxAttempts bounds how often a transient failure is retried.
const DefaultMaxAttempts = 3

// MessageReader is satisfied by *kafka.Reader in consumer-group mode.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// JobProcessor drives a pending job to a terminal state.
type JobProcessor interface {
	Process(ctx context.Context, job *schema.IngestionJob) (*schema.FileResult, error)
}

// IngestConsumer runs ingest requests from Kafka. Transient failures are
// re-enqueued until MaxAttempts; everything else goes to the dead letter topic.
type IngestConsumer struct {
	reader      MessageReader
	publisher   *IngestPublisher
	processor   JobProcessor
	tracker     interfaces.JobTracker
	maxAttempts int
	logger      *logger.Logger
}

// NewIngestConsumer creates a new IngestConsumer. tracker may be nil.
func NewIngestConsumer(reader MessageReader, publisher *IngestPublisher, processor JobProcessor, tracker interfaces.JobTracker, maxAttempts int, logger *logger.Logger) *IngestConsumer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &IngestConsumer{
		reader:      reader,
		publisher:   publisher,
		processor:   processor,
		tracker:     tracker,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run consumes until ctx is cancelled. Offsets are committed only after a
// message has been handled, so a crash mid-job causes redelivery.
func (c *IngestConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping ingest consumer...")
				return nil
			}
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
			return fmt.Errorf("fetch message: %w", err)
		}

		c.Handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).Error("Failed to commit Kafka message")
		}
	}
}

// Handle processes one message. It never returns an error; every outcome is
// either a terminal job state, a retry message or a dead letter.
func (c *IngestConsumer) Handle(ctx context.Context, msg kafka.Message) {
	req, err := decodeRequest(msg.Value)
	if err != nil {
		c.deadLetter(ctx, DeadLetter{Request: req, Raw: string(msg.Value), Error: err.Error(), ErrorCode: schema.Code(err)})
		return
	}
	log := c.logger.WithTrace(req.TraceID, req.TenantID).WithField("job_id", req.JobID)

	if c.alreadyDone(ctx, req.JobID) {
		log.Info("job already finished, skipping redelivered message")
		return
	}

	res, err := c.processor.Process(ctx, req.Job())
	if err == nil {
		log.Info(fmt.Sprintf("job finished with %d units", res.UnitsIndexed))
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	if schema.IsTransient(err) && req.Attempt+1 < c.maxAttempts {
		retry := req
		retry.Attempt++
		c.saveJob(ctx, retry.Job())
		if perr := c.publisher.Publish(ctx, retry); perr == nil {
			log.Warn(fmt.Sprintf("transient failure, re-enqueued attempt %d: %v", retry.Attempt+1, err))
			return
		}
	}
	c.deadLetter(ctx, DeadLetter{Request: req, Error: err.Error(), ErrorCode: schema.Code(err)})
}

func (c *IngestConsumer) alreadyDone(ctx context.Context, jobID string) bool {
	if c.tracker == nil {
		return false
	}
	job, err := c.tracker.Get(ctx, jobID)
	return err == nil && job.Status.Terminal()
}

func (c *IngestConsumer) saveJob(ctx context.Context, job *schema.IngestionJob) {
	if c.tracker == nil {
		return
	}
	if err := c.tracker.Save(ctx, job); err != nil {
		c.logger.Warn(fmt.Sprintf("failed to reset job %s: %v", job.ID, err))
	}
}

func (c *IngestConsumer) deadLetter(ctx context.Context, dl DeadLetter) {
	if err := c.publisher.PublishDeadLetter(ctx, dl); err != nil {
		c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to write dead letter")
	}
}
