package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const requeueDelay = 2 * time.Second

type analysisJob struct {
	ContractId uuid.UUID     `json:"contract_id"`
	ActorId    uuid.UUID     `json:"actor_id"`
	ActorKind  string        `json:"actor_kind"`
	Origin     entity.Origin `json:"origin"`
	QueuedAt   time.Time     `json:"queued_at"`
}

type IAnalysisJobPublisher interface {
	Enqueue(ctx context.Context, actor entity.Actor, contractId uuid.UUID) error
}

type analysisJobPublisher struct {
	publisher message.Publisher
	topicName string
}

func NewAnalysisJobPublisher(publisher message.Publisher, topicName string) IAnalysisJobPublisher {
	return &analysisJobPublisher{publisher: publisher, topicName: topicName}
}

func (p *analysisJobPublisher) Enqueue(ctx context.Context, actor entity.Actor, contractId uuid.UUID) error {
	payload, err := json.Marshal(analysisJob{
		ContractId: contractId,
		ActorId:    actor.Id,
		ActorKind:  string(actor.Kind),
		Origin:     actor.Origin,
		QueuedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topicName, msg)
}

// analysisConsumer runs one Analyze per queued job. Jobs are independent;
// a failed run is already recorded on the contract, so every job is acked
// except when storage or the lock could not be reached.
type analysisConsumer struct {
	subscriber message.Subscriber
	topicName  string
	analysis   IAnalysisService
	events     EventPublisher
	logger     logger.ILogger
}

// NewAnalysisConsumer builds the job consumer. eventPublisher may be nil;
// when set, every recorded outcome is announced on the bus.
func NewAnalysisConsumer(
	subscriber message.Subscriber,
	topicName string,
	analysisService IAnalysisService,
	eventPublisher EventPublisher,
	log logger.ILogger,
) IConsumerService {
	return &analysisConsumer{
		subscriber: subscriber,
		topicName:  topicName,
		analysis:   analysisService,
		events:     eventPublisher,
		logger:     log,
	}
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

func (c *analysisConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			go c.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (c *analysisConsumer) processMessage(ctx context.Context, msg *message.Message) {
	var job analysisJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		c.logger.Error("ANALYSIS_JOB", "Failed to unmarshal job", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	actor := entity.Actor{Id: job.ActorId, Kind: entity.ActorKind(job.ActorKind), Origin: job.Origin}
	if actor.Kind == "" {
		actor = entity.SystemActor()
	}

	outcome, err := c.analysis.Analyze(ctx, actor, job.ContractId)
	switch {
	case err == nil:
		c.announce(ctx, job.ContractId, entity.AnalysisStatusCompleted, len(outcome.RiskAssessments), "")
		msg.Ack()
	case errors.Is(err, ErrAnalysisUnavailable), errors.Is(err, ErrAnalysisInvalidInput):
		c.announce(ctx, job.ContractId, entity.AnalysisStatusError, 0, err.Error())
		c.logger.Warn("ANALYSIS_JOB", "Analysis job failed", map[string]interface{}{
			"contract_id": job.ContractId.String(),
			"error":       err.Error(),
		})
		msg.Ack()
	case apperror.KindOf(err) != apperror.KindCollaborator:
		// Refused before a run started, e.g. already analyzing.
		c.logger.Warn("ANALYSIS_JOB", "Analysis job finished with error", map[string]interface{}{
			"contract_id": job.ContractId.String(),
			"error":       err.Error(),
		})
		msg.Ack()
	default:
		c.logger.Error("ANALYSIS_JOB", "Analysis job could not run, requeueing", map[string]interface{}{
			"contract_id": job.ContractId.String(),
			"error":       err.Error(),
		})
		// gochannel redelivers immediately.
		time.Sleep(requeueDelay)
		msg.Nack()
	}
}

func (c *analysisConsumer) announce(ctx context.Context, contractId uuid.UUID, status entity.AnalysisStatus, assessments int, cause string) {
	if c.events == nil {
		return
	}
	event := events.BaseEvent{
		Type: events.ContractAnalysisFinished,
		Data: map[string]interface{}{
			"contract_id": contractId.String(),
			"status":      string(status),
			"assessments": assessments,
			"error":       cause,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := c.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("ANALYSIS_JOB", "Failed to publish analysis event", map[string]interface{}{
			"contract_id": contractId.String(),
			"error":       err.Error(),
		})
	}
}
