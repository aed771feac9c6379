package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// dedupeTTL keeps an enqueue marker long enough to outlive any legitimate
// retry window for the same attempt.
const dedupeTTL = 24 * time.Hour

// PubSubQueue transports job envelopes over Google Pub/Sub topics. Dedupe
// markers live in the shared lock store so two service instances cannot
// enqueue the same attempt twice.
type PubSubQueue struct {
	client       *pubsub.Client
	locks        repository.ILockStore
	publishTopic string
	mediaTopic   string
}

func NewPubSubQueue(client *pubsub.Client, locks repository.ILockStore, publishTopic, mediaTopic string) *PubSubQueue {
	if publishTopic == "" {
		publishTopic = "publish-jobs"
	}
	if mediaTopic == "" {
		mediaTopic = "media-jobs"
	}
	return &PubSubQueue{client: client, locks: locks, publishTopic: publishTopic, mediaTopic: mediaTopic}
}

func dedupeKey(jobID string, attempts int) string {
	return fmt.Sprintf("queue:dedupe:%s:%d", jobID, attempts)
}

func (q *PubSubQueue) publish(ctx context.Context, topicName string, payload []byte) error {
	topic := q.client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", topicName).Info("Topic missing - creating it")
		if _, err := q.client.CreateTopic(ctx, topicName); err != nil {
			return err
		}
	}
	_, err = topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	return err
}

func (q *PubSubQueue) enqueue(ctx context.Context, topicName, jobID string, attempts int, payload any) (bool, error) {
	ok, err := q.locks.Acquire(ctx, dedupeKey(jobID, attempts), dedupeTTL)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	if err := q.publish(ctx, topicName, raw); err != nil {
		// Broker rejected the message: give the marker back so the caller can
		// retry the enqueue.
		_ = q.locks.Release(ctx, dedupeKey(jobID, attempts))
		return false, err
	}
	return true, nil
}

func (q *PubSubQueue) EnqueuePublish(ctx context.Context, job model.PublishJob) (bool, error) {
	return q.enqueue(ctx, q.publishTopic, job.JobID, job.Attempts, job)
}

func (q *PubSubQueue) EnqueueMedia(ctx context.Context, job model.MediaJob) (bool, error) {
	return q.enqueue(ctx, q.mediaTopic, job.JobID, job.Attempts, job)
}

func (q *PubSubQueue) ClearDedupe(ctx context.Context, jobID string) error {
	return q.locks.Release(ctx, dedupeKey(jobID, 0))
}

// Handler processes one raw job payload; a non-nil error nacks the message
// for redelivery.
type Handler func(ctx context.Context, payload []byte) error

// Receive consumes a subscription until ctx is cancelled. The Pub/Sub client
// fans messages out to the worker pool internally.
func (q *PubSubQueue) Receive(ctx context.Context, subID string, maxWorkers int, handler Handler) error {
	sub := q.client.Subscription(subID)
	if maxWorkers > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxWorkers
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handler(ctx, msg.Data); err != nil {
			logger.GetLogger().WithField("error", err).WithField("sub", subID).Warn("Job handler failed; nacking for redelivery")
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// NewPubSub instantiates the Pub/Sub client for the configured project.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}
