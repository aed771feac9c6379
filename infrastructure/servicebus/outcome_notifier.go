package servicebus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"crosspost/domain/model"
	"crosspost/domain/repository"
	"crosspost/infrastructure/logger"
)

// NewServiceBus connects the Azure Service Bus client used for outcome
// notifications.
func NewServiceBus(_ context.Context, namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

// OutcomeNotifier hands publish outcomes to the notification service queue.
// Delivery to end users happens downstream; we only enqueue.
type OutcomeNotifier struct {
	client *azservicebus.Client
	queue  string
}

func NewOutcomeNotifier(client *azservicebus.Client, queue string) repository.INotifier {
	if queue == "" {
		queue = "publish-outcomes"
	}
	return &OutcomeNotifier{client: client, queue: queue}
}

type outcomeMessage struct {
	TaskID     string    `json:"task_id"`
	UserID     string    `json:"user_id"`
	AccountID  string    `json:"account_id"`
	Platform   string    `json:"platform"`
	Status     string    `json:"status"`
	WorkLink   string    `json:"work_link,omitempty"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *OutcomeNotifier) NotifyOutcome(ctx context.Context, task *model.PublishTask) error {
	msg := outcomeMessage{
		TaskID:     task.ID,
		UserID:     task.UserID,
		AccountID:  task.AccountID,
		Platform:   string(task.Platform),
		Status:     string(task.Status),
		OccurredAt: time.Now().UTC(),
	}
	if task.WorkLink != nil {
		msg.WorkLink = *task.WorkLink
	}
	if task.ErrorMsg != nil {
		msg.ErrorMsg = *task.ErrorMsg
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	sender, err := n.client.NewSender(n.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if cerr := sender.Close(context.Background()); cerr != nil {
			logger.GetLogger().WithField("error", cerr).Error("Error while closing sender.")
		}
	}()

	return sender.SendMessage(ctx, &azservicebus.Message{Body: raw}, nil)
}
