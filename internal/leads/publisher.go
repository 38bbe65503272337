package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// EventTypeLeadCompleted is the type of every published lead event.
const EventTypeLeadCompleted = "lead.completed.v1"

// LeadCompletedEvent is what downstream CRMs receive. The transcript is left
// out; consumers fetch it through the admin API.
type LeadCompletedEvent struct {
	Type       string           `json:"type"`
	LeadID     string           `json:"leadId"`
	SessionID  string           `json:"sessionId"`
	Summary    string           `json:"summary"`
	Score      int              `json:"score"`
	Tier       int              `json:"tier"`
	Status     Status           `json:"status"`
	Fields     qualify.Fields   `json:"fields"`
	Estimate   qualify.Estimate `json:"estimate"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends lead events to an SQS queue.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// NewSQSPublisher creates a publisher around the provided SQS client.
func NewSQSPublisher(client sqsAPI, queueURL string) *SQSPublisher {
	if client == nil {
		panic("leads: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("leads: SQS queueURL cannot be empty")
	}
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, rec *LeadRecord) error {
	body, err := json.Marshal(LeadCompletedEvent{
		Type:       EventTypeLeadCompleted,
		LeadID:     rec.ID,
		SessionID:  rec.SessionID,
		Summary:    rec.Summary,
		Score:      rec.Score,
		Tier:       rec.Tier,
		Status:     rec.Status,
		Fields:     rec.Fields,
		Estimate:   rec.Estimate,
		OccurredAt: rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("leads: marshal event: %w", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"type": {DataType: aws.String("String"), StringValue: aws.String(EventTypeLeadCompleted)},
			"tier": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(rec.Tier))},
		},
	})
	if err != nil {
		return fmt.Errorf("leads: failed to send SQS message: %w", err)
	}
	return nil
}
