package leads

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// dynamoLead is the item layout. Documents whose JSON form carries slot
// semantics are stored as JSON strings.
type dynamoLead struct {
	ID           string           `dynamodbav:"id"`
	SessionID    string           `dynamodbav:"sessionId"`
	CreatedAt    string           `dynamodbav:"createdAt"`
	Language     string           `dynamodbav:"language"`
	Backend      string           `dynamodbav:"backend,omitempty"`
	Summary      string           `dynamodbav:"summary"`
	Score        int              `dynamodbav:"score"`
	Tier         int              `dynamodbav:"tier"`
	Reasons      []string         `dynamodbav:"reasons"`
	Status       string           `dynamodbav:"status"`
	Disqualified string           `dynamodbav:"disqualified,omitempty"`
	Estimate     qualify.Estimate `dynamodbav:"estimate"`
	Fields       string           `dynamodbav:"fields"`
	Transcript   string           `dynamodbav:"transcript"`
}

// DynamoRepository stores leads in a DynamoDB table keyed by id. The store is
// capped, so List scans the table and sorts in memory.
type DynamoRepository struct {
	client    dynamoAPI
	tableName string
	capacity  int
	validator *Validator
	logger    *logging.Logger
}

// NewDynamoRepository builds a store backed by the provided DynamoDB client.
func NewDynamoRepository(client dynamoAPI, tableName string, capacity int, logger *logging.Logger) *DynamoRepository {
	if client == nil {
		panic("leads: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("leads: table name cannot be empty")
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoRepository{
		client:    client,
		tableName: tableName,
		capacity:  capacity,
		validator: NewValidator(),
		logger:    logger,
	}
}

func (r *DynamoRepository) Save(ctx context.Context, rec *LeadRecord) (string, error) {
	if err := r.validator.Validate(rec); err != nil {
		return "", err
	}
	item, err := toDynamo(rec)
	if err != nil {
		return "", err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", fmt.Errorf("leads: failed to marshal lead: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return "", fmt.Errorf("leads: failed to persist lead: %w", err)
	}

	if err := r.trim(ctx); err != nil {
		r.logger.Warn("failed to trim lead table", "table", r.tableName, "error", err)
	}
	return rec.ID, nil
}

func (r *DynamoRepository) List(ctx context.Context, limit int) ([]*LeadRecord, error) {
	all, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *DynamoRepository) Get(ctx context.Context, id string) (*LeadRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            leadKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("leads: failed to load lead: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrLeadNotFound
	}
	var item dynamoLead
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("leads: failed to decode lead: %w", err)
	}
	return fromDynamo(item)
}

func (r *DynamoRepository) Delete(ctx context.Context, id string) (bool, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		Key:          leadKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("leads: failed to delete lead: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

func (r *DynamoRepository) Clear(ctx context.Context) error {
	all, err := r.scan(ctx)
	if err != nil {
		return err
	}
	for _, rec := range all {
		if _, err := r.Delete(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// trim deletes the oldest leads beyond capacity.
func (r *DynamoRepository) trim(ctx context.Context) error {
	all, err := r.scan(ctx)
	if err != nil {
		return err
	}
	if len(all) <= r.capacity {
		return nil
	}
	var errs []error
	for _, rec := range all[r.capacity:] {
		if _, err := r.Delete(ctx, rec.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// scan reads every item, newest first.
func (r *DynamoRepository) scan(ctx context.Context) ([]*LeadRecord, error) {
	var (
		out   []*LeadRecord
		start map[string]types.AttributeValue
	)
	for {
		page, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(r.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("leads: failed to scan leads: %w", err)
		}
		var items []dynamoLead
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("leads: failed to decode leads: %w", err)
		}
		for _, item := range items {
			rec, err := fromDynamo(item)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	slices.SortFunc(out, func(a, b *LeadRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if out == nil {
		out = []*LeadRecord{}
	}
	return out, nil
}

func leadKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func toDynamo(rec *LeadRecord) (dynamoLead, error) {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return dynamoLead{}, fmt.Errorf("leads: encode fields: %w", err)
	}
	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return dynamoLead{}, fmt.Errorf("leads: encode transcript: %w", err)
	}
	return dynamoLead{
		ID:           rec.ID,
		SessionID:    rec.SessionID,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		Language:     string(rec.Language),
		Backend:      rec.Backend,
		Summary:      rec.Summary,
		Score:        rec.Score,
		Tier:         rec.Tier,
		Reasons:      rec.Reasons,
		Status:       string(rec.Status),
		Disqualified: string(rec.Disqualified),
		Estimate:     rec.Estimate,
		Fields:       string(fields),
		Transcript:   string(transcript),
	}, nil
}

func fromDynamo(item dynamoLead) (*LeadRecord, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("leads: decode createdAt of %s: %w", item.ID, err)
	}
	rec := &LeadRecord{
		ID:           item.ID,
		SessionID:    item.SessionID,
		CreatedAt:    createdAt,
		Language:     qualify.Language(item.Language),
		Backend:      item.Backend,
		Summary:      item.Summary,
		Score:        item.Score,
		Tier:         item.Tier,
		Reasons:      item.Reasons,
		Status:       Status(item.Status),
		Disqualified: qualify.DisqualifyReason(item.Disqualified),
		Estimate:     item.Estimate,
	}
	if err := decodeDocuments(rec, nil, []byte(item.Fields), nil, []byte(item.Transcript)); err != nil {
		return nil, err
	}
	return rec, nil
}
