package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoSnapshotStore persists ticket snapshots in DynamoDB, for fleets
// of POS devices that share a baseline without running PostgreSQL.
type DynamoSnapshotStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoSnapshot is the DynamoDB item structure
type dynamoSnapshot struct {
	Owner      string         `dynamodbav:"owner"`
	Quantities map[string]int `dynamodbav:"quantities"`
	UpdatedAt  string         `dynamodbav:"updated_at"`
}

func NewDynamoSnapshotStore(client *dynamodb.Client, tableName string) *DynamoSnapshotStore {
	return &DynamoSnapshotStore{client: client, tableName: tableName}
}

func (s *DynamoSnapshotStore) Get(ctx context.Context, owner string) (*TicketSnapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", owner, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item dynamoSnapshot
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for %s: %w", owner, err)
	}

	updatedAt, _ := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	return &TicketSnapshot{
		Owner:      item.Owner,
		Quantities: item.Quantities,
		UpdatedAt:  updatedAt,
	}, nil
}

func (s *DynamoSnapshotStore) Save(ctx context.Context, snapshot *TicketSnapshot) error {
	item := dynamoSnapshot{
		Owner:      snapshot.Owner,
		Quantities: snapshot.Quantities,
		UpdatedAt:  time.Now().Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for %s: %w", snapshot.Owner, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put snapshot for %s: %w", snapshot.Owner, err)
	}
	return nil
}

func (s *DynamoSnapshotStore) Delete(ctx context.Context, owner string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"owner": &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot for %s: %w", owner, err)
	}
	return nil
}
