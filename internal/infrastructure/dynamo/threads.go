package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/devforum/api/internal/domain"
)

// ThreadRepo provides typed DynamoDB operations for the threads table.
type ThreadRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewThreadRepo(client *dynamodb.Client, tableName string) *ThreadRepo {
	return &ThreadRepo{client: client, tableName: tableName}
}

func (r *ThreadRepo) Put(ctx context.Context, t *domain.Thread) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal thread: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ThreadRepo) Get(ctx context.Context, threadID string) (*domain.Thread, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("thread_id", threadID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	var t domain.Thread
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetVotable loads the vote ledger view of a thread.
func (r *ThreadRepo) GetVotable(ctx context.Context, threadID string) (*domain.Votable, error) {
	t, err := r.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return t.Votable(), nil
}

// UpdateVoteState writes the counters, the record map and a bumped version in
// one update, conditional on the version the caller read. A failed condition
// means a concurrent voter won the race; the caller re-reads and retries.
func (r *ThreadRepo) UpdateVoteState(ctx context.Context, threadID string, vs domain.VoteState) error {
	return updateVoteState(ctx, r.client, r.tableName, "thread_id", threadID, vs)
}

// IncrementCommentCount bumps the denormalized comment counter. The counter is
// advisory display data, so it uses an unconditional ADD rather than the vote
// version check.
func (r *ThreadRepo) IncrementCommentCount(ctx context.Context, threadID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("thread_id", threadID),
		UpdateExpression:    aws.String("ADD comment_count :one"),
		ConditionExpression: aws.String("attribute_exists(thread_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}
	return err
}

// ScanPage returns a page of threads. cursor is a base64-encoded thread_id
// used as ExclusiveStartKey. Returns the items, a next cursor (empty when no
// more pages) and any error.
func (r *ThreadRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Thread, string, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if cursor != "" {
		threadID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("thread_id", threadID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var threads []domain.Thread
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &threads); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["thread_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return threads, nextCursor, nil
}

// updateVoteState is shared by the thread and comment repos: the vote ledger
// is identical in shape for both entity kinds.
func updateVoteState(ctx context.Context, client *dynamodb.Client, tableName, keyAttr, keyValue string, vs domain.VoteState) error {
	records := vs.VoteRecords
	if records == nil {
		records = map[string]domain.VoteDirection{}
	}
	recordsAV, err := attributevalue.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal vote records: %w", err)
	}
	_, err = client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key:       strKey(keyAttr, keyValue),
		UpdateExpression: aws.String(
			"SET upvote_count = :up, downvote_count = :down, vote_records = :recs, version = :next"),
		ConditionExpression: aws.String("attribute_exists(" + keyAttr + ") AND version = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":up":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", vs.UpvoteCount)},
			":down":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", vs.DownvoteCount)},
			":recs":     recordsAV,
			":next":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", vs.Version+1)},
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", vs.Version)},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("vote state version %d: %w", vs.Version, domain.ErrConflict)
	}
	return err
}
