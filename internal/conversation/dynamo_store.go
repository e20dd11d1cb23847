package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoSessionAPI interface {
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps one item per user, keyed by userId.
type DynamoStore struct {
	client    dynamoSessionAPI
	tableName string
	now       func() time.Time
}

func NewDynamoStore(client dynamoSessionAPI, tableName string) *DynamoStore {
	if client == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("conversation: table name cannot be empty")
	}
	return &DynamoStore{client: client, tableName: tableName, now: time.Now}
}

func (s *DynamoStore) Find(ctx context.Context, userID string) (UserSession, error) {
	sess, found, err := s.get(ctx, userID)
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	if !found {
		return UserSession{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *DynamoStore) GetOrCreate(ctx context.Context, userID string) (UserSession, error) {
	sess, found, err := s.get(ctx, userID)
	if err != nil {
		return UserSession{}, storeErr("get", userID, err)
	}
	if found {
		return sess, nil
	}

	sess = NewSession(userID)
	sess.UpdatedAt = s.now().UTC()
	item, err := attributevalue.MarshalMap(sess)
	if err != nil {
		return UserSession{}, storeErr("create", userID, fmt.Errorf("marshal: %w", err))
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(userId)"),
	})
	var conflict *types.ConditionalCheckFailedException
	switch {
	case err == nil:
		return sess, nil
	case errors.As(err, &conflict):
		existing, found, getErr := s.get(ctx, userID)
		if getErr != nil {
			return UserSession{}, storeErr("get", userID, getErr)
		}
		if !found {
			return UserSession{}, storeErr("get", userID, errors.New("session vanished after create"))
		}
		return existing, nil
	default:
		return UserSession{}, storeErr("create", userID, err)
	}
}

func (s *DynamoStore) Update(ctx context.Context, session UserSession) error {
	session.UpdatedAt = s.now().UTC()
	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return storeErr("update", session.UserID, fmt.Errorf("marshal: %w", err))
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return storeErr("update", session.UserID, err)
}

func (s *DynamoStore) get(ctx context.Context, userID string) (UserSession, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            map[string]types.AttributeValue{"userId": &types.AttributeValueMemberS{Value: userID}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return UserSession{}, false, err
	}
	if len(out.Item) == 0 {
		return UserSession{}, false, nil
	}
	var sess UserSession
	if err := attributevalue.UnmarshalMap(out.Item, &sess); err != nil {
		return UserSession{}, false, fmt.Errorf("unmarshal: %w", err)
	}
	return sess, true, nil
}
