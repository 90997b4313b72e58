package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dashboard/models"
)

// ConversationStore は会話集約のリポジトリ。見つからない場合は
// エラーではなくnil/falseを返す（「何も起きなかった」扱い）。
type ConversationStore interface {
	FindAll(ctx context.Context) ([]*models.Conversation, error)
	FindByUserID(ctx context.Context, userID string) (*models.Conversation, error)
	CreateOrUpdate(ctx context.Context, userID string, conv *models.Conversation) (*models.Conversation, error)
	SetOnHold(ctx context.Context, userID string, onHold bool) (bool, error)
	AddMessage(ctx context.Context, userID string, msg models.Message) (*models.Conversation, error)
	MarkAsRead(ctx context.Context, userID string) error
}

const conversationsTable = "Conversations"

// DynamoConversationStore はDynamoDBに集約を1ユーザー1アイテムで保存します
type DynamoConversationStore struct {
	db *dynamodb.Client
}

// NewDynamoConversationStore はクライアントを生成しテーブルを用意します。
// endpointが空でなければローカルのDynamoDBに接続する。
func NewDynamoConversationStore(ctx context.Context, endpoint string) (*DynamoConversationStore, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion("us-east-1"),
	}
	if endpoint != "" {
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts,
			config.WithEndpointResolverWithOptions(customResolver),
			config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
				Value: aws.Credentials{
					AccessKeyID: "dummy", SecretAccessKey: "dummy", SessionToken: "dummy",
				},
			}),
		)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %v", err)
	}

	s := &DynamoConversationStore{db: dynamodb.NewFromConfig(cfg)}
	s.ensureTableExists(ctx)
	return s, nil
}

func (s *DynamoConversationStore) ensureTableExists(ctx context.Context) {
	_, err := s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(conversationsTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("UserID"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("UserID"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		fmt.Printf("Table might already exist: %v\n", err)
	}
}

func (s *DynamoConversationStore) FindAll(ctx context.Context) ([]*models.Conversation, error) {
	result, err := s.db.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(conversationsTable),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversations: %v", err)
	}

	conversations := make([]*models.Conversation, 0, len(result.Items))
	for _, item := range result.Items {
		conv, err := itemToConversation(item)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (s *DynamoConversationStore) FindByUserID(ctx context.Context, userID string) (*models.Conversation, error) {
	result, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(conversationsTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %v", err)
	}
	if result.Item == nil {
		return nil, nil
	}
	return itemToConversation(result.Item)
}

func (s *DynamoConversationStore) CreateOrUpdate(ctx context.Context, userID string, conv *models.Conversation) (*models.Conversation, error) {
	messagesJSON, err := json.Marshal(conv.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal messages: %v", err)
	}

	item := map[string]types.AttributeValue{
		"UserID":        &types.AttributeValueMemberS{Value: userID},
		"UserName":      &types.AttributeValueMemberS{Value: conv.UserName},
		"Messages":      &types.AttributeValueMemberS{Value: string(messagesJSON)},
		"LastMessage":   &types.AttributeValueMemberS{Value: conv.LastMessage},
		"LastTimestamp": &types.AttributeValueMemberS{Value: conv.LastTimestamp},
		"Unread":        &types.AttributeValueMemberN{Value: strconv.Itoa(conv.Unread)},
		"OnHold":        &types.AttributeValueMemberBOOL{Value: conv.OnHold},
	}
	if conv.LabelID != nil {
		item["LabelID"] = &types.AttributeValueMemberS{Value: *conv.LabelID}
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(conversationsTable),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put conversation: %v", err)
	}
	return conv, nil
}

func (s *DynamoConversationStore) SetOnHold(ctx context.Context, userID string, onHold bool) (bool, error) {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(conversationsTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:    aws.String("SET OnHold = :onHold"),
		ConditionExpression: aws.String("attribute_exists(UserID)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":onHold": &types.AttributeValueMemberBOOL{Value: onHold},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to set on-hold flag: %v", err)
	}
	return true, nil
}

// AddMessage は集約を読み出してメッセージを追記し、プレビューを
// 更新して保存します。会話がなければ何もしない（nil, nil）。
func (s *DynamoConversationStore) AddMessage(ctx context.Context, userID string, msg models.Message) (*models.Conversation, error) {
	conv, err := s.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}

	conv.Messages = append(conv.Messages, msg)
	conv.LastMessage = msg.Preview()
	conv.LastTimestamp = msg.Timestamp
	return s.CreateOrUpdate(ctx, userID, conv)
}

func (s *DynamoConversationStore) MarkAsRead(ctx context.Context, userID string) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(conversationsTable),
		Key: map[string]types.AttributeValue{
			"UserID": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression:    aws.String("SET Unread = :zero"),
		ConditionExpression: aws.String("attribute_exists(UserID)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("failed to mark conversation as read: %v", err)
	}
	return nil
}

func itemToConversation(item map[string]types.AttributeValue) (*models.Conversation, error) {
	conv := &models.Conversation{Messages: []models.Message{}}

	if v, ok := item["UserID"].(*types.AttributeValueMemberS); ok {
		conv.UserID = v.Value
	}
	if v, ok := item["UserName"].(*types.AttributeValueMemberS); ok {
		conv.UserName = v.Value
	}
	if v, ok := item["LastMessage"].(*types.AttributeValueMemberS); ok {
		conv.LastMessage = v.Value
	}
	if v, ok := item["LastTimestamp"].(*types.AttributeValueMemberS); ok {
		conv.LastTimestamp = v.Value
	}
	if v, ok := item["Unread"].(*types.AttributeValueMemberN); ok {
		unread, _ := strconv.Atoi(v.Value)
		conv.Unread = unread
	}
	if v, ok := item["OnHold"].(*types.AttributeValueMemberBOOL); ok {
		conv.OnHold = v.Value
	}
	if v, ok := item["LabelID"].(*types.AttributeValueMemberS); ok {
		id := v.Value
		conv.LabelID = &id
	}
	if v, ok := item["Messages"].(*types.AttributeValueMemberS); ok && v.Value != "" {
		if err := json.Unmarshal([]byte(v.Value), &conv.Messages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal messages for %s: %v", conv.UserID, err)
		}
	}
	return conv, nil
}
