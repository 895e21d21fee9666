package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-notify-realtime/internal/domain"
)

// sortKeyLayout keeps created_at fixed width so lexical order is time order.
// RFC3339Nano trims trailing zeros and would sort "05Z" after "05.1Z".
const sortKeyLayout = "2006-01-02T15:04:05.000000000Z07:00"

// API is the subset of the DynamoDB client used by the repos.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// ListQuery narrows and pages a user's notification history.
type ListQuery struct {
	Limit     int32
	Cursor    string
	Type      domain.NotificationType // empty means any
	IsRead    *bool                   // nil means any
	Ascending bool                    // default newest first
}

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    API
	tableName string
}

func NewNotificationRepo(client API, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	item[fieldCreatedAt] = &types.AttributeValueMemberS{Value: n.CreatedAt.UTC().Format(sortKeyLayout)}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldNotificationID, notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByUser queries the user_id-created_at GSI. It returns one page and the
// cursor for the next one (empty when there are no more pages).
//
// DynamoDB applies Limit before filters, so with a type or read filter it keeps
// querying until the page is full or the index is exhausted. A full page that
// happens to end on the last match still carries a cursor; following it
// yields an empty page with no cursor.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID string, q ListQuery) ([]domain.Notification, string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserCreatedAt),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(q.Ascending),
	}
	applyListFilter(input, q)

	if q.Cursor != "" {
		key, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = key
	}

	notifications := []domain.Notification{}
	for {
		if q.Limit > 0 {
			input.Limit = aws.Int32(q.Limit - int32(len(notifications)))
		}
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, "", err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, "", err
		}
		notifications = append(notifications, page...)

		full := q.Limit > 0 && int32(len(notifications)) >= q.Limit
		if len(out.LastEvaluatedKey) == 0 || full || q.Limit <= 0 {
			next, err := encodeCursor(out.LastEvaluatedKey)
			if err != nil {
				return nil, "", err
			}
			return notifications, next, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// CountUnread counts unread notifications for a user, following every page.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	unread := false
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserCreatedAt),
		KeyConditionExpression: aws.String("#uid = :uid"),
		ExpressionAttributeNames: map[string]string{
			"#uid": fieldUserID,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		Select: types.SelectCount,
	}
	applyListFilter(input, ListQuery{IsRead: &unread})

	total := 0
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, err
		}
		total += int(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// MarkAsRead flips is_read for a notification owned by userID and stamps read_at.
// Returns ErrNotFound when the item does not exist and ErrForbidden when it belongs to someone else.
func (r *NotificationRepo) MarkAsRead(ctx context.Context, notificationID, userID string, readAt time.Time) (*domain.Notification, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldIsRead: true,
		fieldReadAt: readAt,
	})
	if err != nil {
		return nil, err
	}
	ue.Names["#owner"] = fieldUserID
	ue.Values[":owner"] = &types.AttributeValueMemberS{Value: userID}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldNotificationID, notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#owner = :owner"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Either missing or owned by another user; tell them apart.
			if _, getErr := r.Get(ctx, notificationID); getErr != nil {
				return nil, getErr
			}
			return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrForbidden)
		}
		return nil, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// applyListFilter adds the optional type / read-state filters to a query.
func applyListFilter(input *dynamodb.QueryInput, q ListQuery) {
	var clauses []string
	if q.Type != "" {
		input.ExpressionAttributeNames["#type"] = fieldType
		input.ExpressionAttributeValues[":type"] = &types.AttributeValueMemberS{Value: string(q.Type)}
		clauses = append(clauses, "#type = :type")
	}
	if q.IsRead != nil {
		input.ExpressionAttributeNames["#read"] = fieldIsRead
		input.ExpressionAttributeValues[":read"] = &types.AttributeValueMemberBOOL{Value: *q.IsRead}
		clauses = append(clauses, "#read = :read")
	}
	if len(clauses) > 0 {
		input.FilterExpression = aws.String(strings.Join(clauses, " AND "))
	}
}
