package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-notify-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_Create_ConditionalOnEmail(t *testing.T) {
	api := &mockAPI{}
	var captured *dynamodb.PutItemInput
	api.On("PutItem", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*dynamodb.PutItemInput) }).
		Return(&dynamodb.PutItemOutput{}, nil)

	u := &domain.User{UserID: "u1", Email: " Ada@Example.COM ", Name: "Ada", PasswordHash: "h", CreatedAt: time.Now().UTC()}
	require.NoError(t, NewUserRepo(api, "users").Create(context.Background(), u))

	require.NotNil(t, captured)
	assert.Equal(t, "attribute_not_exists(#email)", *captured.ConditionExpression)
	assert.Equal(t, "email", captured.ExpressionAttributeNames["#email"])
	assert.Equal(t, "ada@example.com", captured.Item["email"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "h", captured.Item["password_hash"].(*types.AttributeValueMemberS).Value)
	assert.Equal(t, "ada@example.com", u.Email)
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{})

	err := NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", Email: "a@b.c"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_Create_OtherErrorsPassThrough(t *testing.T) {
	api := &mockAPI{}
	boom := errors.New("throttled")
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, boom)

	err := NewUserRepo(api, "users").Create(context.Background(), &domain.User{UserID: "u1", Email: "a@b.c"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	item, err := attributevalue.MarshalMap(domain.User{UserID: "u1", Email: "ada@example.com", Name: "Ada", PasswordHash: "h"})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return in.Key["email"].(*types.AttributeValueMemberS).Value == "ada@example.com"
	})).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	u, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "h", u.PasswordHash)
}

func TestUserRepo_GetByEmail_NotFound(t *testing.T) {
	api := &mockAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := NewUserRepo(api, "users").GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
