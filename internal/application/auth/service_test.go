package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/logging"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, email string) (string, error) {
	args := m.Called(userID, email)
	return args.String(0), args.Error(1)
}

// --- builder ---

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, us *mockUserStore, sg *mockSigner) Service {
	t.Helper()
	svc, err := NewService(ServiceDeps{
		Users:      us,
		Signer:     sg,
		Clock:      clockwork.NewFakeClockAt(fixedNow),
		Logger:     logging.Discard(),
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)
	return svc
}

func storedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{UserID: "u1", Email: "ada@example.com", Name: "Ada", PasswordHash: string(hash)}
}

// --- Register ---

func TestRegister_StoresHashedUserAndIssuesToken(t *testing.T) {
	us := &mockUserStore{}
	sg := &mockSigner{}
	var created *domain.User
	us.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.User) }).
		Return(nil)
	sg.On("Sign", mock.Anything, "ada@example.com").Return("tok", nil)

	res, err := newService(t, us, sg).Register(context.Background(), RegisterInput{
		Email:    "  Ada@Example.com",
		Password: "secret1",
		Name:     " Ada ",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	require.NotNil(t, created)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, "Ada", created.Name)
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.NotEmpty(t, created.UserID)
	assert.NotEqual(t, "secret1", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret1")))
	sg.AssertCalled(t, "Sign", created.UserID, "ada@example.com")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	sg := &mockSigner{}
	us.On("Create", mock.Anything, mock.Anything).Return(domain.ErrConflict)

	_, err := newService(t, us, sg).Register(context.Background(), RegisterInput{
		Email: "ada@example.com", Password: "secret1", Name: "Ada",
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
	sg.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{name: "bad email", in: RegisterInput{Email: "ada", Password: "secret1", Name: "Ada"}},
		{name: "short password", in: RegisterInput{Email: "ada@example.com", Password: "12345", Name: "Ada"}},
		{name: "blank name", in: RegisterInput{Email: "ada@example.com", Password: "secret1", Name: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			us := &mockUserStore{}
			_, err := newService(t, us, &mockSigner{}).Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, domain.ErrBadRequest)
			us.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	us := &mockUserStore{}
	sg := &mockSigner{}
	us.On("GetByEmail", mock.Anything, "ada@example.com").Return(storedUser(t, "secret1"), nil)
	sg.On("Sign", "u1", "ada@example.com").Return("tok", nil)

	res, err := newService(t, us, sg).Login(context.Background(), LoginInput{Email: "ADA@example.com", Password: "secret1"})

	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "u1", res.User.UserID)
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	us := &mockUserStore{}
	sg := &mockSigner{}
	us.On("GetByEmail", mock.Anything, "ada@example.com").Return(storedUser(t, "secret1"), nil)
	us.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)
	svc := newService(t, us, sg)

	_, wrongPw := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "nope"})
	_, unknown := svc.Login(context.Background(), LoginInput{Email: "ghost@example.com", Password: "secret1"})

	assert.ErrorIs(t, wrongPw, domain.ErrUnauthorized)
	assert.ErrorIs(t, unknown, domain.ErrUnauthorized)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
	sg.AssertNotCalled(t, "Sign", mock.Anything, mock.Anything)
}

func TestLogin_StoreErrorPassesThrough(t *testing.T) {
	us := &mockUserStore{}
	boom := errors.New("dynamo down")
	us.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := newService(t, us, &mockSigner{}).Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "x"})

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewService_RejectsBadCost(t *testing.T) {
	_, err := NewService(ServiceDeps{BcryptCost: bcrypt.MaxCost + 1})
	assert.Error(t, err)
}
