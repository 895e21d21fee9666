package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-notify-realtime/internal/domain"
	"github.com/go-notify-realtime/internal/pkg/id"
	"github.com/go-notify-realtime/internal/pkg/validate"
)

// ErrInvalidCredentials is returned by Login for an unknown email and for a
// wrong password alike.
var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)

// UserStore is the persistence the service needs.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenSigner issues the bearer token that the REST API and the real-time
// handshake both accept.
type TokenSigner interface {
	Sign(userID, email string) (string, error)
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type Result struct {
	User  *domain.User
	Token string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Result, error)
	Login(ctx context.Context, in LoginInput) (*Result, error)
}

type ServiceDeps struct {
	Users  UserStore
	Signer TokenSigner
	Clock  clockwork.Clock
	Logger *slog.Logger
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type service struct {
	users  UserStore
	signer TokenSigner
	clock  clockwork.Clock
	logger *slog.Logger
	cost   int
	// dummyHash is compared against when the email is unknown so both
	// login failures take the same time.
	dummyHash []byte
}

func NewService(deps ServiceDeps) (Service, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.BcryptCost == 0 {
		deps.BcryptCost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), deps.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", deps.BcryptCost, err)
	}
	return &service{
		users:     deps.Users,
		signer:    deps.Signer,
		clock:     deps.Clock,
		logger:    deps.Logger.With("component", "auth_service"),
		cost:      deps.BcryptCost,
		dummyHash: dummy,
	}, nil
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	u := &domain.User{
		UserID:       id.NewAt(now),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.signer.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", u.UserID)
	return &Result{User: u, Token: token}, nil
}

func (s *service) Login(ctx context.Context, in LoginInput) (*Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signer.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, err
	}
	return &Result{User: u, Token: token}, nil
}
