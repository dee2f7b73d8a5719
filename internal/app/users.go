package app

import (
	"context"
	"strings"
	"time"

	"quiz-room-service/internal/domain"

	"github.com/google/uuid"
)

// NewUser is the registration input.
type NewUser struct {
	Name   string `json:"name" validate:"required,max=100"`
	Email  string `json:"email" validate:"omitempty,email,max=255"`
	Avatar string `json:"avatar" validate:"max=32"`
}

// UserService registers and looks up players.
type UserService struct {
	users UserStore
	now   func() time.Time
}

func NewUserService(users UserStore, now func() time.Time) *UserService {
	return &UserService{users: users, now: now}
}

// Register creates a user. Users are immutable afterwards.
func (s *UserService) Register(ctx context.Context, in NewUser) (domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return domain.User{}, err
	}
	avatar := in.Avatar
	if avatar == "" {
		avatar = domain.DefaultAvatar
	}
	return s.users.CreateUser(ctx, domain.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     strings.TrimSpace(in.Email),
		Avatar:    avatar,
		CreatedAt: s.now().UTC(),
	})
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.GetUser(ctx, id)
}
