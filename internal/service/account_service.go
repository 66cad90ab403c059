package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"wastevision-service/internal/auth"
	"wastevision-service/internal/domain/account"
)

const defaultRole = "user"

type TokenIssuer interface {
	Issue(claims map[string]any, ttl time.Duration) (string, error)
}

type AccountService struct {
	users    account.UserStore
	tokens   TokenIssuer
	loginTTL time.Duration
	log      zerolog.Logger
}

func NewAccountService(users account.UserStore, tokens TokenIssuer, loginTTL time.Duration, log zerolog.Logger) *AccountService {
	return &AccountService{
		users:    users,
		tokens:   tokens,
		loginTTL: loginTTL,
		log:      log,
	}
}

func (s *AccountService) Register(ctx context.Context, payload account.RegisterPayload) (*account.User, error) {
	name := strings.TrimSpace(payload.Name)
	email := strings.TrimSpace(payload.Email)
	if name == "" || email == "" || payload.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &account.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         defaultRole,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, account.ErrEmailTaken) {
			return nil, fmt.Errorf("%w: user with this email already exists", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

// Login checks credentials and returns a signed token for the user.
func (s *AccountService) Login(ctx context.Context, payload account.LoginPayload) (string, *account.User, error) {
	if payload.Email == "" || payload.Password == "" {
		return "", nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(payload.Email))
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			return "", nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		s.log.Warn().Str("user_id", user.ID.String()).Msg("login with wrong password")
		return "", nil, auth.ErrUnauthorized
	}

	token, err := s.tokens.Issue(map[string]any{
		"sub": user.Email,
		"id":  user.ID.String(),
	}, s.loginTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return token, user, nil
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*account.User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", ErrInvalidInput)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the display name and, when NewPassword is set, the
// password. A password change requires the current password.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, update account.ProfileUpdate) (*account.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(update.Name); name != "" {
		user.Name = name
	}

	if update.NewPassword != "" {
		if update.CurrentPassword == "" {
			return nil, fmt.Errorf("%w: current password is required to update password", ErrInvalidInput)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(update.CurrentPassword)); err != nil {
			return nil, fmt.Errorf("%w: current password is incorrect", ErrInvalidInput)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(update.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID.String()).Msg("profile updated")
	return user, nil
}
