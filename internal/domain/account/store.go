package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrRecordNotFound = errors.New("record not found")
	ErrEmailTaken     = errors.New("email already registered")
)

// UserStore persists accounts. Lookups by email are case-sensitive.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Update(ctx context.Context, user *User) error
}

// RecordStore persists saved identifications. Every read and delete is scoped
// to the owning user.
type RecordStore interface {
	Create(ctx context.Context, record *Record) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Record, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Record, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
