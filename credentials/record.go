package credentials

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrCorrupt        = errors.New("account record corrupt")
	ErrUnavailable    = errors.New("credential store unavailable")
)

// Record is a registered account.
type Record struct {
	ID           string
	Name         []string
	Email        string
	PasswordHash string
	JoinedAt     time.Time
}

// Store is the persistence contract the engine depends on.
type Store interface {
	FindByEmail(ctx context.Context, email string) (Record, error)
	Insert(ctx context.Context, rec Record) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	List(ctx context.Context) ([]Record, error)
}
