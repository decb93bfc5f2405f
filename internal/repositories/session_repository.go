package repositories

import (
	"context"
	"errors"
	"time"

	"ovostore/internal/models"
)

// ErrSessionNotFound is returned for unknown or already closed sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists open auth sessions.
type SessionRepository interface {
	Save(ctx context.Context, session models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
