// Package repository defines the storage contract for per-session user
// records. Implementations live in the sqlite, redis and memory subpackages.
package repository

import (
	"context"

	"github.com/sakif/wellness-tracker/internal/model"
)

// SessionRepository stores one UserRecord per session id.
//
// There is no locking across Load and Save: two requests for the same session
// that interleave their read-modify-write cycles lose one update (last writer
// wins). Sessions are never shared between browsers, so this only bites a
// single user double-clicking.
type SessionRepository interface {
	// Load returns the record for id, or an error wrapping
	// apperror.ErrNotFound when there is none (or it has expired).
	Load(ctx context.Context, id string) (*model.UserRecord, error)
	// Save replaces the record for id and refreshes its expiry.
	Save(ctx context.Context, id string, rec *model.UserRecord) error
	// Delete removes the record for id. Deleting a missing id is not an error.
	// No request path calls it, since sessions only end by expiring; it is
	// kept for tests and operator tooling that clears a single session.
	Delete(ctx context.Context, id string) error
	// DeleteExpired purges expired records and returns how many went away.
	DeleteExpired(ctx context.Context) (int64, error)
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
