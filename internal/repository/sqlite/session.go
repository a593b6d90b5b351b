package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/model"
	"github.com/sakif/wellness-tracker/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// Load returns the unexpired record stored for id.
func (db *DB) Load(ctx context.Context, id string) (*model.UserRecord, error) {
	var data string
	err := db.conn.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE id = ? AND expires_at > ?`,
		id, db.now().Unix(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: loading session %s: %w", id, err)
	}

	var rec model.UserRecord
	if err := sonic.UnmarshalString(data, &rec); err != nil {
		return nil, fmt.Errorf("sqlite: decoding session %s: %w", id, err)
	}
	rec.Normalize()
	return &rec, nil
}

// Save upserts the record and pushes its expiry ttl into the future.
// created_at is kept from the first insert.
func (db *DB) Save(ctx context.Context, id string, rec *model.UserRecord) error {
	if rec == nil {
		return fmt.Errorf("sqlite: saving session %s: nil record", id)
	}

	data, err := sonic.MarshalString(rec)
	if err != nil {
		return fmt.Errorf("sqlite: encoding session %s: %w", id, err)
	}

	now := db.now()
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, data, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			data       = excluded.data,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		id,
		data,
		now.Add(db.ttl).Unix(),
		now.Unix(),
		now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session %s: %w", id, err)
	}
	return nil
}

// Delete removes the session row if present.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

// DeleteExpired purges rows whose expiry has passed.
func (db *DB) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, db.now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting expired sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

// Ping verifies the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}
