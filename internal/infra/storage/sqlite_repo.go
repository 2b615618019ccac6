package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const eventColumns = `id, slot, timestamp, event_type, actor_id, target_id, payload, ping`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Slot, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, string(payloadBytes), event.Ping,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, where string, args ...interface{}) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + where + ` ORDER BY seq ASC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.Slot, &e.Timestamp, &e.EventType, &e.ActorID,
			&e.TargetID, &payloadStr, &e.Ping,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySlot(ctx context.Context, slot string) ([]GameEvent, error) {
	return r.getMany(ctx, `slot = ?`, slot)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, slot, actorID string) ([]GameEvent, error) {
	return r.getMany(ctx, `slot = ? AND actor_id = ?`, slot, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, slot string, eventType string) ([]GameEvent, error) {
	return r.getMany(ctx, `slot = ? AND event_type = ?`, slot, eventType)
}

func (r *SQLiteEventRepository) GetSincePing(ctx context.Context, slot string, ping int64) ([]GameEvent, error) {
	return r.getMany(ctx, `slot = ? AND ping >= ?`, slot, ping)
}

// ---------------------------------------------------------
// SQLiteSaveRepository
// ---------------------------------------------------------

type SQLiteSaveRepository struct {
	db *sql.DB
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Save(ctx context.Context, rec SaveRecord) error {
	query := `
		INSERT INTO saves (slot, ping, blob, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			ping=excluded.ping,
			blob=excluded.blob,
			updated_at=excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, rec.Slot, rec.Ping, rec.Blob, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save slot %q: %w", rec.Slot, err)
	}
	return nil
}

func (r *SQLiteSaveRepository) Load(ctx context.Context, slot string) (*SaveRecord, error) {
	query := `SELECT slot, ping, blob, updated_at FROM saves WHERE slot = ?`
	var rec SaveRecord
	err := r.db.QueryRowContext(ctx, query, slot).Scan(&rec.Slot, &rec.Ping, &rec.Blob, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSaveNotFound, slot)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *SQLiteSaveRepository) List(ctx context.Context) ([]SaveRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT slot, ping, updated_at FROM saves ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []SaveRecord
	for rows.Next() {
		var rec SaveRecord
		if err := rows.Scan(&rec.Slot, &rec.Ping, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	return err
}
