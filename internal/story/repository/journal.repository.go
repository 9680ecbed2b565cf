package repository

import (
	"context"
	"database/sql"
	"time"

	"storyarchive/internal/story/model"
	"storyarchive/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS story_dispatches (
	story_id     UUID PRIMARY KEY,
	owner_id     BIGINT,
	visibility   TEXT NOT NULL,
	status       TEXT NOT NULL,
	item_count   INTEGER NOT NULL,
	emitted      INTEGER NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ NOT NULL
)`

// JournalRepository records the outcome of every archive dispatch so lost
// submissions stay visible to operators. It never stores drafts.
type JournalRepository struct {
	DB *sql.DB
}

func NewJournalRepository(db *sql.DB) *JournalRepository {
	return &JournalRepository{DB: db}
}

func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	if err != nil {
		logger.Sugar.Errorf("Failed to create story_dispatches table: %v", err)
	}
	return err
}

func (r *JournalRepository) Record(ctx context.Context, ev model.DispatchEvent) error {
	var ownerID sql.NullInt64
	if ev.OwnerID != 0 {
		ownerID = sql.NullInt64{Int64: ev.OwnerID, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO story_dispatches (story_id, owner_id, visibility, status, item_count, emitted, error, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.StoryID, ownerID, ev.Visibility, ev.Status, ev.Items, ev.Emitted, ev.Error, ev.CreatedAt, ev.FinishedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to record dispatch %s: %v", ev.StoryID, err)
	}
	return err
}

// Recent returns the latest dispatches, newest first.
func (r *JournalRepository) Recent(ctx context.Context, limit int) ([]model.DispatchEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT story_id, owner_id, visibility, status, item_count, emitted, error, created_at, finished_at
		FROM story_dispatches ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		logger.Sugar.Errorf("Failed to list dispatches: %v", err)
		return nil, err
	}
	defer rows.Close()

	events := []model.DispatchEvent{}
	for rows.Next() {
		var (
			ev                    model.DispatchEvent
			ownerID               sql.NullInt64
			createdAt, finishedAt time.Time
		)
		if err := rows.Scan(&ev.StoryID, &ownerID, &ev.Visibility, &ev.Status, &ev.Items, &ev.Emitted, &ev.Error, &createdAt, &finishedAt); err != nil {
			return nil, err
		}
		ev.OwnerID = ownerID.Int64
		ev.CreatedAt = createdAt
		ev.FinishedAt = finishedAt
		events = append(events, ev)
	}
	return events, rows.Err()
}
