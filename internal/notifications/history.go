package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryStore reads the remote notification interaction history.
//
// Expected table (owned by the delivery pipeline, not by this engine):
//
//	notification_history(user_id, type, sent_at, read_at, clicked_at, action_taken)
//
// The engine never writes to it.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store over an existing connection.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// RecentInteractions returns up to limit most-recent rows for a user,
// newest first.
func (s *HistoryStore) RecentInteractions(ctx context.Context, userID string, limit int) ([]Interaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, sent_at, read_at, clicked_at, action_taken
		FROM notification_history
		WHERE user_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		var readAt, clickedAt sql.NullTime
		if err := rows.Scan(&it.Type, &it.SentAt, &readAt, &clickedAt, &it.ActionTaken); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if readAt.Valid {
			t := readAt.Time
			it.ReadAt = &t
		}
		if clickedAt.Valid {
			t := clickedAt.Time
			it.ClickedAt = &t
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return out, nil
}

// SentCountSince returns how many notifications of one type were sent
// to a user at or after the given instant. The delivery gate uses it
// with the start of the current day for frequency capping.
func (s *HistoryStore) SentCountSince(ctx context.Context, userID, notificationType string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notification_history
		WHERE user_id = $1 AND type = $2 AND sent_at >= $3
	`, userID, notificationType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent today: %w", err)
	}
	return count, nil
}
