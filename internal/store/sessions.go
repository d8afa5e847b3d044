package store

import (
	"fmt"
	"time"

	"github.com/lazypower/vitality/internal/environment"
)

// UpsertSessionSummaries stores the latest summary for each session key.
// Older updates never overwrite newer ones.
func (db *DB) UpsertSessionSummaries(agentID string, summaries []environment.SessionSummary) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert summaries: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO session_summaries (agent_id, session_key, last_channel, last_to, subject, origin, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, session_key) DO UPDATE SET
			last_channel = excluded.last_channel,
			last_to      = excluded.last_to,
			subject      = excluded.subject,
			origin       = excluded.origin,
			updated_at   = excluded.updated_at
		WHERE excluded.updated_at >= session_summaries.updated_at
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare upsert summaries: %w", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		if s.SessionKey == "" {
			continue
		}
		if _, err := stmt.Exec(agentID, s.SessionKey, s.LastChannel, s.LastTo, s.Subject, s.Origin, s.UpdatedAt.UnixMilli()); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert summary %s: %w", s.SessionKey, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summaries: %w", err)
	}
	return nil
}

// RecentSessionSummaries returns an agent's summaries updated at or after
// since, newest first.
func (db *DB) RecentSessionSummaries(agentID string, since time.Time, limit int) ([]environment.SessionSummary, error) {
	rows, err := db.Query(`
		SELECT session_key, COALESCE(last_channel, ''), COALESCE(last_to, ''), COALESCE(subject, ''), COALESCE(origin, ''), updated_at
		FROM session_summaries WHERE agent_id = ? AND updated_at >= ?
		ORDER BY updated_at DESC LIMIT ?
	`, agentID, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("get session summaries: %w", err)
	}
	defer rows.Close()

	var out []environment.SessionSummary
	for rows.Next() {
		var s environment.SessionSummary
		var at int64
		if err := rows.Scan(&s.SessionKey, &s.LastChannel, &s.LastTo, &s.Subject, &s.Origin, &at); err != nil {
			return nil, fmt.Errorf("scan session summary: %w", err)
		}
		s.UpdatedAt = time.UnixMilli(at).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSessionSummaries deletes summaries last updated before cutoff.
func (db *DB) PruneSessionSummaries(cutoff time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM session_summaries WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune session summaries: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
