package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/medfocus/studycore/internal/domain"
)

// LoadProgress retrieves a user's progress row. The bool is false when the
// user has no row yet.
func (db *DB) LoadProgress(ctx context.Context, userID int64) (domain.ProgressState, bool, error) {
	var (
		p          domain.ProgressState
		lastActive sql.NullString
	)
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, total_xp, current_streak, longest_streak, last_active_date,
			pomodoros_completed, quizzes_completed, flashcards_reviewed, checklist_items_done,
			study_minutes, version, updated_at
		FROM user_progress WHERE user_id = ?
	`, userID)

	err := row.Scan(
		&p.UserID,
		&p.TotalXP,
		&p.CurrentStreak,
		&p.LongestStreak,
		&lastActive,
		&p.PomodorosCompleted,
		&p.QuizzesCompleted,
		&p.FlashcardsReviewed,
		&p.ChecklistItemsDone,
		&p.StudyMinutes,
		&p.Version,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProgressState{}, false, nil
		}
		return domain.ProgressState{}, false, fmt.Errorf("failed to find progress for user %d: %w", userID, err)
	}
	if lastActive.Valid {
		if p.LastActiveDate, err = domain.ParseDate(lastActive.String); err != nil {
			return domain.ProgressState{}, false, fmt.Errorf("corrupt last_active_date for user %d: %w", userID, err)
		}
	}
	p.UpdatedAt = p.UpdatedAt.UTC()

	if p.Badges, err = db.loadBadges(ctx, userID); err != nil {
		return domain.ProgressState{}, false, err
	}
	return p, true, nil
}

func (db *DB) loadBadges(ctx context.Context, userID int64) ([]domain.Badge, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT badge_id, unlocked_at
		FROM user_badges WHERE user_id = ?
		ORDER BY unlocked_at, badge_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges for user %d: %w", userID, err)
	}
	defer rows.Close()

	var badges []domain.Badge
	for rows.Next() {
		var b domain.Badge
		if err := rows.Scan(&b.ID, &b.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge row for user %d: %w", userID, err)
		}
		b.UnlockedAt = b.UnlockedAt.UTC()
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// SaveProgressAndAppendLog writes state, its unlocked badges and entry in a
// single transaction. The write only goes through if the stored version is
// state.Version-1; otherwise nothing is written and domain.ErrConflict is
// returned.
func (db *DB) SaveProgressAndAppendLog(ctx context.Context, state domain.ProgressState, entry domain.ActivityLogEntry) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		var lastActive sql.NullString
		if !state.LastActiveDate.IsZero() {
			lastActive = sql.NullString{String: state.LastActiveDate.String(), Valid: true}
		}
		args := []any{
			state.TotalXP,
			state.Level(),
			state.CurrentStreak,
			state.LongestStreak,
			lastActive,
			state.PomodorosCompleted,
			state.QuizzesCompleted,
			state.FlashcardsReviewed,
			state.ChecklistItemsDone,
			state.StudyMinutes,
			state.Version,
			state.UpdatedAt.UTC(),
			state.UserID,
		}

		var (
			res sql.Result
			err error
		)
		if state.Version == 1 {
			res, err = tx.ExecContext(ctx, `
				INSERT INTO user_progress (total_xp, level, current_streak, longest_streak, last_active_date,
					pomodoros_completed, quizzes_completed, flashcards_reviewed, checklist_items_done,
					study_minutes, version, updated_at, user_id)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(user_id) DO NOTHING
			`, args...)
		} else {
			res, err = tx.ExecContext(ctx, `
				UPDATE user_progress
				SET total_xp = ?, level = ?, current_streak = ?, longest_streak = ?, last_active_date = ?,
					pomodoros_completed = ?, quizzes_completed = ?, flashcards_reviewed = ?,
					checklist_items_done = ?, study_minutes = ?, version = ?, updated_at = ?
				WHERE user_id = ? AND version = ?
			`, append(args, state.Version-1)...)
		}
		if err != nil {
			return fmt.Errorf("failed to save progress for user %d: %w", state.UserID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to save progress for user %d: %w", state.UserID, err)
		}
		if n == 0 {
			return fmt.Errorf("progress for user %d at version %d: %w", state.UserID, state.Version-1, domain.ErrConflict)
		}

		for _, b := range state.Badges {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO user_badges (user_id, badge_id, unlocked_at)
				VALUES (?, ?, ?)
				ON CONFLICT(user_id, badge_id) DO NOTHING
			`, state.UserID, b.ID, b.UnlockedAt.UTC())
			if err != nil {
				return fmt.Errorf("failed to save badge %s for user %d: %w", b.ID, state.UserID, err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO activity_log (id, user_id, action, xp, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			entry.ID,
			entry.UserID,
			string(entry.Action),
			entry.XP,
			entry.Description,
			entry.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to append activity %s for user %d: %w", entry.ID, entry.UserID, err)
		}
		return nil
	})
}

// QueryRecentLog retrieves up to limit activity entries for a user, newest
// first.
func (db *DB) QueryRecentLog(ctx context.Context, userID int64, limit int) ([]domain.ActivityLogEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, action, xp, description, created_at
		FROM activity_log WHERE user_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity log for user %d: %w", userID, err)
	}
	defer rows.Close()

	entries := []domain.ActivityLogEntry{}
	for rows.Next() {
		var (
			e      domain.ActivityLogEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &action, &e.XP, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity row for user %d: %w", userID, err)
		}
		e.Action = domain.ActionKind(action)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
