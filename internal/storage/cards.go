package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/medfocus/studycore/internal/domain"
)

// CreateDeck inserts a new deck.
func (db *DB) CreateDeck(ctx context.Context, deck domain.Deck) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO decks (id, user_id, name, subject, card_count, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`,
		deck.ID,
		deck.UserID,
		deck.Name,
		deck.Subject,
		deck.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", deck.ID, err)
	}
	return nil
}

// LoadDeck retrieves a deck by id. It returns domain.ErrNotFound if there is
// no such deck.
func (db *DB) LoadDeck(ctx context.Context, id string) (domain.Deck, error) {
	var d domain.Deck
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, name, subject, card_count, created_at
		FROM decks WHERE id = ?
	`, id)

	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Subject, &d.CardCount, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deck{}, fmt.Errorf("deck %s: %w", id, domain.ErrNotFound)
		}
		return domain.Deck{}, fmt.Errorf("failed to find deck %s: %w", id, err)
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}

// DecksByUser retrieves all decks owned by a user, oldest first.
func (db *DB) DecksByUser(ctx context.Context, userID int64) ([]domain.Deck, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, name, subject, card_count, created_at
		FROM decks WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decks for user %d: %w", userID, err)
	}
	defer rows.Close()

	decks := []domain.Deck{}
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Subject, &d.CardCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deck row for user %d: %w", userID, err)
		}
		d.CreatedAt = d.CreatedAt.UTC()
		decks = append(decks, d)
	}
	return decks, rows.Err()
}

// InsertCard adds card to its deck unless a card with the same id is
// already stored, and refreshes the deck's card count. It returns the
// stored card and whether it was newly inserted.
func (db *DB) InsertCard(ctx context.Context, card domain.Card) (domain.Card, bool, error) {
	var created bool
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cards (id, deck_id, front, back, ease_factor, interval_days, repetitions,
				next_review, last_review, total_reviews, correct_reviews, lapses, streak, created_at, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, cardArgs(card)...)
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
		}
		created = n == 1

		_, err = tx.ExecContext(ctx, `
			UPDATE decks SET card_count = (SELECT COUNT(*) FROM cards WHERE deck_id = ?)
			WHERE id = ?
		`, card.DeckID, card.DeckID)
		if err != nil {
			return fmt.Errorf("failed to refresh card count for deck %s: %w", card.DeckID, err)
		}
		return nil
	})
	if err != nil {
		return domain.Card{}, false, err
	}
	if created {
		return card, true, nil
	}
	stored, err := db.LoadCard(ctx, card.ID)
	return stored, false, err
}

// LoadCard retrieves a card by id. It returns domain.ErrNotFound if there is
// no such card.
func (db *DB) LoadCard(ctx context.Context, id string) (domain.Card, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE id = ?
	`, id)

	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
		}
		return domain.Card{}, fmt.Errorf("failed to find card %s: %w", id, err)
	}
	return c, nil
}

// SaveCard updates an existing card's SM-2 state and review statistics.
// card.Version is the version being written: the update only goes through
// if the stored version is card.Version-1, otherwise domain.ErrConflict is
// returned. A missing card is domain.ErrNotFound.
func (db *DB) SaveCard(ctx context.Context, card domain.Card) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE cards
			SET ease_factor = ?, interval_days = ?, repetitions = ?, next_review = ?, last_review = ?,
				total_reviews = ?, correct_reviews = ?, lapses = ?, streak = ?, version = ?
			WHERE id = ? AND version = ?
		`,
			card.EaseFactor,
			card.Interval,
			card.Repetitions,
			card.NextReview.UTC(),
			nullTime(card.LastReview),
			card.TotalReviews,
			card.CorrectReviews,
			card.Lapses,
			card.Streak,
			card.Version,
			card.ID,
			card.Version-1,
		)
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", card.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update card %s: %w", card.ID, err)
		}
		if n == 1 {
			return nil
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, card.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("card %s: %w", card.ID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to find card %s: %w", card.ID, err)
		}
		return fmt.Errorf("card %s at version %d: %w", card.ID, card.Version-1, domain.ErrConflict)
	})
}

// CardsByDeck retrieves every card in a deck.
func (db *DB) CardsByDeck(ctx context.Context, deckID string) ([]domain.Card, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE deck_id = ?
		ORDER BY id
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row for deck %s: %w", deckID, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

const cardColumns = `id, deck_id, front, back, ease_factor, interval_days, repetitions,
	next_review, last_review, total_reviews, correct_reviews, lapses, streak, created_at, version`

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(s scanner) (domain.Card, error) {
	var (
		c          domain.Card
		lastReview sql.NullTime
	)
	err := s.Scan(
		&c.ID,
		&c.DeckID,
		&c.Front,
		&c.Back,
		&c.EaseFactor,
		&c.Interval,
		&c.Repetitions,
		&c.NextReview,
		&lastReview,
		&c.TotalReviews,
		&c.CorrectReviews,
		&c.Lapses,
		&c.Streak,
		&c.CreatedAt,
		&c.Version,
	)
	if err != nil {
		return domain.Card{}, err
	}
	c.NextReview = c.NextReview.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if lastReview.Valid {
		c.LastReview = lastReview.Time.UTC()
	}
	return c, nil
}

func cardArgs(c domain.Card) []any {
	return []any{
		c.ID,
		c.DeckID,
		c.Front,
		c.Back,
		c.EaseFactor,
		c.Interval,
		c.Repetitions,
		c.NextReview.UTC(),
		nullTime(c.LastReview),
		c.TotalReviews,
		c.CorrectReviews,
		c.Lapses,
		c.Streak,
		c.CreatedAt.UTC(),
		c.Version,
	}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
