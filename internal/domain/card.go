package domain

import "time"

const (
	// DefaultEaseFactor is the ease factor of a card that has never been graded.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor no grade can push a card's ease factor below.
	MinEaseFactor = 1.3
)

// Card is a single flashcard together with its SM-2 memory state.
// LastReview is the zero time until the card is graded for the first time.
type Card struct {
	ID     string `json:"id"`
	DeckID string `json:"deckId"`
	Front  string `json:"front"`
	Back   string `json:"back"`

	EaseFactor  float64   `json:"easeFactor"`
	Interval    int       `json:"interval"` // days
	Repetitions int       `json:"repetitions"`
	NextReview  time.Time `json:"nextReview"`
	LastReview  time.Time `json:"lastReview,omitzero"`

	TotalReviews   int `json:"totalReviews"`
	CorrectReviews int `json:"correctReviews"`
	Lapses         int `json:"lapses"`
	Streak         int `json:"streak"`

	CreatedAt time.Time `json:"createdAt"`

	// Version is zero for a card as inserted and increases by one with
	// every save.
	Version int64 `json:"-"`
}

// NewCard returns a fresh card that is due immediately.
func NewCard(id, deckID, front, back string, now time.Time) Card {
	return Card{
		ID:         id,
		DeckID:     deckID,
		Front:      front,
		Back:       back,
		EaseFactor: DefaultEaseFactor,
		NextReview: now,
		CreatedAt:  now,
	}
}

// Reviewed reports whether the card has been graded at least once.
func (c Card) Reviewed() bool {
	return !c.LastReview.IsZero()
}

// Deck is a named collection of cards owned by one user.
// CardCount is advisory; it is refreshed when cards are added.
type Deck struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject,omitempty"`
	CardCount int       `json:"cardCount"`
	CreatedAt time.Time `json:"createdAt"`
}
