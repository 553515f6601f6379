// Package sm2 schedules flashcard reviews with the SuperMemo-2 update rule.
// Every function here is pure: cards go in, new card values come out.
package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/medfocus/studycore/internal/domain"
)

const (
	// MinGrade is a complete blackout.
	MinGrade = 0
	// PassingGrade is the lowest grade that counts as a correct recall.
	PassingGrade = 3
	// MaxGrade is perfect recall.
	MaxGrade = 5
)

// Params holds scheduler tuning. The zero value schedules plain SM-2.
type Params struct {
	// MaximumInterval caps the interval in days. Zero disables the cap.
	MaximumInterval int
	// MatureInterval is the interval in days from which a card counts as mature.
	MatureInterval int
	// ForecastDays is how many days ahead Stats forecasts due reviews.
	ForecastDays int
}

// DefaultParams returns uncapped SM-2 with the usual 21-day maturity mark.
func DefaultParams() *Params {
	return &Params{
		MaximumInterval: 0,
		MatureInterval:  21,
		ForecastDays:    7,
	}
}

// ValidateGrade reports ErrInvalidGrade for grades outside [0, 5].
func ValidateGrade(quality int) error {
	if quality < MinGrade || quality > MaxGrade {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidGrade, quality)
	}
	return nil
}

// NextEaseFactor applies the SM-2 ease update for a grade and clamps the
// result to domain.MinEaseFactor.
func NextEaseFactor(ef float64, quality int) float64 {
	miss := float64(MaxGrade - quality)
	next := ef + (0.1 - miss*(0.08+miss*0.02))
	return math.Max(domain.MinEaseFactor, next)
}

// Grade returns card as it stands after being reviewed with the given
// quality at now. The input card is not modified.
func (p *Params) Grade(card domain.Card, quality int, now time.Time) (domain.Card, error) {
	if err := ValidateGrade(quality); err != nil {
		return domain.Card{}, err
	}

	next := card
	next.EaseFactor = NextEaseFactor(card.EaseFactor, quality)
	next.TotalReviews++

	if quality < PassingGrade {
		// A lapse sends the card back to relearning whatever its history.
		next.Repetitions = 0
		next.Interval = 1
		next.Lapses++
		next.Streak = 0
	} else {
		next.Repetitions++
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = int(math.Round(float64(card.Interval) * next.EaseFactor))
		}
		next.CorrectReviews++
		next.Streak++
	}

	if next.Interval < 1 {
		next.Interval = 1
	}
	if p.MaximumInterval > 0 && next.Interval > p.MaximumInterval {
		next.Interval = p.MaximumInterval
	}

	next.LastReview = now
	next.NextReview = NextDueDate(now, next.Interval)
	return next, nil
}

// Reset returns card with its memory state and review statistics cleared,
// due at now. Identity and content are kept.
func Reset(card domain.Card, now time.Time) domain.Card {
	fresh := domain.NewCard(card.ID, card.DeckID, card.Front, card.Back, now)
	fresh.CreatedAt = card.CreatedAt
	return fresh
}

// NextDueDate is interval calendar days after reviewedAt.
func NextDueDate(reviewedAt time.Time, interval int) time.Time {
	return reviewedAt.AddDate(0, 0, interval)
}
