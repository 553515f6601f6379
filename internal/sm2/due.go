package sm2

import (
	"cmp"
	"iter"
	"slices"
	"time"

	"github.com/medfocus/studycore/internal/domain"
)

// DueCards yields the cards whose next review is at or before asOf, oldest
// due first and by ID among equal due times. The sequence is computed on
// each iteration from a snapshot of cards taken at call time, so it can be
// ranged over any number of times with the same result.
func DueCards(cards []domain.Card, asOf time.Time) iter.Seq[domain.Card] {
	snapshot := slices.Clone(cards)
	return func(yield func(domain.Card) bool) {
		due := make([]domain.Card, 0, len(snapshot))
		for _, c := range snapshot {
			if !c.NextReview.After(asOf) {
				due = append(due, c)
			}
		}
		slices.SortFunc(due, compareDue)
		for _, c := range due {
			if !yield(c) {
				return
			}
		}
	}
}

func compareDue(a, b domain.Card) int {
	if c := a.NextReview.Compare(b.NextReview); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Take collects at most limit cards from seq. A non-positive limit collects
// everything.
func Take(seq iter.Seq[domain.Card], limit int) []domain.Card {
	var out []domain.Card
	for c := range seq {
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
