package sm2

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medfocus/studycore/internal/domain"
)

func cardDueAt(id string, due time.Time) domain.Card {
	c := domain.NewCard(id, "d1", "front "+id, "back "+id, due)
	c.NextReview = due
	return c
}

func ids(cards []domain.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestDueCards(t *testing.T) {
	asOf := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	cards := []domain.Card{
		cardDueAt("late", asOf.Add(time.Minute)),
		cardDueAt("b", asOf.Add(-time.Hour)),
		cardDueAt("exact", asOf),
		cardDueAt("a", asOf.Add(-time.Hour)),
		cardDueAt("oldest", asOf.AddDate(0, 0, -3)),
	}

	seq := DueCards(cards, asOf)
	first := slices.Collect(seq)
	assert.Equal(t, []string{"oldest", "a", "b", "exact"}, ids(first))

	second := slices.Collect(seq)
	assert.Equal(t, first, second, "sequence must be restartable")

	again := slices.Collect(DueCards(cards, asOf))
	assert.Equal(t, first, again)
}

func TestDueCardsSnapshotsInput(t *testing.T) {
	asOf := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	cards := []domain.Card{cardDueAt("a", asOf)}
	seq := DueCards(cards, asOf)
	cards[0] = cardDueAt("z", asOf.Add(time.Hour))

	assert.Equal(t, []string{"a"}, ids(slices.Collect(seq)))
}

func TestDueCardsEmpty(t *testing.T) {
	assert.Empty(t, slices.Collect(DueCards(nil, time.Now())))
}

func TestTake(t *testing.T) {
	asOf := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	var cards []domain.Card
	for _, id := range []string{"c", "a", "b"} {
		cards = append(cards, cardDueAt(id, asOf))
	}
	seq := DueCards(cards, asOf)

	assert.Equal(t, []string{"a", "b"}, ids(Take(seq, 2)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(Take(seq, 0)))
	assert.Equal(t, []string{"a", "b", "c"}, ids(Take(seq, 10)))
}
