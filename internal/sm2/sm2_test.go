package sm2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medfocus/studycore/internal/domain"
)

var reviewTime = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func freshCard() domain.Card {
	return domain.NewCard("c1", "d1", "Drug of choice for status epilepticus?", "Lorazepam IV", reviewTime.Add(-time.Hour))
}

func TestGradeScenarios(t *testing.T) {
	params := DefaultParams()

	t.Run("fresh card graded perfect", func(t *testing.T) {
		card, err := params.Grade(freshCard(), 5, reviewTime)
		require.NoError(t, err)
		assert.Equal(t, 1, card.Repetitions)
		assert.Equal(t, 1, card.Interval)
		assert.InDelta(t, 2.6, card.EaseFactor, 1e-9)
		assert.Equal(t, reviewTime, card.LastReview)
		assert.Equal(t, reviewTime.AddDate(0, 0, 1), card.NextReview)
	})

	t.Run("second successful review", func(t *testing.T) {
		card := freshCard()
		card.Repetitions, card.Interval, card.EaseFactor = 1, 1, 2.6

		next, err := params.Grade(card, 4, reviewTime)
		require.NoError(t, err)
		assert.Equal(t, 2, next.Repetitions)
		assert.Equal(t, 6, next.Interval)
		assert.InDelta(t, 2.6, next.EaseFactor, 1e-9)
	})

	t.Run("third successful review multiplies the interval", func(t *testing.T) {
		card := freshCard()
		card.Repetitions, card.Interval, card.EaseFactor = 2, 6, 2.6

		next, err := params.Grade(card, 5, reviewTime)
		require.NoError(t, err)
		assert.Equal(t, 3, next.Repetitions)
		// round(6 * 2.7)
		assert.Equal(t, 16, next.Interval)
	})

	t.Run("failed recall resets repetitions", func(t *testing.T) {
		card := freshCard()
		card.Repetitions, card.Interval, card.EaseFactor = 2, 6, 2.6

		next, err := params.Grade(card, 2, reviewTime)
		require.NoError(t, err)
		assert.Equal(t, 0, next.Repetitions)
		assert.Equal(t, 1, next.Interval)
		assert.Less(t, next.EaseFactor, 2.6)
		assert.GreaterOrEqual(t, next.EaseFactor, domain.MinEaseFactor)
		assert.InDelta(t, 2.28, next.EaseFactor, 1e-9)
	})
}

func TestGradeRejectsOutOfRange(t *testing.T) {
	params := DefaultParams()
	card := freshCard()
	for _, q := range []int{-1, 6, 42} {
		got, err := params.Grade(card, q, reviewTime)
		require.ErrorIs(t, err, domain.ErrInvalidGrade)
		assert.Equal(t, domain.Card{}, got)
	}
	assert.Equal(t, freshCard(), card, "input card must not change")
}

func TestGradeInvariants(t *testing.T) {
	params := DefaultParams()
	var cards []domain.Card
	for _, ef := range []float64{1.3, 1.5, 2.5, 3.2} {
		for _, reps := range []int{0, 1, 2, 7} {
			for _, interval := range []int{0, 1, 6, 40} {
				c := freshCard()
				c.EaseFactor, c.Repetitions, c.Interval = ef, reps, interval
				cards = append(cards, c)
			}
		}
	}

	for _, card := range cards {
		for q := MinGrade; q <= MaxGrade; q++ {
			next, err := params.Grade(card, q, reviewTime)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, next.EaseFactor, domain.MinEaseFactor)
			assert.GreaterOrEqual(t, next.Interval, 1)
			assert.True(t, next.NextReview.After(next.LastReview))
			assert.Equal(t, card.TotalReviews+1, next.TotalReviews)
			if q < PassingGrade {
				assert.Equal(t, 0, next.Repetitions)
				assert.Equal(t, 1, next.Interval)
				assert.Equal(t, card.Lapses+1, next.Lapses)
				assert.Zero(t, next.Streak)
			} else {
				assert.Equal(t, card.Repetitions+1, next.Repetitions)
				assert.Equal(t, card.CorrectReviews+1, next.CorrectReviews)
			}
		}
	}
}

func TestEaseFactorHasNoUpperClamp(t *testing.T) {
	params := DefaultParams()
	card := freshCard()
	for i := 0; i < 10; i++ {
		var err error
		card, err = params.Grade(card, 5, reviewTime)
		require.NoError(t, err)
	}
	assert.InDelta(t, 2.5+10*0.1, card.EaseFactor, 1e-9)
}

func TestMaximumInterval(t *testing.T) {
	params := &Params{MaximumInterval: 30}
	card := freshCard()
	card.Repetitions, card.Interval, card.EaseFactor = 5, 25, 2.5

	next, err := params.Grade(card, 5, reviewTime)
	require.NoError(t, err)
	assert.Equal(t, 30, next.Interval)

	uncapped, err := DefaultParams().Grade(card, 5, reviewTime)
	require.NoError(t, err)
	assert.Equal(t, 65, uncapped.Interval)
}

func TestReset(t *testing.T) {
	card := freshCard()
	graded, err := DefaultParams().Grade(card, 5, reviewTime)
	require.NoError(t, err)

	later := reviewTime.Add(48 * time.Hour)
	reset := Reset(graded, later)
	assert.Equal(t, card.ID, reset.ID)
	assert.Equal(t, card.Front, reset.Front)
	assert.Equal(t, card.CreatedAt, reset.CreatedAt)
	assert.Equal(t, domain.DefaultEaseFactor, reset.EaseFactor)
	assert.Zero(t, reset.Repetitions)
	assert.Zero(t, reset.Interval)
	assert.Zero(t, reset.TotalReviews)
	assert.False(t, reset.Reviewed())
	assert.Equal(t, later, reset.NextReview)
}

func TestNextEaseFactor(t *testing.T) {
	tests := []struct {
		quality  int
		expected float64
	}{
		{5, 2.6},
		{4, 2.5},
		{3, 2.36},
		{2, 2.18},
		{1, 1.96},
		{0, 1.7},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, NextEaseFactor(2.5, tt.quality), 1e-9, "quality %d", tt.quality)
	}
	assert.Equal(t, domain.MinEaseFactor, NextEaseFactor(1.4, 0))
}
