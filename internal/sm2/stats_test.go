package sm2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medfocus/studycore/internal/domain"
)

func TestStatsEmptyDeck(t *testing.T) {
	stats := DefaultParams().Stats(nil, time.Now(), nil)
	assert.Zero(t, stats.TotalCards)
	assert.Equal(t, domain.DefaultEaseFactor, stats.AverageEaseFactor)
	assert.Zero(t, stats.RetentionRate)
	assert.Len(t, stats.Forecast, 7)
}

func TestStats(t *testing.T) {
	params := DefaultParams()
	now := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

	newCard := domain.NewCard("new", "d1", "f", "b", now.AddDate(0, 0, -10))

	// Graded today, passes: due tomorrow.
	learning, err := params.Grade(domain.NewCard("learning", "d1", "f", "b", now), 5, now)
	require.NoError(t, err)

	// Graded today, fails: due tomorrow, one lapse.
	lapsed, err := params.Grade(domain.NewCard("lapsed", "d1", "f", "b", now), 1, now)
	require.NoError(t, err)

	mature := domain.NewCard("mature", "d1", "f", "b", now.AddDate(0, -3, 0))
	mature.Repetitions, mature.Interval, mature.EaseFactor = 5, 30, 2.7
	mature.TotalReviews, mature.CorrectReviews = 5, 5
	mature.LastReview = now.AddDate(0, 0, -31)
	mature.NextReview = now.AddDate(0, 0, -1)

	stats := params.Stats([]domain.Card{newCard, learning, lapsed, mature}, now, time.UTC)

	assert.Equal(t, 4, stats.TotalCards)
	assert.Equal(t, 1, stats.NewCards)
	assert.Equal(t, 1, stats.DueCards)
	assert.Equal(t, 2, stats.LearningCards)
	assert.Equal(t, 1, stats.MatureCards)
	assert.Equal(t, 7, stats.TotalReviews)
	assert.InDelta(t, 6.0/7.0*100, stats.RetentionRate, 1e-9)
	assert.Equal(t, 2, stats.ReviewsToday)
	assert.InDelta(t, (2.5+2.6+1.96+2.7)/4, stats.AverageEaseFactor, 1e-9)
	assert.Equal(t, []int{0, 2, 0, 0, 0, 0, 0}, stats.Forecast)
}
