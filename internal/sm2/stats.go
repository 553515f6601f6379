package sm2

import (
	"time"

	"github.com/medfocus/studycore/internal/domain"
)

// DeckStats summarises the review state of a set of cards.
type DeckStats struct {
	TotalCards        int     `json:"totalCards"`
	NewCards          int     `json:"newCards"`
	DueCards          int     `json:"dueCards"`
	LearningCards     int     `json:"learningCards"`
	MatureCards       int     `json:"matureCards"`
	AverageEaseFactor float64 `json:"averageEaseFactor"`
	RetentionRate     float64 `json:"retentionRate"` // percent
	TotalReviews      int     `json:"totalReviews"`
	ReviewsToday      int     `json:"reviewsToday"`
	// Forecast[i] counts reviewed cards falling due on the i-th calendar day
	// from today, today included.
	Forecast []int `json:"forecast"`
}

// Stats computes deck statistics at now. Calendar days are taken in loc.
func (p *Params) Stats(cards []domain.Card, now time.Time, loc *time.Location) DeckStats {
	if loc == nil {
		loc = time.UTC
	}
	stats := DeckStats{
		TotalCards:        len(cards),
		AverageEaseFactor: domain.DefaultEaseFactor,
		Forecast:          make([]int, max(p.ForecastDays, 0)),
	}

	today := domain.DateIn(now, loc)
	var efSum float64
	var correct int
	for _, c := range cards {
		efSum += c.EaseFactor
		stats.TotalReviews += c.TotalReviews
		correct += c.CorrectReviews

		if !c.Reviewed() {
			stats.NewCards++
			continue
		}
		if !c.NextReview.After(now) {
			stats.DueCards++
		}
		if p.MatureInterval > 0 && c.Interval >= p.MatureInterval {
			stats.MatureCards++
		} else {
			stats.LearningCards++
		}
		if domain.DateIn(c.LastReview, loc) == today {
			stats.ReviewsToday++
		}
		if day := daysBetween(today, domain.DateIn(c.NextReview, loc)); day >= 0 && day < len(stats.Forecast) {
			stats.Forecast[day]++
		}
	}

	if len(cards) > 0 {
		stats.AverageEaseFactor = efSum / float64(len(cards))
	}
	if stats.TotalReviews > 0 {
		stats.RetentionRate = float64(correct) / float64(stats.TotalReviews) * 100
	}
	return stats
}

func daysBetween(from, to domain.Date) int {
	a := time.Date(from.Year, from.Month, from.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year, to.Month, to.Day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
