package progress

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/medfocus/studycore/internal/domain"
)

// BadgeMetric names the ProgressState figure a badge threshold is measured
// against.
type BadgeMetric string

const (
	MetricStudyMinutes  BadgeMetric = "study_minutes"
	MetricStreak        BadgeMetric = "streak"
	MetricQuizzes       BadgeMetric = "quizzes"
	MetricFlashcards    BadgeMetric = "flashcards"
	MetricPomodoros     BadgeMetric = "pomodoros"
	MetricChecklistDone BadgeMetric = "checklist"
	MetricLevel         BadgeMetric = "level"
	MetricTotalXP       BadgeMetric = "total_xp"
)

// Valid reports whether m is a known metric.
func (m BadgeMetric) Valid() bool {
	switch m {
	case MetricStudyMinutes, MetricStreak, MetricQuizzes, MetricFlashcards,
		MetricPomodoros, MetricChecklistDone, MetricLevel, MetricTotalXP:
		return true
	}
	return false
}

func (m BadgeMetric) of(p domain.ProgressState) int {
	switch m {
	case MetricStudyMinutes:
		return p.StudyMinutes
	case MetricStreak:
		return p.CurrentStreak
	case MetricQuizzes:
		return p.QuizzesCompleted
	case MetricFlashcards:
		return p.FlashcardsReviewed
	case MetricPomodoros:
		return p.PomodorosCompleted
	case MetricChecklistDone:
		return p.ChecklistItemsDone
	case MetricLevel:
		return p.Level()
	case MetricTotalXP:
		return p.TotalXP
	}
	return 0
}

// BadgeRule unlocks a badge once Metric reaches Threshold. A zero
// Threshold disables the badge.
type BadgeRule struct {
	Metric    BadgeMetric
	Threshold int
}

// BadgeTable maps badge ids to their unlock rules.
type BadgeTable map[string]BadgeRule

// DefaultBadgeTable returns the stock achievements.
func DefaultBadgeTable() BadgeTable {
	return BadgeTable{
		"first_study":   {MetricStudyMinutes, 1},
		"study_1h":      {MetricStudyMinutes, 60},
		"study_10":      {MetricStudyMinutes, 250},
		"study_5h":      {MetricStudyMinutes, 300},
		"study_50":      {MetricStudyMinutes, 1250},
		"streak_3":      {MetricStreak, 3},
		"streak_7":      {MetricStreak, 7},
		"streak_30":     {MetricStreak, 30},
		"quiz_first":    {MetricQuizzes, 1},
		"quiz_50":       {MetricQuizzes, 50},
		"flashcard_100": {MetricFlashcards, 100},
		"level_10":      {MetricLevel, 10},
	}
}

// Validate rejects empty ids, unknown metrics and negative thresholds.
func (t BadgeTable) Validate() error {
	for id, rule := range t {
		if id == "" {
			return fmt.Errorf("%w: badge id must not be empty", domain.ErrInvalidArgument)
		}
		if !rule.Metric.Valid() {
			return fmt.Errorf("%w: badge %q has unknown metric %q", domain.ErrInvalidArgument, id, rule.Metric)
		}
		if rule.Threshold < 0 {
			return fmt.Errorf("%w: badge %q threshold must not be negative", domain.ErrInvalidArgument, id)
		}
	}
	return nil
}

// Merge returns a copy of t with overrides applied on top. An override
// without a metric keeps the metric of the badge it replaces.
func (t BadgeTable) Merge(overrides map[string]BadgeRule) (BadgeTable, error) {
	merged := maps.Clone(t)
	if merged == nil {
		merged = BadgeTable{}
	}
	for id, rule := range overrides {
		if rule.Metric == "" {
			base, ok := merged[id]
			if !ok {
				return nil, fmt.Errorf("%w: new badge %q needs a metric", domain.ErrInvalidArgument, id)
			}
			rule.Metric = base.Metric
		}
		merged[id] = rule
	}
	return merged, merged.Validate()
}

// unlock returns the badges p qualifies for but does not hold yet, ordered
// by id, stamped with now.
func (t BadgeTable) unlock(p domain.ProgressState, now time.Time) []domain.Badge {
	var ids []string
	for id, rule := range t {
		if rule.Threshold <= 0 || p.HasBadge(id) {
			continue
		}
		if rule.Metric.of(p) >= rule.Threshold {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)

	badges := make([]domain.Badge, 0, len(ids))
	for _, id := range ids {
		badges = append(badges, domain.Badge{ID: id, UnlockedAt: now})
	}
	return badges
}
