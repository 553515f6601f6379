package domain

import (
	"fmt"
	"time"
)

// XPPerLevel is the amount of experience separating two consecutive levels.
const XPPerLevel = 500

// ActionKind names an XP-earning user action.
type ActionKind string

const (
	ActionPomodoro              ActionKind = "pomodoro"
	ActionQuiz                  ActionKind = "quiz"
	ActionFlashcard             ActionKind = "flashcard"
	ActionChecklist             ActionKind = "checklist"
	ActionClinicalCaseCompleted ActionKind = "clinical_case_completed"
	ActionBattleWon             ActionKind = "battle_won"
	ActionStreakBonus           ActionKind = "streak_bonus"
	ActionDailyLogin            ActionKind = "daily_login"
	ActionGoalCompleted         ActionKind = "goal_completed"
)

var actionKinds = []ActionKind{
	ActionPomodoro,
	ActionQuiz,
	ActionFlashcard,
	ActionChecklist,
	ActionClinicalCaseCompleted,
	ActionBattleWon,
	ActionStreakBonus,
	ActionDailyLogin,
	ActionGoalCompleted,
}

// ActionKinds returns every recognised action kind.
func ActionKinds() []ActionKind {
	return append([]ActionKind(nil), actionKinds...)
}

func (k ActionKind) Valid() bool {
	for _, known := range actionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseActionKind validates s against the fixed enumeration.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return k, nil
}

// LevelFor derives the level reached with totalXP experience.
func LevelFor(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return totalXP/XPPerLevel + 1
}

// ProgressState holds a user's running totals. It is a materialized view
// over the user's activity log; Level is always derived from TotalXP.
type ProgressState struct {
	UserID         int64 `json:"userId"`
	TotalXP        int   `json:"totalXp"`
	CurrentStreak  int   `json:"currentStreak"`
	LongestStreak  int   `json:"longestStreak"`
	LastActiveDate Date  `json:"lastActiveDate,omitzero"`

	PomodorosCompleted int `json:"pomodorosCompleted"`
	QuizzesCompleted   int `json:"quizzesCompleted"`
	FlashcardsReviewed int `json:"flashcardsReviewed"`
	ChecklistItemsDone int `json:"checklistItemsDone"`
	StudyMinutes       int `json:"studyMinutes"`

	// Badges are the achievements unlocked so far, in unlock order. A badge
	// once unlocked is never removed.
	Badges []Badge `json:"badges"`

	// Version is zero for a state that has never been saved and increases
	// by one with every save.
	Version   int64     `json:"-"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// NewProgressState returns the zeroed state of a user with no activity.
func NewProgressState(userID int64) ProgressState {
	return ProgressState{UserID: userID}
}

func (p ProgressState) Level() int {
	return LevelFor(p.TotalXP)
}

// HasBadge reports whether the badge with the given id is unlocked.
func (p ProgressState) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Badge is an unlocked achievement.
type Badge struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// ActivityLogEntry is one immutable XP-earning event.
type ActivityLogEntry struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"userId"`
	Action      ActionKind `json:"action"`
	XP          int        `json:"xp"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
