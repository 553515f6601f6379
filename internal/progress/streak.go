package progress

import "github.com/medfocus/studycore/internal/domain"

// advanceStreak moves the daily streak of p forward to today.
//
// Activity on the day after the last active day extends the streak, activity
// on the same day leaves it alone and anything else starts a new streak of
// one. A today earlier than the last active day (a caller with a lagging
// clock) changes nothing.
func advanceStreak(p domain.ProgressState, today domain.Date) domain.ProgressState {
	switch {
	case p.LastActiveDate.IsZero():
		p.CurrentStreak = 1
	case today == p.LastActiveDate:
		if p.CurrentStreak == 0 {
			p.CurrentStreak = 1
		}
	case today.Before(p.LastActiveDate):
		return p
	case today == p.LastActiveDate.AddDays(1):
		p.CurrentStreak++
	default:
		p.CurrentStreak = 1
	}
	p.LastActiveDate = today
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
	return p
}

// continuingStreak is the streak that today's first activity would build on:
// the current streak if the user was active yesterday, zero otherwise.
func continuingStreak(p domain.ProgressState, today domain.Date) int {
	if !p.LastActiveDate.IsZero() && today == p.LastActiveDate.AddDays(1) {
		return p.CurrentStreak
	}
	return 0
}

// bumpCounter increments the per-kind counter for kind, if it has one.
func bumpCounter(p *domain.ProgressState, kind domain.ActionKind) {
	switch kind {
	case domain.ActionPomodoro:
		p.PomodorosCompleted++
	case domain.ActionQuiz:
		p.QuizzesCompleted++
	case domain.ActionFlashcard:
		p.FlashcardsReviewed++
	case domain.ActionChecklist:
		p.ChecklistItemsDone++
	}
}
