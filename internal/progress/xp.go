package progress

import (
	"fmt"

	"github.com/medfocus/studycore/internal/domain"
)

// XPTable maps each action kind to the XP it grants when the caller does
// not supply an explicit amount.
type XPTable map[domain.ActionKind]int

// DefaultXPTable returns the stock reward policy.
func DefaultXPTable() XPTable {
	return XPTable{
		domain.ActionPomodoro:              25,
		domain.ActionQuiz:                  15,
		domain.ActionFlashcard:             5,
		domain.ActionChecklist:             15,
		domain.ActionClinicalCaseCompleted: 50,
		domain.ActionBattleWon:             30,
		domain.ActionStreakBonus:           5,
		domain.ActionDailyLogin:            10,
		domain.ActionGoalCompleted:         40,
	}
}

// Validate rejects unknown action kinds and negative rewards.
func (t XPTable) Validate() error {
	for kind, xp := range t {
		if !kind.Valid() {
			return fmt.Errorf("%w: %q in xp table", domain.ErrUnknownAction, kind)
		}
		if xp < 0 {
			return fmt.Errorf("%w: xp for %q must not be negative", domain.ErrInvalidArgument, kind)
		}
	}
	return nil
}

// For returns the XP granted for kind. Kinds missing from t fall back to
// the default table.
func (t XPTable) For(kind domain.ActionKind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownAction, kind)
	}
	if xp, ok := t[kind]; ok {
		return xp, nil
	}
	return DefaultXPTable()[kind], nil
}

// Merge returns a copy of t with the entries of overrides applied on top.
func (t XPTable) Merge(overrides map[string]int) (XPTable, error) {
	merged := make(XPTable, len(t)+len(overrides))
	for k, v := range t {
		merged[k] = v
	}
	for name, xp := range overrides {
		kind, err := domain.ParseActionKind(name)
		if err != nil {
			return nil, err
		}
		merged[kind] = xp
	}
	return merged, merged.Validate()
}
