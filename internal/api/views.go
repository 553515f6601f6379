package api

import (
	"github.com/medfocus/studycore/internal/domain"
)

// progressView is a ProgressState with its derived level. Badges is always
// a list, empty for a user without any.
type progressView struct {
	domain.ProgressState
	Level int `json:"level"`
}

func newProgressView(p domain.ProgressState) progressView {
	if p.Badges == nil {
		p.Badges = []domain.Badge{}
	}
	return progressView{ProgressState: p, Level: p.Level()}
}

type reviewResponse struct {
	Card     domain.Card             `json:"card"`
	Progress progressView            `json:"progress"`
	Entry    domain.ActivityLogEntry `json:"entry"`
}

type activityResponse struct {
	Progress progressView            `json:"progress"`
	Entry    domain.ActivityLogEntry `json:"entry"`
	Unlocked []domain.Badge          `json:"unlocked,omitempty"`
}

type dailyLoginResponse struct {
	Claimed  bool                     `json:"claimed"`
	Progress progressView             `json:"progress"`
	Entry    *domain.ActivityLogEntry `json:"entry,omitempty"`
}
