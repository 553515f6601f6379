// Package progress turns user actions into experience points, daily streaks
// and levels, and keeps an append-only log of every reward granted.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/medfocus/studycore/internal/domain"
)

// Store is the persistence port the ledger runs on.
type Store interface {
	// LoadProgress returns the user's state, or false if the user has none.
	LoadProgress(ctx context.Context, userID int64) (domain.ProgressState, bool, error)
	// SaveProgressAndAppendLog writes state and appends entry atomically.
	// state.Version is the version being written; the store must refuse the
	// write with domain.ErrConflict unless the stored version is
	// state.Version-1 (a missing record counts as version 0).
	SaveProgressAndAppendLog(ctx context.Context, state domain.ProgressState, entry domain.ActivityLogEntry) error
	// QueryRecentLog returns up to limit entries for the user, newest first.
	QueryRecentLog(ctx context.Context, userID int64, limit int) ([]domain.ActivityLogEntry, error)
}

type nower interface {
	Now() time.Time
}

type RealNower struct{}

func (RealNower) Now() time.Time {
	return time.Now()
}

// Config tunes a Ledger.
type Config struct {
	XP XPTable
	// Badges unlock as the user's totals grow. Nil means DefaultBadgeTable.
	Badges BadgeTable
	// Location is where calendar days are counted for streaks. Nil means UTC.
	Location *time.Location
	// MaxRetries bounds the attempts made when a save hits a version conflict.
	MaxRetries int
	// StreakBonusPerDay is the extra daily-login XP per day of running streak.
	StreakBonusPerDay int
}

func DefaultConfig() Config {
	return Config{
		XP:                DefaultXPTable(),
		Badges:            DefaultBadgeTable(),
		Location:          time.UTC,
		MaxRetries:        5,
		StreakBonusPerDay: 5,
	}
}

// Ledger records activity for users. It is safe for concurrent use; calls
// for one user are serialized, calls for different users are not.
type Ledger struct {
	store  Store
	cfg    Config
	locks  *keyedMutex
	logger *slog.Logger

	Nower nower
	NewID func() string
}

func NewLedger(store Store, cfg Config, logger *slog.Logger) *Ledger {
	if cfg.XP == nil {
		cfg.XP = DefaultXPTable()
	}
	if cfg.Badges == nil {
		cfg.Badges = DefaultBadgeTable()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		cfg:    cfg,
		locks:  newKeyedMutex(),
		logger: logger,
		Nower:  RealNower{},
		NewID:  uuid.NewString,
	}
}

// Activity describes one XP-earning action.
type Activity struct {
	UserID int64
	Kind   domain.ActionKind
	// XP overrides the configured reward for Kind when set.
	XP          *int
	Description string
	// Minutes of study the action represents, if any.
	Minutes int
	// Today is the caller's calendar day. The zero Date means the current
	// day in the ledger's location.
	Today domain.Date
}

// Result is the state after a recorded activity, the entry it appended and
// the badges it unlocked.
type Result struct {
	Progress domain.ProgressState    `json:"progress"`
	Entry    domain.ActivityLogEntry `json:"entry"`
	Unlocked []domain.Badge          `json:"unlocked,omitempty"`
}

// RecordActivity grants XP for a and updates the user's totals and streak.
// Validation failures leave everything untouched; a store failure is
// returned as a *domain.PersistenceError and leaves the stored state as it
// was before the call.
func (l *Ledger) RecordActivity(ctx context.Context, a Activity) (Result, error) {
	if err := validateUser(a.UserID); err != nil {
		return Result{}, err
	}
	xp, err := l.cfg.XP.For(a.Kind)
	if err != nil {
		return Result{}, err
	}
	if a.XP != nil {
		if *a.XP < 0 {
			return Result{}, fmt.Errorf("%w: xp must not be negative", domain.ErrInvalidArgument)
		}
		xp = *a.XP
	}
	if a.Minutes < 0 {
		return Result{}, fmt.Errorf("%w: minutes must not be negative", domain.ErrInvalidArgument)
	}

	res, _, err := l.update(ctx, a.UserID, a.Today, func(domain.ProgressState, domain.Date) (grant, bool) {
		return grant{kind: a.Kind, xp: xp, description: a.Description, minutes: a.Minutes}, true
	})
	return res, err
}

// ClaimDailyLogin grants the daily-login reward, plus a bonus for each day
// of unbroken streak, the first time it is called on a calendar day.
// When the user has already been active today nothing is recorded and
// claimed is false.
func (l *Ledger) ClaimDailyLogin(ctx context.Context, userID int64) (res Result, claimed bool, err error) {
	if err := validateUser(userID); err != nil {
		return Result{}, false, err
	}
	base, err := l.cfg.XP.For(domain.ActionDailyLogin)
	if err != nil {
		return Result{}, false, err
	}

	return l.update(ctx, userID, domain.Date{}, func(p domain.ProgressState, today domain.Date) (grant, bool) {
		// A last active day after today, from a clock running behind, also
		// counts as claimed.
		if !p.LastActiveDate.IsZero() && !p.LastActiveDate.Before(today) {
			return grant{}, false
		}
		streak := continuingStreak(p, today)
		return grant{
			kind:        domain.ActionDailyLogin,
			xp:          base + streak*l.cfg.StreakBonusPerDay,
			description: fmt.Sprintf("daily login (+%d streak bonus)", streak*l.cfg.StreakBonusPerDay),
		}, true
	})
}

// Progress returns the user's current totals. A user with no activity gets
// a zeroed state.
func (l *Ledger) Progress(ctx context.Context, userID int64) (domain.ProgressState, error) {
	if err := validateUser(userID); err != nil {
		return domain.ProgressState{}, err
	}
	state, err := l.load(ctx, userID)
	if err != nil {
		return domain.ProgressState{}, err
	}
	return state, nil
}

// History returns the user's most recent limit log entries, newest first.
func (l *Ledger) History(ctx context.Context, userID int64, limit int) ([]domain.ActivityLogEntry, error) {
	if err := validateUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}
	entries, err := l.store.QueryRecentLog(ctx, userID, limit)
	if err != nil {
		return nil, domain.Persistence("query recent log", err)
	}
	return entries, nil
}

type grant struct {
	kind        domain.ActionKind
	xp          int
	description string
	minutes     int
}

// update runs one read-modify-write of a user's progress. plan decides,
// from the freshly loaded state, what to grant; returning false skips the
// write. Version conflicts reload and replan up to MaxRetries times.
func (l *Ledger) update(ctx context.Context, userID int64, today domain.Date,
	plan func(domain.ProgressState, domain.Date) (grant, bool)) (Result, bool, error) {

	unlock := l.locks.Lock(userID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, false, err
		}
		now := l.Nower.Now()
		day := today
		if day.IsZero() {
			day = domain.DateIn(now, l.cfg.Location)
		}

		state, err := l.load(ctx, userID)
		if err != nil {
			return Result{}, false, err
		}
		g, ok := plan(state, day)
		if !ok {
			return Result{Progress: state}, false, nil
		}

		if err := checkHeadroom(state, g); err != nil {
			return Result{}, false, err
		}

		next, entry, unlocked := l.apply(state, g, day, now)
		err = l.store.SaveProgressAndAppendLog(ctx, next, entry)
		if err == nil {
			l.logger.Debug("activity recorded",
				"user_id", userID,
				"action", entry.Action,
				"xp", entry.XP,
				"total_xp", next.TotalXP,
				"level", next.Level(),
				"streak", next.CurrentStreak,
			)
			for _, b := range unlocked {
				l.logger.Info("badge unlocked", "user_id", userID, "badge", b.ID)
			}
			return Result{Progress: next, Entry: entry, Unlocked: unlocked}, true, nil
		}
		if errors.Is(err, domain.ErrConflict) && attempt < l.cfg.MaxRetries {
			l.logger.Warn("progress version conflict, retrying",
				"user_id", userID, "attempt", attempt, "version", next.Version)
			continue
		}
		return Result{}, false, domain.Persistence("save progress", err)
	}
}

func (l *Ledger) load(ctx context.Context, userID int64) (domain.ProgressState, error) {
	state, ok, err := l.store.LoadProgress(ctx, userID)
	if err != nil {
		return domain.ProgressState{}, domain.Persistence("load progress", err)
	}
	if !ok {
		return domain.NewProgressState(userID), nil
	}
	return state, nil
}

// apply computes the state following g and the badges it newly unlocks.
// Level is not stored on the state; it is always read back through
// ProgressState.Level.
func (l *Ledger) apply(p domain.ProgressState, g grant, today domain.Date, now time.Time) (domain.ProgressState, domain.ActivityLogEntry, []domain.Badge) {
	next := advanceStreak(p, today)
	next.TotalXP += g.xp
	next.StudyMinutes += g.minutes
	bumpCounter(&next, g.kind)
	next.Version = p.Version + 1
	next.UpdatedAt = now.UTC()

	unlocked := l.cfg.Badges.unlock(next, now.UTC())
	if len(unlocked) > 0 {
		next.Badges = append(slices.Clone(p.Badges), unlocked...)
	}

	entry := domain.ActivityLogEntry{
		ID:          l.NewID(),
		UserID:      p.UserID,
		Action:      g.kind,
		XP:          g.xp,
		Description: g.description,
		CreatedAt:   now.UTC(),
	}
	return next, entry, unlocked
}

// checkHeadroom rejects a grant that would overflow the user's running
// totals.
func checkHeadroom(p domain.ProgressState, g grant) error {
	if g.xp > math.MaxInt-p.TotalXP {
		return fmt.Errorf("%w: %d xp exceeds the remaining total for user %d", domain.ErrInvalidArgument, g.xp, p.UserID)
	}
	if g.minutes > math.MaxInt-p.StudyMinutes {
		return fmt.Errorf("%w: %d minutes exceeds the remaining total for user %d", domain.ErrInvalidArgument, g.minutes, p.UserID)
	}
	return nil
}

func validateUser(userID int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id must be positive, got %d", domain.ErrInvalidArgument, userID)
	}
	return nil
}
