package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, "2023-12-31", d.AddDays(-59).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))
	assert.True(t, Date{}.IsZero())

	_, err = ParseDate("28/02/2024")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDateIn(t *testing.T) {
	instant := time.Date(2026, time.January, 1, 1, 0, 0, 0, time.UTC)
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	assert.Equal(t, Date{Year: 2026, Month: time.January, Day: 1}, DateIn(instant, nil))
	assert.Equal(t, Date{Year: 2025, Month: time.December, Day: 31}, DateIn(instant, saoPaulo))
}

func TestDateJSON(t *testing.T) {
	p := ProgressState{UserID: 1, LastActiveDate: Date{Year: 2026, Month: time.March, Day: 9}}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"lastActiveDate":"2026-03-09"`)

	var back ProgressState
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, p.LastActiveDate, back.LastActiveDate)

	b, err = json.Marshal(NewProgressState(2))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "lastActiveDate")
}

func TestParseActionKind(t *testing.T) {
	for _, k := range ActionKinds() {
		got, err := ParseActionKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseActionKind("Pomodoro")
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Len(t, ActionKinds(), 9)
}

func TestLevelFor(t *testing.T) {
	for xp, level := range map[int]int{0: 1, 499: 1, 500: 2, 999: 2, 1000: 3, 12345: 25} {
		assert.Equal(t, level, LevelFor(xp), "xp %d", xp)
		assert.Equal(t, level, ProgressState{TotalXP: xp}.Level())
	}
}

func TestPersistence(t *testing.T) {
	assert.NoError(t, Persistence("op", nil))

	cause := errors.New("connection reset")
	err := Persistence("save card", cause)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save card", pe.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "persistence: save card: connection reset", err.Error())

	assert.Same(t, pe, Persistence("outer", err).(*PersistenceError))
}

func TestNewCard(t *testing.T) {
	now := time.Date(2026, time.April, 2, 8, 0, 0, 0, time.UTC)
	c := NewCard("id", "deck", "front", "back", now)
	assert.Equal(t, DefaultEaseFactor, c.EaseFactor)
	assert.Zero(t, c.Interval)
	assert.Zero(t, c.Repetitions)
	assert.Equal(t, now, c.NextReview)
	assert.False(t, c.Reviewed())
}
