package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medfocus/studycore/internal/domain"
)

func TestDefaultXPTableCoversEveryAction(t *testing.T) {
	table := DefaultXPTable()
	require.NoError(t, table.Validate())
	for _, k := range domain.ActionKinds() {
		_, ok := table[k]
		assert.True(t, ok, "missing %s", k)
	}
	assert.Equal(t, 25, table[domain.ActionPomodoro])
	assert.Equal(t, 15, table[domain.ActionQuiz])
	assert.Equal(t, 5, table[domain.ActionFlashcard])
}

func TestXPTableMerge(t *testing.T) {
	merged, err := DefaultXPTable().Merge(map[string]int{"pomodoro": 40})
	require.NoError(t, err)
	assert.Equal(t, 40, merged[domain.ActionPomodoro])
	assert.Equal(t, 15, merged[domain.ActionQuiz])

	_, err = DefaultXPTable().Merge(map[string]int{"nap": 1})
	require.ErrorIs(t, err, domain.ErrUnknownAction)

	_, err = DefaultXPTable().Merge(map[string]int{"quiz": -1})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestXPTableForFallsBackToDefaults(t *testing.T) {
	xp, err := XPTable{}.For(domain.ActionBattleWon)
	require.NoError(t, err)
	assert.Equal(t, 30, xp)

	_, err = XPTable{}.For("sleep")
	require.ErrorIs(t, err, domain.ErrUnknownAction)
}
