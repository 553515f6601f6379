package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medfocus/studycore/internal/domain"
	"github.com/medfocus/studycore/internal/progress"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Flags("test"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	xp, err := cfg.XPTable()
	require.NoError(t, err)
	assert.Equal(t, 5, xp[domain.ActionFlashcard])
	assert.Equal(t, 50, xp[domain.ActionClinicalCaseCompleted])

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medfocus.yaml")
	yamlDoc := `
db:
  dsn: from-file.db
http:
  addr: ":9000"
  shutdown_timeout: 3s
progress:
  timezone: Europe/Dublin
  max_retries: 2
  xp:
    flashcard: 7
  badges:
    streak_3:
      threshold: 4
    night_owl:
      metric: pomodoros
      threshold: 20
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("MEDFOCUS_HTTP__ADDR", ":9100")
	t.Setenv("MEDFOCUS_PROGRESS__XP__QUIZ", "20")

	cfg, err := Load(Flags("test"), []string{"--config", path, "--progress.max_retries", "9"})
	require.NoError(t, err)

	assert.Equal(t, "from-file.db", cfg.DB.DSN)
	assert.Equal(t, ":9100", cfg.HTTP.Addr, "environment beats file")
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 9, cfg.Progress.MaxRetries, "flag beats file")
	assert.Equal(t, "Europe/Dublin", cfg.Progress.Timezone)

	xp, err := cfg.XPTable()
	require.NoError(t, err)
	assert.Equal(t, 7, xp[domain.ActionFlashcard])
	assert.Equal(t, 20, xp[domain.ActionQuiz])
	assert.Equal(t, 25, xp[domain.ActionPomodoro])

	lc, err := cfg.LedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Dublin", lc.Location.String())
	assert.Equal(t, 9, lc.MaxRetries)
	assert.Equal(t, progress.BadgeRule{Metric: progress.MetricStreak, Threshold: 4}, lc.Badges["streak_3"])
	assert.Equal(t, progress.BadgeRule{Metric: progress.MetricPomodoros, Threshold: 20}, lc.Badges["night_owl"])
	assert.Equal(t, progress.BadgeRule{Metric: progress.MetricStreak, Threshold: 7}, lc.Badges["streak_7"])
}

func TestLoadUnsetFlagsKeepLowerLayers(t *testing.T) {
	t.Setenv("MEDFOCUS_LOG__LEVEL", "debug")
	cfg, err := Load(Flags("test"), []string{"--db.dsn", "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "x.db", cfg.DB.DSN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty dsn", func(c *Config) { c.DB.DSN = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"negative max interval", func(c *Config) { c.Scheduler.MaximumInterval = -1 }},
		{"zero retries", func(c *Config) { c.Progress.MaxRetries = 0 }},
		{"unknown zone", func(c *Config) { c.Progress.Timezone = "Mars/Olympus" }},
		{"negative xp", func(c *Config) { c.Progress.XP["quiz"] = -3 }},
		{"unknown action", func(c *Config) { c.Progress.XP["nap"] = 10 }},
		{"zero shutdown", func(c *Config) { c.HTTP.ShutdownTimeout = 0 }},
		{"badge without metric", func(c *Config) { c.Progress.Badges = map[string]Badge{"new": {Threshold: 1}} }},
		{"badge with unknown metric", func(c *Config) { c.Progress.Badges = map[string]Badge{"new": {Metric: "naps", Threshold: 1}} }},
		{"negative badge threshold", func(c *Config) { c.Progress.Badges = map[string]Badge{"streak_3": {Threshold: -1}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv("MEDFOCUS_LOG__FORMAT", "xml")
	_, err := Load(Flags("test"), nil)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Flags("test"), []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}
