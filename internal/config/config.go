// Package config loads service configuration from, in increasing order of
// precedence, built-in defaults, an optional YAML file, MEDFOCUS_ environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for progress.timezone on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/medfocus/studycore/internal/progress"
	"github.com/medfocus/studycore/internal/sm2"
)

// EnvPrefix marks environment variables read as configuration.
// MEDFOCUS_PROGRESS__MAX_RETRIES sets progress.max_retries.
const EnvPrefix = "MEDFOCUS_"

type Config struct {
	DB        DB        `koanf:"db"`
	HTTP      HTTP      `koanf:"http"`
	Log       Log       `koanf:"log"`
	Scheduler Scheduler `koanf:"scheduler"`
	Progress  Progress  `koanf:"progress"`
}

type DB struct {
	DSN string `koanf:"dsn" validate:"required"`
}

type HTTP struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type Log struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type Scheduler struct {
	MaximumInterval int `koanf:"maximum_interval" validate:"gte=0"`
	MatureInterval  int `koanf:"mature_interval" validate:"gte=1"`
	ForecastDays    int `koanf:"forecast_days" validate:"gte=0,lte=366"`
}

type Progress struct {
	Timezone          string         `koanf:"timezone" validate:"required,timezone"`
	MaxRetries        int            `koanf:"max_retries" validate:"gte=1,lte=100"`
	HistoryLimit      int            `koanf:"history_limit" validate:"gte=1,lte=500"`
	StreakBonusPerDay int            `koanf:"streak_bonus_per_day" validate:"gte=0"`
	XP                map[string]int `koanf:"xp" validate:"dive,keys,required,endkeys,gte=0"`
	// Badges override or extend the stock badge table, keyed by badge id.
	Badges map[string]Badge `koanf:"badges" validate:"dive,keys,required,endkeys"`
}

// Badge is one badge rule. An empty Metric keeps the stock badge's metric;
// a zero Threshold disables the badge.
type Badge struct {
	Metric    string `koanf:"metric"`
	Threshold int    `koanf:"threshold" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	xp := make(map[string]int)
	for kind, amount := range progress.DefaultXPTable() {
		xp[string(kind)] = amount
	}
	sched := sm2.DefaultParams()
	return Config{
		DB:   DB{DSN: "medfocus.db"},
		HTTP: HTTP{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:  Log{Level: "info", Format: "text"},
		Scheduler: Scheduler{
			MaximumInterval: sched.MaximumInterval,
			MatureInterval:  sched.MatureInterval,
			ForecastDays:    sched.ForecastDays,
		},
		Progress: Progress{
			Timezone:          "UTC",
			MaxRetries:        5,
			HistoryLimit:      20,
			StreakBonusPerDay: 5,
			XP:                xp,
		},
	}
}

// Flags returns the command-line flags understood by Load. Flag names are
// the dotted configuration keys.
func Flags(name string) *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("db.dsn", d.DB.DSN, "SQLite database file")
	fs.String("http.addr", d.HTTP.Addr, "HTTP listen address")
	fs.Duration("http.shutdown_timeout", d.HTTP.ShutdownTimeout, "grace period for in-flight requests on shutdown")
	fs.String("log.level", d.Log.Level, "log level: debug, info, warn or error")
	fs.String("log.format", d.Log.Format, "log format: text or json")
	fs.Int("scheduler.maximum_interval", d.Scheduler.MaximumInterval, "cap on review intervals in days, 0 for none")
	fs.String("progress.timezone", d.Progress.Timezone, "IANA time zone in which streak days are counted")
	fs.Int("progress.max_retries", d.Progress.MaxRetries, "attempts per activity when concurrent updates collide")
	return fs
}

// Load parses args with fs and layers every configuration source.
func Load(fs *pflag.FlagSet, args []string) (Config, error) {
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(strings.ReplaceAll(key, "__", "."))
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	// Only flags set explicitly override lower layers; defaults come from
	// Default so the file and environment can still take effect.
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		if !f.Changed || f.Name == "config" {
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to read flags: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that every XP entry names a known
// action.
func (c Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	if _, err := c.XPTable(); err != nil {
		errs = append(errs, fmt.Errorf("config Config.Progress.XP: %w", err))
	}
	if _, err := c.BadgeTable(); err != nil {
		errs = append(errs, fmt.Errorf("config Config.Progress.Badges: %w", err))
	}
	return errors.Join(errs...)
}

// XPTable returns the configured rewards layered over the defaults.
func (c Config) XPTable() (progress.XPTable, error) {
	return progress.DefaultXPTable().Merge(c.Progress.XP)
}

// BadgeTable returns the configured badges layered over the defaults.
func (c Config) BadgeTable() (progress.BadgeTable, error) {
	overrides := make(map[string]progress.BadgeRule, len(c.Progress.Badges))
	for id, b := range c.Progress.Badges {
		overrides[id] = progress.BadgeRule{Metric: progress.BadgeMetric(b.Metric), Threshold: b.Threshold}
	}
	return progress.DefaultBadgeTable().Merge(overrides)
}

// Location resolves Progress.Timezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Progress.Timezone)
}

// SchedulerParams converts the scheduler section.
func (c Config) SchedulerParams() *sm2.Params {
	return &sm2.Params{
		MaximumInterval: c.Scheduler.MaximumInterval,
		MatureInterval:  c.Scheduler.MatureInterval,
		ForecastDays:    c.Scheduler.ForecastDays,
	}
}

// LedgerConfig converts the progress section.
func (c Config) LedgerConfig() (progress.Config, error) {
	xp, err := c.XPTable()
	if err != nil {
		return progress.Config{}, err
	}
	badges, err := c.BadgeTable()
	if err != nil {
		return progress.Config{}, err
	}
	loc, err := c.Location()
	if err != nil {
		return progress.Config{}, err
	}
	return progress.Config{
		XP:                xp,
		Badges:            badges,
		Location:          loc,
		MaxRetries:        c.Progress.MaxRetries,
		StreakBonusPerDay: c.Progress.StreakBonusPerDay,
	}, nil
}
