// Package config loads the process-level configuration of
// cmd/vizier-master: the datastore selector and the early-stopping
// recycle period, via viper with environment and flag overrides.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	keyDatabaseURL            = "database_url"
	keyEarlyStopRecyclePeriod = "early_stop_recycle_period"
	keyLogLevel               = "log_level"

	// DefaultEarlyStopRecyclePeriod matches orchestrator.DefaultEarlyStopRecyclePeriod;
	// duplicated here (rather than imported) so config does not depend
	// on internal/orchestrator.
	DefaultEarlyStopRecyclePeriod = 60 * time.Second
)

// Config is the resolved process configuration.
type Config struct {
	// DatabaseURL selects the Datastore backend. Empty means the
	// in-memory store; any other value is a postgres DSN.
	DatabaseURL string

	EarlyStopRecyclePeriod time.Duration

	LogLevel string
}

// BindFlags registers the flags config values can be overridden with.
// Call before Load.
func BindFlags(flags *pflag.FlagSet) {
	flags.String("database-url", "", "postgres DSN; empty uses the in-memory datastore")
	flags.Duration("early-stop-recycle-period", DefaultEarlyStopRecyclePeriod,
		"how long a DONE early-stopping decision is cached before being recomputed")
	flags.String("log-level", "info", "logrus level: trace, debug, info, warn, error")
}

// Load resolves Config from defaults, the VIZIER_* environment, and
// any flags bound via BindFlags.
func Load(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("vizier")
	v.AutomaticEnv()

	v.SetDefault(keyDatabaseURL, "")
	v.SetDefault(keyEarlyStopRecyclePeriod, DefaultEarlyStopRecyclePeriod)
	v.SetDefault(keyLogLevel, "info")

	if flags != nil {
		if err := v.BindPFlag(keyDatabaseURL, flags.Lookup("database-url")); err != nil {
			return Config{}, errors.Wrap(err, "binding database-url flag")
		}
		if err := v.BindPFlag(keyEarlyStopRecyclePeriod, flags.Lookup("early-stop-recycle-period")); err != nil {
			return Config{}, errors.Wrap(err, "binding early-stop-recycle-period flag")
		}
		if err := v.BindPFlag(keyLogLevel, flags.Lookup("log-level")); err != nil {
			return Config{}, errors.Wrap(err, "binding log-level flag")
		}
	}

	return Config{
		DatabaseURL:            v.GetString(keyDatabaseURL),
		EarlyStopRecyclePeriod: v.GetDuration(keyEarlyStopRecyclePeriod),
		LogLevel:               v.GetString(keyLogLevel),
	}, nil
}
