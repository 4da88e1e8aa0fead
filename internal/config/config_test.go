package config_test

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/oss-vizier/core/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(flags)
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(flags)
	require.NoError(t, err)
	require.Equal(t, "", cfg.DatabaseURL)
	require.Equal(t, config.DefaultEarlyStopRecyclePeriod, cfg.EarlyStopRecyclePeriod)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.BindFlags(flags)
	require.NoError(t, flags.Parse([]string{
		"--database-url=postgres://localhost/vizier",
		"--early-stop-recycle-period=90s",
	}))

	cfg, err := config.Load(flags)
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/vizier", cfg.DatabaseURL)
	require.Equal(t, 90*time.Second, cfg.EarlyStopRecyclePeriod)
}
