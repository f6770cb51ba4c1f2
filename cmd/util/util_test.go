package util

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestMustBindPFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", 10, "")
	MustBindPFlag("orders.pageSize", flags.Lookup("page-size"))

	require.Equal(t, 10, viper.GetInt("orders.pageSize"))

	require.NoError(t, flags.Parse([]string{"--page-size", "25"}))
	require.Equal(t, 25, viper.GetInt("orders.pageSize"))
}

func TestMustBindPFlagPanicsOnMissingFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.Panics(t, func() {
		MustBindPFlag("orders.pageSize", nil)
	})
}

func TestMustBindEnv(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("RHCLIENT_LOG_LEVEL", "debug")

	MustBindEnv("log.level", "RHCLIENT_LOG_LEVEL")
	require.Equal(t, "debug", viper.GetString("log.level"))
}

func TestPrepareTempConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	PrepareTempConfigFile(t, "log:\n  level: warn\n")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.rhclient")
	require.NoError(t, viper.ReadInConfig())
	require.Equal(t, "warn", viper.GetString("log.level"))
}
