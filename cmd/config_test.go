package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/robinhood-client/robinhood-client-go/cmd/util"
	"github.com/robinhood-client/robinhood-client-go/pkg/config"
)

func readConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	root := NewRootCommand()
	require.NoError(t, root.ParseFlags(args))

	cfg, err := ReadConfig()
	require.NoError(t, err)
	return cfg
}

func TestReadConfigDefaults(t *testing.T) {
	confdir := util.PrepareTempConfigDir(t)

	cfg := readConfig(t)
	want := config.DefaultConfig()
	require.Equal(t, want, cfg)
	require.Contains(t, cfg.Session.Path, confdir)
}

func TestReadConfigFile(t *testing.T) {
	util.PrepareTempConfigFile(t, `api:
  timeout: 3s
  retryMax: 2
session:
  engine: sqlite
  uri: /var/lib/rhclient/sessions.db
  profile: work
orders:
  pageSize: 25
  resolveSymbols: false
`)

	cfg := readConfig(t)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, 2, cfg.API.RetryMax)
	require.Equal(t, "sqlite", cfg.Session.Engine)
	require.Equal(t, "/var/lib/rhclient/sessions.db", cfg.Session.URI)
	require.Equal(t, "work", cfg.Session.Profile)
	require.Equal(t, 25, cfg.Orders.PageSize)
	require.False(t, cfg.Orders.ResolveSymbols)
	require.NoError(t, cfg.Verify())
}

func TestReadConfigEnvOverridesFile(t *testing.T) {
	util.PrepareTempConfigFile(t, `orders:
  pageSize: 25
`)
	t.Setenv("RHCLIENT_ORDERS_PAGE_SIZE", "40")
	t.Setenv("RHCLIENT_LOG_FORMAT", "json")

	cfg := readConfig(t)
	require.Equal(t, 40, cfg.Orders.PageSize)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestReadConfigFlagsOverrideEnv(t *testing.T) {
	util.PrepareTempConfigDir(t)
	t.Setenv("RHCLIENT_ORDERS_PAGE_SIZE", "40")

	cfg := readConfig(t, "--orders-page-size", "50", "--profile", "joint", "--api-retry-max", "3")
	require.Equal(t, 50, cfg.Orders.PageSize)
	require.Equal(t, "joint", cfg.Session.Profile)
	require.Equal(t, 3, cfg.API.RetryMax)
}
