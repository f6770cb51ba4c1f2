// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with RHCLIENT, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("RHCLIENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/rhclient", "$HOME/.rhclient", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	cmd := &cobra.Command{
		Use:   "rhclient",
		Short: "Read orders and instruments from a Robinhood brokerage account",
		Long: `Read orders and instruments from a Robinhood brokerage account.

Log in once with 'rhclient login'; the session is stored and reused by the other commands
until it expires or 'rhclient logout' removes it.`,
		SilenceUsage: true,
	}

	bindClientFlags(cmd)

	return cmd
}

// NewCommand returns the root command with every child command attached.
func NewCommand() *cobra.Command {
	root := NewRootCommand()

	root.AddCommand(NewLoginCommand())
	root.AddCommand(NewLogoutCommand())
	root.AddCommand(NewOrdersCommand())
	root.AddCommand(NewInstrumentsCommand())
	root.AddCommand(NewMigrateCommand())
	root.AddCommand(NewVersionCommand())

	return root
}
