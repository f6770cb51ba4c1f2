package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robinhood-client/robinhood-client-go/internal/build"
)

// NewVersionCommand returns the command to get the rhclient version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the rhclient version",
		Long:  "Return the rhclient version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "rhclient version %s date %s commit id %s\n", build.Version, build.Date, build.Commit)
	return nil
}
