package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/robinhood-client/robinhood-client-go/cmd/util"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/session"
)

const (
	versionFlag          = "version"
	timeoutFlag          = "timeout"
	verboseMigrationFlag = "verbose"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the schema migrations of a SQL session store",
		Long: `The migrate command is used to migrate the schema of the 'sqlite', 'postgres' or 'mysql' session stores.

The stores are migrated automatically when opened unless 'session.autoMigrate' is false.`,
		RunE: runMigration,
		Args: cobra.NoArgs,
		PreRun: func(cmd *cobra.Command, _ []string) {
			flags := cmd.Flags()

			util.MustBindPFlag(versionFlag, flags.Lookup(versionFlag))
			util.MustBindPFlag(timeoutFlag, flags.Lookup(timeoutFlag))
			util.MustBindPFlag(verboseMigrationFlag, flags.Lookup(verboseMigrationFlag))
		},
	}

	flags := cmd.Flags()

	flags.Uint(versionFlag, 0, "the version to migrate to (if omitted the latest schema will be used)")
	flags.Duration(timeoutFlag, 1*time.Minute, "a timeout for the time it takes the migrate process to connect to the database")
	flags.Bool(verboseMigrationFlag, false, "enable verbose migration logs (default false)")

	// NOTE: if you add a new flag here, add the binding in PreRun

	return cmd
}

func runMigration(cmd *cobra.Command, _ []string) error {
	cfg, err := ReadConfig()
	if err != nil {
		return err
	}

	switch cfg.Session.Engine {
	case "memory", "file":
		fmt.Fprintf(cmd.OutOrStdout(), "no migrations to run for the '%s' session engine\n", cfg.Session.Engine)
		return nil
	case "":
		return fmt.Errorf("missing session engine type")
	}

	if cfg.Session.URI == "" {
		return fmt.Errorf("missing session uri")
	}

	l, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}

	migrationConfig := session.MigrationConfig{
		Engine:        cfg.Session.Engine,
		URI:           cfg.Session.URI,
		TargetVersion: viper.GetUint(versionFlag),
		Timeout:       viper.GetDuration(timeoutFlag),
		Verbose:       viper.GetBool(verboseMigrationFlag),
		Logger:        l,
	}

	if err := session.RunMigrations(cmd.Context(), migrationConfig); err != nil {
		return err
	}

	version, err := session.CurrentVersion(cmd.Context(), migrationConfig)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "migration done, schema version %d\n", version)
	return nil
}
