package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robinhood-client/robinhood-client-go/pkg/instruments"
)

// NewInstrumentsCommand returns the command group that looks up instruments.
func NewInstrumentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instruments",
		Short: "Look up instruments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get INSTRUMENT_ID",
		Short: "Show an instrument as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newAuthenticatedClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			instrument, err := client.Instruments().GetInstrument(ctx, args[0])
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), instrument)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "symbol INSTRUMENT_ID|INSTRUMENT_URL...",
		Short: "Print the ticker symbol of each instrument",
		Long: `Print the ticker symbol of each instrument, one per line.

Instruments that cannot be resolved are printed as '?'. Each distinct instrument is requested once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newAuthenticatedClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			for _, arg := range args {
				id := arg
				if extracted, err := instruments.ExtractInstrumentID(arg); err == nil {
					id = extracted
				}

				symbol, ok := client.Instruments().SymbolByID(ctx, id)
				if !ok {
					symbol = "?"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, symbol)
			}

			return nil
		},
	})

	return cmd
}
