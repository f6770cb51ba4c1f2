package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/robinhood-client/robinhood-client-go/pkg/cursor"
	"github.com/robinhood-client/robinhood-client-go/pkg/orders"
)

const (
	accountFlag   = "account"
	pageSizeFlag  = "page-size"
	startDateFlag = "start-date"
	limitFlag     = "limit"
	noSymbolsFlag = "no-symbols"
)

// NewOrdersCommand returns the command group that reads stock and options orders.
func NewOrdersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Read stock and options orders",
	}

	stock := &cobra.Command{
		Use:   "stock",
		Short: "Read stock orders",
	}
	stock.AddCommand(newStockOrdersListCommand(), newStockOrderGetCommand())

	options := &cobra.Command{
		Use:   "options",
		Short: "Read options orders",
	}
	options.AddCommand(newOptionsOrdersListCommand(), newOptionsOrderGetCommand())

	cmd.AddCommand(stock, options)

	return cmd
}

func addListFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.String(accountFlag, "", "the account number (defaults to the account of the session)")
	flags.Int(pageSizeFlag, 0, "the number of orders requested per page (defaults to 'orders.pageSize')")
	flags.String(startDateFlag, "", "only list orders created on or after this date (YYYY-MM-DD)")
	flags.Int(limitFlag, 0, "stop after this many orders (0 lists every order)")
}

type listFlags struct {
	account   string
	pageSize  int
	startDate time.Time
	limit     int
}

func readListFlags(cmd *cobra.Command, defaultAccount string) (listFlags, error) {
	flags := cmd.Flags()

	var f listFlags
	f.account, _ = flags.GetString(accountFlag)
	f.pageSize, _ = flags.GetInt(pageSizeFlag)
	f.limit, _ = flags.GetInt(limitFlag)

	if f.account == "" {
		f.account = defaultAccount
	}

	if raw, _ := flags.GetString(startDateFlag); raw != "" {
		startDate, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return listFlags{}, fmt.Errorf("invalid --%s '%s': expected YYYY-MM-DD", startDateFlag, raw)
		}
		f.startDate = startDate
	}

	return f, nil
}

// writeResult prints up to limit items of result as JSON lines, walking pages as needed.
func writeResult[T any](cmd *cobra.Command, result *cursor.Result[T], limit int) error {
	enc := json.NewEncoder(cmd.OutOrStdout())

	written := 0
	for item, err := range result.Seq(cmd.Context()) {
		if err != nil {
			return err
		}
		if err := enc.Encode(item); err != nil {
			return err
		}
		written++
		if limit > 0 && written >= limit {
			break
		}
	}

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStockOrdersListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stock orders, newest first, as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := newAuthenticatedClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			f, err := readListFlags(cmd, client.Session().AccountNumber)
			if err != nil {
				return err
			}

			req := orders.StockOrdersRequest{
				AccountNumber: f.account,
				PageSize:      f.pageSize,
				StartDate:     f.startDate,
			}
			if noSymbols, _ := cmd.Flags().GetBool(noSymbolsFlag); noSymbols {
				resolve := false
				req.ResolveSymbols = &resolve
			}

			result, err := client.Orders().GetStockOrders(ctx, req)
			if err != nil {
				return err
			}

			return writeResult(cmd, result, f.limit)
		},
	}

	addListFlags(cmd)
	cmd.Flags().Bool(noSymbolsFlag, false, "do not resolve the ticker symbol of each order")

	return cmd
}

func newStockOrderGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get ORDER_ID",
		Short: "Show a stock order as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newAuthenticatedClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			req := orders.StockOrderRequest{OrderID: args[0]}
			if noSymbols, _ := cmd.Flags().GetBool(noSymbolsFlag); noSymbols {
				resolve := false
				req.ResolveSymbols = &resolve
			}

			order, err := client.Orders().GetStockOrder(ctx, req)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), order)
		},
	}

	cmd.Flags().Bool(noSymbolsFlag, false, "do not resolve the ticker symbol of the order")

	return cmd
}

func newOptionsOrdersListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List options orders, newest first, as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			client, err := newAuthenticatedClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			f, err := readListFlags(cmd, client.Session().AccountNumber)
			if err != nil {
				return err
			}

			result, err := client.Orders().GetOptionsOrders(ctx, orders.OptionsOrdersRequest{
				AccountNumber: f.account,
				PageSize:      f.pageSize,
				StartDate:     f.startDate,
			})
			if err != nil {
				return err
			}

			return writeResult(cmd, result, f.limit)
		},
	}

	addListFlags(cmd)

	return cmd
}

func newOptionsOrderGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ORDER_ID",
		Short: "Show an options order as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := newAuthenticatedClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			order, err := client.Orders().GetOptionsOrder(ctx, orders.OptionsOrderRequest{OrderID: args[0]})
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), order)
		},
	}
}
