package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"inventory/internal/menu"
	"inventory/internal/model"

	"github.com/spf13/cobra"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "init <snapshot.json>",
		Short: "Import products from a JSON snapshot",
		Long:  "Import every product of a JSON snapshot in one transaction. With --reset the catalog is dropped first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *flags, func(ctx context.Context, a *app) error {
				n, err := a.mgr.InitializeFromFile(ctx, args[0], reset)
				if err != nil {
					return userError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d product(s) imported.\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", true, "drop existing products before importing")
	return cmd
}

func newListCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *flags, func(ctx context.Context, a *app) error {
				products, err := a.mgr.ListInventory(ctx)
				if err != nil {
					return userError(err)
				}
				if len(products) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "(inventory is empty)")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), menu.RenderInventory(products))
				return nil
			})
		},
	}
}

func newSellCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sell <sku> <quantity>",
		Short: "Record a sale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %q", args[1])
			}
			return withApp(cmd, *flags, func(ctx context.Context, a *app) error {
				summary, err := a.mgr.SellProduct(ctx, args[0], qty)
				if err != nil {
					return userError(err)
				}
				fmt.Fprint(cmd.OutOrStdout(), menu.RenderSale(summary))
				return nil
			})
		},
	}
}

func newDashboardCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show sales statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *flags, func(ctx context.Context, a *app) error {
				stats, err := a.mgr.GetDashboard(ctx)
				if err != nil {
					return userError(err)
				}
				fmt.Fprint(cmd.OutOrStdout(), menu.RenderDashboard(stats))
				return nil
			})
		},
	}
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export-sales <file.csv>",
		Short: "Export the sales ledger as CSV",
		Long:  "Export the sales ledger as CSV. Use \"-\" to write to stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *flags, func(ctx context.Context, a *app) error {
				if args[0] == "-" {
					_, err := a.mgr.ExportSalesCSV(ctx, cmd.OutOrStdout())
					return userError(err)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create %s: %w", args[0], err)
				}
				n, err := a.mgr.ExportSalesCSV(ctx, f)
				if cerr := f.Close(); err == nil && cerr != nil {
					err = fmt.Errorf("%w: %v", model.ErrStorage, cerr)
				}
				if err != nil {
					return userError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d sale(s) exported to %s.\n", n, args[0])
				return nil
			})
		},
	}
}

// userError hides internal detail of storage and unknown errors; the full
// error has already been logged.
func userError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrStorage):
		return fmt.Errorf("%w: see the log file for details", model.ErrStorage)
	case model.IsKind(err):
		return err
	default:
		return errors.New(menu.Message(err))
	}
}

// ensureDir creates the parent directory of a database file.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
