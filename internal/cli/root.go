package cli

import (
	"context"

	"inventory/internal/config"
	"inventory/internal/inventory"
	"inventory/internal/logging"
	"inventory/internal/menu"
	"inventory/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalFlags override configuration loaded from the environment.
type globalFlags struct {
	dbPath   string
	logLevel string
	logFile  string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags
	cmd := &cobra.Command{
		Use:           "inventory",
		Short:         "Product inventory and sales ledger on SQLite",
		Long:          "Manage a product catalog, record sales as atomic stock-decrementing transactions and report on them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				a.log.Info("app started", zap.String("db", a.cfg.DBPath))
				return menu.New(a.mgr, cmd.InOrStdin(), cmd.OutOrStdout(), a.log, a.cfg.SnapshotPath, a.cfg.DefaultVatRate).Run(ctx)
			})
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.dbPath, "db", "", "SQLite database file (env INVENTORY_DB_PATH)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug/info/warn/error (env INVENTORY_LOG_LEVEL)")
	pf.StringVar(&flags.logFile, "log-file", "", "log file, \"-\" disables file logging (env INVENTORY_LOG_FILE)")

	cmd.AddCommand(newInitCmd(&flags))
	cmd.AddCommand(newListCmd(&flags))
	cmd.AddCommand(newSellCmd(&flags))
	cmd.AddCommand(newDashboardCmd(&flags))
	cmd.AddCommand(newExportCmd(&flags))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}

// app holds everything a command needs for one invocation.
type app struct {
	cfg   config.AppConfig
	log   *zap.Logger
	store *store.Store
	mgr   *inventory.Manager
}

// withApp loads configuration, opens the store, runs fn and releases
// everything afterwards.
func withApp(cmd *cobra.Command, flags globalFlags, fn func(context.Context, *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	switch flags.logFile {
	case "":
	case "-":
		cfg.LogFile = ""
	default:
		cfg.LogFile = flags.logFile
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Mode: cfg.LogMode, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := ensureDir(cfg.DBPath); err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath, store.Options{BusyTimeout: cfg.BusyTimeout, Debug: cfg.SQLDebug}, log)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return userError(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}()

	mgr := inventory.NewManager(st,
		inventory.WithLogger(log),
		inventory.WithTimeout(cfg.OpTimeout),
		inventory.WithDefaultVatRate(cfg.DefaultVatRate),
	)
	return fn(cmd.Context(), &app{cfg: cfg, log: log, store: st, mgr: mgr})
}
